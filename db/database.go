package db

import (
	"database/sql"
	"fmt"
	"log"

	"spookify/config"
	"spookify/core/auth"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// SeedCatalog inserts the fallback user and a small demo catalog on an empty
// database. Running it repeatedly is a no-op.
func SeedCatalog() error {
	var userCount int64
	if err := DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if userCount == 0 {
		// The playlist listing endpoint falls back to user id 1 when no
		// user_id is supplied, so that account has to exist.
		hash, err := auth.HashPassword("spookify")
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}
		if _, err := DB.Exec(
			"INSERT INTO users (id, username, email, password_hash, role) VALUES (1, ?, ?, ?, ?)",
			"ghost", "ghost@spookify.local", hash, "admin",
		); err != nil {
			return fmt.Errorf("failed to insert seed user: %w", err)
		}
		log.Println("Seed user 'ghost' created with ID 1.")
	}

	var songCount int64
	if err := DB.QueryRow("SELECT COUNT(*) FROM songs").Scan(&songCount); err != nil {
		return fmt.Errorf("failed to count songs: %w", err)
	}
	if songCount > 0 {
		return nil
	}

	artists := []string{"The Midnight Howlers", "Grave Danger", "Phantom Frequencies"}
	for i, name := range artists {
		if _, err := DB.Exec("INSERT INTO artists (id, name) VALUES (?, ?)", i+1, name); err != nil {
			return fmt.Errorf("failed to insert seed artist %q: %w", name, err)
		}
	}

	songs := []struct {
		title    string
		artistID int64
		genre    string
		cover    string
		url      string
	}{
		{"Witching Hour", 1, "Synthwave", "media/covers/witching-hour.jpg", "media/audio/witching-hour.mp3"},
		{"Bone Orchard", 2, "Rock", "media/covers/bone-orchard.jpg", "media/audio/bone-orchard.mp3"},
		{"Static Séance", 3, "Ambient", "media/covers/static-seance.jpg", "media/audio/static-seance.mp3"},
		{"Pumpkin Waltz", 1, "Synthwave", "media/covers/pumpkin-waltz.jpg", "media/audio/pumpkin-waltz.mp3"},
	}
	for _, s := range songs {
		if _, err := DB.Exec(
			"INSERT INTO songs (title, artist_id, album_id, duration, cover, url, genre) VALUES (?, ?, 0, 0, ?, ?, ?)",
			s.title, s.artistID, s.cover, s.url, s.genre,
		); err != nil {
			return fmt.Errorf("failed to insert seed song %q: %w", s.title, err)
		}
	}

	log.Printf("Seeded %d artists and %d songs.", len(artists), len(songs))
	return nil
}
