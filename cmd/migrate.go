package cmd

import (
	"log"

	"spookify/config"
	"spookify/db"
	"spookify/model"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Create or update the MySQL schema for users, artists, songs, playlists and playlist memberships, then seed the demo catalog.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.AutoMigrateModels(
			&model.User{},
			&model.Artist{},
			&model.Song{},
			&model.Playlist{},
			&model.PlaylistSong{},
		); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.DB.Close()

		if err := db.SeedCatalog(); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}

		log.Println("Migration completed.")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
