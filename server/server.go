package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"spookify/cache"
	"spookify/config"
	"spookify/core/auth"
	"spookify/db"
	"spookify/logger"
	"spookify/model"
	"spookify/repository"
	"spookify/storage"

	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.SetSecret(cfg.JWTSecret)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := cache.ConnectRedis(cfg); err != nil {
		// Redis is an accelerator here, not a dependency; every cache
		// helper degrades to a miss without it.
		logger.Warn("Redis unavailable, running without cache", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database with GORM", logger.ErrorField(err))
	}
	if err := db.AutoMigrateModels(
		&model.User{},
		&model.Artist{},
		&model.Song{},
		&model.Playlist{},
		&model.PlaylistSong{},
	); err != nil {
		logger.Fatal("Failed to migrate schema", logger.ErrorField(err))
	}
	db.CloseGormDB()

	if err := db.SeedCatalog(); err != nil {
		logger.Fatal("Failed to seed catalog", logger.ErrorField(err))
	}

	songRepo := repository.NewMySQLSongRepository(db.DB)
	playlistRepo := repository.NewMySQLPlaylistRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)

	hub := NewHub()
	apiHandler := NewAPIHandler(songRepo, playlistRepo, userRepo, hub)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Catalog endpoints
	router.HandleFunc("/api/songs", apiHandler.GetSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/genre", apiHandler.GetSongsByGenreHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/genres", apiHandler.GetGenresHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/songs/lyrics", apiHandler.AuthMiddleware(apiHandler.UpdateLyricsHandler)).Methods(http.MethodPost)

	// Playlist endpoints
	router.HandleFunc("/api/playlists", apiHandler.GetPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", apiHandler.CreatePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/delete", apiHandler.DeletePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/rename", apiHandler.RenamePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/songs", apiHandler.AddSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/songs/remove", apiHandler.RemoveSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/songs/transfer", apiHandler.TransferSongHandler).Methods(http.MethodPost)

	// Auth endpoint (login + register behind one action-switched route)
	router.HandleFunc("/api/auth", apiHandler.AuthHandler).Methods(http.MethodPost)

	// Change notifications
	router.HandleFunc("/api/events", hub.ServeWS).Methods(http.MethodGet)

	// MinIO-backed media serving (covers and audio)
	router.PathPrefix("/media/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/media/")
		client := storage.GetMinioClient()
		if client == nil {
			http.Error(w, "MinIO client not available", http.StatusInternalServerError)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		object, err := client.GetObject(ctx, cfg.MinioBucket, objectPath, minio.GetObjectOptions{})
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		var contentType string
		if strings.HasPrefix(objectPath, "covers/") {
			contentType = "image/jpeg"
		} else if strings.HasPrefix(objectPath, "audio/") {
			contentType = "audio/mpeg"
		} else {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "public, max-age=31536000")

		if _, err := io.Copy(w, object); err != nil {
			logger.Warn("Error serving media file", logger.String("path", objectPath), logger.ErrorField(err))
		}
	})

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
