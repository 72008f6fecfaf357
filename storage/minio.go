package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"spookify/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and verifies the media bucket
// exists. The bucket is provisioned out of band; it is only read here.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check media bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("media bucket %q does not exist", cfg.MinioBucket)
	}

	minioClient = client
	log.Printf("Connected to MinIO, bucket %q.", cfg.MinioBucket)
	return nil
}

// GetMinioClient returns the shared MinIO client, or nil before InitMinio.
func GetMinioClient() *minio.Client {
	return minioClient
}
