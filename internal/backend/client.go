// Package backend owns the process-wide connections. One Client is built in
// main and handed to every module.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"

	"anoa.com/labeebacademy/internal/config"
	"anoa.com/labeebacademy/pkg/database"
	"anoa.com/labeebacademy/pkg/storage"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Client struct {
	DB    *gorm.DB
	Redis *redis.Client
	Blobs storage.BlobStorage
	// Search is nil when MEILISEARCH_HOST is not set.
	Search meilisearch.ServiceManager
}

func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = database.DSN(cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName, cfg.DBPort)
	}

	db, err := database.Connect(dsn, cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}
	c := &Client{DB: db}

	c.Redis, err = database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Blobs, err = NewBlobStorage(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	if cfg.MeiliSearchHost != "" {
		c.Search = meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Println("MEILISEARCH_HOST is not set, video search uses the database")
	}

	return c, nil
}

// NewBlobStorage picks the blob driver named by STORAGE_DRIVER.
func NewBlobStorage(ctx context.Context, cfg *config.Config) (storage.BlobStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			URLTTL:        cfg.S3URLTTL,
		})
	case config.StorageCloudinary:
		return storage.NewCloudinaryStorage(storage.CloudinaryConfig{
			URL:       cfg.CloudinaryURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// Close releases redis and the SQL pool.
func (c *Client) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		} else {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
