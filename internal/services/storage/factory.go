package storage

import (
	"context"
	"fmt"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/utils"
)

// NewStorage creates S3 storage
func NewStorage(cfg *config.S3Config) (StorageInterface, error) {
	utils.LogInfo(context.Background(), "Creating S3 storage", utils.Fields{
		"bucket":   cfg.BucketName,
		"endpoint": cfg.EndpointURL,
	})

	storage, err := NewS3Storage(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage: %w", err)
	}

	return storage, nil
}
