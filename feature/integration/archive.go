package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"game-sync/core/storage"
	"game-sync/feature/integration/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Archiver moves aged IntegrationEvent rows into object storage. Audit
// events are append-only and queried rarely, so anything past the retention
// window lives as a JSON object instead of a hot table row.
type Archiver struct {
	db            *gorm.DB
	client        storage.Client
	bucket        string
	retentionDays int
	logger        *zap.Logger
}

// NewArchiver creates an event archiver.
func NewArchiver(db *gorm.DB, client storage.Client, bucket string, retentionDays int, logger *zap.Logger) *Archiver {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &Archiver{db: db, client: client, bucket: bucket, retentionDays: retentionDays, logger: logger}
}

// Run exports all events older than the retention window to one JSON object
// and deletes the exported rows. Nothing is deleted unless the upload
// succeeded.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -a.retentionDays)

	var events []models.IntegrationEvent
	if err := a.db.WithContext(ctx).Where("created_at < ?", cutoff).Order("id ASC").Find(&events).Error; err != nil {
		return fmt.Errorf("failed to load archivable events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	objectName := fmt.Sprintf("events/%s/%d-%d.json", time.Now().UTC().Format("2006-01-02"), events[0].ID, events[len(events)-1].ID)
	_, err = a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive %s: %w", objectName, err)
	}

	result := a.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.IntegrationEvent{})
	if result.Error != nil {
		return fmt.Errorf("failed to prune archived events: %w", result.Error)
	}

	a.logger.Info("Archived integration events",
		zap.Int("count", len(events)),
		zap.Int64("pruned", result.RowsAffected),
		zap.String("object", objectName))
	return nil
}

func (a *Archiver) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create archive bucket: %w", err)
	}
	return nil
}
