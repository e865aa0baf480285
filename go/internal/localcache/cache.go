package localcache

import (
	"context"
	"fmt"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Persistence is a device-scoped string key-value slot that survives restarts.
type Persistence interface {
	// Get returns false when nothing is stored under key.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Cache keeps the last record that is known to have reached the remote, plus
// a safety copy of the live save taken before it gets overwritten.
type Cache struct {
	store     Persistence
	localKey  string
	backupKey string
}

func New(store Persistence, localKey, backupKey string) *Cache {
	return &Cache{
		store:     store,
		localKey:  localKey,
		backupKey: backupKey,
	}
}

// ReadLastSynced returns the last synced record. A missing, unreadable or
// malformed slot reads as nil.
func (c *Cache) ReadLastSynced(ctx context.Context) *models.SaveRecord {
	raw, found, err := c.store.Get(ctx, c.localKey)
	if err != nil {
		log.Warn().Err(err).Str("key", c.localKey).Msg("Failed to read last synced save, treating it as absent")
		return nil
	}
	if !found || raw == "" {
		return nil
	}

	record, err := models.UnmarshalRecord([]byte(raw))
	if err != nil {
		log.Warn().Err(err).Str("key", c.localKey).Msg("Ignoring malformed last synced save")
		return nil
	}
	return &record
}

// WriteLastSynced replaces the last synced record.
func (c *Cache) WriteLastSynced(ctx context.Context, record models.SaveRecord) error {
	data, err := models.MarshalRecord(record)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, c.localKey, string(data)); err != nil {
		return fmt.Errorf("write last synced save: %w", err)
	}
	return nil
}

// BackupCurrent stores payload in the backup slot, replacing any earlier backup.
func (c *Cache) BackupCurrent(ctx context.Context, payload string) error {
	if err := c.store.Set(ctx, c.backupKey, payload); err != nil {
		return fmt.Errorf("backup current save: %w", err)
	}
	log.Info().Str("key", c.backupKey).Int("bytes", len(payload)).Msg("Backed up current save")
	return nil
}
