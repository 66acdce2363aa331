package storage

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL persists entries in the local SQLite kv_entries table, keyed by "<profile>/<key>".
type SQL struct {
	client  *db.Client
	profile string
}

func NewSQL(client *db.Client, profile string) *SQL {
	return &SQL{client: client, profile: profile}
}

func (s *SQL) key(k string) string {
	if s.profile == "" {
		return k
	}
	return s.profile + "/" + k
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	err := s.client.DB().WithContext(ctx).Where("key = ?", s.key(key)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *SQL) SetAll(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for k, v := range values {
			entry := models.KVEntry{Key: s.key(k), Value: v}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&entry).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQL) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	scoped := make([]string, 0, len(keys))
	for _, k := range keys {
		scoped = append(scoped, s.key(k))
	}
	return s.client.DB().WithContext(ctx).Where("key IN ?", scoped).Delete(&models.KVEntry{}).Error
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *SQL) Close() error {
	return s.client.Close()
}
