package models

import "time"

// KVEntry is one persisted key-value pair of client state.
type KVEntry struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name.
func (KVEntry) TableName() string {
	return "kv_entries"
}
