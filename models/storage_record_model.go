package models

import "time"

// StorageRecord holds one JSON-encoded collection of the persistent store.
type StorageRecord struct {
	Key       string `gorm:"column:collection_key;primaryKey;size:100"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}
