package models

import "time"

// EnvironmentHitsModel is one month's aggregated router hits for an
// environment namespace. Hits are recorded against the namespace rather
// than the environment id because the router only knows the namespace.
type EnvironmentHitsModel struct {
	ID                   uint   `gorm:"primary_key;autoIncrement"`
	OpenshiftProjectName string `gorm:"type:varchar(100);not null;index:idx_hits_namespace_month"`
	Month                string `gorm:"type:varchar(7);not null;index:idx_hits_namespace_month"`
	Hits                 int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (EnvironmentHitsModel) TableName() string {
	return "environment_hits"
}

// EnvironmentStorageModel is one day's storage snapshot for an environment
type EnvironmentStorageModel struct {
	ID            uint      `gorm:"primary_key;autoIncrement"`
	EnvironmentID int       `gorm:"not null;index:idx_storage_env_updated"`
	BytesUsed     int64     `gorm:"not null;default:0"`
	Updated       time.Time `gorm:"not null;index:idx_storage_env_updated"`
}

// TableName returns the table name for GORM
func (EnvironmentStorageModel) TableName() string {
	return "environment_storage"
}
