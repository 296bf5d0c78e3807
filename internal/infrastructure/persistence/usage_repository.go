package persistence

import (
	"context"
	"errors"

	"github.com/wintercreative/lagoon/internal/domain/billing"
	"github.com/wintercreative/lagoon/internal/domain/shared"
	"github.com/wintercreative/lagoon/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUsageRepository implements billing.MetricsSource from locally collected
// usage facts. Hits are pre-aggregated per namespace and month; storage is a
// daily snapshot table summed over the month; hours come from the
// environment's lifetime clamped to the month window.
type GormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository creates a new GormUsageRepository
func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

// HitsForEnvironment returns total request hits for the namespace over the
// month. A namespace with no fact row measured zero hits.
func (r *GormUsageRepository) HitsForEnvironment(ctx context.Context, openshiftProjectName string, month billing.Month) (int64, error) {
	var model models.EnvironmentHitsModel
	err := r.db.WithContext(ctx).
		Where("openshift_project_name = ? AND month = ?", openshiftProjectName, month.String()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.Hits, nil
}

// StorageForEnvironment sums the daily storage snapshots that fall inside the
// month, yielding byte-days
func (r *GormUsageRepository) StorageForEnvironment(ctx context.Context, environmentID int, month billing.Month) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.EnvironmentStorageModel{}).
		Select("COALESCE(SUM(bytes_used), 0)").
		Where("environment_id = ? AND updated >= ? AND updated < ?", environmentID, month.Start(), month.End()).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// HoursForEnvironment returns the hours the environment existed during the
// month, clamping its lifetime to the month window
func (r *GormUsageRepository) HoursForEnvironment(ctx context.Context, environmentID int, month billing.Month) (int64, error) {
	var model models.EnvironmentModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", environmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}

	from := month.Start()
	if model.CreatedAt.After(from) {
		from = model.CreatedAt
	}
	to := month.End()
	if model.DeletedAt != nil && model.DeletedAt.Before(to) {
		to = *model.DeletedAt
	}
	if !to.After(from) {
		return 0, nil
	}
	return int64(to.Sub(from).Hours()), nil
}
