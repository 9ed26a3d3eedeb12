// browsekit/sources/psql/dao/dao.batch_run.go
package dao

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"browsekit/browsekit/sources/psql/models"
)

type BatchRunDAO struct {
	DB *gorm.DB
}

func NewBatchRunDAO(db *gorm.DB) *BatchRunDAO {
	return &BatchRunDAO{DB: db}
}

// CreateRun stores a run together with its items.
func (dao *BatchRunDAO) CreateRun(ctx context.Context, run *models.BatchRun) error {
	return dao.DB.WithContext(ctx).Create(run).Error
}

func (dao *BatchRunDAO) GetRunByID(ctx context.Context, id uuid.UUID) (*models.BatchRun, error) {
	var run models.BatchRun
	err := dao.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		First(&run, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecentRuns returns the newest runs first, without items.
func (dao *BatchRunDAO) ListRecentRuns(ctx context.Context, limit int) ([]models.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.BatchRun
	err := dao.DB.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
