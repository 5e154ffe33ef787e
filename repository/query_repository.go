package repository

import (
	"context"

	"scanndine/model"

	"gorm.io/gorm"
)

type QueryRepository struct {
	DB *gorm.DB
}

func NewQueryRepository(db *gorm.DB) *QueryRepository {
	return &QueryRepository{DB: db}
}

func (r *QueryRepository) Create(ctx context.Context, q *model.Query) error {
	return storeErr("create query", r.DB.WithContext(ctx).Omit("Staff").Create(q).Error)
}

// List returns every query, newest first, with the sender loaded.
func (r *QueryRepository) List(ctx context.Context) ([]model.Query, error) {
	var queries []model.Query
	err := r.DB.WithContext(ctx).Preload("Staff").Order("created_at DESC").Order("id DESC").Find(&queries).Error
	return queries, storeErr("list queries", err)
}

func (r *QueryRepository) SetStatus(ctx context.Context, id uint, status model.QueryStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.Query{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return storeErr("update query", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *QueryRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.Query{}, id)
	if res.Error != nil {
		return storeErr("delete query", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
