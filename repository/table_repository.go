package repository

import (
	"context"

	"scanndine/model"

	"gorm.io/gorm"
)

type TableRepository struct {
	DB *gorm.DB
}

func NewTableRepository(db *gorm.DB) *TableRepository {
	return &TableRepository{DB: db}
}

func (r *TableRepository) List(ctx context.Context) ([]model.Table, error) {
	var tables []model.Table
	err := r.DB.WithContext(ctx).Order("number ASC").Find(&tables).Error
	return tables, storeErr("list tables", err)
}

// Create inserts a table. Collisions on number or slug come back as
// ErrDuplicate from the unique indexes.
func (r *TableRepository) Create(ctx context.Context, table *model.Table) error {
	return storeErr("create table", r.DB.WithContext(ctx).Create(table).Error)
}

func (r *TableRepository) FindByID(ctx context.Context, id uint) (*model.Table, error) {
	var table model.Table
	if err := r.DB.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, storeErr("find table", err)
	}
	return &table, nil
}

func (r *TableRepository) FindByNumber(ctx context.Context, number int) (*model.Table, error) {
	var table model.Table
	if err := r.DB.WithContext(ctx).Where("number = ?", number).First(&table).Error; err != nil {
		return nil, storeErr("find table by number", err)
	}
	return &table, nil
}

func (r *TableRepository) FindBySlug(ctx context.Context, slug string) (*model.Table, error) {
	var table model.Table
	if err := r.DB.WithContext(ctx).Where("qr_slug = ?", slug).First(&table).Error; err != nil {
		return nil, storeErr("find table by slug", err)
	}
	return &table, nil
}

// SaveQR overwrites the cached QR payload and URL.
func (r *TableRepository) SaveQR(ctx context.Context, id uint, data, url string) error {
	res := r.DB.WithContext(ctx).Model(&model.Table{}).Where("id = ?", id).
		Updates(map[string]any{"qr_data": data, "qr_url": url})
	if res.Error != nil {
		return storeErr("save qr", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TableRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.Table{}, id)
	if res.Error != nil {
		return storeErr("delete table", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
