package repository

import (
	"context"
	"strings"

	"scanndine/model"

	"gorm.io/gorm"
)

type MenuRepository struct {
	DB *gorm.DB
}

func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{DB: db}
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Search        string
	CategoryID    uint
	SortByPrice   bool
	IncludeHidden bool
	Limit         int
	Offset        int
}

// ListCategories returns categories by display order. Inactive ones are
// skipped unless includeInactive is set.
func (r *MenuRepository) ListCategories(ctx context.Context, includeInactive bool) ([]model.MenuCategory, error) {
	q := r.DB.WithContext(ctx).Order("display_order ASC").Order("id ASC")
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var categories []model.MenuCategory
	return categories, storeErr("list categories", q.Find(&categories).Error)
}

func (r *MenuRepository) FindCategory(ctx context.Context, id uint) (*model.MenuCategory, error) {
	var category model.MenuCategory
	if err := r.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, storeErr("find category", err)
	}
	return &category, nil
}

func (r *MenuRepository) CreateCategory(ctx context.Context, category *model.MenuCategory) error {
	return storeErr("create category", r.DB.WithContext(ctx).Create(category).Error)
}

func (r *MenuRepository) SaveCategory(ctx context.Context, category *model.MenuCategory) error {
	return storeErr("update category", r.DB.WithContext(ctx).Save(category).Error)
}

func (r *MenuRepository) DeleteCategory(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.MenuCategory{}, id)
	if res.Error != nil {
		return storeErr("delete category", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MenuRepository) CountItemsInCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.MenuItem{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, storeErr("count items", err)
}

func (r *MenuRepository) ListItems(ctx context.Context, f ItemFilter) ([]model.MenuItem, error) {
	q := r.DB.WithContext(ctx).Preload("Category")
	if !f.IncludeHidden {
		q = q.Where("availability = ?", true)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(CAST(tags AS TEXT)) LIKE ?)", pattern, pattern)
	}
	if f.SortByPrice {
		q = q.Order("price ASC")
	} else {
		q = q.Order("name ASC")
	}
	q = q.Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var items []model.MenuItem
	return items, storeErr("list items", q.Find(&items).Error)
}

func (r *MenuRepository) FindItem(ctx context.Context, id uint) (*model.MenuItem, error) {
	var item model.MenuItem
	if err := r.DB.WithContext(ctx).Preload("Category").First(&item, id).Error; err != nil {
		return nil, storeErr("find item", err)
	}
	return &item, nil
}

// FindItems loads the items with the given ids, keyed by id.
func (r *MenuRepository) FindItems(ctx context.Context, ids []uint) (map[uint]model.MenuItem, error) {
	var items []model.MenuItem
	if len(ids) > 0 {
		if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
			return nil, storeErr("find items", err)
		}
	}
	out := make(map[uint]model.MenuItem, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *MenuRepository) CreateItem(ctx context.Context, item *model.MenuItem) error {
	return storeErr("create item", r.DB.WithContext(ctx).Omit("Category").Create(item).Error)
}

// CreateItems inserts a batch in one transaction.
func (r *MenuRepository) CreateItems(ctx context.Context, items []model.MenuItem) error {
	if len(items) == 0 {
		return nil
	}
	return storeErr("create items", r.DB.WithContext(ctx).Omit("Category").Create(&items).Error)
}

func (r *MenuRepository) SaveItem(ctx context.Context, item *model.MenuItem) error {
	return storeErr("update item", r.DB.WithContext(ctx).Omit("Category").Save(item).Error)
}

func (r *MenuRepository) SetAvailability(ctx context.Context, id uint, available bool) error {
	res := r.DB.WithContext(ctx).Model(&model.MenuItem{}).Where("id = ?", id).Update("availability", available)
	if res.Error != nil {
		return storeErr("update availability", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MenuRepository) DeleteItem(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.MenuItem{}, id)
	if res.Error != nil {
		return storeErr("delete item", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
