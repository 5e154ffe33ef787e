package repository

import (
	"context"

	"scanndine/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderRepository struct {
	DB *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{DB: db}
}

// OrderFilter narrows ListActive and ListHistory.
type OrderFilter struct {
	Status  model.OrderStatus
	TableID uint
	UserID  uint
}

// ItemSales is one row of the per-item analytics breakdown.
type ItemSales struct {
	MenuItemID   uint   `json:"menuItemId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	CategoryName string `json:"categoryName"`
	Quantity     int64  `json:"quantity"`
}

// Create inserts the order and its lines in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Table", "Items.MenuItem").Create(order).Error
	})
	return storeErr("create order", err)
}

func (r *OrderRepository) withDisplay(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Table").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.MenuItem")
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.withDisplay(r.DB.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, storeErr("find order", err)
	}
	return &order, nil
}

// ListActive returns orders that are not cleared, oldest first.
func (r *OrderRepository) ListActive(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	q := r.withDisplay(r.DB.WithContext(ctx)).Where("status <> ?", model.OrderCleared)
	q = applyOrderFilter(q, f)
	var orders []model.Order
	err := q.Order("created_at ASC").Order("id ASC").Find(&orders).Error
	return orders, storeErr("list active orders", err)
}

// ListHistory returns every matching order including cleared ones, newest
// first.
func (r *OrderRepository) ListHistory(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	q := applyOrderFilter(r.withDisplay(r.DB.WithContext(ctx)), f)
	var orders []model.Order
	err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error
	return orders, storeErr("list order history", err)
}

func applyOrderFilter(q *gorm.DB, f OrderFilter) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	return q
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return storeErr("update order status", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Totals returns the number of orders and the sum of their totals across
// every status.
func (r *OrderRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	var row struct {
		TotalOrders  int64
		TotalRevenue decimal.Decimal
	}
	err := r.DB.WithContext(ctx).Model(&model.Order{}).
		Select("COUNT(*) AS total_orders, COALESCE(SUM(totals), 0) AS total_revenue").
		Scan(&row).Error
	if err != nil {
		return 0, decimal.Zero, storeErr("order totals", err)
	}
	return row.TotalOrders, row.TotalRevenue, nil
}

// ItemBreakdown sums ordered quantity per menu item, joined with item and
// category details, highest quantity first. Lines whose item no longer
// exists are dropped by the inner join.
func (r *OrderRepository) ItemBreakdown(ctx context.Context) ([]ItemSales, error) {
	var rows []ItemSales
	err := r.DB.WithContext(ctx).
		Table("order_items").
		Select(`order_items.menu_item_id AS menu_item_id,
			SUM(order_items.qty) AS quantity,
			menu_items.name AS name,
			COALESCE(menu_items.description, '') AS description,
			COALESCE(menu_items.image_url, '') AS image_url,
			COALESCE(menu_categories.name, '') AS category_name`).
		Joins("JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Joins("LEFT JOIN menu_categories ON menu_categories.id = menu_items.category_id").
		Group("order_items.menu_item_id, menu_items.name, menu_items.description, menu_items.image_url, menu_categories.name").
		Order("quantity DESC").
		Order("order_items.menu_item_id ASC").
		Scan(&rows).Error
	return rows, storeErr("item breakdown", err)
}
