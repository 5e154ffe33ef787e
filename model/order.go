package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPlaced    OrderStatus = "placed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCanceled  OrderStatus = "canceled"
	OrderCleared   OrderStatus = "cleared"
)

var orderStatuses = []OrderStatus{OrderPlaced, OrderPreparing, OrderReady, OrderServed, OrderCanceled, OrderCleared}

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func (s OrderStatus) Valid() bool {
	for _, v := range orderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanTransition reports whether an order may move from one status to
// another. Any known status may move to any other, regressions included.
func CanTransition(from, to OrderStatus) bool {
	return from.Valid() && to.Valid()
}

type Order struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	TableID   uint            `json:"tableId" gorm:"index;not null"`
	Table     *Table          `json:"table,omitempty" gorm:"foreignKey:TableID"`
	UserID    *uint           `json:"userId" gorm:"index"`
	Items     []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Status    OrderStatus     `json:"status" gorm:"type:varchar(16);index;not null;default:placed"`
	Totals    decimal.Decimal `json:"totals" gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time       `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// OrderItem is one line of an order. UnitPrice is the menu price at the
// moment the order was placed.
type OrderItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"-" gorm:"index;not null"`
	MenuItemID uint            `json:"menuItemId" gorm:"index;not null"`
	MenuItem   *MenuItem       `json:"menuItem,omitempty" gorm:"foreignKey:MenuItemID"`
	Qty        int             `json:"qty" gorm:"not null"`
	Note       string          `json:"note,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
}
