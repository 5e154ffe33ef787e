package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type MenuItem struct {
	ID           uint                        `json:"id" gorm:"primaryKey"`
	Name         string                      `json:"name" gorm:"not null;index:idx_menu_items_category_name,priority:2"`
	Description  string                      `json:"description"`
	Price        decimal.Decimal             `json:"price" gorm:"type:decimal(12,2);not null"`
	CategoryID   uint                        `json:"categoryId" gorm:"not null;index:idx_menu_items_category_name,priority:1"`
	Category     *MenuCategory               `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	ImageURL     string                      `json:"imageUrl"`
	Availability bool                        `json:"availability" gorm:"not null"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}
