package model

import "time"

type MenuCategory struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	DisplayOrder int       `json:"displayOrder" gorm:"index;default:0"`
	Active       bool      `json:"active" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
