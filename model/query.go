package model

import "time"

type QueryStatus string

const (
	QueryPending  QueryStatus = "pending"
	QueryResolved QueryStatus = "resolved"
)

// Query is a message sent by a staff member to the admins.
type Query struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	StaffID   uint        `json:"staffId" gorm:"index;not null"`
	Staff     *User       `json:"staff,omitempty" gorm:"foreignKey:StaffID"`
	Message   string      `json:"message" gorm:"type:text;not null"`
	Status    QueryStatus `json:"status" gorm:"type:varchar(16);not null;default:pending"`
	CreatedAt time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
