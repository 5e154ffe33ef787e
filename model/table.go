package model

import (
	"fmt"
	"time"
)

const tableSlugPrefix = "table-"

type Table struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Number    int       `json:"number" gorm:"uniqueIndex;not null"`
	QRSlug    string    `json:"qrSlug" gorm:"column:qr_slug;uniqueIndex;not null"`
	QRData    *string   `json:"qrData" gorm:"column:qr_data;type:text"`
	QRURL     *string   `json:"qrUrl" gorm:"column:qr_url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableSlug is the QR slug for a table number.
func TableSlug(number int) string {
	return fmt.Sprintf("%s%d", tableSlugPrefix, number)
}
