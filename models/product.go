package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	FarmName    string  `json:"farm_name"`
	Unit        string  `gorm:"not null" json:"unit"` // e.g. "kg", "crate", "dozen"
	Price       float64 `gorm:"not null" json:"price"`
	Stock       int     `json:"stock"`
	Available   bool    `gorm:"default:true" json:"available"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}
