package domain

import "time"

// Category groups tickets by area of support.
type Category struct {
	ID            string
	Name          string
	Description   string
	IsActive      bool
	Subcategories []Subcategory
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Subcategory narrows a category.
type Subcategory struct {
	ID         string
	CategoryID string
	Name       string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
