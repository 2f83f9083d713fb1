package models

import "github.com/google/uuid"

// Category labels what a transaction was for (groceries, travel, rent).
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

func NewCategory(name string) Category {
	return Category{
		ID:   uuid.New().String(),
		Name: name,
	}
}
