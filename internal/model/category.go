package model

import "time"

// Category is an optional label on a transaction. The engine treats
// categories as read-only foreign references; ownership and lifecycle belong
// to the resource layer.
type Category struct {
	CreatedAt time.Time
	UserID    string
	Name      string
	ID        int64
}

// Tag is a free-form marker attached to any number of transactions.
type Tag struct {
	CreatedAt time.Time
	UserID    string
	Name      string
	Color     string
	ID        int64
}
