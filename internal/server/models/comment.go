package models

import "time"

// Comment IDs are snowflake ids, so ordering by ID is creation order.
type Comment struct {
	ID         int64
	CapsuleID  string
	AuthorID   string
	AuthorName string
	Content    string
	CreatedAt  time.Time
}
