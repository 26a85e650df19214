package model

import "time"

// Todo is a single to-do item.  Owner references users.id; the JSON names
// match what the frontend reads.
type Todo struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Owner       string    `json:"owner"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
