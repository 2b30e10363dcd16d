package model

import "time"

// Review is a user's rating of a book. At most one review exists per
// (user, book) pair, and creating one requires a delivered order for the
// same pair.
type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	Rating    int       `json:"rating"` // 1–5
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
