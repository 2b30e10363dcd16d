package model

import "time"

// WishlistItem marks a book a user wants. At most one entry exists per
// (user, book) pair.
type WishlistItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	CreatedAt time.Time `json:"createdAt"`

	// Book is populated on listing; entries whose book has since been
	// deleted are omitted from listings rather than reported as errors.
	Book *Book `json:"book,omitempty"`
}
