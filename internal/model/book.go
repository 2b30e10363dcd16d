package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookStatus controls catalog visibility. New books start as draft; only
// published books are listed to callers other than the owning librarian or
// an admin.
type BookStatus string

const (
	BookDraft       BookStatus = "draft"
	BookPublished   BookStatus = "published"
	BookUnpublished BookStatus = "unpublished"
)

func (s BookStatus) Valid() bool {
	switch s {
	case BookDraft, BookPublished, BookUnpublished:
		return true
	}
	return false
}

// Categories a book may belong to.
var BookCategories = []string{
	"Fiction",
	"Non-Fiction",
	"Science Fiction",
	"Mystery",
	"Thriller",
	"Romance",
	"Fantasy",
	"Biography",
	"Self-Help",
}

// ValidCategory reports whether c is one of BookCategories.
func ValidCategory(c string) bool {
	for _, known := range BookCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Book is a catalog entry. OwnerID is the librarian who created it — the
// only librarian allowed to mutate it (admins override).
//
// Rating and ReviewCount are derived from the live review set and are only
// ever written by the review service's recompute; nothing else may touch
// them.
type Book struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	ISBN          string          `json:"isbn,omitempty"`
	Publisher     string          `json:"publisher,omitempty"`
	Pages         int             `json:"pages,omitempty"`
	Language      string          `json:"language"`
	CoverImageURL string          `json:"coverImageUrl"`
	Status        BookStatus      `json:"status"`
	OwnerID       string          `json:"ownerId"`
	Rating        float64         `json:"rating"`
	ReviewCount   int             `json:"reviewCount"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
