package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/policy"
	"github.com/sakif/booknest/internal/repository"
)

// WishlistService manages per-user wishlists.
type WishlistService struct {
	wishlist repository.WishlistRepository
	books    repository.BookRepository
}

func NewWishlistService(wishlist repository.WishlistRepository, books repository.BookRepository) *WishlistService {
	return &WishlistService{wishlist: wishlist, books: books}
}

// Add puts a book on the caller's wishlist. Adding the same book twice
// fails as a duplicate.
func (s *WishlistService) Add(ctx context.Context, actor *model.Account, bookID string) (*model.WishlistItem, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	item := &model.WishlistItem{
		ID:        xid.New().String(),
		UserID:    actor.ID,
		BookID:    bookID,
		CreatedAt: time.Now(),
	}
	if err := s.wishlist.Add(ctx, item); err != nil {
		return nil, err
	}

	item.Book = book
	return item, nil
}

// List returns the caller's wishlist with each entry's book populated.
// Entries whose book has since been deleted are silently omitted.
func (s *WishlistService) List(ctx context.Context, actor *model.Account, userID string) ([]model.WishlistItem, error) {
	if err := authorize(actor, policy.WishlistView, policy.Resource{OwnerID: userID}); err != nil {
		return nil, err
	}
	return s.wishlist.ListByUser(ctx, userID)
}

// Remove deletes a wishlist entry. Only its owner (or an admin) may.
func (s *WishlistService) Remove(ctx context.Context, actor *model.Account, id string) error {
	item, err := s.wishlist.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, policy.WishlistRemove, policy.Resource{OwnerID: item.UserID}); err != nil {
		return err
	}
	if err := s.wishlist.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Already gone; removal is idempotent from the caller's view.
			return nil
		}
		return err
	}
	return nil
}
