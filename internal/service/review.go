package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/xid"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/policy"
	"github.com/sakif/booknest/internal/repository"
)

// ReviewService manages reviews and keeps each book's derived rating in
// step with its live review set.
type ReviewService struct {
	reviews repository.ReviewRepository
	orders  repository.OrderRepository
	books   repository.BookRepository
	logger  *slog.Logger

	// locks serializes rating recomputes per book. Recomputing reads the
	// full review set and writes the aggregate; without the lock two
	// concurrent mutations could interleave read and write and persist a
	// stale aggregate. Entries are never evicted, so the map grows with
	// the number of distinct books reviewed over the process lifetime.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewReviewService(
	reviews repository.ReviewRepository,
	orders repository.OrderRepository,
	books repository.BookRepository,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		orders:  orders,
		books:   books,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// ReviewInput is the client payload for creating or updating a review.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in *ReviewInput) validate() error {
	var violations []apperror.Violation
	if in.Rating < 1 || in.Rating > 5 {
		violations = append(violations, apperror.Violation{Field: "rating", Message: "rating must be between 1 and 5"})
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Comment)); n < 10 || n > 500 {
		violations = append(violations, apperror.Violation{Field: "comment", Message: "comment must be between 10 and 500 characters"})
	}
	if len(violations) > 0 {
		return apperror.ValidationFailedAll(violations)
	}
	return nil
}

// Create adds a review for a book the caller has had delivered. One
// review per (user, book); a second attempt fails as a duplicate.
func (s *ReviewService) Create(ctx context.Context, actor *model.Account, bookID string, in ReviewInput) (*model.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	if _, err := s.orders.FindDelivered(ctx, actor.ID, bookID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotEligible("you can only review books from orders delivered to you")
		}
		return nil, err
	}

	now := time.Now()
	review := &model.Review{
		ID:        xid.New().String(),
		UserID:    actor.ID,
		BookID:    bookID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	if err := s.recomputeRating(ctx, bookID); err != nil {
		return nil, err
	}
	return review, nil
}

// ListByBook returns a book's reviews, newest first. Public.
func (s *ReviewService) ListByBook(ctx context.Context, bookID string) ([]model.Review, error) {
	return s.reviews.ListByBook(ctx, bookID)
}

// ListByUser returns the caller's own reviews.
func (s *ReviewService) ListByUser(ctx context.Context, actor *model.Account) ([]model.Review, error) {
	return s.reviews.ListByUser(ctx, actor.ID)
}

// CanReview reports whether the caller may post a review for the book:
// a delivered order exists and no review does yet.
func (s *ReviewService) CanReview(ctx context.Context, actor *model.Account, bookID string) (bool, error) {
	if _, err := s.orders.FindDelivered(ctx, actor.ID, bookID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.reviews.GetByUserAndBook(ctx, actor.ID, bookID); err == nil {
		return false, nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return false, err
	}
	return true, nil
}

// Update edits the caller's own review and recomputes the book's rating.
func (s *ReviewService) Update(ctx context.Context, actor *model.Account, id string, in ReviewInput) (*model.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.ReviewUpdate, policy.Resource{OwnerID: review.UserID}); err != nil {
		return nil, err
	}

	review.Rating = in.Rating
	review.Comment = in.Comment
	review.UpdatedAt = time.Now()
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	if err := s.recomputeRating(ctx, review.BookID); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes the caller's own review (admins may remove any) and
// recomputes the book's rating.
func (s *ReviewService) Delete(ctx context.Context, actor *model.Account, id string) error {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, policy.ReviewDelete, policy.Resource{OwnerID: review.UserID}); err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}
	return s.recomputeRating(ctx, review.BookID)
}

// recomputeRating recalculates a book's aggregate from its full review
// set: the mean rating rounded half-up to one decimal, and the count.
// With no reviews both reset to zero. Recomputes for the same book are
// serialized; running it twice in a row is a no-op.
func (s *ReviewService) recomputeRating(ctx context.Context, bookID string) error {
	lock := s.bookLock(bookID)
	lock.Lock()
	defer lock.Unlock()

	reviews, err := s.reviews.ListByBook(ctx, bookID)
	if err != nil {
		return err
	}

	rating := 0.0
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		mean := float64(sum) / float64(len(reviews))
		rating = math.Round(mean*10) / 10
	}

	if err := s.books.SetRating(ctx, bookID, rating, len(reviews)); err != nil {
		// The book may have been deleted between the review mutation and
		// the recompute; the aggregate no longer exists to maintain.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

func (s *ReviewService) bookLock(bookID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[bookID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[bookID] = lock
	}
	return lock
}
