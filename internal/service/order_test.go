package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/booknest/internal/apperror"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/service"
)

type orderFixture struct {
	books    *memBooks
	orders   *memOrders
	svc      *service.OrderService
	book     *model.Book
	libOwner *model.Account
	user     *model.Account
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	books := newMemBooks()
	orders := newMemOrders(books)

	owner := librarianAccount("lib1")
	book := &model.Book{
		ID:      xid.New().String(),
		Title:   "Dune",
		Author:  "Frank Herbert",
		Price:   decimal.RequireFromString("16.99"),
		Status:  model.BookPublished,
		OwnerID: owner.ID,
	}
	require.NoError(t, books.Create(context.Background(), book))

	return &orderFixture{
		books:    books,
		orders:   orders,
		svc:      service.NewOrderService(orders, books, testLogger()),
		book:     book,
		libOwner: owner,
		user:     userAccount("usr1"),
	}
}

func pickupInput(bookID string) service.CreateOrderInput {
	return service.CreateOrderInput{
		BookID:         bookID,
		DeliveryType:   model.DeliveryPickup,
		PickupLocation: "Main branch",
		RequestedDate:  time.Now().Add(48 * time.Hour),
	}
}

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the total from the book price", func(t *testing.T) {
		f := newOrderFixture(t)

		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("16.99")),
			"total %s", order.TotalAmount)
		assert.Equal(t, model.OrderPending, order.Status)
		assert.Equal(t, model.PaymentPending, order.PaymentStatus)
		assert.Equal(t, f.user.ID, order.UserID)
	})

	t.Run("rejects unpublished books", func(t *testing.T) {
		f := newOrderFixture(t)
		f.book.Status = model.BookDraft
		require.NoError(t, f.books.Update(ctx, f.book))

		_, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects delivery without an address", func(t *testing.T) {
		f := newOrderFixture(t)

		in := pickupInput(f.book.ID)
		in.DeliveryType = model.DeliveryShip
		in.PickupLocation = ""
		_, err := f.svc.Create(ctx, f.user, in)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("rejects a requested date in the past", func(t *testing.T) {
		f := newOrderFixture(t)

		in := pickupInput(f.book.ID)
		in.RequestedDate = time.Now().Add(-time.Hour)
		_, err := f.svc.Create(ctx, f.user, in)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("unknown book is not found", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.svc.Create(ctx, f.user, pickupInput("missing"))
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("owning librarian walks the happy path", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		for _, next := range []model.OrderStatus{
			model.OrderConfirmed, model.OrderShipped, model.OrderDelivered,
		} {
			order, err = f.svc.UpdateStatus(ctx, f.libOwner, order.ID, next)
			require.NoError(t, err)
			assert.Equal(t, next, order.Status)
		}
	})

	t.Run("illegal transitions fail", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, f.libOwner, order.ID, model.OrderDelivered)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

		_, err = f.svc.UpdateStatus(ctx, f.libOwner, order.ID, model.OrderShipped)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	t.Run("terminal states stay terminal even for admins", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)
		require.NoError(t, f.orders.SetStatus(ctx, order.ID, model.OrderDelivered))

		_, err = f.svc.UpdateStatus(ctx, adminAccount(), order.ID, model.OrderCancelled)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	t.Run("foreign librarian is denied", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, librarianAccount("lib2"), order.ID, model.OrderConfirmed)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("the ordering user is denied", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		_, err = f.svc.UpdateStatus(ctx, f.user, order.ID, model.OrderConfirmed)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("user cancels own pending order", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, f.user, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, cancelled.Status)
	})

	t.Run("user cannot cancel once confirmed", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, f.libOwner, order.ID, model.OrderConfirmed)
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, f.user, order.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("librarian cancels a confirmed order on their book", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, f.libOwner, order.ID, model.OrderConfirmed)
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, f.libOwner, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, cancelled.Status)
	})

	t.Run("another user cannot cancel", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, userAccount("usr2"), order.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestOrderService_Visibility(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	order, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
	require.NoError(t, err)

	t.Run("owner, book librarian, and admin can read", func(t *testing.T) {
		for _, actor := range []*model.Account{f.user, f.libOwner, adminAccount()} {
			got, err := f.svc.Get(ctx, actor, order.ID)
			require.NoError(t, err, "actor %s", actor.ID)
			assert.Equal(t, order.ID, got.ID)
		}
	})

	t.Run("strangers cannot", func(t *testing.T) {
		_, err := f.svc.Get(ctx, userAccount("usr2"), order.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)

		_, err = f.svc.Get(ctx, librarianAccount("lib2"), order.ID)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("librarian listing covers orders on their books", func(t *testing.T) {
		orders, err := f.svc.ListForLibrarian(ctx, f.libOwner, f.libOwner.ID)
		require.NoError(t, err)
		assert.Len(t, orders, 1)

		_, err = f.svc.ListForLibrarian(ctx, f.libOwner, "lib2")
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestOrderService_ExpirePending(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	stale, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
	require.NoError(t, err)
	// Age the order past the sweep cutoff.
	aged := f.orders.byID[stale.ID]
	aged.CreatedAt = time.Now().Add(-72 * time.Hour)
	f.orders.byID[stale.ID] = aged

	fresh, err := f.svc.Create(ctx, f.user, pickupInput(f.book.ID))
	require.NoError(t, err)

	count, err := f.svc.ExpirePending(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.orders.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCancelled, got.Status)

	got, err = f.orders.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, got.Status)
}
