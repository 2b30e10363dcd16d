package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/booknest/internal/auth"
	"github.com/sakif/booknest/internal/handler"
	"github.com/sakif/booknest/internal/model"
	"github.com/sakif/booknest/internal/payment"
	sqliteRepo "github.com/sakif/booknest/internal/repository/sqlite"
	"github.com/sakif/booknest/internal/service"
)

// testGateway completes every transaction with the amount and payer the
// test primed it with.
type testGateway struct {
	confirmations map[string]payment.Confirmation
}

func (g *testGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	return &payment.Intent{TransactionRef: "txn_" + req.OrderID, CheckoutURL: "https://pay.example.com/" + req.OrderID}, nil
}

func (g *testGateway) VerifyTransaction(_ context.Context, ref string) (*payment.Confirmation, error) {
	c, ok := g.confirmations[ref]
	if !ok {
		return nil, fmt.Errorf("no record of transaction %s", ref)
	}
	return &c, nil
}

// testAPI wires real services against an in-memory database behind a
// chi router, mirroring the production route layout.
type testAPI struct {
	router   *chi.Mux
	db       *sqliteRepo.DB
	accounts *sqliteRepo.AccountRepo
	gateway  *testGateway
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	accounts := sqliteRepo.NewAccountRepo(db)
	books := sqliteRepo.NewBookRepo(db)
	orders := sqliteRepo.NewOrderRepo(db)
	reviews := sqliteRepo.NewReviewRepo(db)
	wishlist := sqliteRepo.NewWishlistRepo(db)
	payments := sqliteRepo.NewPaymentRepo(db)

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	gateway := &testGateway{confirmations: make(map[string]payment.Confirmation)}

	authService := service.NewAuthService(accounts, passwords, tokens, nil, logger)
	accountService := service.NewAccountService(accounts, logger)
	bookService := service.NewBookService(books, nil, logger)
	orderService := service.NewOrderService(orders, books, logger)
	reviewService := service.NewReviewService(reviews, orders, books, logger)
	wishlistService := service.NewWishlistService(wishlist, books)
	paymentService := service.NewPaymentService(payments, orders, books, gateway, logger)

	authHandler := handler.NewAuthHandler(authService, nil, logger, false)
	accountHandler := handler.NewAccountHandler(accountService)
	bookHandler := handler.NewBookHandler(bookService, reviewService)
	orderHandler := handler.NewOrderHandler(orderService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	wishlistHandler := handler.NewWishlistHandler(wishlistService)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens, accounts))
			r.Get("/books", bookHandler.HandleList)
		})
		r.Get("/books/{id}", bookHandler.HandleGet)
		r.Get("/books/{id}/reviews", bookHandler.HandleListReviews)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, accounts))
			r.Get("/me", authHandler.HandleMe)
			r.Put("/accounts/{id}/role", accountHandler.HandleSetRole)
			r.Post("/books", bookHandler.HandleCreate)
			r.Put("/books/{id}/status", bookHandler.HandleSetStatus)
			r.Post("/books/{id}/reviews", bookHandler.HandleCreateReview)
			r.Post("/orders", orderHandler.HandleCreate)
			r.Get("/orders", orderHandler.HandleListMine)
			r.Put("/orders/{id}/status", orderHandler.HandleUpdateStatus)
			r.Post("/orders/{id}/cancel", orderHandler.HandleCancel)
			r.Post("/payments/confirm", paymentHandler.HandleConfirm)
			r.Get("/payments", paymentHandler.HandleHistory)
			r.Get("/wishlist", wishlistHandler.HandleList)
			r.Post("/wishlist", wishlistHandler.HandleAdd)
		})
	})

	return &testAPI{router: router, db: db, accounts: accounts, gateway: gateway}
}

// do sends a JSON request with an optional bearer token and decodes the
// response into out when non-nil.
func (api *testAPI) do(t *testing.T, method, path, token string, body, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	if out != nil && rr.Code < 300 {
		require.NoError(t, json.NewDecoder(rr.Body).Decode(out))
	}
	return rr
}

// register creates an account through the API and returns its session
// token from the cookie.
func (api *testAPI) register(t *testing.T, name, email string) (token string, account model.Account) {
	t.Helper()
	rr := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "hunter22",
	}, &account)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c.Value, account
		}
	}
	t.Fatal("no session cookie set")
	return "", account
}

// promote changes a role directly in storage, the way booknestctl would.
func (api *testAPI) promote(t *testing.T, accountID string, role model.Role) {
	t.Helper()
	account, err := api.accounts.GetByID(context.Background(), accountID)
	require.NoError(t, err)
	account.Role = role
	require.NoError(t, api.accounts.Update(context.Background(), account))
}

func TestAPI_FullPurchaseFlow(t *testing.T) {
	api := newTestAPI(t)

	adminToken, admin := api.register(t, "Admin", "admin@example.com")
	api.promote(t, admin.ID, model.RoleAdmin)
	libToken, librarian := api.register(t, "Librarian", "lib@example.com")
	api.promote(t, librarian.ID, model.RoleLibrarian)
	userToken, user := api.register(t, "Reader", "reader@example.com")

	// Librarian adds a book; admin publishes it.
	var book model.Book
	rr := api.do(t, http.MethodPost, "/api/books", libToken, map[string]any{
		"title": "Dune", "author": "Frank Herbert",
		"category": "Science Fiction", "price": "16.99",
	}, &book)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, string(model.BookDraft), string(book.Status))

	rr = api.do(t, http.MethodPut, "/api/books/"+book.ID+"/status", adminToken,
		map[string]string{"status": "published"}, &book)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// The draft was invisible to the public listing; now it shows.
	var listing []model.Book
	rr = api.do(t, http.MethodGet, "/api/books", "", nil, &listing)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, listing, 1)

	// Reader orders it for pickup.
	var order model.Order
	rr = api.do(t, http.MethodPost, "/api/orders", userToken, map[string]any{
		"bookId":         book.ID,
		"deliveryType":   "pickup",
		"pickupLocation": "Main branch",
		"requestedDate":  time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	}, &order)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "16.99", order.TotalAmount.StringFixed(2))
	assert.Equal(t, model.OrderPending, order.Status)

	// Payment confirmation promotes the order to confirmed.
	api.gateway.confirmations["txn_ok"] = payment.Confirmation{
		TransactionRef: "txn_ok",
		Amount:         decimal.RequireFromString("16.99"),
		Status:         model.ProviderCompleted,
		PayerEmail:     "reader@example.com",
		Method:         model.MethodStripe,
	}
	rr = api.do(t, http.MethodPost, "/api/payments/confirm", userToken, map[string]string{
		"orderId": order.ID, "transactionRef": "txn_ok",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Admin reads another user's orders and ledger through ?user=; a
	// non-admin asking for someone else is refused.
	var readerOrders []model.Order
	rr = api.do(t, http.MethodGet, "/api/orders?user="+user.ID, adminToken, nil, &readerOrders)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, readerOrders, 1)
	assert.Equal(t, order.ID, readerOrders[0].ID)

	var readerPayments []model.Payment
	rr = api.do(t, http.MethodGet, "/api/payments?user="+user.ID, adminToken, nil, &readerPayments)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Len(t, readerPayments, 1)

	rr = api.do(t, http.MethodGet, "/api/orders?user="+user.ID, libToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = api.do(t, http.MethodGet, "/api/payments?user="+user.ID, libToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Reviewing before delivery is refused.
	rr = api.do(t, http.MethodPost, "/api/books/"+book.ID+"/reviews", userToken,
		map[string]any{"rating": 5, "comment": "an all-time favourite"}, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Librarian ships and delivers.
	for _, status := range []string{"shipped", "delivered"} {
		rr = api.do(t, http.MethodPut, "/api/orders/"+order.ID+"/status", libToken,
			map[string]string{"status": status}, &order)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	// Now the review lands and the rating updates.
	rr = api.do(t, http.MethodPost, "/api/books/"+book.ID+"/reviews", userToken,
		map[string]any{"rating": 5, "comment": "an all-time favourite"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = api.do(t, http.MethodGet, "/api/books/"+book.ID, "", nil, &book)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5.0, book.Rating)
	assert.Equal(t, 1, book.ReviewCount)
}

func TestAPI_AuthAndAuthorization(t *testing.T) {
	api := newTestAPI(t)

	userToken, user := api.register(t, "Reader", "reader@example.com")

	t.Run("anonymous requests to protected routes get 401", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/orders", "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("garbage token gets 401", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/api/me", "not.a.token", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("user cannot create books", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/books", userToken, map[string]any{
			"title": "Nope", "author": "Nope", "category": "Fiction", "price": "1.00",
		}, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		var errResp handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
		assert.Equal(t, "forbidden", errResp.Error)
		assert.Equal(t, "InsufficientRole", errResp.Reason)
	})

	t.Run("user cannot change roles", func(t *testing.T) {
		rr := api.do(t, http.MethodPut, "/api/accounts/"+user.ID+"/role", userToken,
			map[string]string{"role": "admin"}, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("wrong password gets 401", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "reader@example.com", "password": "wrong",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("duplicate registration gets 409", func(t *testing.T) {
		rr := api.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"name": "Dup", "email": "reader@example.com", "password": "hunter22",
		}, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("wishlist duplicate gets 409", func(t *testing.T) {
		libToken, librarian := api.register(t, "Lib", "lib2@example.com")
		api.promote(t, librarian.ID, model.RoleLibrarian)

		var book model.Book
		rr := api.do(t, http.MethodPost, "/api/books", libToken, map[string]any{
			"title": "Dune", "author": "Frank Herbert", "category": "Science Fiction", "price": "16.99",
		}, &book)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = api.do(t, http.MethodPost, "/api/wishlist", userToken, map[string]string{"bookId": book.ID}, nil)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		rr = api.do(t, http.MethodPost, "/api/wishlist", userToken, map[string]string{"bookId": book.ID}, nil)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
