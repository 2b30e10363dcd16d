package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions is the complete order status state machine. Delivered
// and cancelled are terminal. Any transition not listed here is invalid.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
	OrderDelivered: {},
	OrderCancelled: {},
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// PaymentState is the payment axis of an order. It is independent of the
// fulfilment status and is only ever set by the payment service during
// reconciliation.
type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentPaid     PaymentState = "paid"
	PaymentRefunded PaymentState = "refunded"
)

type DeliveryType string

const (
	DeliveryShip   DeliveryType = "delivery"
	DeliveryPickup DeliveryType = "pickup"
)

// Address is the shipping destination for delivery orders.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Empty reports whether no address fields are set.
func (a Address) Empty() bool {
	return a == Address{}
}

// Order is a purchase of a single book. It is owned by the placing user;
// the librarian who owns the book and admins may move it through the
// status state machine.
//
// TotalAmount is derived from the book's price at creation time and never
// taken from the client. TransactionRef is set once the order has been
// reconciled against an external payment confirmation.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	BookID          string          `json:"bookId"`
	DeliveryType    DeliveryType    `json:"deliveryType"`
	DeliveryAddress Address         `json:"deliveryAddress,omitempty"`
	PickupLocation  string          `json:"pickupLocation,omitempty"`
	RequestedDate   time.Time       `json:"requestedDate"`
	Notes           string          `json:"notes,omitempty"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentState    `json:"paymentStatus"`
	TransactionRef  string          `json:"transactionRef,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
