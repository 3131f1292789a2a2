package order

import (
	"time"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/product"
)

// Status is the fulfilment state of an order. Any status may follow any other.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order is a checkout by a buyer.
type Order struct {
	ID              string       `json:"id" db:"id"`
	UserID          string       `json:"userId" db:"user_id"`
	TotalAmount     money.Amount `json:"totalAmount" db:"total_amount"`
	Status          Status       `json:"status" db:"status"`
	ShippingAddress *string      `json:"shippingAddress" db:"shipping_address"`
	TrackingNumber  *string      `json:"trackingNumber" db:"tracking_number"`
	CreatedAt       time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time    `json:"updatedAt" db:"updated_at"`
}

// Item is a purchased line. Price is the snapshot taken at checkout.
type Item struct {
	ID        string       `json:"id" db:"id"`
	OrderID   string       `json:"orderId" db:"order_id"`
	ProductID string       `json:"productId" db:"product_id"`
	Quantity  int          `json:"quantity" db:"quantity"`
	Price     money.Amount `json:"price" db:"price"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
}

// ItemWithProduct is an order line joined with the current product row.
type ItemWithProduct struct {
	Item
	Product product.Product `json:"product"`
}

// WithItems is an order together with its lines.
type WithItems struct {
	Order
	OrderItems []ItemWithProduct `json:"orderItems"`
}

// Line is a requested checkout line.
type Line struct {
	ProductID string
	Quantity  int
	Price     money.Amount
}

// Total sums price x quantity over lines.
func Total(lines []Line) money.Amount {
	total := money.Zero
	for _, l := range lines {
		total = total.Plus(l.Price.Times(l.Quantity))
	}
	return total
}
