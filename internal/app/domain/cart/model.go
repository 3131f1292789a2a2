package cart

import (
	"time"

	"github.com/thriftline/marketplace/internal/app/domain/product"
)

// Item is one (user, product) line in a shopping cart.
type Item struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ItemWithProduct is a cart line joined with its product.
type ItemWithProduct struct {
	Item
	Product product.Product `json:"product"`
}
