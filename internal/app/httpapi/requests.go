package httpapi

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/httputil"
)

func init() {
	httputil.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		_, err := money.Parse(fl.Field().String())
		return err == nil
	}, "Must be a non-negative amount with at most 2 decimal places")
	httputil.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return product.Category(fl.Field().String()).Valid()
	}, "Must be one of: clothing, electronics, home, books, sports, music, toys, other")
	httputil.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return product.Condition(fl.Field().String()).Valid()
	}, "Must be one of: excellent, very-good, good, fair")
	httputil.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return order.Status(fl.Field().String()).Valid()
	}, "Must be one of: pending, processing, shipped, delivered, cancelled")
}

// serverManaged lists fields clients may echo back but that are always set
// by the server. They are accepted and discarded.
type serverManaged struct {
	ID        json.RawMessage `json:"id,omitempty"`
	UserID    json.RawMessage `json:"userId,omitempty"`
	SellerID  json.RawMessage `json:"sellerId,omitempty"`
	Views     json.RawMessage `json:"views,omitempty"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
	UpdatedAt json.RawMessage `json:"updatedAt,omitempty"`
}

type registerRequest struct {
	Username  string  `json:"username" validate:"required,max=50"`
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,max=200"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Avatar    *string `json:"avatar" validate:"omitempty,max=2048"`
}

type productRequest struct {
	serverManaged
	Title                string   `json:"title" validate:"required,max=200"`
	Description          string   `json:"description" validate:"required"`
	Price                string   `json:"price" validate:"required,money"`
	Category             string   `json:"category" validate:"required,category"`
	Condition            string   `json:"condition" validate:"required,condition"`
	Brand                *string  `json:"brand"`
	Size                 *string  `json:"size"`
	Color                *string  `json:"color"`
	Material             *string  `json:"material"`
	Images               []string `json:"images" validate:"omitempty,dive,required"`
	IsEcoFriendly        bool     `json:"isEcoFriendly"`
	HasOriginalPackaging bool     `json:"hasOriginalPackaging"`
	IsActive             *bool    `json:"isActive"`
}

func (r productRequest) toProduct() product.Product {
	return product.Product{
		Title:                r.Title,
		Description:          r.Description,
		Price:                money.MustParse(r.Price),
		Category:             product.Category(r.Category),
		Condition:            product.Condition(r.Condition),
		Brand:                r.Brand,
		Size:                 r.Size,
		Color:                r.Color,
		Material:             r.Material,
		Images:               r.Images,
		IsEcoFriendly:        r.IsEcoFriendly,
		HasOriginalPackaging: r.HasOriginalPackaging,
	}
}

type productUpdateRequest struct {
	serverManaged
	Title                *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description          *string   `json:"description" validate:"omitempty,min=1"`
	Price                *string   `json:"price" validate:"omitempty,money"`
	Category             *string   `json:"category" validate:"omitempty,category"`
	Condition            *string   `json:"condition" validate:"omitempty,condition"`
	Brand                *string   `json:"brand"`
	Size                 *string   `json:"size"`
	Color                *string   `json:"color"`
	Material             *string   `json:"material"`
	Images               *[]string `json:"images" validate:"omitempty,dive,required"`
	IsEcoFriendly        *bool     `json:"isEcoFriendly"`
	HasOriginalPackaging *bool     `json:"hasOriginalPackaging"`
	IsActive             *bool     `json:"isActive"`
}

func (r productUpdateRequest) toUpdate() product.Update {
	upd := product.Update{
		Title:                r.Title,
		Description:          r.Description,
		Brand:                r.Brand,
		Size:                 r.Size,
		Color:                r.Color,
		Material:             r.Material,
		Images:               r.Images,
		IsEcoFriendly:        r.IsEcoFriendly,
		HasOriginalPackaging: r.HasOriginalPackaging,
		IsActive:             r.IsActive,
	}
	if r.Price != nil {
		price := money.MustParse(*r.Price)
		upd.Price = &price
	}
	if r.Category != nil {
		category := product.Category(*r.Category)
		upd.Category = &category
	}
	if r.Condition != nil {
		condition := product.Condition(*r.Condition)
		upd.Condition = &condition
	}
	return upd
}

type cartAddRequest struct {
	serverManaged
	ProductID string `json:"productId" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"omitempty,min=1"`
}

type cartUpdateRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Price     string `json:"price" validate:"required,money"`
}

type orderRequest struct {
	Items           []orderItemRequest `json:"items" validate:"dive"`
	ShippingAddress *string            `json:"shippingAddress" validate:"omitempty,max=1000"`
}

func (r orderRequest) toLines() []order.Line {
	lines := make([]order.Line, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, order.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     money.MustParse(item.Price),
		})
	}
	return lines
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

type reviewRequest struct {
	serverManaged
	ProductID string  `json:"productId" validate:"required"`
	OrderID   string  `json:"orderId" validate:"required"`
	Rating    *int    `json:"rating" validate:"required"`
	Comment   *string `json:"comment"`
}
