package cart

import (
	"context"
	"errors"

	"github.com/thriftline/marketplace/internal/app/domain/cart"
	"github.com/thriftline/marketplace/internal/app/storage"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Service manages shopping carts.
type Service struct {
	carts    storage.CartStore
	products storage.ProductStore
	log      *logger.Logger
}

// New constructs a cart service.
func New(carts storage.CartStore, products storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("cart")
	}
	return &Service{carts: carts, products: products, log: log}
}

// List returns the caller's cart lines with their products.
func (s *Service) List(ctx context.Context, userID string) ([]cart.ItemWithProduct, error) {
	items, err := s.carts.ListCartItems(ctx, userID)
	if err != nil {
		return nil, translate(err, "Failed to fetch cart")
	}
	return items, nil
}

// Add puts quantity units of productID in the cart, merging with an existing
// line for the same product. Listing availability is not checked.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (cart.Item, error) {
	if quantity < 1 {
		return cart.Item{}, invalidQuantity()
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return cart.Item{}, apperrors.Validation("Invalid cart item", []apperrors.Issue{{
				Path: []string{"productId"}, Code: "not_found", Message: "Product not found",
			}})
		}
		if !errors.Is(err, storage.ErrIntegrity) {
			return cart.Item{}, apperrors.Internal("Failed to add to cart", err)
		}
	}

	item, err := s.carts.AddCartItem(ctx, userID, productID, quantity)
	if err != nil {
		return cart.Item{}, translate(err, "Failed to add to cart")
	}
	s.log.WithField("user_id", userID).
		WithField("product_id", productID).
		WithField("quantity", item.Quantity).
		Info("cart item added")
	return item, nil
}

// Update sets the quantity of one of the caller's cart lines.
func (s *Service) Update(ctx context.Context, userID, id string, quantity int) (cart.Item, error) {
	if quantity < 1 {
		return cart.Item{}, invalidQuantity()
	}
	if err := s.authorize(ctx, userID, id); err != nil {
		return cart.Item{}, err
	}
	item, err := s.carts.UpdateCartItemQuantity(ctx, id, quantity)
	if err != nil {
		return cart.Item{}, translate(err, "Failed to update cart item")
	}
	return item, nil
}

// Remove deletes one of the caller's cart lines.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	if err := s.authorize(ctx, userID, id); err != nil {
		return err
	}
	if err := s.carts.DeleteCartItem(ctx, id); err != nil {
		return translate(err, "Failed to remove cart item")
	}
	return nil
}

// Clear empties the caller's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.ClearCart(ctx, userID); err != nil {
		return translate(err, "Failed to clear cart")
	}
	s.log.WithField("user_id", userID).Info("cart cleared")
	return nil
}

func (s *Service) authorize(ctx context.Context, userID, id string) error {
	item, err := s.carts.GetCartItem(ctx, id)
	if err != nil {
		return translate(err, "Failed to fetch cart item")
	}
	if item.UserID != userID {
		return apperrors.Forbidden("You can only modify your own cart")
	}
	return nil
}

func invalidQuantity() error {
	return apperrors.Validation("Invalid quantity", []apperrors.Issue{{
		Path: []string{"quantity"}, Code: "too_small", Message: "Quantity must be at least 1",
	}})
}

func translate(err error, message string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NotFound("Cart item not found")
	case errors.Is(err, storage.ErrIntegrity):
		return apperrors.Integrity("Cart item product is missing")
	default:
		return apperrors.Internal(message, err)
	}
}
