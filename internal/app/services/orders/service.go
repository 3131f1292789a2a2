package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/order"
	"github.com/thriftline/marketplace/internal/app/metrics"
	"github.com/thriftline/marketplace/internal/app/storage"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Checkout is the input to Create.
type Checkout struct {
	Lines           []order.Line
	ShippingAddress *string
}

// Service places and tracks orders.
type Service struct {
	orders   storage.OrderStore
	products storage.ProductStore
	log      *logger.Logger
}

// New constructs an orders service.
func New(orders storage.OrderStore, products storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("orders")
	}
	return &Service{orders: orders, products: products, log: log}
}

// Create places an order for userID and empties their cart. Line prices are
// taken as given and kept as the purchase snapshot.
func (s *Service) Create(ctx context.Context, userID string, in Checkout) (order.Order, error) {
	if len(in.Lines) == 0 {
		return order.Order{}, apperrors.BadRequest("Order must contain at least one item")
	}

	var issues []apperrors.Issue
	seen := make(map[string]bool, len(in.Lines))
	for i, line := range in.Lines {
		idx := strconv.Itoa(i)
		if line.Quantity < 1 {
			issues = append(issues, apperrors.Issue{
				Path: []string{"items", idx, "quantity"}, Code: "too_small", Message: "Quantity must be at least 1",
			})
		}
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true
		if _, err := s.products.GetProduct(ctx, line.ProductID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				issues = append(issues, apperrors.Issue{
					Path: []string{"items", idx, "productId"}, Code: "not_found", Message: "Product not found",
				})
				continue
			}
			if !errors.Is(err, storage.ErrIntegrity) {
				return order.Order{}, apperrors.Internal("Failed to create order", err)
			}
		}
	}
	if len(issues) > 0 {
		return order.Order{}, apperrors.Validation("Invalid order items", issues)
	}

	total := order.Total(in.Lines)
	if _, err := money.FromDecimal(total.Decimal); err != nil {
		return order.Order{}, apperrors.Validation("Invalid order total", []apperrors.Issue{{
			Path: []string{"items"}, Code: "too_big", Message: err.Error(),
		}})
	}

	created, err := s.orders.CreateOrder(ctx, order.Order{
		UserID:          userID,
		TotalAmount:     total,
		Status:          order.StatusPending,
		ShippingAddress: in.ShippingAddress,
	}, in.Lines)
	if err != nil {
		return order.Order{}, translate(err, "Failed to create order")
	}

	metrics.RecordOrder(total.InexactFloat64())
	s.log.WithField("order_id", created.ID).
		WithField("user_id", userID).
		WithField("total", created.TotalAmount.String()).
		Info("order placed")
	return created, nil
}

// List returns the caller's orders with their lines, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]order.WithItems, error) {
	items, err := s.orders.ListOrders(ctx, userID)
	if err != nil {
		return nil, translate(err, "Failed to fetch orders")
	}
	return items, nil
}

// Get returns one of the caller's orders.
func (s *Service) Get(ctx context.Context, userID, id string) (order.WithItems, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return order.WithItems{}, translate(err, "Failed to fetch order")
	}
	if o.UserID != userID {
		return order.WithItems{}, apperrors.Forbidden("You can only view your own orders")
	}
	return o, nil
}

// UpdateStatus moves one of the caller's orders to status. Any status may
// follow any other.
func (s *Service) UpdateStatus(ctx context.Context, userID, id string, status order.Status) (order.Order, error) {
	if !status.Valid() {
		return order.Order{}, apperrors.Validation("Invalid status", []apperrors.Issue{{
			Path: []string{"status"}, Code: "invalid_enum_value", Message: fmt.Sprintf("Unknown status %q", status),
		}})
	}
	existing, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return order.Order{}, translate(err, "Failed to fetch order")
	}
	if existing.UserID != userID {
		return order.Order{}, apperrors.Forbidden("You can only update your own orders")
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return order.Order{}, translate(err, "Failed to update order")
	}
	s.log.WithField("order_id", id).
		WithField("status", string(status)).
		Info("order status changed")
	return updated, nil
}

func translate(err error, message string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NotFound("Order not found")
	case errors.Is(err, storage.ErrIntegrity):
		return apperrors.Integrity("Order item product is missing")
	default:
		return apperrors.Internal(message, err)
	}
}
