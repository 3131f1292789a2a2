package reviews

import (
	"context"
	"errors"

	"github.com/thriftline/marketplace/internal/app/domain/review"
	"github.com/thriftline/marketplace/internal/app/storage"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Service records product reviews.
type Service struct {
	reviews  storage.ReviewStore
	products storage.ProductStore
	orders   storage.OrderStore
	log      *logger.Logger
}

// New constructs a reviews service.
func New(reviews storage.ReviewStore, products storage.ProductStore, orders storage.OrderStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reviews")
	}
	return &Service{reviews: reviews, products: products, orders: orders, log: log}
}

// Create stores a review by userID. The product and order must exist; the
// order is not required to belong to the reviewer or to contain the product.
func (s *Service) Create(ctx context.Context, userID string, r review.Review) (review.Review, error) {
	var issues []apperrors.Issue
	if _, err := s.products.GetProduct(ctx, r.ProductID); errors.Is(err, storage.ErrNotFound) {
		issues = append(issues, apperrors.Issue{Path: []string{"productId"}, Code: "not_found", Message: "Product not found"})
	} else if err != nil && !errors.Is(err, storage.ErrIntegrity) {
		return review.Review{}, apperrors.Internal("Failed to create review", err)
	}
	if _, err := s.orders.GetOrder(ctx, r.OrderID); errors.Is(err, storage.ErrNotFound) {
		issues = append(issues, apperrors.Issue{Path: []string{"orderId"}, Code: "not_found", Message: "Order not found"})
	} else if err != nil && !errors.Is(err, storage.ErrIntegrity) {
		return review.Review{}, apperrors.Internal("Failed to create review", err)
	}
	if len(issues) > 0 {
		return review.Review{}, apperrors.Validation("Invalid review", issues)
	}

	r.ID = ""
	r.UserID = userID
	created, err := s.reviews.CreateReview(ctx, r)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return review.Review{}, apperrors.Validation("Invalid review", nil)
		}
		return review.Review{}, apperrors.Internal("Failed to create review", err)
	}
	s.log.WithField("user_id", userID).
		WithField("product_id", r.ProductID).
		WithField("rating", r.Rating).
		Info("review created")
	return created, nil
}

// ListForProduct returns a product's reviews, newest first.
func (s *Service) ListForProduct(ctx context.Context, productID string) ([]review.Review, error) {
	items, err := s.reviews.ListProductReviews(ctx, productID)
	if errors.Is(err, storage.ErrNotFound) {
		return []review.Review{}, nil
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch reviews", err)
	}
	return items, nil
}
