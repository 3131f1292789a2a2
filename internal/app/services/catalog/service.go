package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/metrics"
	"github.com/thriftline/marketplace/internal/app/storage"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Service manages product listings.
type Service struct {
	products storage.ProductStore
	log      *logger.Logger
}

// New constructs a catalog service.
func New(products storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{products: products, log: log}
}

// List returns products matching filter, newest first. Inactive listings are
// only included when filtering by seller.
func (s *Service) List(ctx context.Context, filter product.Filter) ([]product.WithSeller, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("Unknown category %q", filter.Category))
	}
	if (filter.Limit != nil && *filter.Limit < 0) || (filter.Offset != nil && *filter.Offset < 0) {
		return nil, apperrors.BadRequest("limit and offset must not be negative")
	}
	items, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		return nil, translate(err, "Failed to fetch products")
	}
	return items, nil
}

// Get returns one product and counts the fetch as a view.
func (s *Service) Get(ctx context.Context, id string) (product.WithSeller, error) {
	if err := s.products.IncrementProductViews(ctx, id); err != nil {
		return product.WithSeller{}, translate(err, "Failed to fetch product")
	}
	item, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return product.WithSeller{}, translate(err, "Failed to fetch product")
	}
	metrics.RecordProductView()
	return item, nil
}

// Create lists a new product owned by sellerID. Seller, activity and view
// count are always set here.
func (s *Service) Create(ctx context.Context, sellerID string, p product.Product) (product.Product, error) {
	if !p.Category.Valid() {
		return product.Product{}, apperrors.BadRequest(fmt.Sprintf("Unknown category %q", p.Category))
	}
	if !p.Condition.Valid() {
		return product.Product{}, apperrors.BadRequest(fmt.Sprintf("Unknown condition %q", p.Condition))
	}
	p.ID = ""
	p.SellerID = sellerID
	p.IsActive = true
	p.Views = 0
	if p.Images == nil {
		p.Images = []string{}
	}

	created, err := s.products.CreateProduct(ctx, p)
	if err != nil {
		return product.Product{}, translate(err, "Failed to create product")
	}
	s.log.WithField("product_id", created.ID).
		WithField("user_id", sellerID).
		Info("product listed")
	return created, nil
}

// Update applies a partial change. Only the seller may update a listing.
func (s *Service) Update(ctx context.Context, callerID, id string, upd product.Update) (product.Product, error) {
	if upd.Category != nil && !upd.Category.Valid() {
		return product.Product{}, apperrors.BadRequest(fmt.Sprintf("Unknown category %q", *upd.Category))
	}
	if upd.Condition != nil && !upd.Condition.Valid() {
		return product.Product{}, apperrors.BadRequest(fmt.Sprintf("Unknown condition %q", *upd.Condition))
	}
	if err := s.authorize(ctx, callerID, id, "update"); err != nil {
		return product.Product{}, err
	}

	updated, err := s.products.UpdateProduct(ctx, id, upd)
	if err != nil {
		return product.Product{}, translate(err, "Failed to update product")
	}
	s.log.WithField("product_id", id).Info("product updated")
	return updated, nil
}

// Delete hides a listing by clearing isActive. The row is kept.
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	if err := s.authorize(ctx, callerID, id, "delete"); err != nil {
		return err
	}
	inactive := false
	if _, err := s.products.UpdateProduct(ctx, id, product.Update{IsActive: &inactive}); err != nil {
		return translate(err, "Failed to delete product")
	}
	s.log.WithField("product_id", id).Info("product deactivated")
	return nil
}

// Authorize checks that product id exists and that callerID sells it.
func (s *Service) Authorize(ctx context.Context, callerID, id string) error {
	return s.authorize(ctx, callerID, id, "update")
}

func (s *Service) authorize(ctx context.Context, callerID, id, action string) error {
	existing, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return translate(err, "Failed to fetch product")
	}
	if existing.SellerID != callerID {
		return apperrors.Forbidden("You can only " + action + " your own products")
	}
	return nil
}

func translate(err error, message string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NotFound("Product not found")
	case errors.Is(err, storage.ErrIntegrity):
		return apperrors.Integrity("Product seller is missing")
	default:
		return apperrors.Internal(message, err)
	}
}
