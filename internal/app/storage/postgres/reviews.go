package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thriftline/marketplace/internal/app/domain/review"
)

const reviewColumns = `id, user_id, product_id, order_id, rating, comment, created_at`

func (s *Store) CreateReview(ctx context.Context, r review.Review) (review.Review, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (:id, :user_id, :product_id, :order_id, :rating, :comment, :created_at)
	`, r)
	if err != nil {
		return review.Review{}, mapError(err)
	}
	return r, nil
}

func (s *Store) ListProductReviews(ctx context.Context, productID string) ([]review.Review, error) {
	reviews := []review.Review{}
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id
	`, productID)
	if err != nil {
		return nil, mapError(err)
	}
	return reviews, nil
}
