package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/storage"
)

var productFields = []string{
	"id", "title", "description", "price", "category", "condition",
	"brand", "size", "color", "material", "images",
	"is_eco_friendly", "has_original_packaging", "seller_id",
	"is_active", "views", "created_at", "updated_at",
}

// productColumns renders the product column list for table alias t. A
// non-empty prefix aliases every column as "<prefix>.<name>" so sqlx can map
// it onto a nested struct.
func productColumns(t, prefix string) string {
	cols := make([]string, len(productFields))
	for i, f := range productFields {
		if prefix == "" {
			cols[i] = t + "." + f
		} else {
			cols[i] = fmt.Sprintf(`%s.%s AS "%s.%s"`, t, f, prefix, f)
		}
	}
	return strings.Join(cols, ", ")
}

const sellerColumns = `u.id AS "seller.id", u.username AS "seller.username", u.first_name AS "seller.first_name", u.last_name AS "seller.last_name"`

type productRow struct {
	ID                   string         `db:"id"`
	Title                string         `db:"title"`
	Description          string         `db:"description"`
	Price                money.Amount   `db:"price"`
	Category             string         `db:"category"`
	Condition            string         `db:"condition"`
	Brand                *string        `db:"brand"`
	Size                 *string        `db:"size"`
	Color                *string        `db:"color"`
	Material             *string        `db:"material"`
	Images               pq.StringArray `db:"images"`
	IsEcoFriendly        bool           `db:"is_eco_friendly"`
	HasOriginalPackaging bool           `db:"has_original_packaging"`
	SellerID             string         `db:"seller_id"`
	IsActive             bool           `db:"is_active"`
	Views                int            `db:"views"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func (r productRow) toDomain() product.Product {
	images := []string(r.Images)
	if images == nil {
		images = []string{}
	}
	return product.Product{
		ID:                   r.ID,
		Title:                r.Title,
		Description:          r.Description,
		Price:                r.Price,
		Category:             product.Category(r.Category),
		Condition:            product.Condition(r.Condition),
		Brand:                r.Brand,
		Size:                 r.Size,
		Color:                r.Color,
		Material:             r.Material,
		Images:               images,
		IsEcoFriendly:        r.IsEcoFriendly,
		HasOriginalPackaging: r.HasOriginalPackaging,
		SellerID:             r.SellerID,
		IsActive:             r.IsActive,
		Views:                r.Views,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// sellerRow comes from a LEFT JOIN so every column may be NULL.
type sellerRow struct {
	ID        sql.NullString `db:"id"`
	Username  sql.NullString `db:"username"`
	FirstName *string        `db:"first_name"`
	LastName  *string        `db:"last_name"`
}

type productSellerRow struct {
	productRow
	Seller sellerRow `db:"seller"`
}

func (r productSellerRow) toDomain() (product.WithSeller, error) {
	if !r.Seller.ID.Valid {
		return product.WithSeller{}, fmt.Errorf("product %s seller %s: %w", r.ID, r.SellerID, storage.ErrIntegrity)
	}
	return product.WithSeller{
		Product: r.productRow.toDomain(),
		Seller: user.Summary{
			ID:        r.Seller.ID.String,
			Username:  r.Seller.Username.String,
			FirstName: r.Seller.FirstName,
			LastName:  r.Seller.LastName,
		},
	}, nil
}

func (s *Store) CreateProduct(ctx context.Context, p product.Product) (product.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Images == nil {
		p.Images = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+strings.Join(productFields, ", ")+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, p.ID, p.Title, p.Description, p.Price, string(p.Category), string(p.Condition),
		p.Brand, p.Size, p.Color, p.Material, pq.Array(p.Images),
		p.IsEcoFriendly, p.HasOriginalPackaging, p.SellerID,
		p.IsActive, p.Views, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return product.Product{}, mapError(err)
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.WithSeller, error) {
	var row productSellerRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+productColumns("p", "")+`, `+sellerColumns+`
		FROM products p
		LEFT JOIN users u ON u.id = p.seller_id
		WHERE p.id = $1
	`, id)
	if err != nil {
		return product.WithSeller{}, mapError(err)
	}
	return row.toDomain()
}

func (s *Store) ListProducts(ctx context.Context, filter product.Filter) ([]product.WithSeller, error) {
	var (
		q     params
		where []string
	)
	if filter.SellerID != "" {
		where = append(where, "p.seller_id = "+q.next(filter.SellerID))
	} else {
		where = append(where, "p.is_active = TRUE")
	}
	if filter.Category != "" {
		where = append(where, "p.category = "+q.next(string(filter.Category)))
	}
	if filter.Search != "" {
		ph := q.next("%" + escapeLike(filter.Search) + "%")
		where = append(where, fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s)", ph, ph))
	}

	query := `
		SELECT ` + productColumns("p", "") + `, ` + sellerColumns + `
		FROM products p
		LEFT JOIN users u ON u.id = p.seller_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY p.created_at DESC, p.id`
	if filter.Limit != nil {
		query += " LIMIT " + q.next(*filter.Limit)
	}
	if filter.Offset != nil {
		query += " OFFSET " + q.next(*filter.Offset)
	}

	var rows []productSellerRow
	if err := s.db.SelectContext(ctx, &rows, query, q.args...); err != nil {
		return nil, mapError(err)
	}
	result := make([]product.WithSeller, 0, len(rows))
	for _, row := range rows {
		ws, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, ws)
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, upd product.Update) (product.Product, error) {
	var set params
	if upd.Title != nil {
		set.add("title", *upd.Title)
	}
	if upd.Description != nil {
		set.add("description", *upd.Description)
	}
	if upd.Price != nil {
		set.add("price", *upd.Price)
	}
	if upd.Category != nil {
		set.add("category", string(*upd.Category))
	}
	if upd.Condition != nil {
		set.add("condition", string(*upd.Condition))
	}
	if upd.Brand != nil {
		set.add("brand", *upd.Brand)
	}
	if upd.Size != nil {
		set.add("size", *upd.Size)
	}
	if upd.Color != nil {
		set.add("color", *upd.Color)
	}
	if upd.Material != nil {
		set.add("material", *upd.Material)
	}
	if upd.Images != nil {
		set.add("images", pq.Array(*upd.Images))
	}
	if upd.IsEcoFriendly != nil {
		set.add("is_eco_friendly", *upd.IsEcoFriendly)
	}
	if upd.HasOriginalPackaging != nil {
		set.add("has_original_packaging", *upd.HasOriginalPackaging)
	}
	if upd.IsActive != nil {
		set.add("is_active", *upd.IsActive)
	}
	set.add("updated_at", time.Now().UTC())
	where := set.next(id)

	var row productRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE products p SET `+set.String()+`
		WHERE p.id = `+where+`
		RETURNING `+productColumns("p", ""), set.args...)
	if err != nil {
		return product.Product{}, mapError(err)
	}
	return row.toDomain(), nil
}

func (s *Store) IncrementProductViews(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE products SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
