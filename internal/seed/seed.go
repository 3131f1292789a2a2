// Package seed loads demo users and listings from a YAML fixture file.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/services/accounts"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Fixtures is the root of a seed file.
type Fixtures struct {
	Users []UserFixture `yaml:"users"`
}

// UserFixture is a member together with the listings they sell.
type UserFixture struct {
	Username  string           `yaml:"username"`
	Email     string           `yaml:"email"`
	Password  string           `yaml:"password"`
	FirstName *string          `yaml:"firstName"`
	LastName  *string          `yaml:"lastName"`
	Products  []ProductFixture `yaml:"products"`
}

// ProductFixture is one listing.
type ProductFixture struct {
	Title                string   `yaml:"title"`
	Description          string   `yaml:"description"`
	Price                string   `yaml:"price"`
	Category             string   `yaml:"category"`
	Condition            string   `yaml:"condition"`
	Brand                *string  `yaml:"brand"`
	Size                 *string  `yaml:"size"`
	Color                *string  `yaml:"color"`
	Material             *string  `yaml:"material"`
	Images               []string `yaml:"images"`
	IsEcoFriendly        bool     `yaml:"isEcoFriendly"`
	HasOriginalPackaging bool     `yaml:"hasOriginalPackaging"`
}

// Registrar creates members.
type Registrar interface {
	Register(ctx context.Context, reg accounts.Registration) (user.User, error)
}

// Lister creates listings on behalf of a seller.
type Lister interface {
	Create(ctx context.Context, sellerID string, p product.Product) (product.Product, error)
}

// Result counts what Apply did.
type Result struct {
	UsersCreated    int
	UsersSkipped    int
	ProductsCreated int
}

// LoadFile reads and validates a fixture file.
func LoadFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for i, u := range f.Users {
		if u.Username == "" || u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("users[%d]: username, email and password are required", i)
		}
		for j, p := range u.Products {
			if _, err := p.toProduct(); err != nil {
				return nil, fmt.Errorf("users[%d].products[%d]: %w", i, j, err)
			}
		}
	}
	return &f, nil
}

func (p ProductFixture) toProduct() (product.Product, error) {
	if p.Title == "" || p.Description == "" {
		return product.Product{}, fmt.Errorf("title and description are required")
	}
	price, err := money.Parse(p.Price)
	if err != nil {
		return product.Product{}, fmt.Errorf("price: %w", err)
	}
	category := product.Category(p.Category)
	if !category.Valid() {
		return product.Product{}, fmt.Errorf("unknown category %q", p.Category)
	}
	condition := product.Condition(p.Condition)
	if !condition.Valid() {
		return product.Product{}, fmt.Errorf("unknown condition %q", p.Condition)
	}
	return product.Product{
		Title:                p.Title,
		Description:          p.Description,
		Price:                price,
		Category:             category,
		Condition:            condition,
		Brand:                p.Brand,
		Size:                 p.Size,
		Color:                p.Color,
		Material:             p.Material,
		Images:               p.Images,
		IsEcoFriendly:        p.IsEcoFriendly,
		HasOriginalPackaging: p.HasOriginalPackaging,
	}, nil
}

// Apply registers every fixture user and lists their products. Users whose
// username or email is already taken are skipped along with their products,
// so a file can be applied more than once.
func Apply(ctx context.Context, f *Fixtures, registrar Registrar, lister Lister, log *logger.Logger) (Result, error) {
	if log == nil {
		log = logger.NewDefault("seed")
	}
	var res Result
	for _, fixture := range f.Users {
		u, err := registrar.Register(ctx, accounts.Registration{
			Username:  fixture.Username,
			Email:     fixture.Email,
			Password:  fixture.Password,
			FirstName: fixture.FirstName,
			LastName:  fixture.LastName,
		})
		if apperrors.IsCode(err, apperrors.CodeConflict) {
			res.UsersSkipped++
			log.WithField("username", fixture.Username).Info("user exists; skipping")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("register %s: %w", fixture.Username, err)
		}
		res.UsersCreated++

		for _, pf := range fixture.Products {
			p, err := pf.toProduct()
			if err != nil {
				return res, fmt.Errorf("product %q: %w", pf.Title, err)
			}
			if _, err := lister.Create(ctx, u.ID, p); err != nil {
				return res, fmt.Errorf("list %q for %s: %w", pf.Title, fixture.Username, err)
			}
			res.ProductsCreated++
		}
	}
	log.WithFields(map[string]interface{}{
		"users_created":    res.UsersCreated,
		"users_skipped":    res.UsersSkipped,
		"products_created": res.ProductsCreated,
	}).Info("fixtures applied")
	return res, nil
}
