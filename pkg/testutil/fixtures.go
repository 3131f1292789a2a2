// Package testutil provides shared fixtures for service and handler tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/product"
	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/storage"
)

// Listing returns an active clothing listing priced at 25.00.
func Listing(sellerID, title string) product.Product {
	return product.Product{
		Title:       title,
		Description: "desc " + title,
		Price:       money.MustParse("25.00"),
		Category:    product.CategoryClothing,
		Condition:   product.ConditionGood,
		SellerID:    sellerID,
		IsActive:    true,
	}
}

// CreateUser stores a member named username with a placeholder hash.
func CreateUser(t testing.TB, users storage.UserStore, username string) user.User {
	t.Helper()
	u, err := users.CreateUser(context.Background(), user.User{
		Username: username,
		Email:    username + "@x.com",
		Password: "hash",
	})
	require.NoError(t, err)
	return u
}

// CreateListing stores Listing(sellerID, title).
func CreateListing(t testing.TB, products storage.ProductStore, sellerID, title string) product.Product {
	t.Helper()
	p, err := products.CreateProduct(context.Background(), Listing(sellerID, title))
	require.NoError(t, err)
	return p
}
