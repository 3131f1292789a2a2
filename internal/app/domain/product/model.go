package product

import (
	"time"

	"github.com/thriftline/marketplace/internal/app/domain/money"
	"github.com/thriftline/marketplace/internal/app/domain/user"
)

// Category classifies a listing.
type Category string

const (
	CategoryClothing    Category = "clothing"
	CategoryElectronics Category = "electronics"
	CategoryHome        Category = "home"
	CategoryBooks       Category = "books"
	CategorySports      Category = "sports"
	CategoryMusic       Category = "music"
	CategoryToys        Category = "toys"
	CategoryOther       Category = "other"
)

// Categories lists every accepted category.
var Categories = []Category{
	CategoryClothing, CategoryElectronics, CategoryHome, CategoryBooks,
	CategorySports, CategoryMusic, CategoryToys, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Condition describes the wear of a listed item.
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionVeryGood  Condition = "very-good"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
)

var Conditions = []Condition{ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionFair}

func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a listing owned by a seller. IsActive=false marks it deleted or sold.
type Product struct {
	ID                   string       `json:"id" db:"id"`
	Title                string       `json:"title" db:"title"`
	Description          string       `json:"description" db:"description"`
	Price                money.Amount `json:"price" db:"price"`
	Category             Category     `json:"category" db:"category"`
	Condition            Condition    `json:"condition" db:"condition"`
	Brand                *string      `json:"brand" db:"brand"`
	Size                 *string      `json:"size" db:"size"`
	Color                *string      `json:"color" db:"color"`
	Material             *string      `json:"material" db:"material"`
	Images               []string     `json:"images" db:"images"`
	IsEcoFriendly        bool         `json:"isEcoFriendly" db:"is_eco_friendly"`
	HasOriginalPackaging bool         `json:"hasOriginalPackaging" db:"has_original_packaging"`
	SellerID             string       `json:"sellerId" db:"seller_id"`
	IsActive             bool         `json:"isActive" db:"is_active"`
	Views                int          `json:"views" db:"views"`
	CreatedAt            time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time    `json:"updatedAt" db:"updated_at"`
}

// WithSeller is a product joined with its seller card.
type WithSeller struct {
	Product
	Seller user.Summary `json:"seller"`
}

// Filter narrows a listing query. Limit and Offset are ignored when nil.
type Filter struct {
	Category Category
	Search   string
	SellerID string
	Limit    *int
	Offset   *int
}

// Update is a partial product change. Nil fields are left untouched.
type Update struct {
	Title                *string
	Description          *string
	Price                *money.Amount
	Category             *Category
	Condition            *Condition
	Brand                *string
	Size                 *string
	Color                *string
	Material             *string
	Images               *[]string
	IsEcoFriendly        *bool
	HasOriginalPackaging *bool
	IsActive             *bool
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u == (Update{})
}

// Apply copies the set fields of u onto p.
func (u Update) Apply(p *Product) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Condition != nil {
		p.Condition = *u.Condition
	}
	if u.Brand != nil {
		p.Brand = u.Brand
	}
	if u.Size != nil {
		p.Size = u.Size
	}
	if u.Color != nil {
		p.Color = u.Color
	}
	if u.Material != nil {
		p.Material = u.Material
	}
	if u.Images != nil {
		p.Images = append([]string(nil), (*u.Images)...)
	}
	if u.IsEcoFriendly != nil {
		p.IsEcoFriendly = *u.IsEcoFriendly
	}
	if u.HasOriginalPackaging != nil {
		p.HasOriginalPackaging = *u.HasOriginalPackaging
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
}
