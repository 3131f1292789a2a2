package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thriftline/marketplace/internal/app/domain/money"
)

func TestTotal(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", Quantity: 3, Price: money.MustParse("25.00")},
		{ProductID: "p2", Quantity: 1, Price: money.MustParse("0.99")},
	}
	assert.Equal(t, "75.99", Total(lines).String())
	assert.Equal(t, "0.00", Total(nil).String())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusShipped.Valid())
	assert.False(t, Status("lost").Valid())
}
