package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thriftline/marketplace/internal/app/storage/memory"
	"github.com/thriftline/marketplace/pkg/logger"
)

type downStore struct {
	*memory.Store
}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Stores{}, Options{}, logger.NewNop())
	require.Error(t, err)
}

func TestApplicationLifecycle(t *testing.T) {
	application, err := New(Stores{}, Options{SessionSecret: []byte("secret")}, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, application.Start(ctx))
	require.NoError(t, application.Ping(ctx))
	require.NoError(t, application.Stop(ctx))

	names := make([]string, 0)
	for _, svc := range application.Services() {
		names = append(names, svc.Name())
	}
	assert.Equal(t, []string{"accounts", "catalog", "cart", "orders", "reviews", "session-sweeper"}, names)
}

func TestPingReportsStoreFailure(t *testing.T) {
	application, err := New(Stores{Sessions: downStore{memory.New()}}, Options{SessionSecret: []byte("secret")}, logger.NewNop())
	require.NoError(t, err)
	require.Error(t, application.Ping(context.Background()))
}
