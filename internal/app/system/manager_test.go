package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	log      *[]string
	startErr error
}

func (s recordingService) Name() string { return s.name }

func (s recordingService) Start(context.Context) error {
	*s.log = append(*s.log, "start "+s.name)
	return s.startErr
}

func (s recordingService) Stop(context.Context) error {
	*s.log = append(*s.log, "stop "+s.name)
	return nil
}

func TestManagerOrdering(t *testing.T) {
	var log []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{name: "a", log: &log}))
	require.NoError(t, m.Register(recordingService{name: "b", log: &log}))
	require.Error(t, m.Register(recordingService{name: "a", log: &log}))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
	assert.Len(t, m.Services(), 2)
}

func TestManagerStartFailureRollsBack(t *testing.T) {
	var log []string
	m := NewManager()
	require.NoError(t, m.Register(recordingService{name: "a", log: &log}))
	require.NoError(t, m.Register(recordingService{name: "b", log: &log, startErr: errors.New("boom")}))

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start a", "start b", "stop a"}, log)
}

func TestManagerRejectsLateRegistration(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(NoopService{ServiceName: "noop"}))
	require.NoError(t, m.Start(context.Background()))
	require.Error(t, m.Register(NoopService{ServiceName: "late"}))
}
