package memory

import (
	"context"
	"testing"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutOverwrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "green#1", domain.StatusRecord{EpochTime: 1, StatusID: "green", Value: decimal.NewFromInt(1)}))
	require.NoError(t, s.Put(ctx, "green#1", domain.StatusRecord{EpochTime: 1, StatusID: "green", Value: decimal.NewFromInt(2)}))

	assert.Equal(t, 1, s.Len())
	got, err := s.Scan(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.NewFromInt(2).Equal(got[0].Value))
}

func TestStore_ScanFilters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "green#10", domain.StatusRecord{EpochTime: 10, StatusID: "green"}))
	require.NoError(t, s.Put(ctx, "green#20", domain.StatusRecord{EpochTime: 20, StatusID: "green"}))
	require.NoError(t, s.Put(ctx, "red#20", domain.StatusRecord{EpochTime: 20, StatusID: "red"}))

	got, err := s.Scan(ctx, domain.Filter{Since: 20, StatusID: "green"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(20), got[0].EpochTime)
}

func TestStore_ScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().Scan(ctx, domain.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}
