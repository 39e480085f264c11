package service

import (
	"context"
	"testing"
	"time"

	"github.com/arthafin/limitengine/internal/cache"
	featureflagdomain "github.com/arthafin/limitengine/internal/featureflag/domain"
	"github.com/arthafin/limitengine/internal/suspend/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type countingRepo struct {
	calls  int
	latest *domain.CustomerSuspendHistory
	err    error
}

func (r *countingRepo) LatestSuspend(context.Context, *gorm.DB, int64) (*domain.CustomerSuspendHistory, error) {
	r.calls++
	return r.latest, r.err
}

type flagsStub struct {
	featureflagdomain.Service

	ttl           time.Duration
	mapping       map[string]string
	mappingActive bool
}

func (f *flagsStub) SuspendCacheSettings(context.Context) (featureflagdomain.SuspendCacheSettings, error) {
	return featureflagdomain.SuspendCacheSettings{TTL: f.ttl}, nil
}

func (f *flagsStub) SuspendReasonMapping(context.Context) (map[string]string, bool, error) {
	return f.mapping, f.mappingActive, nil
}

func newTestGate(repo domain.Repository, flags featureflagdomain.Service) *Gate {
	return &Gate{
		log:   zap.NewNop(),
		repo:  repo,
		cache: cache.NewTTLCache(),
		flags: flags,
	}
}

func TestStatusNotSuspended(t *testing.T) {
	repo := &countingRepo{}
	gate := newTestGate(repo, &flagsStub{ttl: time.Hour})

	status, err := gate.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, status.IsSuspended)
	assert.Nil(t, status.LockReason)
}

func TestStatusMappedReason(t *testing.T) {
	repo := &countingRepo{latest: &domain.CustomerSuspendHistory{
		ID: 1, CustomerID: 1, IsSuspended: true, ReasonCode: "odin_fraud",
	}}
	gate := newTestGate(repo, &flagsStub{
		ttl:           time.Hour,
		mapping:       map[string]string{"odin_fraud": "account flagged for unusual activity"},
		mappingActive: true,
	})

	status, err := gate.Status(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.IsSuspended)
	require.NotNil(t, status.LockReason)
	assert.Equal(t, "account flagged for unusual activity", *status.LockReason)
}

func TestStatusDefaultReason(t *testing.T) {
	repo := &countingRepo{latest: &domain.CustomerSuspendHistory{
		ID: 1, CustomerID: 1, IsSuspended: true, ReasonCode: "unmapped_code",
	}}
	gate := newTestGate(repo, &flagsStub{
		ttl:           time.Hour,
		mapping:       map[string]string{"other": "something else"},
		mappingActive: true,
	})

	status, err := gate.Status(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, status.LockReason)
	assert.Equal(t, domain.DefaultLockReason, *status.LockReason)
}

func TestStatusCacheHitSkipsLookup(t *testing.T) {
	repo := &countingRepo{latest: &domain.CustomerSuspendHistory{
		ID: 1, CustomerID: 1, IsSuspended: true, ReasonCode: "odin_fraud",
	}}
	gate := newTestGate(repo, &flagsStub{ttl: time.Hour, mappingActive: false})
	ctx := context.Background()

	first, err := gate.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	second, err := gate.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, first, second)

	// Another customer is a different key and goes back to the database.
	_, err = gate.Status(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	repo := &countingRepo{}
	gate := newTestGate(repo, &flagsStub{ttl: time.Hour})
	ctx := context.Background()

	_, err := gate.Status(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, gate.Invalidate(ctx, 1))

	repo.latest = &domain.CustomerSuspendHistory{
		ID: 2, CustomerID: 1, IsSuspended: true, ReasonCode: "late_payments",
	}
	status, err := gate.Status(ctx, 1)
	require.NoError(t, err)
	assert.True(t, status.IsSuspended)
	assert.Equal(t, 2, repo.calls)
}

func TestStatusCorruptCacheEntryReloads(t *testing.T) {
	repo := &countingRepo{}
	gate := newTestGate(repo, &flagsStub{ttl: time.Hour})
	ctx := context.Background()

	require.NoError(t, gate.cache.Set(ctx, cacheKey(1), []byte("{not json"), time.Hour))

	status, err := gate.Status(ctx, 1)
	require.NoError(t, err)
	assert.False(t, status.IsSuspended)
	assert.Equal(t, 1, repo.calls)
}
