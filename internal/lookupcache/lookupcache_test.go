package lookupcache_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/internal/lookupcache"
	"github.com/dmitrymomot/customdomains/pkg/cache"
	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
)

type countingVerifier struct {
	checks       atomic.Int32
	propagations atomic.Int32
}

func (v *countingVerifier) Check(_ context.Context, domain, _ string) (*dnsverify.CheckResult, error) {
	v.checks.Add(1)
	return &dnsverify.CheckResult{Domain: domain}, nil
}

func (v *countingVerifier) Propagation(_ context.Context, domain, _ string) (*dnsverify.PropagationResult, error) {
	v.propagations.Add(1)
	return &dnsverify.PropagationResult{Domain: domain, TotalResolvers: 4, MatchedResolvers: 2, Percentage: 50}, nil
}

type countingInspector struct {
	calls atomic.Int32
}

func (i *countingInspector) Inspect(_ context.Context, domain string) (*certinspect.Result, error) {
	i.calls.Add(1)
	return &certinspect.Result{Domain: domain, Present: true}, nil
}

func TestVerifier(t *testing.T) {
	t.Parallel()

	next := &countingVerifier{}
	c := cache.NewMemory[*dnsverify.PropagationResult]()
	t.Cleanup(func() { _ = c.Close() })
	v := lookupcache.NewVerifier(next, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		_, err := v.Check(ctx, "shop.example.com", "tok")
		require.NoError(t, err)
		res, err := v.Propagation(ctx, "shop.example.com", "tok")
		require.NoError(t, err)
		assert.InDelta(t, 50.0, res.Percentage, 0.001)
	}
	_, err := v.Propagation(ctx, "shop.example.com", "other-token")
	require.NoError(t, err)

	assert.Equal(t, int32(3), next.checks.Load())
	assert.Equal(t, int32(2), next.propagations.Load())
}

func TestInspector(t *testing.T) {
	t.Parallel()

	next := &countingInspector{}
	c := cache.NewMemory[*certinspect.Result]()
	t.Cleanup(func() { _ = c.Close() })
	i := lookupcache.NewInspector(next, c, time.Minute)
	ctx := context.Background()

	for range 3 {
		res, err := i.Inspect(ctx, "shop.example.com")
		require.NoError(t, err)
		assert.True(t, res.Present)
	}
	assert.Equal(t, int32(1), next.calls.Load())

	require.NoError(t, i.Invalidate(ctx, "shop.example.com"))
	_, err := i.Inspect(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}
