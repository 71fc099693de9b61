package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/threadforge/internal/cache"
	"github.com/magabrotheeeer/threadforge/internal/config"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type pingerStub struct {
	configured bool
	failures   int32
	calls      atomic.Int32
}

func (p *pingerStub) IsConfigured() bool { return p.configured }

func (p *pingerStub) Ping(_ context.Context) error {
	n := p.calls.Add(1)
	if n <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestDetector_Conditions(t *testing.T) {
	opts := Options{Timeout: time.Second, Retries: 0}

	t.Run("no handle", func(t *testing.T) {
		d := New(nil, opts, newNoopLogger())
		assert.False(t, d.IsPrimaryAvailable(context.Background()))
	})

	t.Run("typed nil handle", func(t *testing.T) {
		var c *cache.Cache
		d := New(c, opts, newNoopLogger())
		assert.False(t, d.IsPrimaryAvailable(context.Background()))
	})

	t.Run("not configured", func(t *testing.T) {
		p := &pingerStub{configured: false}
		d := New(p, opts, newNoopLogger())
		assert.False(t, d.IsPrimaryAvailable(context.Background()))
		assert.Equal(t, int32(0), p.calls.Load())
	})

	t.Run("configured but ping fails", func(t *testing.T) {
		p := &pingerStub{configured: true, failures: 100}
		d := New(p, opts, newNoopLogger())
		assert.False(t, d.IsPrimaryAvailable(context.Background()))
	})

	t.Run("configured and ping ok", func(t *testing.T) {
		p := &pingerStub{configured: true}
		d := New(p, opts, newNoopLogger())
		assert.True(t, d.IsPrimaryAvailable(context.Background()))
	})
}

func TestDetector_RetriesPing(t *testing.T) {
	p := &pingerStub{configured: true, failures: 2}
	d := New(p, Options{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond}, newNoopLogger())

	assert.True(t, d.IsPrimaryAvailable(context.Background()))
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestDetector_RetriesAreBounded(t *testing.T) {
	p := &pingerStub{configured: true, failures: 100}
	d := New(p, Options{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond}, newNoopLogger())

	assert.False(t, d.IsPrimaryAvailable(context.Background()))
	assert.Equal(t, int32(3), p.calls.Load())
}

func TestDetector_ReevaluatesEachCall(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(config.RedisConnection{AddressRedis: mr.Addr(), DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = c.Close() })

	d := New(c, Options{Timeout: 500 * time.Millisecond}, newNoopLogger())
	require.True(t, d.IsPrimaryAvailable(context.Background()))

	mr.Close()
	assert.False(t, d.IsPrimaryAvailable(context.Background()))

	require.NoError(t, mr.Restart())
	assert.True(t, d.IsPrimaryAvailable(context.Background()))
}
