package storage

import (
	"context"

	"github.com/genlayer/glvault/pkg/metrics"
)

// instrumented decorates a Backend with operation counters. The vault core
// stays metrics-free; the server wraps its backend once at startup.
type instrumented struct {
	inner Backend
}

// Instrument wraps a backend so every operation is counted, with failures
// counted separately.
func Instrument(b Backend) Backend {
	return &instrumented{inner: b}
}

func (i *instrumented) record(op string, err error) {
	metrics.BackendOperationsTotal.WithLabelValues(i.inner.Name(), op).Inc()
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues(i.inner.Name(), op).Inc()
	}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := i.inner.Get(ctx, key)
	i.record("get", err)
	return value, ok, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	err := i.inner.Set(ctx, key, value)
	i.record("set", err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, key string) error {
	err := i.inner.Delete(ctx, key)
	i.record("delete", err)
	return err
}

func (i *instrumented) Scan(ctx context.Context, prefix string) ([]string, error) {
	keys, err := i.inner.Scan(ctx, prefix)
	i.record("scan", err)
	return keys, err
}

func (i *instrumented) Ping(ctx context.Context) error {
	return i.inner.Ping(ctx)
}

func (i *instrumented) Name() string { return i.inner.Name() }

func (i *instrumented) Close() error { return i.inner.Close() }
