package metrics

import (
	"context"
	"time"
)

// Collector periodically refreshes gauges that mirror stored state, so they
// stay correct even when an update event is missed.
type Collector struct {
	countKeys func(context.Context) (int, error)
	interval  time.Duration
	stopCh    chan struct{}
}

// NewCollector creates a collector around a key-counting function. The
// function is typically vault.Store.Count.
func NewCollector(countKeys func(context.Context) (int, error)) *Collector {
	return &Collector{
		countKeys: countKeys,
		interval:  15 * time.Second,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := c.countKeys(ctx)
	if err != nil {
		return
	}
	KeysRegistered.Set(float64(n))
}
