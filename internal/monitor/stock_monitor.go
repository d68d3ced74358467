// Package monitor runs the periodic low stock sweep.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/ec-fulfillment/internal/domain/inventory"
	"go.uber.org/zap"
)

// DefaultInterval is how often the sweep runs when none is configured.
const DefaultInterval = 5 * time.Minute

type Sweeper interface {
	SweepLowStock(ctx context.Context) (inventory.SweepResult, error)
}

// Lease decides which replica runs a given sweep. A granted lease is kept
// until it expires, so one replica sweeps per interval.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// LocalLease always grants. It is used when there is a single process.
type LocalLease struct{}

func (LocalLease) Acquire(context.Context) (bool, error) { return true, nil }
func (LocalLease) Release(context.Context) error         { return nil }

// StockMonitor re-checks every product against its threshold on a fixed
// interval, independently of order traffic.
type StockMonitor struct {
	sweeper  Sweeper
	lease    Lease
	interval time.Duration
	logger   *zap.Logger

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewStockMonitor(sweeper Sweeper, lease Lease, interval time.Duration, logger *zap.Logger) *StockMonitor {
	if lease == nil {
		lease = LocalLease{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &StockMonitor{
		sweeper:  sweeper,
		lease:    lease,
		interval: interval,
		logger:   logger.Named("stock_monitor"),
	}
}

// Start launches the sweep loop. The first sweep runs immediately. Calling
// Start on a started monitor does nothing.
func (m *StockMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.loop(ctx)

	m.logger.Info("Stock monitor started", zap.Duration("interval", m.interval))
}

// Stop cancels the loop and waits for an in-flight sweep, bounded by ctx.
func (m *StockMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := m.lease.Release(ctx); err != nil {
		m.logger.Warn("Failed to release stock monitor lease", zap.Error(err))
	}
	m.logger.Info("Stock monitor stopped")
	return nil
}

func (m *StockMonitor) loop(ctx context.Context) {
	defer m.wg.Done()

	m.RunOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.RunOnce(ctx)
			}()
		}
	}
}

// RunOnce performs a single sweep. It reports false when the sweep was skipped
// because another one is in progress here or the lease is held elsewhere.
func (m *StockMonitor) RunOnce(ctx context.Context) bool {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warn("Previous stock sweep still running, skipping")
		return false
	}
	defer m.running.Store(false)

	acquired, err := m.lease.Acquire(ctx)
	if err != nil {
		m.logger.Error("Failed to acquire stock monitor lease", zap.Error(err))
		return false
	}
	if !acquired {
		m.logger.Debug("Stock monitor lease held elsewhere, skipping sweep")
		return false
	}
	start := time.Now()
	res, err := m.sweeper.SweepLowStock(ctx)
	if err != nil {
		m.logger.Error("Low stock sweep failed", zap.Error(err))
		return true
	}

	m.logger.Info("Low stock sweep completed",
		zap.Int("checked", res.Checked),
		zap.Int("low", res.Low),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return true
}
