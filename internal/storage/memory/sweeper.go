package memory

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Sweeper defaults.
const (
	DefaultSweepInterval    = 100 * time.Millisecond
	DefaultSweepShardBudget = 1024

	// sweepRepeatRatio: a shard where more than 1/sweepRepeatRatio of the
	// sampled entries were expired is swept again in the same cycle.
	sweepRepeatRatio = 4
	maxShardRounds   = 16
)

// SweeperConfig configures the Sweeper.
type SweeperConfig struct {
	// Interval between sweep cycles.
	Interval time.Duration
	// ShardBudget is the most entries visited per shard lock acquisition.
	ShardBudget int
}

// Sweeper periodically evicts expired entries from a Store.
//
// Lazy expiration already hides expired entries from readers; the sweeper
// only reclaims the memory of entries nobody reads again.
type Sweeper struct {
	store  *Store
	cfg    SweeperConfig
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewSweeper creates a sweeper for store. Zero config fields take defaults.
func NewSweeper(store *Store, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSweepInterval
	}
	if cfg.ShardBudget <= 0 {
		cfg.ShardBudget = DefaultSweepShardBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the background loop. Calling it more than once has no effect.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop signals the loop to exit and waits for it. It is safe to call Stop
// without Start and to call it more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	// A sweeper that never started has no loop to close doneCh.
	s.startOnce.Do(func() {
		close(s.doneCh)
	})
	<-s.doneCh
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			scanned, removed := s.RunOnce()
			if removed > 0 {
				s.logger.Debug("expired keys swept",
					"scanned", scanned,
					"removed", removed,
					"duration", time.Since(start))
			}
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one sweep cycle over every shard and returns the number
// of entries visited and removed. It yields between shard visits so a long
// cycle does not starve request handling.
func (s *Sweeper) RunOnce() (scanned, removed int) {
	for i := 0; i < s.store.ShardCount(); i++ {
		for round := 0; round < maxShardRounds; round++ {
			sc, rm := s.store.SweepShard(i, s.cfg.ShardBudget)
			scanned += sc
			removed += rm
			runtime.Gosched()

			if sc < s.cfg.ShardBudget || rm*sweepRepeatRatio <= sc {
				break
			}
			select {
			case <-s.stopCh:
				return scanned, removed
			default:
			}
		}
	}
	return scanned, removed
}
