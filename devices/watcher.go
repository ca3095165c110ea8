package devices

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// Faster polling while nothing is known for quick first discovery
	pollIntervalFast = 1 * time.Second
	// Slower polling once at least one device is known to reduce network load
	pollIntervalSlow = 4 * time.Second
	// Refresh calls closer than this are throttled
	minRefreshGap = 500 * time.Millisecond
)

// Poster runs f on the thread that owns the listener.
type Poster interface {
	Post(f func())
}

// Watcher polls its sources and turns snapshot changes into roster
// events. Events are always delivered through the Poster so the
// listener sees them serially.
type Watcher struct {
	sources  []Source
	listener Listener
	poster   Poster
	limiter  *rate.Limiter

	FastInterval time.Duration
	SlowInterval time.Duration
	Logger       zerolog.Logger
	LogOutput    io.Writer
	initLogOnce  sync.Once

	// pollMu serializes Refresh, mu guards current only so Devices
	// never waits on a discovery timeout.
	pollMu    sync.Mutex
	perSource map[int][]Device

	mu      sync.Mutex
	current []Device
}

func NewWatcher(poster Poster, listener Listener, sources ...Source) *Watcher {
	return &Watcher{
		sources:      sources,
		listener:     listener,
		poster:       poster,
		limiter:      rate.NewLimiter(rate.Every(minRefreshGap), 1),
		FastInterval: pollIntervalFast,
		SlowInterval: pollIntervalSlow,
		Logger:       zerolog.Nop(),
		perSource:    make(map[int][]Device),
	}
}

// Log returns the zerolog logger, initializing it lazily if LogOutput is set.
func (w *Watcher) Log() *zerolog.Logger {
	if w.LogOutput != nil {
		w.initLogOnce.Do(func() {
			w.Logger = zerolog.New(w.LogOutput).With().Timestamp().Str("Component", "watcher").Logger()
		})
	}
	return &w.Logger
}

// Devices returns the last merged snapshot.
func (w *Watcher) Devices() []Device {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Device(nil), w.current...)
}

// Refresh polls every source once and posts the resulting events. A
// source that fails keeps its previous devices so a single lost mDNS
// answer does not flap the roster.
func (w *Watcher) Refresh(ctx context.Context) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	for i, src := range w.sources {
		devs, err := src.Snapshot(ctx)
		if err != nil {
			w.Log().Debug().Str("Method", "Refresh").Int("Source", i).Err(err).Msg("source failed, keeping previous devices")
			continue
		}
		w.perSource[i] = devs
	}

	var merged []Device
	seen := make(map[string]struct{})
	for i := range w.sources {
		for _, d := range w.perSource[i] {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			merged = append(merged, d)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	inserted, updated, removed := Diff(w.current, merged)
	w.current = merged

	for _, d := range removed {
		w.Log().Debug().Str("Method", "Refresh").Str("DeviceID", d.ID).Msg("removed")
		w.poster.Post(func() { w.listener.OnRemoved(d) })
	}
	for _, d := range updated {
		w.Log().Debug().Str("Method", "Refresh").Str("DeviceID", d.ID).Msg("updated")
		w.poster.Post(func() { w.listener.OnUpdated(d) })
	}
	for _, d := range inserted {
		w.Log().Debug().Str("Method", "Refresh").Str("DeviceID", d.ID).Str("Name", d.Name).Msg("inserted")
		w.poster.Post(func() { w.listener.OnInserted(d) })
	}

	return nil
}

func (w *Watcher) nextInterval() time.Duration {
	w.mu.Lock()
	hasDevices := len(w.current) > 0
	w.mu.Unlock()
	if hasDevices {
		return w.SlowInterval
	}
	return w.FastInterval
}

// Run polls until ctx is canceled, fast while the roster is empty and
// slower once something was found.
func (w *Watcher) Run(ctx context.Context) {
	pollTimer := time.NewTimer(0)
	defer pollTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTimer.C:
		}

		if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
			w.Log().Error().Str("Method", "Run").Err(err).Msg("refresh failed")
		}

		pollTimer.Reset(w.nextInterval())
	}
}
