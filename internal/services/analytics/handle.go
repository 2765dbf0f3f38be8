package analytics

import (
	"sync"
	"sync/atomic"

	"kongflow/analytics-bridge/internal/logger"
	"kongflow/analytics-bridge/internal/metrics"
)

// clientHandle owns the Sender. With InitLazy the factory runs on first use,
// exactly once; concurrent first callers all see the same sender or error.
type clientHandle struct {
	strategy InitStrategy
	get      func() (Sender, error)
	started  atomic.Bool
}

func newClientHandle(cfg Config, factory SenderFactory, log *logger.Logger) (*clientHandle, error) {
	h := &clientHandle{strategy: cfg.InitStrategy}

	build := func() (Sender, error) {
		h.started.Store(true)
		sender, err := factory(cfg, log)
		metrics.RecordClientInit(string(cfg.InitStrategy), err)
		if err != nil {
			log.Errorf("analytics client initialization failed: %v", err)
			return nil, newError(KindConfiguration, "init", err)
		}
		log.Debug("analytics client initialized", map[string]interface{}{
			"strategy": cfg.InitStrategy,
			"endpoint": cfg.APIEndpoint,
		})
		return sender, nil
	}

	if cfg.InitStrategy == InitLazy {
		h.get = sync.OnceValues(build)
		return h, nil
	}

	sender, err := build()
	if err != nil {
		return nil, err
	}
	h.get = func() (Sender, error) { return sender, nil }
	return h, nil
}

// Sender returns the sender, constructing it if needed.
func (h *clientHandle) Sender() (Sender, error) {
	return h.get()
}

// Close closes the sender if one was built. A lazy handle that was never used
// is left untouched.
func (h *clientHandle) Close() error {
	if !h.started.Load() {
		return nil
	}
	sender, err := h.get()
	if err != nil {
		return nil
	}
	return sender.Close()
}
