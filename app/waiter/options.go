package waiter

import (
	"os"
)

type Option func(*waiterCfg)

// WithSignals replaces the signals that cancel the waiter. Passing none disables signal handling.
func WithSignals(signals ...os.Signal) Option {
	return func(cfg *waiterCfg) {
		cfg.signals = signals
	}
}
