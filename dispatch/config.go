package dispatch

import (
	"github.com/on-the-ground/dispatch_ive_go/dispatch/configkeys"
	"github.com/on-the-ground/dispatch_ive_go/shared/helper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	defaultCacheShards = 1
	defaultHistorySize = 64
)

type Config struct {
	CacheShards  int  // default: 1
	DisableCache bool // resolve every call from scratch
	HistorySize  int  // default: 64 revisions kept
	Logger       *zap.Logger
}

// NewConfig returns a Config with non-positive sizes replaced by defaults.
func NewConfig(cacheShards, historySize int) Config {
	if cacheShards <= 0 {
		cacheShards = defaultCacheShards
	}
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return Config{
		CacheShards: cacheShards,
		HistorySize: historySize,
	}
}

// ConfigFromBindings reads the keys in configkeys from host-provided bindings.
// Missing keys take their defaults; every mistyped key is reported.
func ConfigFromBindings(bindings map[string]any) (Config, error) {
	shards, _, errShards := helper.LookupTyped[int](bindings, configkeys.ConfigDispatchCacheShards)
	disabled, _, errDisabled := helper.LookupTyped[bool](bindings, configkeys.ConfigDispatchCacheDisabled)
	historySize, _, errHistory := helper.LookupTyped[int](bindings, configkeys.ConfigDispatchHistorySize)
	if err := multierr.Combine(errShards, errDisabled, errHistory); err != nil {
		return Config{}, err
	}

	config := NewConfig(shards, historySize)
	config.DisableCache = disabled
	return config, nil
}

func (c Config) normalized() Config {
	n := NewConfig(c.CacheShards, c.HistorySize)
	n.DisableCache = c.DisableCache
	n.Logger = c.Logger
	if n.Logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
		n.Logger = logger
	}
	return n
}
