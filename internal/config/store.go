package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store holds the current configuration snapshot and swaps it atomically on
// reload, so in-flight evaluations keep the snapshot they started with and
// never observe a half-updated rate or fee table.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store seeded with an already validated configuration.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Snapshot returns the configuration current at the time of the call.
func (s *Store) Snapshot() *Config {
	return s.current.Load()
}

// Swap installs a new configuration snapshot. The snapshot must already be
// validated; a reload that fails validation keeps the previous snapshot.
func (s *Store) Swap(cfg *Config) {
	s.current.Store(cfg)
}

// Watch re-reads the configuration file whenever it changes and swaps the
// new snapshot in if it validates. Invalid reloads are logged and dropped;
// the engine keeps running on the last good configuration.
func (s *Store) Watch(path string, logger *logrus.Logger) {
	v := viper.New()
	v.SetConfigFile(path)
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := LoadFile(path)
		if err != nil {
			logger.WithError(err).Error("Config reload rejected, keeping previous snapshot")
			return
		}
		s.Swap(cfg)
		logger.WithField("path", path).Info("Config reloaded")
	})
	v.WatchConfig()
}
