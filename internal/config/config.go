package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	slaKeyPrefix = "poolmonitor."
	slaKeySuffix = ".sla"
)

// Source is a read-only string key/value configuration surface. The host
// owns the underlying storage; this layer only looks keys up.
type Source interface {
	Lookup(key string) (string, bool)
}

// ViperSource adapts a viper instance to the Source interface.
type ViperSource struct {
	v *viper.Viper
}

// NewViperSource wraps the given viper instance. Passing nil wraps the
// global one.
func NewViperSource(v *viper.Viper) *ViperSource {
	if v == nil {
		v = viper.GetViper()
	}
	return &ViperSource{v: v}
}

// Lookup implements Source.Lookup.
func (s *ViperSource) Lookup(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	return s.v.GetString(key), true
}

// StaticSource is a fixed key/value map, mainly for tests.
type StaticSource map[string]string

// Lookup implements Source.Lookup.
func (s StaticSource) Lookup(key string) (string, bool) {
	value, ok := s[key]
	return value, ok
}

// SLAKey returns the configuration key holding the SLA threshold for a pool.
// The naming convention is fixed: poolmonitor.<poolDisplayName>.sla, value in
// integer minutes.
func SLAKey(pool string) string {
	return slaKeyPrefix + pool + slaKeySuffix
}

// SLAFor looks up the configured SLA threshold for a pool. Absent or
// malformed values mean no SLA is configured, never an error.
func SLAFor(src Source, pool string) (time.Duration, bool) {
	raw, ok := src.Lookup(SLAKey(pool))
	if !ok {
		return 0, false
	}
	minutes, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || minutes <= 0 {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}
