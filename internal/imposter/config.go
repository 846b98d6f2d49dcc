package imposter

import (
	"time"

	"github.com/imposter-games/imposter/internal/database"
)

type Config struct {
	// Switches the logger to debug and the development encoder
	Debug bool `envconfig:"IMPOSTER_DEBUG" default:"false"`

	// Port the lobby API and health check listen on
	Port string `envconfig:"IMPOSTER_PORT" default:"8080"`

	// pprof port, empty disables the profiler
	ProfPort string `envconfig:"IMPOSTER_PROF_PORT" default:""`

	// Number of session snapshots kept by the sync-layer cache
	CacheSize int `envconfig:"IMPOSTER_CACHE_SIZE" default:"1024"`

	// How long an untouched session stays reclaimable before the sweeper
	// deletes it
	SessionTTL time.Duration `envconfig:"IMPOSTER_SESSION_TTL" default:"24h"`

	// Expiry sweeper period
	SweepInterval time.Duration `envconfig:"IMPOSTER_SWEEP_INTERVAL" default:"5m"`

	Db database.Config
}
