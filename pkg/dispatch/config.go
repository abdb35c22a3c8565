package dispatch

import "time"

// Config holds dispatcher and worker tuning, loaded from the environment.
type Config struct {
	SendTimeout    time.Duration `env:"DISPATCH_SEND_TIMEOUT" envDefault:"30s"`
	PullInterval   time.Duration `env:"DISPATCH_PULL_INTERVAL" envDefault:"1s"`
	LeaseDuration  time.Duration `env:"DISPATCH_LEASE_DURATION" envDefault:"2m"`
	MaxConcurrent  int           `env:"DISPATCH_MAX_CONCURRENT" envDefault:"4"`
	StatsRunAfter  time.Duration `env:"DISPATCH_STATS_RUN_AFTER" envDefault:"15m"`
	DevDeliveryDir string        `env:"DISPATCH_DEV_DELIVERY_DIR" envDefault:"./tmp/deliveries"`
}
