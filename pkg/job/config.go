package job

// Config controls the background worker. Workers false makes the process
// enqueue-only, for API replicas that leave processing to a worker pool.
type Config struct {
	Workers    bool `env:"JOBS_WORKERS" envDefault:"true" yaml:"workers"`
	MaxWorkers int  `env:"JOBS_MAX_WORKERS" envDefault:"20" yaml:"max_workers"`
	// Workers for the notifications queue.
	NotifyWorkers int `env:"JOBS_NOTIFY_WORKERS" envDefault:"5" yaml:"notify_workers"`
	MaxAttempts   int `env:"JOBS_MAX_ATTEMPTS" envDefault:"10" yaml:"max_attempts"`
}
