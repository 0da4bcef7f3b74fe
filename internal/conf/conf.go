package conf

import "time"

// Bootstrap is the root configuration of the PostLane service.
type Bootstrap struct {
	Server    *Server
	Data      *Data
	Log       *Log
	Breakers  map[string]*Breaker
	Schedules []*Schedule
	Jobs      *Jobs
	Platforms []*Platform
	Generator *Generator
}

// Server holds transport settings.
type Server struct {
	HTTP *HTTP
}

// HTTP is the operator HTTP listener.
type HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Data holds storage settings.
type Data struct {
	Database *Database
	Redis    *Redis
}

// Database is the MySQL connection.
type Database struct {
	Driver          string
	Source          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Redis is the cache and lock backend.
type Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// Breaker is the per-dependency circuit breaker tuning.
type Breaker struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	FailureWindow    time.Duration `mapstructure:"failure_window"`
	CooldownPeriod   time.Duration `mapstructure:"cooldown_period"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
}

// Schedule declares on which UTC weekdays and hours a job is expected to run.
// Weekdays use 0=Sunday..6=Saturday.
type Schedule struct {
	JobName  string `mapstructure:"job_name"`
	Weekdays []int  `mapstructure:"weekdays"`
	HoursUTC []int  `mapstructure:"hours_utc"`
}

// Jobs holds the cron cadence and knobs of each background job.
type Jobs struct {
	Publish  *PublishJob
	Generate *GenerateJob
	Detector *Detector
	Ledger   *Ledger
	Lock     *Lock
}

// PublishJob configures the publish-content job.
type PublishJob struct {
	Cron        string
	CallTimeout time.Duration
}

// GenerateJob configures the generate-content job.
type GenerateJob struct {
	Cron        string
	CallTimeout time.Duration
	Slots       []*GenerationSlot
}

// GenerationSlot is one piece of content requested per generate-content run.
type GenerationSlot struct {
	Kind     string `mapstructure:"kind"`
	Platform string `mapstructure:"platform"`
	Topic    string `mapstructure:"topic"`
}

// Detector configures the silent-failure detector.
type Detector struct {
	Interval        time.Duration
	DetectionMargin time.Duration
	GracePeriod     time.Duration
	ReportCapacity  int
}

// Ledger configures the execution ledger queries.
type Ledger struct {
	OrphanThreshold time.Duration
	StatsWindow     time.Duration
}

// Lock configures the Redis job run-lock.
type Lock struct {
	TTL time.Duration
}

// Platform is an external publishing endpoint. Name doubles as breaker name.
type Platform struct {
	Name     string        `mapstructure:"name"`
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Generator is the content-generation service endpoint.
type Generator struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}
