// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with .env files loaded first for local development.
package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"PostLane/pkg/crypto"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// GenerationServiceBreaker is the breaker name guarding the content-generation service.
const GenerationServiceBreaker = "content-generation-service"

// Breaker defaults applied to every dependency that does not override them.
const (
	DefaultFailureThreshold = 5
	DefaultFailureWindow    = 60 * time.Second
	DefaultCooldownPeriod   = 30 * time.Second
	DefaultSuccessThreshold = 2
)

// LoadEnvFiles loads ENV_FILE if set, otherwise .env.local then .env.
// Missing files are ignored.
func LoadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env.local: %w", err)
	}
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with POSTLANE_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or POSTLANE_DATA_DATABASE_SOURCE: MySQL connection string
//
// Secret fields may hold "enc:" values sealed with POSTLANE_SECRET_KEY.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("POSTLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "POSTLANE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "POSTLANE_DATA_REDIS_ADDR")
	_ = v.BindEnv("data.redis.password", "REDIS_PASSWORD", "POSTLANE_DATA_REDIS_PASSWORD")
	_ = v.BindEnv("generator.token", "GENERATOR_TOKEN", "POSTLANE_GENERATOR_TOKEN")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			HTTP: &HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Data: &Data{
			Database: &Database{
				Driver:          v.GetString("data.database.driver"),
				Source:          v.GetString("data.database.source"),
				MaxIdleConns:    v.GetInt("data.database.max_idle_conns"),
				MaxOpenConns:    v.GetInt("data.database.max_open_conns"),
				ConnMaxLifetime: v.GetDuration("data.database.conn_max_lifetime"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
				CacheTTL:     v.GetDuration("data.redis.cache_ttl"),
			},
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		Jobs: &Jobs{
			Publish: &PublishJob{
				Cron:        v.GetString("jobs.publish.cron"),
				CallTimeout: v.GetDuration("jobs.publish.call_timeout"),
			},
			Generate: &GenerateJob{
				Cron:        v.GetString("jobs.generate.cron"),
				CallTimeout: v.GetDuration("jobs.generate.call_timeout"),
			},
			Detector: &Detector{
				Interval:        v.GetDuration("jobs.detector.interval"),
				DetectionMargin: v.GetDuration("jobs.detector.detection_margin"),
				GracePeriod:     v.GetDuration("jobs.detector.grace_period"),
				ReportCapacity:  v.GetInt("jobs.detector.report_capacity"),
			},
			Ledger: &Ledger{
				OrphanThreshold: v.GetDuration("jobs.ledger.orphan_threshold"),
				StatsWindow:     v.GetDuration("jobs.ledger.stats_window"),
			},
			Lock: &Lock{
				TTL: v.GetDuration("jobs.lock.ttl"),
			},
		},
		Generator: &Generator{
			Endpoint: v.GetString("generator.endpoint"),
			Token:    v.GetString("generator.token"),
			Timeout:  v.GetDuration("generator.timeout"),
		},
	}

	if err := v.UnmarshalKey("jobs.generate.slots", &bc.Jobs.Generate.Slots); err != nil {
		return nil, fmt.Errorf("failed to parse jobs.generate.slots: %w", err)
	}
	if err := v.UnmarshalKey("schedules", &bc.Schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules: %w", err)
	}
	if err := v.UnmarshalKey("platforms", &bc.Platforms); err != nil {
		return nil, fmt.Errorf("failed to parse platforms: %w", err)
	}
	if err := v.UnmarshalKey("breakers", &bc.Breakers); err != nil {
		return nil, fmt.Errorf("failed to parse breakers: %w", err)
	}
	applyBreakerDefaults(bc)

	if err := unsealSecrets(bc, v.GetString("secret_key")); err != nil {
		return nil, err
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	// data.database.source (MYSQL_DSN) is required from environment
	v.SetDefault("data.database.max_idle_conns", 10)
	v.SetDefault("data.database.max_open_conns", 50)
	v.SetDefault("data.database.conn_max_lifetime", time.Hour)

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// 每 5 分钟触发一次, 是否真正执行由 schedules 决定
	v.SetDefault("jobs.publish.cron", "*/5 * * * *")
	v.SetDefault("jobs.publish.call_timeout", 30*time.Second)
	v.SetDefault("jobs.generate.cron", "*/5 * * * *")
	v.SetDefault("jobs.generate.call_timeout", 2*time.Minute)

	v.SetDefault("jobs.detector.interval", 30*time.Minute)
	v.SetDefault("jobs.detector.detection_margin", 2*time.Hour)
	v.SetDefault("jobs.detector.grace_period", 5*time.Minute)
	v.SetDefault("jobs.detector.report_capacity", 256)

	v.SetDefault("jobs.ledger.orphan_threshold", 6*time.Hour)
	v.SetDefault("jobs.ledger.stats_window", 30*24*time.Hour)
	v.SetDefault("jobs.lock.ttl", 35*time.Minute)

	v.SetDefault("generator.timeout", 2*time.Minute)

	v.SetDefault("schedules", []map[string]any{
		{"job_name": "publish-content", "weekdays": []int{0, 1, 2, 3, 4, 5, 6}, "hours_utc": []int{9, 13, 17}},
		{"job_name": "generate-content", "weekdays": []int{1, 2, 3, 4, 5}, "hours_utc": []int{6}},
	})
}

// applyBreakerDefaults fills unset breaker fields and makes sure every platform
// and the generation service have a breaker entry.
func applyBreakerDefaults(bc *Bootstrap) {
	if bc.Breakers == nil {
		bc.Breakers = make(map[string]*Breaker)
	}
	names := []string{GenerationServiceBreaker}
	for _, p := range bc.Platforms {
		if p != nil && p.Name != "" {
			names = append(names, p.Name)
		}
	}
	for _, name := range names {
		if _, ok := bc.Breakers[name]; !ok {
			bc.Breakers[name] = &Breaker{}
		}
	}
	for name, b := range bc.Breakers {
		if b == nil {
			b = &Breaker{}
			bc.Breakers[name] = b
		}
		if b.FailureThreshold == 0 {
			b.FailureThreshold = DefaultFailureThreshold
		}
		if b.FailureWindow == 0 {
			b.FailureWindow = DefaultFailureWindow
		}
		if b.CooldownPeriod == 0 {
			b.CooldownPeriod = DefaultCooldownPeriod
		}
		if b.SuccessThreshold == 0 {
			b.SuccessThreshold = DefaultSuccessThreshold
		}
	}
}

// unsealSecrets opens "enc:" values of secret fields with POSTLANE_SECRET_KEY.
func unsealSecrets(bc *Bootstrap, key string) error {
	var sealer *crypto.Sealer
	if key != "" {
		var err error
		if sealer, err = crypto.NewSealer(key); err != nil {
			return fmt.Errorf("invalid POSTLANE_SECRET_KEY: %w", err)
		}
	}

	open := func(field string, value *string) error {
		plain, err := crypto.Resolve(sealer, *value)
		if err != nil {
			return fmt.Errorf("failed to unseal %s: %w", field, err)
		}
		*value = plain
		return nil
	}

	if bc.Data != nil && bc.Data.Database != nil {
		if err := open("data.database.source", &bc.Data.Database.Source); err != nil {
			return err
		}
	}
	if bc.Data != nil && bc.Data.Redis != nil {
		if err := open("data.redis.password", &bc.Data.Redis.Password); err != nil {
			return err
		}
	}
	if bc.Generator != nil {
		if err := open("generator.token", &bc.Generator.Token); err != nil {
			return err
		}
	}
	for _, p := range bc.Platforms {
		if p == nil {
			continue
		}
		if err := open("platforms."+p.Name+".token", &p.Token); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	for i, s := range bc.Schedules {
		if s == nil || s.JobName == "" {
			missingFields = append(missingFields, fmt.Sprintf("schedules[%d].job_name", i))
		}
	}

	for i, p := range bc.Platforms {
		if p == nil || p.Name == "" {
			missingFields = append(missingFields, fmt.Sprintf("platforms[%d].name", i))
			continue
		}
		if p.Endpoint == "" {
			missingFields = append(missingFields, fmt.Sprintf("platforms[%d].endpoint", i))
		}
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
