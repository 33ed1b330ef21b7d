// Package config loads smpd configuration from an optional file, SMP_* environment
// variables and defaults, then validates it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	platformstrings "smp/pkg/platform/strings"
)

// Backend kinds.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the root configuration of smpd.
type Config struct {
	Backend Backend `mapstructure:"backend"`
	SMP     SMP     `mapstructure:"smp"`
	Keys    Keys    `mapstructure:"keys"`
	Audit   Audit   `mapstructure:"audit"`
	HTTP    HTTP    `mapstructure:"http"`
	Log     Log     `mapstructure:"log"`
}

// Backend selects and configures the persistence backend.
type Backend struct {
	Kind     string      `mapstructure:"kind" validate:"required,oneof=memory file postgres redis"`
	File     FileBackend `mapstructure:"file"`
	Postgres Postgres    `mapstructure:"postgres"`
	Redis    RedisConfig `mapstructure:"redis"`
}

type FileBackend struct {
	Dir string `mapstructure:"dir"`
}

type Postgres struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// RedisConfig configures the go-redis client.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// SMP holds the registry behaviour switches.
type SMP struct {
	// ID is the SMP identifier registered in the SML.
	ID                          string `mapstructure:"id" validate:"required,max=64"`
	IdentifierType              string `mapstructure:"identifier_type" validate:"required,oneof=peppol bdxr bdxr1 bdxr2 simple"`
	AutoCreateTransportProfiles bool   `mapstructure:"auto_create_transport_profiles"`
	BusinessCardsEnabled        bool   `mapstructure:"business_cards_enabled"`
	SPFEnabled                  bool   `mapstructure:"spf_enabled"`
	PublicURL                   string `mapstructure:"public_url" validate:"omitempty,url"`
}

type Keys struct {
	KeystorePath     string `mapstructure:"keystore_path"`
	KeystorePassword string `mapstructure:"keystore_password"`
	TruststorePath   string `mapstructure:"truststore_path"`
}

type Audit struct {
	Sink  string `mapstructure:"sink" validate:"required,oneof=log kafka none"`
	Kafka Kafka  `mapstructure:"kafka"`
	// Buffer > 0 makes audit emission asynchronous.
	Buffer int `mapstructure:"buffer" validate:"gte=0"`
}

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	EnsureTopic       bool     `mapstructure:"ensure_topic"`
	Partitions        int32    `mapstructure:"partitions" validate:"gte=0"`
	ReplicationFactor int16    `mapstructure:"replication_factor" validate:"gte=0"`
}

type HTTP struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Backend: Backend{
			Kind: BackendMemory,
			File: FileBackend{Dir: "data"},
			Postgres: Postgres{
				MaxConns:        10,
				MaxConnLifetime: time.Hour,
				Migrate:         true,
			},
			Redis: RedisConfig{
				PoolSize:     10,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
		},
		SMP: SMP{
			ID:                          "SMP",
			IdentifierType:              "peppol",
			AutoCreateTransportProfiles: false,
			BusinessCardsEnabled:        true,
			SPFEnabled:                  true,
		},
		Audit: Audit{
			Sink: "log",
			Kafka: Kafka{
				Topic:             "smp.audit",
				Partitions:        1,
				ReplicationFactor: 1,
			},
		},
		HTTP: HTTP{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:  Log{Level: "info", Format: "json"},
	}
}

// Load reads configuration. An empty path skips the config file; a missing
// explicit file is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix("SMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Audit.Kafka.Brokers = platformstrings.DedupeAndTrimLower(cfg.Audit.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("backend.kind", d.Backend.Kind)
	v.SetDefault("backend.file.dir", d.Backend.File.Dir)
	v.SetDefault("backend.postgres.dsn", d.Backend.Postgres.DSN)
	v.SetDefault("backend.postgres.max_conns", d.Backend.Postgres.MaxConns)
	v.SetDefault("backend.postgres.max_conn_lifetime", d.Backend.Postgres.MaxConnLifetime)
	v.SetDefault("backend.postgres.migrate", d.Backend.Postgres.Migrate)
	v.SetDefault("backend.redis.url", d.Backend.Redis.URL)
	v.SetDefault("backend.redis.key_prefix", d.Backend.Redis.KeyPrefix)
	v.SetDefault("backend.redis.pool_size", d.Backend.Redis.PoolSize)
	v.SetDefault("backend.redis.min_idle_conns", d.Backend.Redis.MinIdleConns)
	v.SetDefault("backend.redis.dial_timeout", d.Backend.Redis.DialTimeout)
	v.SetDefault("backend.redis.read_timeout", d.Backend.Redis.ReadTimeout)
	v.SetDefault("backend.redis.write_timeout", d.Backend.Redis.WriteTimeout)
	v.SetDefault("smp.id", d.SMP.ID)
	v.SetDefault("smp.identifier_type", d.SMP.IdentifierType)
	v.SetDefault("smp.auto_create_transport_profiles", d.SMP.AutoCreateTransportProfiles)
	v.SetDefault("smp.business_cards_enabled", d.SMP.BusinessCardsEnabled)
	v.SetDefault("smp.spf_enabled", d.SMP.SPFEnabled)
	v.SetDefault("smp.public_url", d.SMP.PublicURL)
	v.SetDefault("keys.keystore_path", d.Keys.KeystorePath)
	v.SetDefault("keys.keystore_password", d.Keys.KeystorePassword)
	v.SetDefault("keys.truststore_path", d.Keys.TruststorePath)
	v.SetDefault("audit.sink", d.Audit.Sink)
	v.SetDefault("audit.buffer", d.Audit.Buffer)
	v.SetDefault("audit.kafka.brokers", d.Audit.Kafka.Brokers)
	v.SetDefault("audit.kafka.topic", d.Audit.Kafka.Topic)
	v.SetDefault("audit.kafka.ensure_topic", d.Audit.Kafka.EnsureTopic)
	v.SetDefault("audit.kafka.partitions", d.Audit.Kafka.Partitions)
	v.SetDefault("audit.kafka.replication_factor", d.Audit.Kafka.ReplicationFactor)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Backend.Kind {
	case BackendFile:
		if c.Backend.File.Dir == "" {
			return errors.New("invalid config: backend.file.dir is required for the file backend")
		}
	case BackendPostgres:
		if c.Backend.Postgres.DSN == "" {
			return errors.New("invalid config: backend.postgres.dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Backend.Redis.URL == "" {
			return errors.New("invalid config: backend.redis.url is required for the redis backend")
		}
	}
	if c.Audit.Sink == "kafka" && len(c.Audit.Kafka.Brokers) == 0 {
		return errors.New("invalid config: audit.kafka.brokers is required for the kafka sink")
	}
	if c.Keys.KeystorePassword != "" && c.Keys.KeystorePath == "" {
		return errors.New("invalid config: keys.keystore_password set without keys.keystore_path")
	}
	return nil
}
