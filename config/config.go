package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	LocalPubSubBuf int           `mapstructure:"local_pubsub_buf"`
	LocalGCEvery   time.Duration `mapstructure:"local_gc_every"`
}

// BattleConfig tunes the combat core. Defaults match the live balancing
// values; tests override them for determinism.
type BattleConfig struct {
	AIDelayMs       int     `mapstructure:"ai_delay_ms"`       // think-time before an automated turn
	AIDefendChance  float64 `mapstructure:"ai_defend_chance"`  // probability the AI defends instead of attacking
	BaseFleeChance  float64 `mapstructure:"base_flee_chance"`  // independent flee chance when the formula is not positive
	CritMultiplier  float64 `mapstructure:"crit_multiplier"`   // damage multiplier on a critical hit
	WeaponStatusPct float64 `mapstructure:"weapon_status_pct"` // per-status chance of a weapon on-hit proc
	LimitFillRate   float64 `mapstructure:"limit_fill_rate"`   // limit gauge gained per % of max HP taken as damage
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists WebSocket origins that may connect.
	// Empty allows all origins (local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/duelgate.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.local_gc_every", "30s")
	v.SetDefault("battle.ai_delay_ms", 1200)
	v.SetDefault("battle.ai_defend_chance", 0.2)
	v.SetDefault("battle.base_flee_chance", 0.3)
	v.SetDefault("battle.crit_multiplier", 1.5)
	v.SetDefault("battle.weapon_status_pct", 0.25)
	v.SetDefault("battle.limit_fill_rate", 0.5)
	v.SetDefault("security.jwt_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
