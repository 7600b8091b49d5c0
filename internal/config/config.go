package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config is the API and worker configuration.
type Config struct {
	Host             string
	Port             int
	Store            string
	DatabasePath     string
	DatabaseWAL      bool
	ItemsTable       string
	EventsQueueURL   string
	MetricsNamespace string
	CORSOrigin       string
	RunLocal         bool
	LogLevel         string
}

// Addr is the local listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// env names are kept from the original deployment, so no prefix.
var bindings = []struct {
	key, env string
	def      interface{}
}{
	{"host", "HOST", "0.0.0.0"},
	{"port", "PORT", 3000},
	{"store", "STORE_BACKEND", BackendSQLite},
	{"database.path", "DATABASE_PATH", "./data/database.db"},
	{"database.wal", "DATABASE_WAL", true},
	{"dynamodb.table", "ITEMS_TABLE", "shopping_items"},
	{"events.queue_url", "ITEM_EVENTS_QUEUE_URL", ""},
	{"metrics.namespace", "METRICS_NAMESPACE", "ShopList"},
	{"cors.origin", "APP_URL", "http://localhost:5173"},
	{"run_local", "RUN_LOCAL", false},
	{"log_level", "LOG_LEVEL", "info"},
}

// New returns a viper instance with defaults, env bindings and the optional
// shoplist config file loaded. SHOPLIST_CONFIG names an explicit file.
func New() (*viper.Viper, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}

	if file := os.Getenv("SHOPLIST_CONFIG"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
		return v, nil
	}

	v.SetConfigName("shoplist")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.shoplist")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	v, err := New()
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// FromViper extracts a Config from v.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Host:             v.GetString("host"),
		Port:             v.GetInt("port"),
		Store:            strings.ToLower(v.GetString("store")),
		DatabasePath:     v.GetString("database.path"),
		DatabaseWAL:      v.GetBool("database.wal"),
		ItemsTable:       v.GetString("dynamodb.table"),
		EventsQueueURL:   v.GetString("events.queue_url"),
		MetricsNamespace: v.GetString("metrics.namespace"),
		CORSOrigin:       v.GetString("cors.origin"),
		RunLocal:         v.GetBool("run_local"),
		LogLevel:         v.GetString("log_level"),
	}

	switch cfg.Store {
	case BackendSQLite:
		if cfg.DatabasePath == "" {
			return Config{}, errors.New("config: database.path is required for the sqlite store")
		}
	case BackendDynamoDB:
		if cfg.ItemsTable == "" {
			return Config{}, errors.New("config: dynamodb.table is required for the dynamodb store")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown store %q", cfg.Store)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	return cfg, nil
}
