package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	Shopware ShopwareConfig
	ERP      ERPConfig
	Sync     SyncConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ShopwareConfig holds the commerce platform API connection settings.
// ClientID/ClientSecret authenticate via client_credentials; Username and
// Password switch the grant to the password flow.
type ShopwareConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	PageLimit    int
}

// ERPConfig holds the legacy system session settings. BaseURL points at
// the gateway in front of the legacy automation server.
type ERPConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Mandant  string
	Firma    string
	Benutzer string
	Passwort string
}

// SyncConfig holds reconciliation run settings.
type SyncConfig struct {
	// SalesChannels are the webshop channel ids whose open orders are
	// ingested; empty means all configured channels.
	SalesChannels []string
	// OrderType is the legacy document type used when no rule resolves one.
	OrderType int
	// ShippingErpNr is the article key of the shipping-cost position.
	ShippingErpNr string
	// DefaultUnit is the unit of measure used when none can be resolved.
	DefaultUnit string
	// StockFilterShopOnly restricts the product sync to articles flagged
	// for the webshop.
	StockFilterShopOnly bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BRIDGE_ prefix (e.g., BRIDGE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Shopware: ShopwareConfig{
			BaseURL:      v.GetString("shopware.base_url"),
			ClientID:     v.GetString("shopware.client_id"),
			ClientSecret: v.GetString("shopware.client_secret"),
			Username:     v.GetString("shopware.username"),
			Password:     v.GetString("shopware.password"),
			Timeout:      v.GetDuration("shopware.timeout"),
			RetryCount:   v.GetInt("shopware.retry_count"),
			RetryWait:    v.GetDuration("shopware.retry_wait"),
			PageLimit:    v.GetInt("shopware.page_limit"),
		},
		ERP: ERPConfig{
			BaseURL:  v.GetString("erp.base_url"),
			Timeout:  v.GetDuration("erp.timeout"),
			Mandant:  v.GetString("erp.mandant"),
			Firma:    v.GetString("erp.firma"),
			Benutzer: v.GetString("erp.benutzer"),
			Passwort: v.GetString("erp.passwort"),
		},
		Sync: SyncConfig{
			SalesChannels:       v.GetStringSlice("sync.sales_channels"),
			OrderType:           v.GetInt("sync.order_type"),
			ShippingErpNr:       v.GetString("sync.shipping_erp_nr"),
			DefaultUnit:         v.GetString("sync.default_unit"),
			StockFilterShopOnly: v.GetBool("sync.stock_filter_shop_only"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gc-bridge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "bridge"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Shopware.Timeout == 0 {
		cfg.Shopware.Timeout = 30 * time.Second
	}
	if cfg.Shopware.RetryCount == 0 {
		cfg.Shopware.RetryCount = 3
	}
	if cfg.Shopware.RetryWait == 0 {
		cfg.Shopware.RetryWait = 2 * time.Second
	}
	if cfg.Shopware.PageLimit == 0 {
		cfg.Shopware.PageLimit = 100
	}
	if cfg.ERP.Timeout == 0 {
		cfg.ERP.Timeout = 60 * time.Second
	}
	if cfg.Sync.OrderType == 0 {
		cfg.Sync.OrderType = 13
	}
	if cfg.Sync.ShippingErpNr == "" {
		cfg.Sync.ShippingErpNr = "VERSAND"
	}
	if cfg.Sync.DefaultUnit == "" {
		cfg.Sync.DefaultUnit = "Stk"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Shopware.PageLimit <= 0 || c.Shopware.PageLimit > 500 {
		return fmt.Errorf("shopware.page_limit must be between 1 and 500")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Shopware.BaseURL == "" {
			return fmt.Errorf("shopware.base_url is required in production")
		}
		if c.Shopware.ClientID == "" && c.Shopware.Username == "" {
			return fmt.Errorf("shopware credentials are required in production")
		}
		if c.ERP.BaseURL == "" {
			return fmt.Errorf("erp.base_url is required in production")
		}
		if c.ERP.Mandant == "" {
			return fmt.Errorf("erp.mandant is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
