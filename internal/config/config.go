package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	DatabaseDriver string `mapstructure:"database_driver"` // sqlite, mysql
	DatabasePath   string `mapstructure:"database_path"`
	DatabaseDSN    string `mapstructure:"database_dsn"`
	APIPort        string `mapstructure:"api_port"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"` // text, json
	DataDir        string `mapstructure:"data_dir"`
	CORSOrigins    string `mapstructure:"cors_origins"`
	APIKey         string `mapstructure:"api_key"` // pins the API key; generated into data_dir when empty

	Sync    SyncConfig    `mapstructure:"sync"`
	Mailbox MailboxConfig `mapstructure:"mailbox"`
	SMTP    SMTPConfig    `mapstructure:"smtp"`
	LLM     LLMConfig     `mapstructure:"llm"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// SyncConfig controls the reply polling loop
type SyncConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	Window     time.Duration `mapstructure:"window"`
	StartDelay time.Duration `mapstructure:"start_delay"`
	// IncludeRead re-fetches messages already marked seen; dedup is the source of truth
	IncludeRead bool `mapstructure:"include_read"`
}

// MailboxConfig describes the single inbound mailbox
type MailboxConfig struct {
	Provider string `mapstructure:"provider"` // imap, gmail
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseSSL   bool   `mapstructure:"use_ssl"`
	AuthType string `mapstructure:"auth_type"` // password, oauth2

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleRefreshToken string `mapstructure:"google_refresh_token"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// SMTPConfig describes the outbound relay
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseSSL   bool          `mapstructure:"use_ssl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig selects the language-model backend used for extraction
type LLMConfig struct {
	Provider string        `mapstructure:"provider"` // openai, groq, claude, gemini
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// OCRConfig selects the OCR engine used for image and PDF attachments
type OCRConfig struct {
	Provider      string        `mapstructure:"provider"` // tesseract, textin
	URL           string        `mapstructure:"url"`
	AppID         string        `mapstructure:"app_id"`
	AppSecret     string        `mapstructure:"app_secret"`
	PageLimit     int           `mapstructure:"page_limit"`
	TesseractPath string        `mapstructure:"tesseract_path"`
	PdftoppmPath  string        `mapstructure:"pdftoppm_path"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// StorageConfig selects where fetched attachments are kept
type StorageConfig struct {
	Backend        string `mapstructure:"backend"` // local, minio
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl"`
}

// RedisConfig enables the cross-process sync lease when Addr is set
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// Default configuration values
const (
	DefaultDatabaseDriver = "sqlite"
	DefaultDatabasePath   = "data/rfp.db"
	DefaultAPIPort        = "8080"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultDataDir        = "data"
	DefaultCORSOrigins    = "*"

	DefaultSyncInterval   = 2 * time.Minute
	DefaultSyncWindow     = 5 * time.Hour
	DefaultSyncStartDelay = 3 * time.Second

	DefaultLLMProvider = "openai"
	DefaultLLMTimeout  = 60 * time.Second
	DefaultOCRProvider = "tesseract"
	DefaultOCRPages    = 3
	DefaultOCRTimeout  = 2 * time.Minute
	DefaultMailTimeout = 30 * time.Second
	DefaultLockTTL     = 10 * time.Minute
)

// EnvPrefix is the prefix of every environment override, e.g. RFP_MAILBOX_HOST
const EnvPrefix = "RFP"

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration using the given viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// An explicit SetConfigFile by the caller wins over the search path
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.applyFallbacks()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_driver", DefaultDatabaseDriver)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("api_port", DefaultAPIPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("cors_origins", DefaultCORSOrigins)
	v.SetDefault("api_key", "")

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", DefaultSyncInterval)
	v.SetDefault("sync.window", DefaultSyncWindow)
	v.SetDefault("sync.start_delay", DefaultSyncStartDelay)
	v.SetDefault("sync.include_read", true)

	v.SetDefault("mailbox.provider", "imap")
	v.SetDefault("mailbox.host", "")
	v.SetDefault("mailbox.port", 993)
	v.SetDefault("mailbox.username", "")
	v.SetDefault("mailbox.password", "")
	v.SetDefault("mailbox.use_ssl", true)
	v.SetDefault("mailbox.auth_type", "password")
	v.SetDefault("mailbox.google_client_id", "")
	v.SetDefault("mailbox.google_client_secret", "")
	v.SetDefault("mailbox.google_refresh_token", "")
	v.SetDefault("mailbox.timeout", DefaultMailTimeout)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.use_ssl", false)
	v.SetDefault("smtp.timeout", DefaultMailTimeout)

	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", DefaultLLMTimeout)

	v.SetDefault("ocr.provider", DefaultOCRProvider)
	v.SetDefault("ocr.url", "https://api.textin.com")
	v.SetDefault("ocr.app_id", "")
	v.SetDefault("ocr.app_secret", "")
	v.SetDefault("ocr.page_limit", DefaultOCRPages)
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.timeout", DefaultOCRTimeout)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.minio_endpoint", "")
	v.SetDefault("storage.minio_access_key", "")
	v.SetDefault("storage.minio_secret_key", "")
	v.SetDefault("storage.minio_bucket", "rfp-attachments")
	v.SetDefault("storage.minio_use_ssl", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", DefaultLockTTL)
}

func (c *Config) applyFallbacks() {
	if c.SMTP.Username == "" {
		c.SMTP.Username = c.Mailbox.Username
	}
	if c.SMTP.Password == "" {
		c.SMTP.Password = c.Mailbox.Password
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.OCR.PageLimit <= 0 {
		c.OCR.PageLimit = DefaultOCRPages
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = DefaultSyncInterval
	}
	if c.Sync.Window <= 0 {
		c.Sync.Window = DefaultSyncWindow
	}
}

// AttachmentsDir returns the local directory for fetched attachments
func (c *Config) AttachmentsDir() string {
	return filepath.Join(c.DataDir, "attachments")
}

// Watch re-reads the config file on change and hands the fresh config to onChange.
// Only settings that are safe to swap at runtime (log level) should be applied by the callback.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			return
		}
		cfg.applyFallbacks()
		onChange(cfg)
	})
	v.WatchConfig()
}
