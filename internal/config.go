package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Policy        PolicyConfig        `mapstructure:"policy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" validate:"required"`
}

// PolicyConfig holds spending caps and per-diem rates as decimal strings.
// Empty values fall back to the built-in policy defaults.
type PolicyConfig struct {
	HotelCap                 string `mapstructure:"hotel_cap" validate:"omitempty,numeric"`
	EntertainmentCap         string `mapstructure:"entertainment_cap" validate:"omitempty,numeric"`
	AirfareDomesticCap       string `mapstructure:"airfare_domestic_cap" validate:"omitempty,numeric"`
	AirfareInternationalCap  string `mapstructure:"airfare_international_cap" validate:"omitempty,numeric"`
	TransportationCap        string `mapstructure:"transportation_cap" validate:"omitempty,numeric"`
	OfficeCap                string `mapstructure:"office_cap" validate:"omitempty,numeric"`
	MealsDailyCap            string `mapstructure:"meals_daily_cap" validate:"omitempty,numeric"`
	PerDiemDomesticRate      string `mapstructure:"per_diem_domestic_rate" validate:"omitempty,numeric"`
	PerDiemInternationalRate string `mapstructure:"per_diem_international_rate" validate:"omitempty,numeric"`
	MaxItemAmount            string `mapstructure:"max_item_amount" validate:"omitempty,numeric"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- ENVIRONMENT -----------------

// LoadConfigFromEnv builds the config from plain environment variables, reading an optional .env first.
func LoadConfigFromEnv() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
			RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Policy: PolicyConfig{
			HotelCap:                 getEnv("POLICY_HOTEL_CAP", ""),
			EntertainmentCap:         getEnv("POLICY_ENTERTAINMENT_CAP", ""),
			AirfareDomesticCap:       getEnv("POLICY_AIRFARE_DOMESTIC_CAP", ""),
			AirfareInternationalCap:  getEnv("POLICY_AIRFARE_INTERNATIONAL_CAP", ""),
			TransportationCap:        getEnv("POLICY_TRANSPORTATION_CAP", ""),
			OfficeCap:                getEnv("POLICY_OFFICE_CAP", ""),
			MealsDailyCap:            getEnv("POLICY_MEALS_DAILY_CAP", ""),
			PerDiemDomesticRate:      getEnv("POLICY_PER_DIEM_DOMESTIC_RATE", ""),
			PerDiemInternationalRate: getEnv("POLICY_PER_DIEM_INTERNATIONAL_RATE", ""),
			MaxItemAmount:            getEnv("POLICY_MAX_ITEM_AMOUNT", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New()

func (c *Config) Validate() error {
	var err error

	if tagErr := configValidator.Struct(c); tagErr != nil {
		err = multierr.Append(err, fmt.Errorf("config fields: %w", tagErr))
	}

	if e := c.Server.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("server config: %w", e))
	}

	if e := c.Database.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("database config: %w", e))
	}

	return err
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma separated allowed_origins value.
func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}
