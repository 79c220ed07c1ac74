package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"

	defaultHTTPAddr         = ":8080"
	defaultFirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
)

var (
	ErrMissingConnectionString = errors.New("no DB_CONNECTION_STRING provided")
	ErrMissingProjectID        = errors.New("no FIREBASE_PROJECT_ID provided")
	ErrMissingJWTSecret        = errors.New("no JWT_SECRET provided")
)

type Config struct {
	Env                  string
	HTTPAddr             string
	DBDriver             string
	DBConnectionString   string
	AutoMigrate          bool
	AuthMode             string
	FirebaseProjectID    string
	FirebaseCertsURL     string
	JWTSecret            string
	SuppressInsertErrors bool
}

// Load reads the optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	autoMigrate, err := boolEnv("AUTO_MIGRATE", false)
	if err != nil {
		return nil, err
	}
	suppress, err := boolEnv("SUPPRESS_INSERT_ERRORS", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Env:                  stringEnv("APP_ENV", "development"),
		HTTPAddr:             stringEnv("HTTP_ADDR", defaultHTTPAddr),
		DBDriver:             stringEnv("DB_DRIVER", DriverPostgres),
		DBConnectionString:   os.Getenv("DB_CONNECTION_STRING"),
		AutoMigrate:          autoMigrate,
		AuthMode:             stringEnv("AUTH_MODE", AuthModeFirebase),
		FirebaseProjectID:    os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCertsURL:     stringEnv("FIREBASE_CERTS_URL", defaultFirebaseCertsURL),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		SuppressInsertErrors: suppress,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBConnectionString == "" {
		return ErrMissingConnectionString
	}

	switch c.AuthMode {
	case AuthModeFirebase:
		if c.FirebaseProjectID == "" {
			return ErrMissingProjectID
		}
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return ErrMissingJWTSecret
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.AuthMode)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return b, nil
}
