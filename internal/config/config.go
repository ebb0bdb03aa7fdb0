package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string

	// Signed portal cookie. HashKey is mandatory, BlockKey optional
	// (no payload encryption when absent).
	CookieHashKey  string
	CookieBlockKey string
	CookieSecure   bool

	// Static local admin credential. The hash is an argon2id PHC string.
	AdminUsername     string
	AdminPasswordHash string

	Directory DirectoryConfig

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	ERP  ERPConfig
	SMTP SMTPConfig
}

// DirectoryConfig configures the optional external directory (LDAP) used as
// the second stage of admin authentication.
type DirectoryConfig struct {
	Server         string
	Port           int
	Domain         string
	BaseDN         string
	ServiceAccount string
	ServicePass    string
	AdminGroup     string
}

// Configured reports whether the directory integration should be attempted at all.
func (d DirectoryConfig) Configured() bool {
	return strings.TrimSpace(d.Server) != "" && strings.TrimSpace(d.AdminGroup) != ""
}

// ERPConfig points at the read-only ERP database.
type ERPConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

func (e ERPConfig) Configured() bool {
	return strings.TrimSpace(e.Host) != "" && strings.TrimSpace(e.Name) != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	cookieSecure := environment == "production"
	if !cookieSecure {
		cookieSecure = getenvBool("COOKIE_SECURE", false)
	}

	return Config{
		AppName:           getenv("APP_SERVICE", "customer-portal"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		CookieHashKey:     strings.TrimSpace(getenv("COOKIE_HASH_KEY", "")),
		CookieBlockKey:    strings.TrimSpace(getenv("COOKIE_BLOCK_KEY", "")),
		CookieSecure:      cookieSecure,
		AdminUsername:     getenv("ADMIN_USERNAME", "portal_admin"),
		AdminPasswordHash: strings.TrimSpace(getenv("ADMIN_PASSWORD_HASH", "")),
		Directory: DirectoryConfig{
			Server:         strings.TrimSpace(getenv("AD_SERVER", "")),
			Port:           getenvInt("AD_PORT", 636),
			Domain:         strings.TrimSpace(getenv("AD_DOMAIN", "")),
			BaseDN:         strings.TrimSpace(getenv("AD_BASE_DN", "")),
			ServiceAccount: strings.TrimSpace(getenv("AD_SERVICE_ACCOUNT", "")),
			ServicePass:    getenv("AD_SERVICE_PASSWORD", ""),
			AdminGroup:     strings.TrimSpace(getenv("AD_PORTAL_ADMIN_GROUP", "")),
		},
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "customer_portal"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
		ERP: ERPConfig{
			Host:     strings.TrimSpace(getenv("ERP_DB_HOST", "")),
			Port:     getenv("ERP_DB_PORT", "1433"),
			Name:     strings.TrimSpace(getenv("ERP_DB_NAME", "")),
			User:     strings.TrimSpace(getenv("ERP_DB_USER", "")),
			Password: getenv("ERP_DB_PASSWORD", ""),
		},
		SMTP: SMTPConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     getenvInt("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("EMAIL_FROM", ""),
		},
	}
}

// Validate rejects configurations the process must not serve traffic with.
func (c Config) Validate() error {
	var errs []string
	if len(c.CookieHashKey) < 32 {
		errs = append(errs, "COOKIE_HASH_KEY must be at least 32 bytes")
	}
	if bk := len(c.CookieBlockKey); bk != 0 && bk != 16 && bk != 24 && bk != 32 {
		errs = append(errs, "COOKIE_BLOCK_KEY must be 16, 24 or 32 bytes when set")
	}
	if c.AdminPasswordHash == "" {
		errs = append(errs, "ADMIN_PASSWORD_HASH is required")
	}
	if strings.TrimSpace(c.DBHost) == "" || strings.TrimSpace(c.DBName) == "" {
		errs = append(errs, "DATABASE_HOST and DATABASE_NAME are required")
	}
	if len(errs) > 0 {
		return errors.New("configuration: " + strings.Join(errs, "; "))
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
