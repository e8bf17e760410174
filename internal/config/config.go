package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var ErrInvalidValue = errors.New("invalid config value")

type HTTP struct {
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
}

type Storage struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	URL      string
	Debug    bool
}

type Redis struct {
	Addr     string
	Password string
	LockTTL  time.Duration
}

type SMTP struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromName  string
	FromEmail string
}

// Enabled reports whether mail can actually be delivered.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.FromEmail != ""
}

type Booking struct {
	SoftHoldGrace        time.Duration
	AvailabilityFailOpen bool
	CompletionInterval   time.Duration
	SeedReferenceData    bool
}

type Config struct {
	HTTP    HTTP
	Storage Storage
	Redis   Redis
	SMTP    SMTP
	Booking Booking
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	return FromEnv(os.LookupEnv)
}

//nolint:funlen,gomnd // flat list of settings
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	r := reader{lookup: lookup}

	conf := &Config{
		HTTP: HTTP{
			Host:              r.str("HTTP_HOST", "localhost"),
			Port:              r.str("HTTP_PORT", "8092"),
			ReadHeaderTimeout: r.duration("HTTP_READ_HEADER_TIMEOUT", 20*time.Second),
			LivenessEndpoint:  r.str("LIVENESS_ENDPOINT", "/liveness"),
		},
		Storage: Storage{
			Driver:   strings.ToLower(r.str("STORAGE_DRIVER", DriverMemory)),
			Host:     r.str("DB_HOST", "127.0.0.1"),
			Port:     r.str("DB_PORT", ""),
			User:     r.str("DB_USER", "root"),
			Password: r.str("DB_PASS", ""),
			Name:     r.str("DB_NAME", "hotel_booking"),
			URL:      r.str("DATABASE_URL", ""),
			Debug:    r.boolean("DB_DEBUG", false),
		},
		Redis: Redis{
			Addr:     r.str("REDIS_ADDR", ""),
			Password: r.str("REDIS_PASSWORD", ""),
			LockTTL:  r.duration("LOCK_TTL", 10*time.Second),
		},
		SMTP: SMTP{
			Host:      r.str("SMTP_HOST", ""),
			Port:      r.integer("SMTP_PORT", 587),
			User:      r.str("SMTP_USER", ""),
			Password:  r.str("SMTP_PASSWORD", ""),
			FromName:  r.str("SMTP_FROM_NAME", "Hotel Booking"),
			FromEmail: r.str("SMTP_FROM_EMAIL", ""),
		},
		Booking: Booking{
			SoftHoldGrace:        r.duration("SOFT_HOLD_GRACE", 15*time.Minute),
			AvailabilityFailOpen: r.boolean("AVAILABILITY_FAIL_OPEN", true),
			CompletionInterval:   r.duration("COMPLETION_INTERVAL", time.Hour),
			SeedReferenceData:    r.boolean("SEED_REFERENCE_DATA", true),
		},
	}

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}

	switch conf.Storage.Driver {
	case DriverMemory, DriverMySQL, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: STORAGE_DRIVER=%q", ErrInvalidValue, conf.Storage.Driver)
	}

	return conf, nil
}

// DSN returns the connection string for the configured SQL driver.
func (s Storage) DSN() (string, error) {
	switch s.Driver {
	case DriverMySQL:
		return s.mysqlDSN()
	case DriverPostgres:
		return s.postgresDSN(), nil
	default:
		return "", fmt.Errorf("%w: no DSN for driver %q", ErrInvalidValue, s.Driver)
	}
}

func (s Storage) mysqlDSN() (string, error) {
	if s.URL != "" && !strings.HasPrefix(s.URL, "mysql://") {
		return s.URL, nil
	}

	c := mysql.NewConfig()
	c.Net = "tcp"
	c.ParseTime = true
	c.Params = map[string]string{"charset": "utf8mb4"}

	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil {
			return "", fmt.Errorf("parse DATABASE_URL: %w", err)
		}

		c.User = u.User.Username()
		c.Passwd, _ = u.User.Password()
		c.Addr = net.JoinHostPort(u.Hostname(), portOr(u.Port(), "3306"))
		c.DBName = strings.TrimPrefix(u.Path, "/")

		return c.FormatDSN(), nil
	}

	c.User = s.User
	c.Passwd = s.Password
	c.Addr = net.JoinHostPort(s.Host, portOr(s.Port, "3306"))
	c.DBName = s.Name

	return c.FormatDSN(), nil
}

func (s Storage) postgresDSN() string {
	if s.URL != "" {
		return s.URL
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		s.Host, portOr(s.Port, "5432"), s.User, s.Password, s.Name)
}

func portOr(port, def string) string {
	if port == "" {
		return def
	}

	return port
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	v, ok := r.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	return strings.TrimSpace(v)
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, v, err))

		return def
	}

	return d
}

func (r *reader) boolean(key string, def bool) bool {
	v := r.str(key, "")
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, v, err))

		return def
	}

	return b
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, v, err))

		return def
	}

	return n
}
