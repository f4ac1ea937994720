package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Supported values for CONFERENCE_DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMemory   = "memory"
)

const (
	defaultSQLiteDSN = "file:conference.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	defaultEventID   = "default-event"
)

// DayWindow is the synthesized time range given to sessions scheduled by date
// only, expressed as offsets from local midnight.
type DayWindow struct {
	Start time.Duration
	End   time.Duration
}

// SMTPConfig holds outbound mail server settings. An empty Host disables SMTP
// delivery and messages are only logged.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Config captures environment driven configuration values for the conference service.
type Config struct {
	HTTPPort int
	DBDriver string
	DBDSN    string

	BaseURL            string
	DefaultEventID     string
	Location           *time.Location
	DefaultDayWindow   DayWindow
	MinSessionDuration time.Duration

	SMTP        SMTPConfig
	MailTimeout time.Duration
	MailRetries int

	JWTSecret    string
	NATSURL      string
	OTLPEndpoint string

	DevMode       bool
	LogLevel      string
	LogFormat     string
	DefaultLocale string

	CheckDateBasedConflicts bool
	ResetInviteOnReschedule bool
	NotifyOnDelete          bool
}

// Load reads an optional .env file and then parses configuration values from
// the process environment.
//
// Defaults are applied for optional fields. Missing and invalid entries are
// aggregated so a single error lists every offending key.
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return FromEnvironment()
}

// FromEnvironment parses configuration from the current environment without
// consulting a .env file.
func FromEnvironment() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		DBDriver:           DriverSQLite,
		BaseURL:            "http://localhost:3000",
		DefaultEventID:     defaultEventID,
		Location:           time.UTC,
		DefaultDayWindow:   DayWindow{Start: 9 * time.Hour, End: 17 * time.Hour},
		MinSessionDuration: 15 * time.Minute,
		SMTP:               SMTPConfig{Port: 587},
		MailTimeout:        10 * time.Second,
		MailRetries:        1,
		LogLevel:           "info",
		LogFormat:          "json",
		DefaultLocale:      "en",
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	if portValue := env("CONFERENCE_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CONFERENCE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := strings.ToLower(env("CONFERENCE_DB_DRIVER")); driver != "" {
		switch driver {
		case DriverSQLite, DriverPostgres, DriverMemory:
			cfg.DBDriver = driver
		case "postgres", "postgresql":
			cfg.DBDriver = DriverPostgres
		default:
			invalid = append(invalid, "CONFERENCE_DB_DRIVER")
		}
	}

	cfg.DBDSN = env("CONFERENCE_DB_DSN")
	if cfg.DBDSN == "" {
		switch cfg.DBDriver {
		case DriverSQLite:
			cfg.DBDSN = defaultSQLiteDSN
		case DriverPostgres:
			missing = append(missing, "CONFERENCE_DB_DSN")
		}
	}

	if baseURL := env("CONFERENCE_BASE_URL"); baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			invalid = append(invalid, "CONFERENCE_BASE_URL")
		} else {
			cfg.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}

	if eventID := env("CONFERENCE_DEFAULT_EVENT_ID"); eventID != "" {
		cfg.DefaultEventID = eventID
	}

	if tz := env("CONFERENCE_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "CONFERENCE_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if windowValue := env("CONFERENCE_DEFAULT_DAY_WINDOW"); windowValue != "" {
		window, err := ParseDayWindow(windowValue)
		if err != nil {
			invalid = append(invalid, "CONFERENCE_DEFAULT_DAY_WINDOW")
		} else {
			cfg.DefaultDayWindow = window
		}
	}

	if value := env("CONFERENCE_MIN_SESSION_DURATION"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			invalid = append(invalid, "CONFERENCE_MIN_SESSION_DURATION")
		} else {
			cfg.MinSessionDuration = d
		}
	}

	cfg.SMTP.Host = env("CONFERENCE_SMTP_HOST")
	cfg.SMTP.Username = env("CONFERENCE_SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("CONFERENCE_SMTP_PASSWORD")
	cfg.SMTP.From = env("CONFERENCE_SMTP_FROM")
	if portValue := env("CONFERENCE_SMTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "CONFERENCE_SMTP_PORT")
		} else {
			cfg.SMTP.Port = port
		}
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.From == "" {
		missing = append(missing, "CONFERENCE_SMTP_FROM")
	}

	if value := env("CONFERENCE_MAIL_TIMEOUT"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			invalid = append(invalid, "CONFERENCE_MAIL_TIMEOUT")
		} else {
			cfg.MailTimeout = d
		}
	}

	if value := env("CONFERENCE_MAIL_RETRIES"); value != "" {
		retries, err := strconv.Atoi(value)
		if err != nil || retries < 0 {
			invalid = append(invalid, "CONFERENCE_MAIL_RETRIES")
		} else {
			cfg.MailRetries = retries
		}
	}

	cfg.JWTSecret = os.Getenv("CONFERENCE_JWT_SECRET")
	cfg.NATSURL = env("CONFERENCE_NATS_URL")
	cfg.OTLPEndpoint = env("CONFERENCE_OTLP_ENDPOINT")

	if value := env("CONFERENCE_LOG_LEVEL"); value != "" {
		cfg.LogLevel = strings.ToLower(value)
	}
	if value := env("CONFERENCE_LOG_FORMAT"); value != "" {
		switch strings.ToLower(value) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(value)
		default:
			invalid = append(invalid, "CONFERENCE_LOG_FORMAT")
		}
	}
	if value := env("CONFERENCE_DEFAULT_LOCALE"); value != "" {
		cfg.DefaultLocale = value
	}

	flags := []struct {
		key    string
		target *bool
	}{
		{"CONFERENCE_DEV_MODE", &cfg.DevMode},
		{"CONFERENCE_CHECK_DATE_BASED_CONFLICTS", &cfg.CheckDateBasedConflicts},
		{"CONFERENCE_RESET_INVITE_ON_RESCHEDULE", &cfg.ResetInviteOnReschedule},
		{"CONFERENCE_NOTIFY_ON_DELETE", &cfg.NotifyOnDelete},
	}
	for _, flag := range flags {
		value := env(flag.key)
		if value == "" {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, flag.key)
			continue
		}
		*flag.target = parsed
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// ParseDayWindow parses "HH:MM-HH:MM" into a DayWindow. The end must be
// after the start.
func ParseDayWindow(value string) (DayWindow, error) {
	startValue, endValue, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return DayWindow{}, fmt.Errorf("config: day window %q must look like 09:00-17:00", value)
	}
	start, err := parseClock(startValue)
	if err != nil {
		return DayWindow{}, err
	}
	end, err := parseClock(endValue)
	if err != nil {
		return DayWindow{}, err
	}
	if end <= start {
		return DayWindow{}, fmt.Errorf("config: day window %q ends before it starts", value)
	}
	return DayWindow{Start: start, End: end}, nil
}

func parseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("config: invalid clock value %q: %w", value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
