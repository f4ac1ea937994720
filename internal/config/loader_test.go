package config

import (
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"CONFERENCE_HTTP_PORT",
	"CONFERENCE_DB_DRIVER",
	"CONFERENCE_DB_DSN",
	"CONFERENCE_BASE_URL",
	"CONFERENCE_DEFAULT_EVENT_ID",
	"CONFERENCE_TIMEZONE",
	"CONFERENCE_DEFAULT_DAY_WINDOW",
	"CONFERENCE_MIN_SESSION_DURATION",
	"CONFERENCE_SMTP_HOST",
	"CONFERENCE_SMTP_PORT",
	"CONFERENCE_SMTP_USERNAME",
	"CONFERENCE_SMTP_PASSWORD",
	"CONFERENCE_SMTP_FROM",
	"CONFERENCE_MAIL_TIMEOUT",
	"CONFERENCE_MAIL_RETRIES",
	"CONFERENCE_JWT_SECRET",
	"CONFERENCE_NATS_URL",
	"CONFERENCE_OTLP_ENDPOINT",
	"CONFERENCE_DEV_MODE",
	"CONFERENCE_LOG_LEVEL",
	"CONFERENCE_LOG_FORMAT",
	"CONFERENCE_DEFAULT_LOCALE",
	"CONFERENCE_CHECK_DATE_BASED_CONFLICTS",
	"CONFERENCE_RESET_INVITE_ON_RESCHEDULE",
	"CONFERENCE_NOTIFY_ON_DELETE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.DBDriver != DriverSQLite || cfg.DBDSN != defaultSQLiteDSN {
			t.Fatalf("unexpected default database: %q %q", cfg.DBDriver, cfg.DBDSN)
		}
		if cfg.DefaultDayWindow != (DayWindow{Start: 9 * time.Hour, End: 17 * time.Hour}) {
			t.Fatalf("unexpected default day window: %+v", cfg.DefaultDayWindow)
		}
		if cfg.MinSessionDuration != 15*time.Minute {
			t.Fatalf("expected 15m minimum duration, got %s", cfg.MinSessionDuration)
		}
		if cfg.MailTimeout != 10*time.Second || cfg.MailRetries != 1 {
			t.Fatalf("unexpected mail policy: %s / %d", cfg.MailTimeout, cfg.MailRetries)
		}
		if cfg.CheckDateBasedConflicts || cfg.ResetInviteOnReschedule || cfg.NotifyOnDelete {
			t.Fatalf("expected behavior flags to default to false: %+v", cfg)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC location, got %v", cfg.Location)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFERENCE_DB_DRIVER", "postgres")
		t.Setenv("CONFERENCE_SMTP_HOST", "smtp.example.com")

		_, err := FromEnvironment()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: CONFERENCE_DB_DSN, CONFERENCE_SMTP_FROM"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration, numeric and flag fields", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFERENCE_HTTP_PORT", "9090")
		t.Setenv("CONFERENCE_DB_DRIVER", "memory")
		t.Setenv("CONFERENCE_BASE_URL", "https://conf.example.org/")
		t.Setenv("CONFERENCE_TIMEZONE", "Asia/Tokyo")
		t.Setenv("CONFERENCE_DEFAULT_DAY_WINDOW", "08:30-18:00")
		t.Setenv("CONFERENCE_MIN_SESSION_DURATION", "30m")
		t.Setenv("CONFERENCE_MAIL_TIMEOUT", "3s")
		t.Setenv("CONFERENCE_MAIL_RETRIES", "0")
		t.Setenv("CONFERENCE_DEV_MODE", "true")
		t.Setenv("CONFERENCE_CHECK_DATE_BASED_CONFLICTS", "1")
		t.Setenv("CONFERENCE_NOTIFY_ON_DELETE", "TRUE")

		cfg, err := FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.DBDriver != DriverMemory || cfg.DBDSN != "" {
			t.Fatalf("expected memory driver without DSN, got %q %q", cfg.DBDriver, cfg.DBDSN)
		}
		if cfg.BaseURL != "https://conf.example.org" {
			t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.BaseURL)
		}
		if cfg.Location.String() != "Asia/Tokyo" {
			t.Fatalf("expected Asia/Tokyo, got %v", cfg.Location)
		}
		if cfg.DefaultDayWindow.Start != 8*time.Hour+30*time.Minute || cfg.DefaultDayWindow.End != 18*time.Hour {
			t.Fatalf("unexpected day window: %+v", cfg.DefaultDayWindow)
		}
		if cfg.MinSessionDuration != 30*time.Minute {
			t.Fatalf("expected 30m, got %s", cfg.MinSessionDuration)
		}
		if cfg.MailTimeout != 3*time.Second || cfg.MailRetries != 0 {
			t.Fatalf("unexpected mail policy: %s / %d", cfg.MailTimeout, cfg.MailRetries)
		}
		if !cfg.DevMode || !cfg.CheckDateBasedConflicts || !cfg.NotifyOnDelete || cfg.ResetInviteOnReschedule {
			t.Fatalf("unexpected flags: %+v", cfg)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFERENCE_HTTP_PORT", "not-a-number")
		t.Setenv("CONFERENCE_DB_DRIVER", "oracle")
		t.Setenv("CONFERENCE_DEFAULT_DAY_WINDOW", "17:00-09:00")
		t.Setenv("CONFERENCE_DEV_MODE", "maybe")

		_, err := FromEnvironment()
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		for _, key := range []string{"CONFERENCE_HTTP_PORT", "CONFERENCE_DB_DRIVER", "CONFERENCE_DEFAULT_DAY_WINDOW", "CONFERENCE_DEV_MODE"} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s in error, got %q", key, err.Error())
			}
		}
	})
}

func TestParseDayWindow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		wantErr bool
	}{
		{"09:00-17:00", false},
		{" 07:15 - 12:45 ", false},
		{"09:00", true},
		{"9am-5pm", true},
		{"12:00-12:00", true},
	}

	for _, tc := range cases {
		_, err := ParseDayWindow(tc.input)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseDayWindow(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
		}
	}
}
