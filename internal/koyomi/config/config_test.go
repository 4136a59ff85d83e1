package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bdobrica/Koyomi/internal/koyomi/config"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"KOYOMI_CONFIG", "KOYOMI_PLATFORM", "SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "SLACK_API_URL", "BOT_CHANNEL",
		"MATRIX_HOMESERVER", "MATRIX_USER_ID", "MATRIX_ACCESS_TOKEN", "MATRIX_ROOMS", "DATABASE_PATH",
		"WIT_TOKEN", "WIT_API_URL", "WIT_API_VERSION", "CALENDAR_API_URL", "CALENDAR_VERIFY_URL",
		"KOYOMI_TIMEZONE", "HTTP_ADDR", "NLU_RATE_LIMIT", "HTTP_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "koyomi.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-1")
	t.Setenv("SLACK_APP_TOKEN", "xapp-1")
	t.Setenv("BOT_CHANNEL", "D1")
	t.Setenv("WIT_TOKEN", "wit-1")
	t.Setenv("NLU_RATE_LIMIT", "5")
	t.Setenv("HTTP_TIMEOUT", "10s")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Platform != config.PlatformSlack || cfg.Slack.BotChannel != "D1" || cfg.Wit.Token != "wit-1" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.NLURateLimit != 5 || cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("rate limit %d timeout %s", cfg.NLURateLimit, cfg.HTTPTimeout)
	}
	if cfg.Calendar.APIURL != "https://shielded-beach-58320.herokuapp.com" {
		t.Errorf("calendar url = %q", cfg.Calendar.APIURL)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
platform: matrix
matrix:
  homeserver: https://matrix.example.org
  user_id: "@koyomi:example.org"
  access_token: file-token
  rooms: ["!a:example.org"]
wit:
  token: wit-file
calendar:
  api_url: https://cal.example.org
timezone: Europe/Bucharest
http_timeout: 15s
`)
	t.Setenv("MATRIX_ACCESS_TOKEN", "env-token")
	t.Setenv("MATRIX_ROOMS", "!a:example.org, !b:example.org")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Platform != config.PlatformMatrix {
		t.Errorf("platform = %q", cfg.Platform)
	}
	if cfg.Matrix.AccessToken != "env-token" {
		t.Errorf("env should override file, got %q", cfg.Matrix.AccessToken)
	}
	if len(cfg.Matrix.Rooms) != 2 || cfg.Matrix.Rooms[1] != "!b:example.org" {
		t.Errorf("rooms = %v", cfg.Matrix.Rooms)
	}
	if cfg.Calendar.APIURL != "https://cal.example.org" || cfg.HTTPTimeout != 15*time.Second {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.Location().String() != "Europe/Bucharest" {
		t.Errorf("location = %v", cfg.Location())
	}
}

func TestLoad_TimezoneEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "timezone: Europe/Bucharest\n")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-1")
	t.Setenv("SLACK_APP_TOKEN", "xapp-1")
	t.Setenv("WIT_TOKEN", "wit-1")
	t.Setenv("BOT_CHANNEL", "D1")
	t.Setenv("KOYOMI_TIMEZONE", "America/New_York")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "America/New_York" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr []string
	}{
		{
			name:    "missing slack tokens",
			env:     map[string]string{"WIT_TOKEN": "w"},
			wantErr: []string{"SLACK_BOT_TOKEN", "SLACK_APP_TOKEN", "BOT_CHANNEL"},
		},
		{
			name:    "slack without bot channel",
			env:     map[string]string{"SLACK_BOT_TOKEN": "b", "SLACK_APP_TOKEN": "a", "WIT_TOKEN": "w"},
			wantErr: []string{"BOT_CHANNEL is required"},
		},
		{
			name:    "matrix without rooms",
			env:     map[string]string{"KOYOMI_PLATFORM": "matrix", "MATRIX_HOMESERVER": "h", "MATRIX_USER_ID": "u", "MATRIX_ACCESS_TOKEN": "t", "WIT_TOKEN": "w"},
			wantErr: []string{"MATRIX_ROOMS"},
		},
		{
			name:    "unknown platform",
			env:     map[string]string{"KOYOMI_PLATFORM": "irc", "WIT_TOKEN": "w"},
			wantErr: []string{`unknown platform "irc"`},
		},
		{
			name:    "missing wit token",
			env:     map[string]string{"SLACK_BOT_TOKEN": "b", "SLACK_APP_TOKEN": "a"},
			wantErr: []string{"WIT_TOKEN"},
		},
		{
			name:    "bad timezone",
			env:     map[string]string{"SLACK_BOT_TOKEN": "b", "SLACK_APP_TOKEN": "a", "WIT_TOKEN": "w", "KOYOMI_TIMEZONE": "Mars/Olympus"},
			wantErr: []string{"KOYOMI_TIMEZONE"},
		},
		{
			name:    "unknown yaml field",
			file:    "platfrom: slack\n",
			wantErr: []string{"platfrom"},
		},
		{
			name:    "bad log format",
			env:     map[string]string{"SLACK_BOT_TOKEN": "b", "SLACK_APP_TOKEN": "a", "WIT_TOKEN": "w", "LOG_FORMAT": "xml"},
			wantErr: []string{"LOG_FORMAT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestLogArgs_RedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Slack.BotToken = "xoxb-secret"
	cfg.Wit.Token = "wit-secret"

	args := cfg.LogArgs()
	joined := ""
	for _, a := range args {
		if s, ok := a.(string); ok {
			joined += s + " "
		}
	}
	if strings.Contains(joined, "xoxb-secret") || strings.Contains(joined, "wit-secret") {
		t.Errorf("secrets leaked: %s", joined)
	}
	if !strings.Contains(joined, "[REDACTED]") {
		t.Errorf("expected redaction marker: %s", joined)
	}
}
