package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"BOT_TOKEN", "WORKSPACE_GID", "CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI",
	"REDIS_URL", "REDIS_HOST", "REDIS_PORT", "DATABASE_URL", "DB_HOST", "DB_USER",
	"DB_PASS", "DB_NAME", "DB_PORT", "DB_SSLMODE", "TOKEN_TTL", "STATE_TTL",
	"NOTE_TTL", "TIMEZONE", "REPORT_TIME", "REPORT_CHAT_IDS", "ENCRYPTION_KEY",
	"PM_USERS", "BA_USERS", "AV_USERS", "GROUPS_FILE", "TODAY_SECTIONS",
	"HTTP_TIMEOUT", "API_RETRIES",
}

func setBase(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("WORKSPACE_GID", "ws1")
	t.Setenv("CLIENT_ID", "cid")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("REDIRECT_URI", "https://bot.example.com/callback")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TokenTTL != 6*24*time.Hour {
		t.Fatalf("TokenTTL = %v", cfg.TokenTTL)
	}
	if cfg.StateTTL != 10*time.Minute {
		t.Fatalf("StateTTL = %v", cfg.StateTTL)
	}
	if got := strings.Join(cfg.TodaySections, ","); got != "today,сегодня,фокус" {
		t.Fatalf("TodaySections = %q", got)
	}
	if cfg.ReportDays != "1-5" || cfg.ReportGroup != "general" || cfg.Port != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.APIRetries != 2 || cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("unexpected client defaults: retries=%d timeout=%v", cfg.APIRetries, cfg.HTTPTimeout)
	}
}

func TestLoadReportsAllMissingKeys(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"BOT_TOKEN", "WORKSPACE_GID", "CLIENT_ID", "CLIENT_SECRET", "REDIRECT_URI", "REDIS_URL", "DATABASE_URL"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestLoadParsesValues(t *testing.T) {
	setBase(t)
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_USER", "bot")
	t.Setenv("DB_PASS", "pw")
	t.Setenv("DB_NAME", "tasks")
	t.Setenv("TOKEN_TTL", "3600")
	t.Setenv("STATE_TTL", "20m")
	t.Setenv("REPORT_CHAT_IDS", "-100123, 42")
	t.Setenv("REPORT_TIME", "09:30")
	t.Setenv("PM_USERS", "Alice, Bob")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RedisURL != "redis://cache:6379/0" {
		t.Fatalf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.DatabaseURL != "postgres://bot:pw@pg:5432/tasks?sslmode=disable" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.TokenTTL != time.Hour || cfg.StateTTL != 20*time.Minute {
		t.Fatalf("ttl: token=%v state=%v", cfg.TokenTTL, cfg.StateTTL)
	}
	if len(cfg.ReportChatIDs) != 2 || cfg.ReportChatIDs[0] != -100123 || cfg.ReportChatIDs[1] != 42 {
		t.Fatalf("ReportChatIDs = %v", cfg.ReportChatIDs)
	}
	if len(cfg.Groups.PM) != 2 || cfg.Groups.PM[1] != "Bob" {
		t.Fatalf("PM = %v", cfg.Groups.PM)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	setBase(t)
	t.Setenv("REPORT_TIME", "25:99")
	t.Setenv("REPORT_CHAT_IDS", "abc")
	t.Setenv("ENCRYPTION_KEY", "short")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"REPORT_TIME", "REPORT_CHAT_IDS", "ENCRYPTION_KEY", "TIMEZONE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestGroupsFileOverridesEnv(t *testing.T) {
	setBase(t)
	path := filepath.Join(t.TempDir(), "groups.yaml")
	if err := os.WriteFile(path, []byte("pm: [Carol]\nba: [Dan, Eve]\nav: []\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PM_USERS", "Alice")
	t.Setenv("GROUPS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Groups.PM) != 1 || cfg.Groups.PM[0] != "Carol" {
		t.Fatalf("PM = %v", cfg.Groups.PM)
	}
	if got := cfg.Groups.All(); len(got) != 3 {
		t.Fatalf("All = %v", got)
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	h, m, err := ParseClock("07:05")
	if err != nil || h != 7 || m != 5 {
		t.Fatalf("ParseClock = %d %d %v", h, m, err)
	}
	if _, _, err := ParseClock("7pm"); err == nil {
		t.Fatal("expected error")
	}
}
