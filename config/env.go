package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const (
	defaultAuthURL  = "https://app.asana.com/-/oauth_authorize"
	defaultTokenURL = "https://app.asana.com/-/oauth_token"
	defaultAPIURL   = "https://app.asana.com/api/1.0/"
)

// Config is the process configuration, read once at startup.
type Config struct {
	BotToken string

	WorkspaceGID string
	TeamGID      string
	AdminToken   string

	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string

	RedisURL    string
	DatabaseURL string

	TokenTTL time.Duration
	StateTTL time.Duration
	NoteTTL  time.Duration

	Location      *time.Location
	TodaySections []string
	Groups        Groups

	ProvisioningURL string

	ReportChatIDs []int64
	ReportTime    string
	ReportDays    string
	ReportGroup   string

	Port          string
	NgrokToken    string
	NgrokDomain   string
	EncryptionKey string

	HTTPTimeout time.Duration
	APIRetries  int

	LogLevel  string
	LogFormat string
}

func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("[INFO] .env file not loaded, using process environment")
		}
	}
}

// Load reads the environment and reports every missing or malformed key at once.
func Load() (Config, error) {
	var errs error
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s is required", key))
		}
		return v
	}

	cfg := Config{
		BotToken:        required("BOT_TOKEN"),
		WorkspaceGID:    required("WORKSPACE_GID"),
		ClientID:        required("CLIENT_ID"),
		ClientSecret:    required("CLIENT_SECRET"),
		RedirectURL:     required("REDIRECT_URI"),
		TeamGID:         envOr("TEAM_GID", ""),
		AdminToken:      envOr("ASANA_TOKEN", ""),
		AuthURL:         envOr("ASANA_AUTH_URL", defaultAuthURL),
		TokenURL:        envOr("ASANA_TOKEN_URL", defaultTokenURL),
		APIURL:          envOr("ASANA_API_URL", defaultAPIURL),
		ProvisioningURL: envOr("GS_URL", ""),
		ReportTime:      envOr("REPORT_TIME", ""),
		ReportDays:      envOr("REPORT_DAYS", "1-5"),
		ReportGroup:     envOr("REPORT_GROUP", "general"),
		Port:            envOr("PORT", "8080"),
		NgrokToken:      envOr("NGROK_AUTHTOKEN", ""),
		NgrokDomain:     envOr("NGROK_DOMAIN", ""),
		EncryptionKey:   os.Getenv("ENCRYPTION_KEY"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "logfmt"),
		TodaySections:   splitList(envOr("TODAY_SECTIONS", "today,сегодня,фокус")),
	}

	if cfg.RedirectURL != "" {
		if u, err := url.Parse(cfg.RedirectURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = multierr.Append(errs, fmt.Errorf("REDIRECT_URI must be an absolute URL, got %q", cfg.RedirectURL))
		}
	}

	cfg.RedisURL = redisURL()
	if cfg.RedisURL == "" {
		errs = multierr.Append(errs, fmt.Errorf("REDIS_URL or REDIS_HOST is required"))
	}
	cfg.DatabaseURL = databaseURL()
	if cfg.DatabaseURL == "" {
		errs = multierr.Append(errs, fmt.Errorf("DATABASE_URL or DB_HOST, DB_USER and DB_NAME are required"))
	}

	var err error
	if cfg.TokenTTL, err = durationEnv("TOKEN_TTL", 6*24*time.Hour); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.StateTTL, err = durationEnv("STATE_TTL", 10*time.Minute); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.NoteTTL, err = durationEnv("NOTE_TTL", 30*time.Minute); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.HTTPTimeout, err = durationEnv("HTTP_TIMEOUT", 15*time.Second); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.APIRetries, err = intEnv("API_RETRIES", 2); err != nil {
		errs = multierr.Append(errs, err)
	}

	cfg.Location = time.Local
	if tz := envOr("TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("TIMEZONE: %w", err))
		} else {
			cfg.Location = loc
		}
	}

	if cfg.ReportTime != "" {
		if _, _, err := ParseClock(cfg.ReportTime); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("REPORT_TIME: %w", err))
		}
	}
	for _, raw := range splitList(os.Getenv("REPORT_CHAT_IDS")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("REPORT_CHAT_IDS: invalid chat id %q", raw))
			continue
		}
		cfg.ReportChatIDs = append(cfg.ReportChatIDs, id)
	}

	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) != 32 {
		errs = multierr.Append(errs, fmt.Errorf("ENCRYPTION_KEY must be 32 characters long"))
	}

	cfg.Groups = Groups{
		PM: splitList(os.Getenv("PM_USERS")),
		BA: splitList(os.Getenv("BA_USERS")),
		AV: splitList(os.Getenv("AV_USERS")),
	}
	if path := envOr("GROUPS_FILE", ""); path != "" {
		groups, err := LoadGroups(path)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			cfg.Groups = groups
		}
	}

	if errs != nil {
		return Config{}, errs
	}
	return cfg, nil
}

// ParseClock parses a 24-hour "HH:MM" value.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func redisURL() string {
	if v := envOr("REDIS_URL", ""); v != "" {
		return v
	}
	host := envOr("REDIS_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("redis://%s:%s/0", host, envOr("REDIS_PORT", "6379"))
}

func databaseURL() string {
	if v := envOr("DATABASE_URL", ""); v != "" {
		return v
	}
	host, user, name := envOr("DB_HOST", ""), envOr("DB_USER", ""), envOr("DB_NAME", "")
	if host == "" || user == "" || name == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, os.Getenv("DB_PASS")),
		Host:     fmt.Sprintf("%s:%s", host, envOr("DB_PORT", "5432")),
		Path:     "/" + name,
		RawQuery: "sslmode=" + envOr("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// durationEnv accepts Go durations ("10m") or plain seconds ("1200").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := envOr(key, "")
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := envOr(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
