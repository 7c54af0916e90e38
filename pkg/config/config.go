package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Event date filter modes understood by the upstream report query.
const (
	EventFilterBetween = "between"
	EventFilterAfter   = "after"
)

// Visibility policies applied to fetched rows.
const (
	VisibilityQuery   = "query"
	VisibilityRecency = "recency"
)

type Config struct {
	Env       string `validate:"required,oneof=development production test"`
	Port      int    `validate:"min=1,max=65535"`
	StaticDir string

	CORS     CORSConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Window   WindowConfig
	Filters  FilterConfig
	Probe    ProbeConfig
	Metrics  MetricsConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string `validate:"oneof=json console"`
}

// UpstreamConfig describes how to reach the change log report API.
type UpstreamConfig struct {
	BaseURL    string        `validate:"required,url"`
	ReportPath string        `validate:"required,startswith=/"`
	Timeout    time.Duration `validate:"gt=0"`
	PageSize   int           `validate:"min=1,max=10000"`
	PageRate   float64       `validate:"gte=0"`
	AuthBearer string
	AuthCookie string
}

// WindowConfig holds the day offsets used to derive the event and prep windows.
type WindowConfig struct {
	EventDaysBack  int `validate:"gte=0"`
	PrepDaysPast   int `validate:"gte=0"`
	PrepDaysFuture int `validate:"gte=0"`
	Timezone       string
	Location       *time.Location `validate:"required"`
}

// FilterConfig narrows the upstream query and picks the local visibility policy.
type FilterConfig struct {
	OfficeIDs        []string
	JobTypeIDs       []string
	EventMode        string `validate:"oneof=between after"`
	VisibilityPolicy string `validate:"oneof=query recency"`
}

// ProbeConfig schedules background pipeline runs used only for health metrics.
type ProbeConfig struct {
	Schedule string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.StaticDir = strings.TrimSpace(v.GetString("STATIC_DIR"))

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:    strings.TrimRight(v.GetString("IE_API_BASE"), "/"),
		ReportPath: v.GetString("UPSTREAM_REPORT_PATH"),
		Timeout:    parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 30*time.Second),
		PageSize:   v.GetInt("PAGE_SIZE"),
		PageRate:   v.GetFloat64("UPSTREAM_PAGE_RATE"),
		AuthBearer: v.GetString("AUTH_BEARER"),
		AuthCookie: v.GetString("AUTH_COOKIE"),
	}

	loc, err := loadLocation(v.GetString("REPORT_TIMEZONE"))
	if err != nil {
		return nil, err
	}
	cfg.Window = WindowConfig{
		EventDaysBack:  v.GetInt("EVENT_DAYS_BACK"),
		PrepDaysPast:   v.GetInt("PREP_DAYS_PAST"),
		PrepDaysFuture: v.GetInt("PREP_DAYS_FUTURE"),
		Timezone:       loc.String(),
		Location:       loc,
	}

	cfg.Filters = FilterConfig{
		OfficeIDs:        splitAndTrim(v.GetString("OFFICE_IDS")),
		JobTypeIDs:       splitAndTrim(v.GetString("JOB_TYPE_IDS")),
		EventMode:        strings.ToLower(strings.TrimSpace(v.GetString("EVENT_FILTER_MODE"))),
		VisibilityPolicy: strings.ToLower(strings.TrimSpace(v.GetString("VISIBILITY_POLICY"))),
	}

	cfg.Probe = ProbeConfig{Schedule: strings.TrimSpace(v.GetString("PROBE_SCHEDULE"))}
	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q rule", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 5050)
	v.SetDefault("STATIC_DIR", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("IE_API_BASE", "https://webapi2ui.ielightning.net")
	v.SetDefault("UPSTREAM_REPORT_PATH", "/api/v1/Reports/General/GlobalChangeLogReport/List")
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("UPSTREAM_PAGE_RATE", 0)
	v.SetDefault("PAGE_SIZE", 500)
	v.SetDefault("AUTH_BEARER", "")
	v.SetDefault("AUTH_COOKIE", "")

	v.SetDefault("EVENT_DAYS_BACK", 45)
	v.SetDefault("PREP_DAYS_PAST", 30)
	v.SetDefault("PREP_DAYS_FUTURE", 60)
	v.SetDefault("REPORT_TIMEZONE", "Local")

	v.SetDefault("OFFICE_IDS", "")
	v.SetDefault("JOB_TYPE_IDS", "")
	v.SetDefault("EVENT_FILTER_MODE", EventFilterBetween)
	v.SetDefault("VISIBILITY_POLICY", VisibilityQuery)

	v.SetDefault("PROBE_SCHEDULE", "")
	v.SetDefault("ENABLE_METRICS", true)
}

// NewViper returns a viper instance with defaults applied and environment binding enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
