package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/ticklabel/internal/adapters/session"
	"github.com/alejandrodnm/ticklabel/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del labeler.
type Config struct {
	Stream  StreamConfig  `yaml:"stream"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	Checks  []CheckConfig `yaml:"checks"`
	Run     RunConfig     `yaml:"run"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// StreamConfig controla de dónde se leen los quotes y dónde se publican los labels.
type StreamConfig struct {
	DSN              string  `yaml:"dsn"`   // ruta al archivo SQLite del stream
	Topic            string  `yaml:"topic"` // topic de quotes, p.ej. raw.SPY.quote
	LabelTopic       string  `yaml:"label_topic"`
	BatchSize        int     `yaml:"batch_size"`
	BatchesPerSecond float64 `yaml:"batches_per_second"` // 0 = sin límite
	WarmupSkip       uint64  `yaml:"warmup_skip"`        // eventos a saltar si no hay labels previos
}

// StorageConfig controla dónde se persisten los labels.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// SessionConfig define la sesión de trading diaria.
type SessionConfig struct {
	Timezone string   `yaml:"timezone"`
	Open     string   `yaml:"open"`  // HH:MM
	Close    string   `yaml:"close"` // HH:MM
	Holidays []string `yaml:"holidays"`
}

// CheckConfig es un threshold del vector de labels.
type CheckConfig struct {
	Ordinal   int     `yaml:"ordinal"`
	Direction string  `yaml:"direction"` // up | down
	Favorable float64 `yaml:"favorable"`
	Adverse   float64 `yaml:"adverse"`
}

// RunConfig controla la duración de la ejecución y los reintentos.
type RunConfig struct {
	MaxLabels       int  `yaml:"max_labels"` // 0 = sin límite
	PublishRetries  int  `yaml:"publish_retries"`
	RetryWaitMillis int  `yaml:"retry_wait_ms"`
	SummaryRows     int  `yaml:"summary_rows"`
	VerboseNotify   bool `yaml:"verbose_notify"`
}

// MetricsConfig controla el endpoint de Prometheus.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // vacío = deshabilitado
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// NewLogger crea un logger slog con el nivel y formato configurados.
// Niveles desconocidos caen a info.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta el YAML, aplica overrides de entorno, defaults y validación.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if _, err := cfg.CheckSpecs(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// RetryWait devuelve la espera base entre reintentos como time.Duration.
func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.Run.RetryWaitMillis) * time.Millisecond
}

// SessionCalendar devuelve la configuración del calendario de sesión.
func (c *Config) SessionCalendar() session.Config {
	return session.Config{
		Timezone: c.Session.Timezone,
		Open:     c.Session.Open,
		Close:    c.Session.Close,
		Holidays: c.Session.Holidays,
	}
}

// CheckSpecs convierte los checks configurados en CheckSpecs inmutables.
// Los ordinales deben cubrir 0..n-1 sin repetirse.
func (c *Config) CheckSpecs() ([]domain.CheckSpec, error) {
	if len(c.Checks) == 0 {
		return nil, fmt.Errorf("no checks configured")
	}

	seen := make([]bool, len(c.Checks))
	specs := make([]domain.CheckSpec, 0, len(c.Checks))
	for _, cc := range c.Checks {
		dir, err := domain.ParseDirection(cc.Direction)
		if err != nil {
			return nil, fmt.Errorf("check %d: %w", cc.Ordinal, err)
		}
		if cc.Ordinal < 0 || cc.Ordinal >= len(c.Checks) {
			return nil, fmt.Errorf("check %d: ordinal out of range 0..%d", cc.Ordinal, len(c.Checks)-1)
		}
		if seen[cc.Ordinal] {
			return nil, fmt.Errorf("check %d: duplicate ordinal", cc.Ordinal)
		}
		seen[cc.Ordinal] = true

		spec := domain.NewCheckSpec(cc.Ordinal, dir, cc.Favorable, cc.Adverse)
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LABELER_STREAM_DSN"); v != "" {
		cfg.Stream.DSN = v
	}
	if v := os.Getenv("LABELER_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LABELER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Stream.DSN == "" {
		cfg.Stream.DSN = "series.db"
	}
	if cfg.Stream.Topic == "" {
		cfg.Stream.Topic = "raw.SPY.quote"
	}
	if cfg.Stream.LabelTopic == "" {
		cfg.Stream.LabelTopic = "label.SPY.notify"
	}
	if cfg.Stream.BatchSize <= 0 {
		cfg.Stream.BatchSize = 500
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "labels.db"
	}
	if cfg.Session.Timezone == "" {
		cfg.Session.Timezone = "America/New_York"
	}
	if cfg.Session.Open == "" {
		cfg.Session.Open = "09:30"
	}
	if cfg.Session.Close == "" {
		cfg.Session.Close = "16:00"
	}
	if len(cfg.Checks) == 0 {
		cfg.Checks = defaultChecks()
	}
	if cfg.Run.PublishRetries <= 0 {
		cfg.Run.PublishRetries = 3
	}
	if cfg.Run.RetryWaitMillis <= 0 {
		cfg.Run.RetryWaitMillis = 500
	}
	if cfg.Run.SummaryRows <= 0 {
		cfg.Run.SummaryRows = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// defaultChecks son los ocho thresholds de producción para SPY:
// cuatro bajistas (0-3) y cuatro alcistas (4-7), de mayor a menor amplitud hacia el centro.
func defaultChecks() []CheckConfig {
	return []CheckConfig{
		{Ordinal: 0, Direction: "down", Favorable: -0.40, Adverse: 0.20},
		{Ordinal: 1, Direction: "down", Favorable: -0.20, Adverse: 0.10},
		{Ordinal: 2, Direction: "down", Favorable: -0.10, Adverse: 0.05},
		{Ordinal: 3, Direction: "down", Favorable: -0.02, Adverse: 0.01},
		{Ordinal: 4, Direction: "up", Favorable: 0.02, Adverse: -0.01},
		{Ordinal: 5, Direction: "up", Favorable: 0.10, Adverse: -0.05},
		{Ordinal: 6, Direction: "up", Favorable: 0.20, Adverse: -0.10},
		{Ordinal: 7, Direction: "up", Favorable: 0.40, Adverse: -0.20},
	}
}
