package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/bonuslights/internal/bonus"
	"github.com/playperu/bonuslights/internal/layout"
)

// DefaultCurve is the garland string drawn by the bundled renderer.
const DefaultCurve = "M10 60 C 120 140, 240 140, 350 70 S 580 0, 690 80 S 900 150, 990 60"

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/bonuslights.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"web"`

	MarkerCount      int              `env:"MARKER_COUNT" envDefault:"9"`
	AttemptsPerRound int              `env:"ATTEMPTS_PER_ROUND" envDefault:"1"`
	PickMode         bonus.PickMode   `env:"PICK_MODE" envDefault:"single"`
	Assignment       bonus.Assignment `env:"ASSIGNMENT" envDefault:"uniform"`
	DailyLock        bool             `env:"DAILY_LOCK" envDefault:"true"`
	ScoreMode        bonus.ScoreMode  `env:"SCORE_MODE" envDefault:"cumulative"`
	CatalogPath      string           `env:"CATALOG_PATH"`
	Seed             uint64           `env:"SEED" envDefault:"0"`
	Timezone         string           `env:"TIMEZONE" envDefault:"Local"`

	OffsetDistance float64         `env:"OFFSET_DISTANCE" envDefault:"0"`
	OffsetSide     layout.Side     `env:"OFFSET_SIDE" envDefault:"single"`
	Mapping        layout.Strategy `env:"MAPPING" envDefault:"auto"`
	CurvePath      string          `env:"CURVE_PATH"`
	CurveViewBox   string          `env:"CURVE_VIEWBOX" envDefault:"0 0 1000 160"`

	ResizeDebounce time.Duration `env:"RESIZE_DEBOUNCE" envDefault:"150ms"`
	SettleFrame    time.Duration `env:"SETTLE_FRAME" envDefault:"16ms"`
	SettleDelay    time.Duration `env:"SETTLE_DELAY" envDefault:"120ms"`

	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.CurvePath == "" {
		cfg.CurvePath = DefaultCurve
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.MarkerCount < 1 {
		errs = append(errs, fmt.Errorf("MARKER_COUNT must be at least 1, got %d", c.MarkerCount))
	}
	if c.AttemptsPerRound < 1 {
		errs = append(errs, fmt.Errorf("ATTEMPTS_PER_ROUND must be at least 1, got %d", c.AttemptsPerRound))
	}
	if c.AttemptsPerRound > c.MarkerCount {
		errs = append(errs, fmt.Errorf("ATTEMPTS_PER_ROUND %d exceeds MARKER_COUNT %d", c.AttemptsPerRound, c.MarkerCount))
	}
	switch c.PickMode {
	case bonus.PickSingle, bonus.PickMulti:
	default:
		errs = append(errs, fmt.Errorf("PICK_MODE must be single or multi, got %q", c.PickMode))
	}
	switch c.Assignment {
	case bonus.AssignUniform, bonus.AssignWeighted:
	default:
		errs = append(errs, fmt.Errorf("ASSIGNMENT must be uniform or weighted, got %q", c.Assignment))
	}
	switch c.ScoreMode {
	case bonus.ScoreCumulative, bonus.ScorePerDay:
	default:
		errs = append(errs, fmt.Errorf("SCORE_MODE must be cumulative or per_day, got %q", c.ScoreMode))
	}
	if c.OffsetDistance < 0 {
		errs = append(errs, fmt.Errorf("OFFSET_DISTANCE must not be negative, got %v", c.OffsetDistance))
	}
	if _, err := layout.ParseSide(string(c.OffsetSide)); err != nil {
		errs = append(errs, err)
	}
	if _, err := layout.ParseStrategy(string(c.Mapping)); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ViewBox(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.ResizeDebounce < 0 || c.SettleFrame < 0 || c.SettleDelay < 0 {
		errs = append(errs, errors.New("layout delays must not be negative"))
	}
	return errors.Join(errs...)
}

// ViewBox parses CURVE_VIEWBOX, "minX minY width height" separated by spaces
// or commas.
func (c *Config) ViewBox() (layout.Rect, error) {
	fields := strings.FieldsFunc(c.CurveViewBox, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 4 {
		return layout.Rect{}, fmt.Errorf("CURVE_VIEWBOX needs 4 numbers, got %q", c.CurveViewBox)
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return layout.Rect{}, fmt.Errorf("CURVE_VIEWBOX: %w", err)
		}
		v[i] = n
	}
	if v[2] < 0 || v[3] < 0 {
		return layout.Rect{}, fmt.Errorf("CURVE_VIEWBOX size must not be negative")
	}
	return layout.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// Location is the zone calendar days are counted in for the daily lock.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}
