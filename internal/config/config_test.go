package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/playperu/bonuslights/internal/bonus"
	"github.com/playperu/bonuslights/internal/layout"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("addr %q level %v", cfg.HTTPAddr, cfg.LogLevel)
	}
	if cfg.MarkerCount != 9 || cfg.AttemptsPerRound != 1 || cfg.PickMode != bonus.PickSingle {
		t.Errorf("round settings = %d/%d/%s", cfg.MarkerCount, cfg.AttemptsPerRound, cfg.PickMode)
	}
	if !cfg.DailyLock || cfg.Assignment != bonus.AssignUniform || cfg.ScoreMode != bonus.ScoreCumulative {
		t.Errorf("policy settings = %v/%s/%s", cfg.DailyLock, cfg.Assignment, cfg.ScoreMode)
	}
	if cfg.Mapping != layout.StrategyAuto || cfg.OffsetSide != layout.SideSingle {
		t.Errorf("layout settings = %s/%s", cfg.Mapping, cfg.OffsetSide)
	}
	if cfg.ResizeDebounce != 150*time.Millisecond || cfg.SettleFrame != 16*time.Millisecond || cfg.SettleDelay != 120*time.Millisecond {
		t.Errorf("timing = %v/%v/%v", cfg.ResizeDebounce, cfg.SettleFrame, cfg.SettleDelay)
	}
	if cfg.CurvePath != DefaultCurve {
		t.Errorf("curve = %q, want the default", cfg.CurvePath)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MARKER_COUNT", "5")
	t.Setenv("ATTEMPTS_PER_ROUND", "3")
	t.Setenv("PICK_MODE", "multi")
	t.Setenv("ASSIGNMENT", "weighted")
	t.Setenv("DAILY_LOCK", "false")
	t.Setenv("OFFSET_DISTANCE", "12.5")
	t.Setenv("OFFSET_SIDE", "alternate")
	t.Setenv("MAPPING", "box")
	t.Setenv("CURVE_VIEWBOX", "0,0,400,200")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SEED", "77")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MarkerCount != 5 || cfg.AttemptsPerRound != 3 || cfg.PickMode != bonus.PickMulti {
		t.Errorf("round settings = %d/%d/%s", cfg.MarkerCount, cfg.AttemptsPerRound, cfg.PickMode)
	}
	if cfg.Assignment != bonus.AssignWeighted || cfg.DailyLock || cfg.Seed != 77 {
		t.Errorf("policy settings = %s/%v/%d", cfg.Assignment, cfg.DailyLock, cfg.Seed)
	}
	if cfg.OffsetDistance != 12.5 || cfg.OffsetSide != layout.SideAlternate || cfg.Mapping != layout.StrategyBox {
		t.Errorf("layout settings = %v/%s/%s", cfg.OffsetDistance, cfg.OffsetSide, cfg.Mapping)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("level = %v", cfg.LogLevel)
	}

	vb, err := cfg.ViewBox()
	if err != nil || vb != (layout.Rect{W: 400, H: 200}) {
		t.Errorf("ViewBox = %+v, %v", vb, err)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v", loc, err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			MarkerCount:      9,
			AttemptsPerRound: 1,
			PickMode:         bonus.PickSingle,
			Assignment:       bonus.AssignUniform,
			ScoreMode:        bonus.ScoreCumulative,
			OffsetSide:       layout.SideSingle,
			Mapping:          layout.StrategyAuto,
			CurveViewBox:     "0 0 100 100",
			Timezone:         "UTC",
		}
	}
	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no markers", func(c *Config) { c.MarkerCount = 0 }, "MARKER_COUNT"},
		{"no attempts", func(c *Config) { c.AttemptsPerRound = 0 }, "ATTEMPTS_PER_ROUND"},
		{"too many attempts", func(c *Config) { c.AttemptsPerRound = 10 }, "exceeds"},
		{"pick mode", func(c *Config) { c.PickMode = "all" }, "PICK_MODE"},
		{"assignment", func(c *Config) { c.Assignment = "fair" }, "ASSIGNMENT"},
		{"score mode", func(c *Config) { c.ScoreMode = "forever" }, "SCORE_MODE"},
		{"negative offset", func(c *Config) { c.OffsetDistance = -1 }, "OFFSET_DISTANCE"},
		{"side", func(c *Config) { c.OffsetSide = "both" }, "offset side"},
		{"mapping", func(c *Config) { c.Mapping = "guess" }, "mapping strategy"},
		{"viewbox", func(c *Config) { c.CurveViewBox = "0 0 10" }, "CURVE_VIEWBOX"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "TIMEZONE"},
		{"delay", func(c *Config) { c.SettleDelay = -time.Second }, "delays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
