package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/peter-kozarec/pairs/pkg/pairs"
	"github.com/peter-kozarec/pairs/pkg/tools/schedule"
	"github.com/peter-kozarec/pairs/pkg/utility/fixed"
)

const (
	envPrefix = "PAIRS"
)

var DefaultUniverse = []string{"SPY", "DIA", "IVV", "VTI", "QQQ", "IWM", "EFA", "IEFA", "EEM", "VWO", "AGG", "VOO"}

type Schedule struct {
	Rule  string        `mapstructure:"rule"`
	Delay time.Duration `mapstructure:"delay"`
}

type Portfolio struct {
	InitialCash    fixed.Point `mapstructure:"initial_cash"`
	QuantityDigits int         `mapstructure:"quantity_digits"`
}

type Data struct {
	Dir    string `mapstructure:"dir"`
	DuckDB string `mapstructure:"duckdb"`
}

type Synthetic struct {
	Seed         int64         `mapstructure:"seed"`
	Observations int           `mapstructure:"observations"`
	Start        string        `mapstructure:"start"`
	Step         time.Duration `mapstructure:"step"`
	Correlation  float64       `mapstructure:"correlation"`
	Volatility   float64       `mapstructure:"volatility"`
}

type Stream struct {
	URL string `mapstructure:"url"`
}

type Metrics struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

type Configuration struct {
	Universe            []string      `mapstructure:"universe"`
	Lookback            int           `mapstructure:"lookback"`
	Window              int           `mapstructure:"window"`
	Multiplier          fixed.Point   `mapstructure:"multiplier"`
	PairCount           int           `mapstructure:"pair_count"`
	Allocation          fixed.Point   `mapstructure:"allocation"`
	Frequency           time.Duration `mapstructure:"frequency"`
	LiquidateDeselected bool          `mapstructure:"liquidate_deselected"`

	Schedule  Schedule  `mapstructure:"schedule"`
	Portfolio Portfolio `mapstructure:"portfolio"`
	Data      Data      `mapstructure:"data"`
	Synthetic Synthetic `mapstructure:"synthetic"`
	Stream    Stream    `mapstructure:"stream"`
	Metrics   Metrics   `mapstructure:"metrics"`
	Log       Log       `mapstructure:"log"`
}

// Load reads the configuration from compiled defaults, an optional YAML file
// and PAIRS_* environment variables, in increasing order of precedence. A .env
// file in the working directory is loaded into the environment first when
// present.
func Load(path string) (Configuration, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Configuration{}, fmt.Errorf("unable to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Configuration{}, fmt.Errorf("unable to read config file %s: %w", path, err)
		}
	}

	var cfg Configuration
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		pointHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Configuration{}, fmt.Errorf("%w: %w", pairs.ErrInvalidConfiguration, err)
	}

	for i, symbol := range cfg.Universe {
		cfg.Universe[i] = strings.ToUpper(strings.TrimSpace(symbol))
	}

	return cfg, cfg.Validate()
}

func Default() Configuration {
	defaults := pairs.DefaultParameters()
	return Configuration{
		Universe:   append([]string(nil), DefaultUniverse...),
		Lookback:   defaults.Lookback,
		Window:     defaults.Window,
		Multiplier: defaults.Multiplier,
		PairCount:  defaults.PairCount,
		Allocation: defaults.Allocation,
		Frequency:  defaults.Frequency,
		Schedule: Schedule{
			Rule: schedule.MonthStart.String(),
		},
		Portfolio: Portfolio{
			InitialCash:    fixed.FromInt(100_000, 0),
			QuantityDigits: 0,
		},
		Synthetic: Synthetic{
			Seed:         1,
			Observations: 520,
			Start:        "2022-01-03",
			Step:         24 * time.Hour,
			Correlation:  0.8,
			Volatility:   0.012,
		},
		Metrics: Metrics{
			Addr: ":9102",
		},
		Log: Log{
			Level: "info",
		},
	}
}

func (c Configuration) Parameters() pairs.Parameters {
	return pairs.Parameters{
		Universe:            append([]string(nil), c.Universe...),
		Lookback:            c.Lookback,
		Window:              c.Window,
		Multiplier:          c.Multiplier,
		PairCount:           c.PairCount,
		Allocation:          c.Allocation,
		Frequency:           c.Frequency,
		LiquidateDeselected: c.LiquidateDeselected,
	}
}

func (c Configuration) ScheduleRule() (schedule.Rule, error) {
	return schedule.ParseRule(c.Schedule.Rule)
}

func (c Configuration) SyntheticStart() (time.Time, error) {
	return time.Parse(time.DateOnly, c.Synthetic.Start)
}

func (c Configuration) Validate() error {
	err := c.Parameters().Validate()

	if _, e := c.ScheduleRule(); e != nil {
		err = multierr.Append(err, fmt.Errorf("%w: %w", pairs.ErrInvalidConfiguration, e))
	}
	if c.Schedule.Delay < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: schedule delay must not be negative", pairs.ErrInvalidConfiguration))
	}
	if !c.Portfolio.InitialCash.IsPos() {
		err = multierr.Append(err, fmt.Errorf("%w: initial cash must be positive, got %s", pairs.ErrInvalidConfiguration, c.Portfolio.InitialCash))
	}
	if c.Portfolio.QuantityDigits < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: quantity digits must not be negative", pairs.ErrInvalidConfiguration))
	}
	if _, e := c.SyntheticStart(); e != nil {
		err = multierr.Append(err, fmt.Errorf("%w: synthetic start: %w", pairs.ErrInvalidConfiguration, e))
	}
	return err
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("universe", d.Universe)
	v.SetDefault("lookback", d.Lookback)
	v.SetDefault("window", d.Window)
	v.SetDefault("multiplier", d.Multiplier.String())
	v.SetDefault("pair_count", d.PairCount)
	v.SetDefault("allocation", d.Allocation.String())
	v.SetDefault("frequency", d.Frequency)
	v.SetDefault("liquidate_deselected", d.LiquidateDeselected)

	v.SetDefault("schedule.rule", d.Schedule.Rule)
	v.SetDefault("schedule.delay", d.Schedule.Delay)

	v.SetDefault("portfolio.initial_cash", d.Portfolio.InitialCash.String())
	v.SetDefault("portfolio.quantity_digits", d.Portfolio.QuantityDigits)

	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.duckdb", d.Data.DuckDB)

	v.SetDefault("synthetic.seed", d.Synthetic.Seed)
	v.SetDefault("synthetic.observations", d.Synthetic.Observations)
	v.SetDefault("synthetic.start", d.Synthetic.Start)
	v.SetDefault("synthetic.step", d.Synthetic.Step)
	v.SetDefault("synthetic.correlation", d.Synthetic.Correlation)
	v.SetDefault("synthetic.volatility", d.Synthetic.Volatility)

	v.SetDefault("stream.url", d.Stream.URL)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.production", d.Log.Production)
}

var pointType = reflect.TypeOf(fixed.Point{})

// pointHook decodes YAML numbers and strings alike into fixed.Point.
func pointHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != pointType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fixed.Parse(fmt.Sprint(data))
	default:
		return data, nil
	}
}
