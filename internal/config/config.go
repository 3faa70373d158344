// Package config loads the flat key=value configuration text format via
// viper's "props" config type. CLI --key=value overrides bind through
// pflag, exactly as viper.BindPFlags is designed for. The result is one
// immutable Config struct built at startup and passed explicitly; no
// process-wide viper instance is read from deep in the call stack.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of recognized configuration keys. Unrecognized
// keys in the file are ignored.
type Config struct {
	Description string

	CollisionCloudFile string
	RouteFile          string

	NumberOfStages int

	CollisionCostFactor float64

	DisturbanceOn            bool
	ApplyDisturbance         bool
	DisturbanceChangeFactor  int

	EnableNormFixPoint    bool
	EnableInitialFixPoint bool

	UseSingleStageController bool

	// LiveViewAddr, if non-empty, serves a websocket trace of the flight at
	// this address (e.g. ":8080") while the solve runs.
	LiveViewAddr string
}

// Defaults returns the documented default for every key.
func Defaults() Config {
	return Config{
		NumberOfStages:          30,
		CollisionCostFactor:     0.0,
		DisturbanceOn:           true,
		ApplyDisturbance:        true,
		DisturbanceChangeFactor: 10,
	}
}

// Load reads args the way a main() would: a --config_file=PATH flag names a
// properties file to read first, then every other --key=value flag
// overrides it. args excludes the program name (pass os.Args[1:]).
func Load(args []string) (Config, error) {
	flags := pflag.NewFlagSet("dpcontroller", pflag.ContinueOnError)
	configFile := flags.String("config_file", "", "path to a key=value configuration file")
	flags.String("description", "", "")
	flags.String("collision_cloud_file", "", "")
	flags.String("route_file", "", "")
	flags.Int("number_of_stages", 30, "")
	flags.Float64("collision_cost_factor", 0.0, "")
	flags.Bool("disturbance_on", true, "")
	flags.Bool("apply_disturbance", true, "")
	flags.Int("disturbance_change_factor", 10, "")
	flags.Bool("enable_norm_fix_point", false, "")
	flags.Bool("enable_initial_fix_point", false, "")
	flags.Bool("use_single_stage_controller", false, "")
	flags.String("live_view_addr", "", "address to serve a websocket flight trace on (empty disables it)")

	if err := flags.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "config: parsing command-line flags")
	}

	vp := viper.New()
	for key, def := range map[string]any{
		"description":                 "",
		"collision_cloud_file":        "",
		"route_file":                  "",
		"number_of_stages":            30,
		"collision_cost_factor":       0.0,
		"disturbance_on":              true,
		"apply_disturbance":           true,
		"disturbance_change_factor":   10,
		"enable_norm_fix_point":       false,
		"enable_initial_fix_point":    false,
		"use_single_stage_controller": false,
		"live_view_addr":              "",
	} {
		vp.SetDefault(key, def)
	}

	if *configFile != "" {
		vp.SetConfigFile(*configFile)
		vp.SetConfigType("props")
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "config: reading %s", *configFile)
		}
	}

	if err := vp.BindPFlags(flags); err != nil {
		return Config{}, errors.Wrap(err, "config: binding command-line flags")
	}

	cfg := Config{
		Description:              vp.GetString("description"),
		CollisionCloudFile:       vp.GetString("collision_cloud_file"),
		RouteFile:                vp.GetString("route_file"),
		NumberOfStages:           vp.GetInt("number_of_stages"),
		CollisionCostFactor:      vp.GetFloat64("collision_cost_factor"),
		DisturbanceOn:            vp.GetBool("disturbance_on"),
		ApplyDisturbance:         vp.GetBool("apply_disturbance"),
		DisturbanceChangeFactor:  vp.GetInt("disturbance_change_factor"),
		EnableNormFixPoint:       vp.GetBool("enable_norm_fix_point"),
		EnableInitialFixPoint:    vp.GetBool("enable_initial_fix_point"),
		UseSingleStageController: vp.GetBool("use_single_stage_controller"),
		LiveViewAddr:             vp.GetString("live_view_addr"),
	}

	return cfg, Validate(cfg)
}

// Validate enforces the required keys; everything else has a usable
// default. A validation failure is a fatal configuration error: reported
// and the process terminates before any solve.
func Validate(cfg Config) error {
	if cfg.CollisionCloudFile == "" {
		return errors.New("config: collision_cloud_file is required")
	}
	if cfg.RouteFile == "" {
		return errors.New("config: route_file is required")
	}
	if cfg.NumberOfStages < 2 {
		return errors.New("config: number_of_stages must be >= 2")
	}
	return nil
}
