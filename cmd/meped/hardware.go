package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gwillem/meped/pkg/quad"
	"github.com/gwillem/meped/pkg/robot"
)

// initLogger sets the global logger. Debug messages only with --verbose.
func initLogger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", "meped").Logger()
	log.Logger = logger
	return logger
}

// loadConfig reads the config file. Without a file the stock defaults apply.
func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", opts.Config).Msg("no configuration found, using defaults")
		return robot.DefaultConfig(), nil
	}
	return cfg, err
}

// servoLink is a servo bus that can also report positions.
type servoLink interface {
	quad.Bus
	ReadAngles(ctx context.Context) (quad.Pose, error)
	Close() error
}

// connect opens the configured servo bus, or a simulated one.
func connect(ctx context.Context, cfg *robot.Config, sim bool, logger zerolog.Logger) (servoLink, error) {
	if sim {
		logger.Info().Msg("using simulated servos")
		return robot.NewSimBus(), nil
	}
	if !cfg.HasPort() {
		return nil, fmt.Errorf("no port in %s, run 'meped setup' first or use --sim", opts.Config)
	}

	bus, err := robot.NewServoBus(cfg.Port, cfg.BaudRate, cfg.Servos, logger)
	if err != nil {
		return nil, err
	}
	if err := bus.Enable(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}
	return bus, nil
}

// release disables torque on real servos and closes the link.
func release(link servoLink) {
	if bus, ok := link.(*robot.ServoBus); ok {
		if err := bus.Disable(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to disable torque")
		}
	}
	if err := link.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close servo bus")
	}
}

// untrimmed converts angles read back from servos into model angles.
func untrimmed(p quad.Pose, trim quad.TrimTable) quad.Pose {
	for i := range p {
		p[i] -= float64(trim[i])
	}
	return p
}

func exitOnError(err error, msg string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
