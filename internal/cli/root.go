// Package cli implements the irplayer command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-irplayer/dsp/effects/reverb"
	"github.com/cwbudde/algo-irplayer/dsp/param"
	"github.com/cwbudde/algo-irplayer/dsp/plugin"
	"github.com/cwbudde/algo-irplayer/internal/config"
	"github.com/cwbudde/algo-irplayer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps flag names to settings keys where they differ.
var flagKeys = map[string]string{
	"partition-size": "engine.partition_size",
	"trim":           "engine.trim",
	"normalize":      "engine.normalize",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"metrics-addr":   "metrics_addr",
	"in":             "render.input",
	"out":            "render.output",
	"bit-depth":      "render.bit_depth",
	"tail":           "render.tail",
	"automation":     "render.automation",
	"block-sizes":    "render.block_sizes",
	"sample-rate":    "audio.sample_rate",
	"block-size":     "audio.block_size",
	"channels":       "audio.channels",
	"backend":        "live.backend",
}

// app carries state shared by the subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings
	stdin      io.Reader
}

// RootCommand creates and returns the root command.
func RootCommand() *cobra.Command {
	a := &app{v: config.New(), stdin: os.Stdin}

	rootCmd := &cobra.Command{
		Use:           "irplayer",
		Short:         "Convolve audio with an impulse response",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, a)

	rootCmd.AddCommand(
		renderCommand(a),
		liveCommand(a),
		infoCommand(a),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.initialize(cmd)
	}

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, a *app) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML config file")
	flags.String("ir", "", "Impulse response file (WAV, FLAC or IRLB)")
	flags.Float64("mix", 1.0, "Dry/wet mix between 0 (dry) and 1 (wet)")
	flags.Int("partition-size", reverb.DefaultPartitionSize, "Convolution partition size (power of two)")
	flags.Bool("trim", true, fmt.Sprintf("Trim leading and trailing impulse response samples below %g dBFS", reverb.TrimThresholdDB))
	flags.Bool("normalize", true, "Normalize the impulse response energy")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, for example :9090")
}

// initialize loads settings after flags are parsed. Flags set on the
// command line override the config file and the environment.
func (a *app) initialize(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags(), flagKeys); err != nil {
		return err
	}

	settings, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	if err := settings.ConfigureLogging(); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	a.settings = settings
	return nil
}

func (a *app) engineOptions() []reverb.EngineOption {
	return []reverb.EngineOption{
		reverb.WithPartitionSize(a.settings.Engine.PartitionSize),
		reverb.WithTrim(a.settings.Engine.Trim),
		reverb.WithNormalize(a.settings.Engine.Normalize),
	}
}

func (a *app) readIR() ([]byte, error) {
	data, err := os.ReadFile(a.settings.IR)
	if err != nil {
		return nil, fmt.Errorf("reading impulse response: %w", err)
	}
	return data, nil
}

// newPlayer builds a player wired to a fresh metrics registry.
func (a *app) newPlayer(irData []byte) (*plugin.IRPlayer, *param.MixParameter, *metrics.PlayerMetrics, *prometheus.Registry, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.NewPlayerMetrics(registry)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	mix := param.NewMixParameter(a.settings.Mix)
	m.SetMix(mix.Load())

	player := plugin.NewIRPlayer(irData, mix,
		plugin.WithEngineOptions(a.engineOptions()...),
		plugin.WithObserver(m),
	)

	return player, mix, m, registry, nil
}

// serveMetrics starts the metrics endpoint if configured. The returned
// function stops it and waits for shutdown.
func (a *app) serveMetrics(ctx context.Context, gatherer prometheus.Gatherer) func() {
	if a.settings.MetricsAddr == "" {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := metrics.Serve(ctx, a.settings.MetricsAddr, gatherer); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "serveMetrics",
				"addr":     a.settings.MetricsAddr,
				"error":    err.Error(),
			}).Error("Metrics server failed")
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
