package cli

import (
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/internal/host"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func liveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Process a full-duplex audio device in real time",
		Long: `Process the default capture device through the impulse response and
play the result. Mix values between 0 and 1 are read from stdin, one per line.`,
		Example: "  irplayer live --ir hall.wav --mix 0.5",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.live(cmd)
		},
	}

	flags := cmd.Flags()
	flags.Float64("sample-rate", 48000, "Device sample rate in Hz")
	flags.Int("block-size", 512, "Device period in frames")
	flags.Int("channels", 2, "Number of input and output channels")
	flags.String("backend", "auto", "Audio backend (auto, alsa, pulse, jack, wasapi, coreaudio, null)")

	return cmd
}

func (a *app) live(cmd *cobra.Command) error {
	spec := core.ApplySpecOptions(
		core.WithSampleRate(a.settings.Audio.SampleRate),
		core.WithMaxBlockSize(a.settings.Audio.BlockSize),
		core.WithChannels(a.settings.Audio.Channels),
	)
	if err := spec.Validate(); err != nil {
		return err
	}

	irData, err := a.readIR()
	if err != nil {
		return err
	}

	player, mix, m, registry, err := a.newPlayer(irData)
	if err != nil {
		return err
	}

	l := host.NewLive(player, mix, spec, a.settings.Live.Backend)
	l.OnMix(m.SetMix)

	ctx := cmd.Context()
	stop := a.serveMetrics(ctx, registry)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.Run(ctx)
	})
	g.Go(func() error {
		// Control input ending does not stop playback.
		if err := l.ControlLoop(ctx, a.stdin); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "live",
				"error":    err.Error(),
			}).Warn("Control input failed")
		}
		return nil
	})

	return g.Wait()
}
