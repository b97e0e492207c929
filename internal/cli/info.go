package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/cwbudde/algo-irplayer/dsp/audiofile"
	"github.com/cwbudde/algo-irplayer/dsp/core"
	"github.com/cwbudde/algo-irplayer/dsp/effects/reverb"
	"github.com/cwbudde/algo-irplayer/dsp/plugin"
	"github.com/cwbudde/algo-irplayer/measure/ir"
	"github.com/cwbudde/algo-vecmath"
	"github.com/spf13/cobra"
)

func infoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "info",
		Short:   "Show impulse response properties and room acoustic metrics",
		Example: "  irplayer info --ir hall.wav",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.info(cmd)
		},
	}
}

func (a *app) info(cmd *cobra.Command) error {
	data, err := a.readIR()
	if err != nil {
		return err
	}

	audio, err := audiofile.Decode(data)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	engine := reverb.NewConvolutionEngine(a.engineOptions()...)
	if err := engine.LoadAudio(audio); err != nil {
		return fmt.Errorf("info: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "File\t%s\n", a.settings.IR)
	fmt.Fprintf(w, "Format\t%s\n", audiofile.Sniff(data))
	if audiofile.Sniff(data) == audiofile.FormatIRLib {
		entries, err := audiofile.ListIRLib(data)
		if err == nil {
			for _, e := range entries {
				fmt.Fprintf(w, "Library entry\t%s (%s, %d ch, %d samples)\n", e.Name, e.Category, e.Channels, e.Length)
			}
		}
	}
	fmt.Fprintf(w, "Channels\t%d\n", audio.NumChannels())
	fmt.Fprintf(w, "Sample rate\t%g Hz\n", audio.SampleRate)
	fmt.Fprintf(w, "Length\t%d samples (%.3f s)\n", audio.Length(), audio.Duration())
	fmt.Fprintf(w, "Conditioned length\t%d samples\n", engine.IRLength())
	fmt.Fprintf(w, "Latency\t%d samples\n", engine.Latency())
	fmt.Fprintf(w, "Tail\t%.1f s\n", plugin.TailLength)
	fmt.Fprintln(w)

	metrics, err := ir.AnalyzeAudio(audio)
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	fmt.Fprintln(w, "CHANNEL\tPEAK\tRT60\tEDT\tC80\tD50")
	for ch, m := range metrics {
		fmt.Fprintf(w, "%d\t%.1f dBFS\t%.3f s\t%.3f s\t%.2f dB\t%.1f %%\n",
			ch, peakDB(audio.Channels[ch]), m.RT60, m.EDT, m.C80, m.D50*100)
	}

	return w.Flush()
}

// peakDB returns the sample peak of samples in dB relative to full scale.
func peakDB(samples []float64) float64 {
	return core.LinearToDB(vecmath.MaxAbs(samples))
}
