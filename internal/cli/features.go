package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"voicemood/ai"
	"voicemood/media"
)

// FeatureGroup summarizes one stream of the feature tensor over the frames
// that carry signal.
type FeatureGroup struct {
	Name    string  `json:"name" yaml:"name"`
	Columns [2]int  `json:"columns" yaml:"columns"`
	Mean    float64 `json:"mean" yaml:"mean"`
	Std     float64 `json:"std" yaml:"std"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
}

// FeatureReport is the output of the features command.
type FeatureReport struct {
	File       string         `json:"file" yaml:"file"`
	Normalized string         `json:"normalized,omitempty" yaml:"normalized,omitempty"`
	Kind       string         `json:"kind" yaml:"kind"`
	Reason     string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Frames     int            `json:"frames" yaml:"frames"`
	Tuning     float64        `json:"tuning" yaml:"tuning"`
	Shape      [2]int         `json:"shape" yaml:"shape"`
	Groups     []FeatureGroup `json:"groups" yaml:"groups"`
	Tensor     ai.Matrix      `json:"tensor,omitempty" yaml:"tensor,omitempty"`
}

var featuresCmd = &cobra.Command{
	Use:   "features <file>",
	Short: "Extract the (300, 54) feature tensor of an audio file",
	Long: `Extract the feature tensor of an audio file without running the model.

The tensor holds 40 MFCC, 12 chroma, zero-crossing rate and RMS energy per
frame, padded or truncated to 300 frames. Use --full with -o json or -o yaml
to dump every value.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, err := cmd.Flags().GetBool("full")
		if err != nil {
			return fmt.Errorf("failed to read 'full' flag: %w", err)
		}

		features := ai.DefaultFeatureConfig()
		features.FFmpegPath = cfg.Audio.FFmpeg
		if cmd.Flags().Changed("tuning") {
			tuning, err := cmd.Flags().GetFloat64("tuning")
			if err != nil {
				return fmt.Errorf("failed to read 'tuning' flag: %w", err)
			}
			features.Tuning = &tuning
		}
		extractor, err := ai.NewExtractor(features)
		if err != nil {
			return err
		}
		normalizer := media.NewNormalizer(ai.SampleRate, cfg.Audio.FFmpeg)

		path := args[0]
		normalized, err := normalizer.Normalize(path)
		if err != nil {
			return err
		}

		extraction := extractor.ExtractFile(normalized)
		report := buildFeatureReport(path, normalized, extraction)
		if full {
			report.Tensor = extraction.Tensor
		}

		return outputResult(cmd.OutOrStdout(), report, func(w io.Writer) error {
			return writeFeatureReport(w, report)
		})
	},
}

func init() {
	featuresCmd.Flags().Bool("full", false, "include the full tensor in yaml/json output")
	featuresCmd.Flags().Float64("tuning", 0, "fixed chroma tuning in fractions of a pitch class (default: estimated per file)")
}

func buildFeatureReport(path, normalized string, e ai.Extraction) *FeatureReport {
	rows, cols := e.Tensor.Shape()
	report := &FeatureReport{
		File:   path,
		Kind:   e.Kind.String(),
		Reason: e.Reason,
		Frames: e.Frames,
		Tuning: e.Tuning,
		Shape:  [2]int{rows, cols},
	}
	if normalized != path {
		report.Normalized = normalized
	}

	// Паддинг нулями не входит в статистику
	used := e.Frames
	if used > rows {
		used = rows
	}

	groups := []struct {
		name       string
		start, end int
	}{
		{"mfcc", 0, ai.NMFCC},
		{"chroma", ai.NMFCC, ai.NMFCC + ai.NChroma},
		{"zcr", ai.NMFCC + ai.NChroma, ai.NMFCC + ai.NChroma + 1},
		{"rms", ai.NMFCC + ai.NChroma + 1, ai.FeatureWidth},
	}
	for _, g := range groups {
		fg := FeatureGroup{Name: g.name, Columns: [2]int{g.start, g.end}}
		values := make([]float64, 0, used*(g.end-g.start))
		for t := 0; t < used; t++ {
			for c := g.start; c < g.end; c++ {
				values = append(values, float64(e.Tensor[t][c]))
			}
		}
		if len(values) > 0 {
			fg.Mean = stat.Mean(values, nil)
			if len(values) > 1 {
				fg.Std = stat.StdDev(values, nil)
			}
			fg.Min = floats.Min(values)
			fg.Max = floats.Max(values)
		}
		report.Groups = append(report.Groups, fg)
	}
	return report
}

func writeFeatureReport(w io.Writer, r *FeatureReport) error {
	fmt.Fprintf(w, "file:   %s\n", r.File)
	if r.Normalized != "" {
		fmt.Fprintf(w, "wav:    %s\n", r.Normalized)
	}
	fmt.Fprintf(w, "shape:  (%d, %d)\n", r.Shape[0], r.Shape[1])
	fmt.Fprintf(w, "frames: %d\n", r.Frames)
	fmt.Fprintf(w, "tuning: %+.2f\n", r.Tuning)
	if r.Reason != "" {
		fmt.Fprintf(w, "kind:   %s (%s)\n", r.Kind, r.Reason)
	} else {
		fmt.Fprintf(w, "kind:   %s\n", r.Kind)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOLUMNS\tMEAN\tSTD\tMIN\tMAX")
	for _, g := range r.Groups {
		fmt.Fprintf(tw, "%s\t%d-%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
			g.Name, g.Columns[0], g.Columns[1]-1, g.Mean, g.Std, g.Min, g.Max)
	}
	return tw.Flush()
}
