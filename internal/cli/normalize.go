package cli

import (
	"io"

	"github.com/spf13/cobra"

	"voicemood/media"
)

// NormalizedFile is one line of normalize output.
type NormalizedFile struct {
	Input     string `json:"input" yaml:"input"`
	Output    string `json:"output" yaml:"output"`
	Converted bool   `json:"converted" yaml:"converted"`
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <file>...",
	Short: "Convert audio files to 22.05 kHz mono WAV",
	Long: `Convert audio files to the canonical format used for feature extraction.

WAV inputs are returned unchanged. Any other input is decoded, downmixed,
resampled and written as <name>.wav next to the original.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		normalizer := media.NewNormalizer(cfg.Audio.SampleRate, cfg.Audio.FFmpeg)

		files := make([]NormalizedFile, 0, len(args))
		for _, path := range args {
			out, err := normalizer.Normalize(path)
			if err != nil {
				return err
			}
			files = append(files, NormalizedFile{Input: path, Output: out, Converted: out != path})
		}

		return outputResult(cmd.OutOrStdout(), files, func(w io.Writer) error {
			for _, f := range files {
				if f.Converted {
					printSuccess(w, "%s -> %s", f.Input, f.Output)
				} else {
					printInfo(w, "%s is already WAV", f.Input)
				}
			}
			return nil
		})
	},
}
