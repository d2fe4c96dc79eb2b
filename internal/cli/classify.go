package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voicemood/ai"
	"voicemood/internal/display"
	"voicemood/internal/service"
	"voicemood/models"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Classify the emotion of audio files",
	Long: `Classify the emotion of one or more audio files.

WAV files are read as-is. Other formats (mp3, webm, ogg, m4a, flac) are
converted to a 22.05 kHz mono WAV next to the input first; pass --cleanup to
remove that copy afterwards.

Example:
  voicemood classify voice.mp3
  voicemood classify -o json a.wav b.wav`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().Bool("cleanup", false, "remove normalized copies after classification")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cleanup, err := cmd.Flags().GetBool("cleanup")
	if err != nil {
		return fmt.Errorf("failed to read 'cleanup' flag: %w", err)
	}
	if _, err := outputFormat(); err != nil {
		return err
	}

	classifier, err := loadClassifier()
	if err != nil {
		return err
	}
	defer classifier.Close()

	svc := service.NewClassificationService(classifier, cfg.Server.UploadDir)
	out := cmd.OutOrStdout()

	results := make([]*service.Classification, 0, len(args))
	for _, path := range args {
		if format, _ := outputFormat(); format == display.FormatText {
			fmt.Fprintln(cmd.ErrOrStderr(), display.Processing(path))
		}
		c, err := svc.Classify(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("classify %s: %w", path, err)
		}
		if cleanup && c.Normalized != "" {
			if err := os.Remove(c.Normalized); err != nil {
				log.WithError(err).Warn("failed to remove normalized file")
			}
		}
		results = append(results, c)
	}

	var result any = results
	if len(results) == 1 {
		result = results[0]
	}
	return outputResult(out, result, func(w io.Writer) error {
		for _, c := range results {
			fmt.Fprintln(w, renderClassification(c))
		}
		return nil
	})
}

// renderClassification renders the terminal card for one result.
func renderClassification(c *service.Classification) string {
	details := []string{c.File}
	if c.Fallback != "" {
		details = append(details, fmt.Sprintf("features: %s (%s)", c.Extraction, c.Fallback))
	}
	details = append(details, fmt.Sprintf("%d ms", c.ElapsedMS))
	return display.Card(c.Emotion, details...)
}

// loadClassifier checks the artifacts and loads the classifier context.
func loadClassifier() (*ai.Context, error) {
	mgr, err := newModelManager()
	if err != nil {
		return nil, err
	}
	if err := mgr.Ready(); err != nil {
		if errors.Is(err, models.ErrMissing) {
			return nil, fmt.Errorf("%w (run 'voicemood models pull' or set --models-dir)", err)
		}
		return nil, err
	}

	paths := mgr.Artifacts()
	return ai.LoadContext(ai.Artifacts{
		ModelPath:   paths.Model,
		ScalerPath:  paths.Scaler,
		EncoderPath: paths.Encoder,
		ONNXLibrary: cfg.Models.ONNXRuntime,
		Threads:     cfg.Models.Threads,
		FFmpegPath:  cfg.Audio.FFmpeg,
	})
}

func newModelManager() (*models.Manager, error) {
	mgr, err := models.NewManager(cfg.Models.Dir, cfg.Models.BaseURL)
	if err != nil {
		return nil, err
	}
	mgr.SetFile(models.KindModel, cfg.Models.Model)
	mgr.SetFile(models.KindScaler, cfg.Models.Scaler)
	mgr.SetFile(models.KindEncoder, cfg.Models.Encoder)
	return mgr, nil
}
