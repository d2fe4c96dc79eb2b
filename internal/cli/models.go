package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voicemood/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the trained artifacts",
	Long: `Manage the trained classifier artifacts.

The classifier needs three files in the models directory:
  model.onnx    the network
  scaler.json   per-feature mean and scale
  encoder.json  label vocabulary`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show artifact status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := newModelManager()
		if err != nil {
			return err
		}
		states := mgr.Status()
		return outputResult(cmd.OutOrStdout(), states, func(w io.Writer) error {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tSIZE\tPATH")
			for _, s := range states {
				size := "-"
				if s.SizeBytes > 0 {
					size = formatBytes(s.SizeBytes)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Status, size, s.Path)
			}
			return tw.Flush()
		})
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [id]...",
	Short: "Download artifacts from models.base_url",
	Long: `Download artifacts from the configured base URL (models.base_url or
VOICEMOOD_MODELS_BASE_URL). Without arguments, missing artifacts are fetched.

Example:
  voicemood models pull --base-url https://example.org/voicemood/
  voicemood models pull scaler encoder --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return fmt.Errorf("failed to read 'force' flag: %w", err)
		}

		mgr, err := newModelManager()
		if err != nil {
			return err
		}
		out := cmd.ErrOrStderr()
		mgr.SetProgressCallback(func(id string, progress float64, status models.ArtifactStatus, err error) {
			if status == models.StatusDownloading {
				fmt.Fprintf(out, "\r%s: %5.1f%%", id, progress)
			} else {
				fmt.Fprintln(out)
			}
		})

		ctx := cmd.Context()

		if len(args) == 0 {
			if err := mgr.PullAll(ctx, force); err != nil {
				return err
			}
		} else {
			for _, id := range args {
				if !force && mgr.IsDownloaded(id) {
					printInfo(cmd.OutOrStdout(), "%s already present", id)
					continue
				}
				if err := mgr.Pull(ctx, id); err != nil {
					return err
				}
			}
		}
		printSuccess(cmd.OutOrStdout(), "artifacts in %s", mgr.Dir())
		return nil
	},
}

func init() {
	modelsPullCmd.Flags().Bool("force", false, "download even if present")
	modelsPullCmd.Flags().String("base-url", "", "base URL of the artifacts")
	mustBind(modelsPullCmd, "models.base_url", "base-url")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsPullCmd)
}

// formatBytes formats bytes to human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
