package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"voicemood/audio"
	"voicemood/internal/display"
	"voicemood/internal/service"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the microphone and classify",
	Long: `Record a short clip from the microphone, save it and classify it.

Example:
  voicemood record --seconds 4 --format mp3
  voicemood record --list-devices`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	flags := recordCmd.Flags()
	flags.Float64("seconds", 0, "recording length in seconds")
	flags.String("device", "", "capture device name (substring match)")
	flags.String("format", "", "file format: wav or mp3")
	flags.String("dir", "", "directory for recordings")
	flags.Bool("list-devices", false, "list capture devices and exit")

	mustBind(recordCmd, "record.seconds", "seconds")
	mustBind(recordCmd, "record.device", "device")
	mustBind(recordCmd, "record.format", "format")
	mustBind(recordCmd, "record.dir", "dir")
}

func runRecord(cmd *cobra.Command, args []string) error {
	listDevices, err := cmd.Flags().GetBool("list-devices")
	if err != nil {
		return fmt.Errorf("failed to read 'list-devices' flag: %w", err)
	}
	if _, err := outputFormat(); err != nil {
		return err
	}

	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	defer recorder.Close()

	out := cmd.OutOrStdout()
	if listDevices {
		devices, err := recorder.ListDevices()
		if err != nil {
			return err
		}
		return outputResult(out, devices, func(w io.Writer) error {
			for _, d := range devices {
				marker := " "
				if d.IsDefault {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s\n", marker, d.Name)
			}
			return nil
		})
	}

	if err := recorder.SetDevice(cfg.Record.Device); err != nil {
		return err
	}

	classifier, err := loadClassifier()
	if err != nil {
		return err
	}
	defer classifier.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	duration := time.Duration(cfg.Record.Seconds * float64(time.Second))
	svc := service.NewClassificationService(classifier, cfg.Server.UploadDir)
	rec := service.NewRecordingService(recorder, svc, cfg.Record.Dir, cfg.Record.Format)

	if format, _ := outputFormat(); format == display.FormatText {
		printInfo(cmd.ErrOrStderr(), "Recording %s... (Ctrl+C to stop early)", duration)
	}
	c, err := rec.RecordAndClassify(ctx, duration)
	if err != nil {
		return err
	}

	return outputResult(out, c, func(w io.Writer) error {
		fmt.Fprintln(w, renderClassification(c))
		return nil
	})
}
