// Package cli implements the voicemood command line.
package cli

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"voicemood/internal/config"
	"voicemood/internal/display"
)

var (
	// Global flags
	cfgFile    string
	outputFlag string

	v   = viper.New()
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voicemood",
	Short: "Speech emotion recognition",
	Long: `voicemood classifies the emotional tone of a short speech recording.

Audio is normalized to 22.05 kHz mono WAV, turned into a (300, 54) feature
tensor (40 MFCC, 12 chroma, zero-crossing rate, RMS energy), standardized and
passed to a trained ONNX classifier.

Examples:
  # Download the trained artifacts
  voicemood models pull

  # Classify a file
  voicemood classify voice.mp3

  # Record 5 seconds from the microphone and classify
  voicemood record --seconds 5

  # Serve the HTTP/WebSocket API
  voicemood serve --port 8080
`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// Debug reports whether debug logging is active.
func Debug() bool {
	return log.IsLevelEnabled(log.DebugLevel)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./voicemood.yaml or ~/.config/voicemood/voicemood.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("models-dir", "", "directory with model.onnx, scaler.json and encoder.json")
	flags.StringVarP(&outputFlag, "output", "o", "text", "output format: text, yaml, json")

	mustBind(rootCmd, "log.level", "log-level")
	mustBind(rootCmd, "models.dir", "models-dir")

	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg.ApplyLogging()
	if cfg.File != "" {
		log.WithField("file", cfg.File).Debug("config loaded")
	}
	return nil
}

// outputFormat returns the validated --output value.
func outputFormat() (display.Format, error) {
	return display.ParseFormat(outputFlag)
}

// outputResult writes result as yaml or json, or calls text for the text format.
func outputResult(w io.Writer, result any, text func(io.Writer) error) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	if format == display.FormatText {
		return text(w)
	}
	return display.Output(w, result, format)
}

// printSuccess prints a success message with checkmark
func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
}

// printInfo prints an info message
func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "ℹ "+format+"\n", args...)
}

// mustBind binds a flag of cmd to a config key so flags take precedence
// over the config file and the environment.
func mustBind(cmd *cobra.Command, key, name string) {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(name)
	}
	if err := v.BindPFlag(key, flag); err != nil {
		fmt.Fprintf(os.Stderr, "failed to bind flag %s: %v\n", name, err)
		os.Exit(1)
	}
}
