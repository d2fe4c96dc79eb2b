package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. VOICEMOOD_SERVER_PORT.
const EnvPrefix = "VOICEMOOD"

type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

type Audio struct {
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	FFmpeg     string `mapstructure:"ffmpeg" yaml:"ffmpeg"`
}

type Models struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Model       string `mapstructure:"model" yaml:"model"`
	Scaler      string `mapstructure:"scaler" yaml:"scaler"`
	Encoder     string `mapstructure:"encoder" yaml:"encoder"`
	ONNXRuntime string `mapstructure:"onnxruntime" yaml:"onnxruntime"`
	Threads     int    `mapstructure:"threads" yaml:"threads"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
}

type Server struct {
	Port        string `mapstructure:"port" yaml:"port"`
	GRPCAddr    string `mapstructure:"grpc_addr" yaml:"grpc_addr"`
	UploadDir   string `mapstructure:"upload_dir" yaml:"upload_dir"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

type Record struct {
	Seconds float64 `mapstructure:"seconds" yaml:"seconds"`
	Device  string  `mapstructure:"device" yaml:"device"`
	Format  string  `mapstructure:"format" yaml:"format"` // wav or mp3
	Dir     string  `mapstructure:"dir" yaml:"dir"`
}

type Config struct {
	Log    Log    `mapstructure:"log" yaml:"log"`
	Audio  Audio  `mapstructure:"audio" yaml:"audio"`
	Models Models `mapstructure:"models" yaml:"models"`
	Server Server `mapstructure:"server" yaml:"server"`
	Record Record `mapstructure:"record" yaml:"record"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("audio.sample_rate", 22050)
	v.SetDefault("audio.ffmpeg", "")

	v.SetDefault("models.dir", "models")
	v.SetDefault("models.model", "model.onnx")
	v.SetDefault("models.scaler", "scaler.json")
	v.SetDefault("models.encoder", "encoder.json")
	v.SetDefault("models.onnxruntime", "")
	v.SetDefault("models.threads", 0)
	v.SetDefault("models.base_url", "")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.grpc_addr", "")
	v.SetDefault("server.upload_dir", "")
	v.SetDefault("server.max_upload_mb", 25)

	v.SetDefault("record.seconds", 5.0)
	v.SetDefault("record.device", "")
	v.SetDefault("record.format", "wav")
	v.SetDefault("record.dir", "recordings")
}

// Load reads defaults, then the config file (explicit path or voicemood.yaml
// in the working directory and ~/.config/voicemood), then VOICEMOOD_* env vars.
// Flags bound to v by the caller take precedence over all of them.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("voicemood")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "voicemood"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	switch c.Record.Format {
	case "wav", "mp3":
	default:
		return fmt.Errorf("record.format must be wav or mp3, got %q", c.Record.Format)
	}
	if c.Record.Seconds <= 0 {
		return fmt.Errorf("record.seconds must be positive, got %v", c.Record.Seconds)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ApplyLogging configures the global logrus logger.
func (c *Config) ApplyLogging() {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Write dumps the effective configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
