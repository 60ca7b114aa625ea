package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"
	defaultListenAddr = ":8080"

	defaultFastModel     = "llama-3.1-8b-instant"
	defaultBalancedModel = "llama-3.3-70b-versatile"
	defaultBestModel     = "deepseek-r1-distill-llama-70b"

	defaultTTSModel      = "eleven_v3"
	defaultOutputFormat  = "mp3_44100_128"
	defaultMaxChunkSize  = 4500
	defaultVoiceID       = "onwK4e9ZLuTAKqWW03F9" // Daniel, documentary style
	defaultStability     = 0.5
	defaultSimilarity    = 0.75
	defaultWordsPerMin   = 150
	defaultVisualSeconds = 8

	defaultClipModel        = "veo-3.1-fast-generate-preview"
	defaultClipQualityModel = "veo-3.1-generate-preview"
	defaultPollSeconds      = 10
	defaultPollTimeoutMin   = 10
	defaultPollRatePerSec   = 2
	defaultBatchDelayMS     = 500

	secretPrefix = "sm://"
)

type Config struct {
	GroqAPIKey string
	ListenAddr string

	Gateway GatewayConfig `yaml:"gateway"`
	TTS     TTSConfig     `yaml:"tts"`
	Visuals VisualsConfig `yaml:"visuals"`
	Clips   ClipsConfig   `yaml:"clips"`
	Server  ServerConfig  `yaml:"server"`
}

// GatewayConfig maps the three quality tiers to upstream model identifiers.
type GatewayConfig struct {
	FastModel     string `yaml:"fast_model"`
	BalancedModel string `yaml:"balanced_model"`
	BestModel     string `yaml:"best_model"`
}

type TTSConfig struct {
	Model        string  `yaml:"model"`
	OutputFormat string  `yaml:"output_format"`
	MaxChunkSize int     `yaml:"max_chunk_size"`
	VoiceID      string  `yaml:"voice_id"`
	Stability    float64 `yaml:"stability"`
	Similarity   float64 `yaml:"similarity"`
}

type VisualsConfig struct {
	WordsPerMinute   int `yaml:"words_per_minute"`
	SecondsPerVisual int `yaml:"seconds_per_visual"`
}

type ClipsConfig struct {
	Model            string `yaml:"model"`
	QualityModel     string `yaml:"quality_model"`
	PollSeconds      int    `yaml:"poll_seconds"`
	PollTimeoutMin   int    `yaml:"poll_timeout_minutes"`
	PollRatePerSec   int    `yaml:"poll_rate_per_second"`
	BatchDelayMillis int    `yaml:"batch_delay_millis"`
}

type ServerConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey: os.Getenv("GROQ_API_KEY"),
		ListenAddr: getEnvOrDefault("LISTEN_ADDR", defaultListenAddr),
	}

	loadYAMLConfig(cfg)
	applyDefaults(cfg)
	resolveSecrets(cfg)

	return cfg
}

func loadYAMLConfig(cfg *Config) {
	data, err := os.ReadFile(defaultConfigPath)
	if err != nil {
		slog.Warn("No config.yaml found, using defaults")
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "error", err)
	}
}

func applyDefaults(cfg *Config) {
	applyGatewayDefaults(cfg)
	applyTTSDefaults(cfg)
	applyVisualsDefaults(cfg)
	applyClipsDefaults(cfg)
}

func applyGatewayDefaults(cfg *Config) {
	if cfg.Gateway.FastModel == "" {
		cfg.Gateway.FastModel = defaultFastModel
	}
	if cfg.Gateway.BalancedModel == "" {
		cfg.Gateway.BalancedModel = defaultBalancedModel
	}
	if cfg.Gateway.BestModel == "" {
		cfg.Gateway.BestModel = defaultBestModel
	}
}

func applyTTSDefaults(cfg *Config) {
	if cfg.TTS.Model == "" {
		cfg.TTS.Model = defaultTTSModel
	}
	if cfg.TTS.OutputFormat == "" {
		cfg.TTS.OutputFormat = defaultOutputFormat
	}
	if cfg.TTS.MaxChunkSize == 0 {
		cfg.TTS.MaxChunkSize = defaultMaxChunkSize
	}
	if cfg.TTS.VoiceID == "" {
		cfg.TTS.VoiceID = defaultVoiceID
	}
	if cfg.TTS.Stability == 0 {
		cfg.TTS.Stability = defaultStability
	}
	if cfg.TTS.Similarity == 0 {
		cfg.TTS.Similarity = defaultSimilarity
	}
}

func applyVisualsDefaults(cfg *Config) {
	if cfg.Visuals.WordsPerMinute == 0 {
		cfg.Visuals.WordsPerMinute = defaultWordsPerMin
	}
	if cfg.Visuals.SecondsPerVisual == 0 {
		cfg.Visuals.SecondsPerVisual = defaultVisualSeconds
	}
}

func applyClipsDefaults(cfg *Config) {
	if cfg.Clips.Model == "" {
		cfg.Clips.Model = defaultClipModel
	}
	if cfg.Clips.QualityModel == "" {
		cfg.Clips.QualityModel = defaultClipQualityModel
	}
	if cfg.Clips.PollSeconds == 0 {
		cfg.Clips.PollSeconds = defaultPollSeconds
	}
	if cfg.Clips.PollTimeoutMin == 0 {
		cfg.Clips.PollTimeoutMin = defaultPollTimeoutMin
	}
	if cfg.Clips.PollRatePerSec == 0 {
		cfg.Clips.PollRatePerSec = defaultPollRatePerSec
	}
	if cfg.Clips.BatchDelayMillis == 0 {
		cfg.Clips.BatchDelayMillis = defaultBatchDelayMS
	}
}

// resolveSecrets swaps any sm://projects/.../versions/latest value for the
// Secret Manager payload it names.
func resolveSecrets(cfg *Config) {
	refs := []*string{&cfg.GroqAPIKey}

	var needed bool
	for _, ref := range refs {
		if strings.HasPrefix(*ref, secretPrefix) {
			needed = true
		}
	}
	if !needed {
		return
	}

	ctx := context.Background()
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		slog.Error("Failed to create secret manager client", "error", err)
		return
	}
	defer func() { _ = client.Close() }()

	for _, ref := range refs {
		if !strings.HasPrefix(*ref, secretPrefix) {
			continue
		}
		value, err := accessSecret(ctx, client, strings.TrimPrefix(*ref, secretPrefix))
		if err != nil {
			slog.Error("Failed to resolve secret", "name", *ref, "error", err)
			continue
		}
		*ref = value
	}
}

func accessSecret(ctx context.Context, client *secretmanager.Client, name string) (string, error) {
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("access secret version: %w", err)
	}
	return string(resp.Payload.Data), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
