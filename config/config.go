package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Together struct {
		ApiKey     string `yaml:"apiKey"`
		BaseURL    string `yaml:"baseUrl"`
		TaskModel  string `yaml:"taskModel"`
		JudgeModel string `yaml:"judgeModel"`
		ImageModel string `yaml:"imageModel"`
	} `yaml:"together"`

	HuggingFace struct {
		ApiKey     string `yaml:"apiKey"`
		CaptionURL string `yaml:"captionUrl"`
	} `yaml:"huggingface"`

	Openai struct {
		ApiKey        string `yaml:"apiKey"`
		TranscribeURL string `yaml:"transcribeUrl"`
	} `yaml:"openai"`

	Geo struct {
		SunriseURL   string `yaml:"sunriseUrl"`
		WeatherURL   string `yaml:"weatherUrl"`
		NominatimURL string `yaml:"nominatimUrl"`
		OverpassURL  string `yaml:"overpassUrl"`
	} `yaml:"geo"`

	Storage struct {
		UploadDir         string `yaml:"uploadDir"`
		ResultsDir        string `yaml:"resultsDir"`
		FeedbackDir       string `yaml:"feedbackDir"`
		FeedbackExportDir string `yaml:"feedbackExportDir"`
	} `yaml:"storage"`
}

// envOverrides mirrors the environment variables the deployment already sets.
// Anything present here wins over the YAML file.
type envOverrides struct {
	Port           int    `env:"PORT"`
	UploadFolder   string `env:"UPLOAD_FOLDER"`
	ResultsDir     string `env:"RESULTS_DIR"`
	FeedbackDir    string `env:"FEEDBACK_DIR"`
	TogetherApiKey string `env:"TOGETHER_API_KEY"`
	HfApiKey       string `env:"HF_API_KEY"`
	OpenaiApiKey   string `env:"OPENAI_API_KEY"`
}

// LoadConfig reads the configuration file, fills in defaults for anything
// omitted, and applies environment-variable overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.applyOverrides(ov)

	return &cfg, nil
}

// Default returns a configuration usable without a YAML file, relying on
// defaults plus environment variables.
func Default() (*Config, error) {
	var cfg Config
	cfg.applyDefaults()

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.applyOverrides(ov)

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Together.BaseURL == "" {
		c.Together.BaseURL = "https://api.together.xyz/v1"
	}
	if c.Together.TaskModel == "" {
		c.Together.TaskModel = "openai/gpt-oss-20b"
	}
	if c.Together.JudgeModel == "" {
		c.Together.JudgeModel = "google/gemma-3n-E4B-it"
	}
	if c.Together.ImageModel == "" {
		c.Together.ImageModel = "black-forest-labs/FLUX.1-schnell"
	}
	if c.HuggingFace.CaptionURL == "" {
		c.HuggingFace.CaptionURL = "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large"
	}
	if c.Openai.TranscribeURL == "" {
		c.Openai.TranscribeURL = "https://api.openai.com/v1/audio/transcriptions"
	}
	if c.Geo.SunriseURL == "" {
		c.Geo.SunriseURL = "https://api.sunrise-sunset.org/json"
	}
	if c.Geo.WeatherURL == "" {
		c.Geo.WeatherURL = "https://api.open-meteo.com/v1/forecast"
	}
	if c.Geo.NominatimURL == "" {
		c.Geo.NominatimURL = "https://nominatim.openstreetmap.org/reverse"
	}
	if c.Geo.OverpassURL == "" {
		c.Geo.OverpassURL = "https://overpass-api.de/api/interpreter"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "/tmp/uploads"
	}
	if c.Storage.ResultsDir == "" {
		c.Storage.ResultsDir = "/tmp/results"
	}
	if c.Storage.FeedbackDir == "" {
		c.Storage.FeedbackDir = "/tmp/feedback"
	}
}

func (c *Config) applyOverrides(ov envOverrides) {
	if ov.Port != 0 {
		c.Server.Port = ov.Port
	}
	if ov.UploadFolder != "" {
		c.Storage.UploadDir = ov.UploadFolder
	}
	if ov.ResultsDir != "" {
		c.Storage.ResultsDir = ov.ResultsDir
	}
	if ov.FeedbackDir != "" {
		c.Storage.FeedbackDir = ov.FeedbackDir
	}
	if ov.TogetherApiKey != "" {
		c.Together.ApiKey = ov.TogetherApiKey
	}
	if ov.HfApiKey != "" {
		c.HuggingFace.ApiKey = ov.HfApiKey
	}
	if ov.OpenaiApiKey != "" {
		c.Openai.ApiKey = ov.OpenaiApiKey
	}
}
