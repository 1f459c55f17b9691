package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string `validate:"required,numeric"`
	AllowedOrigin string `validate:"required"`
	// BCP 47 tag attached to every spoken line
	SpeechLang string `validate:"required,bcp47_language_tag"`
	// Speech input/output (OpenAI)
	OpenAIAPIKey string
	STTModel     string
	TTSModel     string
	TTSVoice     string
	// Optional YAML phrase pool overrides
	PhrasesFile string
	// Encyclopedia
	EncyclopediaURL   string `validate:"required,url"`
	WikimediaClientID string
	WikimediaSecret   string
	WikimediaTokenURL string `validate:"omitempty,url"`
	// Weather
	WeatherAPIKey string
	WeatherCity   string `validate:"required"`
	WeatherURL    string `validate:"required,url"`
	// Web search for question-style utterances
	SearchURL string `validate:"required,url"`
	// Outbound lookups
	FetchTimeout       time.Duration `validate:"gt=0"`
	FetchRatePerSecond float64       `validate:"gte=0"`
	SessionTTL         time.Duration `validate:"gt=0"`

	Logging LoggingConfig
}

type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:               getEnvDefault("PORT", "8080"),
		AllowedOrigin:      getEnvDefault("ALLOWED_ORIGIN", "*"),
		SpeechLang:         getEnvDefault("SPEECH_LANG", "en-US"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		STTModel:           getEnvDefault("OPENAI_STT_MODEL", "whisper-1"),
		TTSModel:           getEnvDefault("OPENAI_TTS_MODEL", "tts-1"),
		TTSVoice:           getEnvDefault("OPENAI_TTS_VOICE", "alloy"),
		PhrasesFile:        os.Getenv("PHRASES_FILE"),
		EncyclopediaURL:    getEnvDefault("WIKIPEDIA_API_URL", "https://en.wikipedia.org/api/rest_v1"),
		WikimediaClientID:  os.Getenv("WIKIMEDIA_CLIENT_ID"),
		WikimediaSecret:    os.Getenv("WIKIMEDIA_CLIENT_SECRET"),
		WikimediaTokenURL:  getEnvDefault("WIKIMEDIA_TOKEN_URL", "https://meta.wikimedia.org/w/rest.php/oauth2/access_token"),
		WeatherAPIKey:      os.Getenv("OPENWEATHER_API_KEY"),
		WeatherCity:        getEnvDefault("OPENWEATHER_CITY", "Pune"),
		WeatherURL:         getEnvDefault("OPENWEATHER_API_URL", "https://api.openweathermap.org/data/2.5/weather"),
		SearchURL:          getEnvDefault("SEARCH_URL", "https://www.google.com/search"),
		FetchTimeout:       time.Duration(getEnvIntDefault("FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
		FetchRatePerSecond: getEnvFloatDefault("FETCH_RATE_PER_SECOND", 5),
		SessionTTL:         time.Duration(getEnvIntDefault("SESSION_TTL_MINUTES", 15)) * time.Minute,
		Logging: LoggingConfig{
			Level:      getEnvDefault("LOG_LEVEL", "info"),
			LogDir:     os.Getenv("LOG_DIR"),
			MaxSizeMB:  getEnvIntDefault("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvIntDefault("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvIntDefault("LOG_MAX_AGE_DAYS", 14),
			Compress:   getEnvBoolDefault("LOG_COMPRESS", true),
		},
	}
	return cfg
}

// Warnings lists settings that leave features disabled. Callers log them
// once their logger is configured.
func (c Config) Warnings() []string {
	var warnings []string
	if c.OpenAIAPIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY is not set; /api/voice and /api/tts are disabled")
	}
	if c.WeatherAPIKey == "" {
		warnings = append(warnings, "OPENWEATHER_API_KEY is not set; weather requests will ask for a key")
	}
	return warnings
}

// Validate checks field constraints declared on Config.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatDefault(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
