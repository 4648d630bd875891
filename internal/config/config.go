package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys. All of them can be supplied through the environment,
// a .env file, or config.yaml in the working directory.
const (
	KeyAPIBaseURL    = "api_base_url"
	KeyBearerToken   = "bearer_token"
	KeyStreamingHost = "streaming_host"
	KeyLanguage      = "language"
	KeyService       = "service"
	KeyDeviceIndex   = "device_index"
	KeyLogLevel      = "log_level"
)

// Hard-coded fallbacks used when neither the environment nor a config file
// provides a value.
const (
	DefaultAPIBaseURL    = "http://localhost:3000"
	DefaultBearerToken   = "demo-token"
	DefaultStreamingHost = "api.deepgram.com"
	DefaultLanguage      = "en-US"
	DefaultService       = "deepgram"
)

// Audio capture parameters. The streaming endpoint expects mono 16 kHz
// little-endian Int16 PCM in 4096-sample frames.
const (
	SampleRate      = 16000
	Channels        = 1
	FramesPerBuffer = 4096
)

// Config carries everything the CLI needs to run one transcription session.
type Config struct {
	APIBaseURL    string
	BearerToken   string
	StreamingHost string
	Language      string
	Service       string
	DeviceIndex   int
	LogLevel      string
}

// Load reads .env (if present), applies defaults, and resolves the final
// configuration from the environment. Environment variables use the
// uppercase form of the keys above (API_BASE_URL, BEARER_TOKEN, ...).
func Load() Config {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	viper.SetDefault(KeyAPIBaseURL, DefaultAPIBaseURL)
	viper.SetDefault(KeyBearerToken, DefaultBearerToken)
	viper.SetDefault(KeyStreamingHost, DefaultStreamingHost)
	viper.SetDefault(KeyLanguage, DefaultLanguage)
	viper.SetDefault(KeyService, DefaultService)
	viper.SetDefault(KeyDeviceIndex, -1)
	viper.SetDefault(KeyLogLevel, "info")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// A config file is optional.
	_ = viper.ReadInConfig()

	return Config{
		APIBaseURL:    viper.GetString(KeyAPIBaseURL),
		BearerToken:   viper.GetString(KeyBearerToken),
		StreamingHost: viper.GetString(KeyStreamingHost),
		Language:      viper.GetString(KeyLanguage),
		Service:       viper.GetString(KeyService),
		DeviceIndex:   viper.GetInt(KeyDeviceIndex),
		LogLevel:      viper.GetString(KeyLogLevel),
	}
}
