package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"trackbot/internal/core/proxy"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port the lookup API listens on in serve mode.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Lark holds the Lark Suite credentials and sheet configuration.
	Lark LarkConfig `mapstructure:",squash"`

	// Carriers holds per-carrier API credentials.
	Carriers CarrierConfig `mapstructure:",squash"`

	// Cache holds the optional result-cache configuration.
	Cache CacheConfig `mapstructure:",squash"`

	// Bot holds run-loop tuning knobs.
	Bot BotConfig `mapstructure:",squash"`
}

// LarkConfig holds Lark Suite app credentials and targets.
type LarkConfig struct {
	// AppID is the Lark app identifier from the developer console.
	AppID string `mapstructure:"LARK_APP_ID"`
	// AppSecret is the Lark app secret.
	AppSecret string `mapstructure:"LARK_APP_SECRET"`
	// BaseURL is the Lark open-platform endpoint.
	BaseURL string `mapstructure:"LARK_BASE_URL" default:"https://open.larksuite.com"`
	// ChatID is the group chat that receives the run summary.
	ChatID string `mapstructure:"LARK_CHAT_ID"`
	// SheetTokens is a comma-separated list of spreadsheet tokens to scan.
	SheetTokens string `mapstructure:"LARK_SHEET_TOKENS"`
}

// Tokens returns the configured spreadsheet tokens, trimmed, empty entries dropped.
func (c LarkConfig) Tokens() []string {
	var tokens []string
	for _, t := range strings.Split(c.SheetTokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// CarrierConfig holds credentials for the carrier tracking APIs.
// Missing credentials disable a carrier without failing the run.
type CarrierConfig struct {
	// FedExAPIKey is the FedEx OAuth client id.
	FedExAPIKey string `mapstructure:"FEDEX_API_KEY"`
	// FedExSecretKey is the FedEx OAuth client secret.
	FedExSecretKey string `mapstructure:"FEDEX_SECRET_KEY"`
	// UPSClientID is the UPS OAuth client id.
	UPSClientID string `mapstructure:"UPS_CLIENT_ID"`
	// UPSClientSecret is the UPS OAuth client secret.
	UPSClientSecret string `mapstructure:"UPS_CLIENT_SECRET"`
	// USPSClientID is the USPS OAuth client id.
	USPSClientID string `mapstructure:"USPS_CLIENT_ID"`
	// USPSClientSecret is the USPS OAuth client secret.
	USPSClientSecret string `mapstructure:"USPS_CLIENT_SECRET"`
	// DHLAPIKey is the DHL Unified Tracking API key.
	DHLAPIKey string `mapstructure:"DHL_API_KEY"`
	// RoyalMailAPIKey is the Royal Mail Tracking API client id.
	RoyalMailAPIKey string `mapstructure:"ROYALMAIL_API_KEY"`
	// SeventeenTrackAPIKey is the 17TRACK aggregator API token.
	SeventeenTrackAPIKey string `mapstructure:"SEVENTEENTRACK_API_KEY"`
	// OnTracURL is the public OnTrac tracking page, with %s for the tracking number.
	OnTracURL string `mapstructure:"ONTRAC_URL" default:"https://www.ontrac.com/tracking/?number=%s"`

	// ProxyEnabled turns on the scraping proxy.
	ProxyEnabled bool `mapstructure:"SCRAPE_PROXY_ENABLED"`
	// ProxyHostname is the proxy host.
	ProxyHostname string `mapstructure:"SCRAPE_PROXY_HOSTNAME"`
	// ProxyPort is the proxy port.
	ProxyPort int `mapstructure:"SCRAPE_PROXY_PORT"`
	// ProxyUsername is the proxy username.
	ProxyUsername string `mapstructure:"SCRAPE_PROXY_USERNAME"`
	// ProxyPassword is the proxy password.
	ProxyPassword string `mapstructure:"SCRAPE_PROXY_PASSWORD"`
}

// Proxy returns the scraping proxy settings.
func (c CarrierConfig) Proxy() proxy.Settings {
	return proxy.Settings{
		Enabled:  c.ProxyEnabled,
		Hostname: c.ProxyHostname,
		Port:     c.ProxyPort,
		Username: c.ProxyUsername,
		Password: c.ProxyPassword,
	}
}

// CacheConfig holds the optional Redis result cache configuration.
type CacheConfig struct {
	// RedisURL enables result caching when set (redis://host:port format).
	RedisURL string `mapstructure:"REDIS_URL"`
	// TTLMinutes is how long a trustworthy result stays cached. 0 disables caching.
	TTLMinutes int `mapstructure:"CACHE_TTL_MINUTES" default:"0"`
}

// BotConfig holds run-loop pacing settings.
type BotConfig struct {
	// LookupPauseMS is the delay between successive carrier lookups, in milliseconds.
	LookupPauseMS int `mapstructure:"LOOKUP_PAUSE_MS" default:"500"`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
