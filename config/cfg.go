package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/comptoir/woocompta/internal/accounting"
	httpapi "github.com/comptoir/woocompta/internal/api/http"
	"github.com/comptoir/woocompta/internal/apisrv/auth"
	"github.com/comptoir/woocompta/internal/woo"
	"github.com/comptoir/woocompta/log"
	"github.com/spf13/viper"
)

// Config represents the global configuration for the service.
type Config struct {
	Woo        woo.Config        `mapstructure:"woo"`
	Logger     log.Config        `mapstructure:"logger"`
	HTTP       httpapi.Config    `mapstructure:"http"`
	Auth       auth.Config       `mapstructure:"auth"`
	Accounting accounting.Config `mapstructure:"accounting"`
}

// LoadConfig loads the configuration from a file and/or environment
// variables. Environment variables take precedence over config file values.
func LoadConfig(cfgFile string) (*Config, error) {
	viper.SetConfigType("toml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	bindEnvVars()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/config/woocompta")
		viper.AddConfigPath("/etc/woocompta")
		// Try to read config, but don't fail if it doesn't exist
		_ = viper.ReadInConfig()
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %v", err)
	}

	return &config, nil
}

// bindEnvVars binds environment variables to config keys. This allows using
// flat env var names that match the deployment environment.
func bindEnvVars() {
	// WooCommerce upstream
	viper.BindEnv("woo.base_url", "WOO_BASE_URL")
	viper.BindEnv("woo.consumer_key", "WOO_CONSUMER_KEY")
	viper.BindEnv("woo.consumer_secret", "WOO_CONSUMER_SECRET")
	viper.BindEnv("woo.timeout", "WOO_TIMEOUT")
	viper.BindEnv("woo.retry.max_attempts", "WOO_RETRY_MAX_ATTEMPTS")
	viper.BindEnv("woo.retry.initial_interval", "WOO_RETRY_INITIAL_INTERVAL")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.add_source", "LOG_ADD_SOURCE")

	// HTTP
	viper.BindEnv("http.port", "HTTP_PORT", "PORT")
	viper.BindEnv("http.address", "HTTP_ADDRESS")
	viper.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")

	// Auth gate. MCP_TOKEN is the historical deployment name.
	viper.BindEnv("auth.token", "AUTH_TOKEN", "MCP_TOKEN")

	// Accounting
	viper.BindEnv("accounting.amount_mode", "ACCOUNTING_AMOUNT_MODE")
	viper.BindEnv("accounting.refunds_concurrency", "ACCOUNTING_REFUNDS_CONCURRENCY")
	viper.BindEnv("accounting.dashboard_statuses", "ACCOUNTING_DASHBOARD_STATUSES")
}
