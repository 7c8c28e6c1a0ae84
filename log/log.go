package log

// Config configures the process-wide slog handler.
type Config struct {
	Level     int  `mapstructure:"level"`
	AddSource bool `mapstructure:"add_source"`
}
