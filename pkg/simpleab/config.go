package simpleab

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the connection settings of the SDK.
// Field tags allow loading it from the environment with pkg/config.
type Config struct {
	// APIURL is the base URL of the experimentation service.
	APIURL string `env:"SIMPLEAB_API_URL,required" validate:"required,url"`
	// APIKey authenticates every remote call.
	APIKey string `env:"SIMPLEAB_API_KEY,required" validate:"required"`

	Timeout       time.Duration `env:"SIMPLEAB_TIMEOUT" envDefault:"10s" validate:"gte=0"`
	MaxRetries    int           `env:"SIMPLEAB_MAX_RETRIES" envDefault:"2" validate:"gte=0,lte=10"`
	FlushInterval time.Duration `env:"SIMPLEAB_FLUSH_INTERVAL" envDefault:"30s" validate:"gte=0"`
	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64 `env:"SIMPLEAB_RATE_LIMIT" envDefault:"0" validate:"gte=0"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration, returning an error wrapping ErrInvalidConfig.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}
