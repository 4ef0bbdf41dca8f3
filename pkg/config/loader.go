package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Validator is implemented by configs that can check themselves after parsing.
type Validator interface {
	Validate() error
}

type options struct {
	files       []string
	optional    bool
	prefix      string
	environment map[string]string
}

// Option configures Load.
type Option func(*options)

// WithEnvFiles reads variables from the given .env files. Values already set in
// the environment win over file values, and earlier files win over later ones.
// A missing file is an error; see WithOptionalEnvFiles.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.files = append(o.files, files...) }
}

// WithOptionalEnvFiles is WithEnvFiles that skips files which do not exist.
func WithOptionalEnvFiles(files ...string) Option {
	return func(o *options) {
		o.files = append(o.files, files...)
		o.optional = true
	}
}

// WithPrefix prepends prefix to every env tag, e.g. "STAGING_".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvironment parses from env instead of the process environment.
func WithEnvironment(environment map[string]string) Option {
	return func(o *options) { o.environment = environment }
}

// Load parses a T from the environment.
//
// Unlike a process-wide cache, every call parses again so command line tools
// can layer flags over the result. When T (or *T) implements Validator, the
// parsed value is validated and failures wrap ErrValidation.
//
// Example:
//
//	cfg, err := config.Load[simpleab.Config](config.WithOptionalEnvFiles(".env"))
//	if err != nil {
//		return err
//	}
func Load[T any](opts ...Option) (T, error) {
	var zero T

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	environment, err := o.resolveEnvironment()
	if err != nil {
		return zero, err
	}

	var cfg T
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: environment,
		Prefix:      o.prefix,
	}); err != nil {
		return zero, errors.Join(ErrParsingConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return zero, errors.Join(ErrValidation, err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics on failure.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
	return cfg
}

func (o *options) resolveEnvironment() (map[string]string, error) {
	environment := o.environment
	if environment == nil {
		environment = env.ToMap(os.Environ())
	}
	if len(o.files) == 0 {
		return environment, nil
	}

	merged := make(map[string]string, len(environment))
	for k, v := range environment {
		merged[k] = v
	}
	for _, file := range o.files {
		values, err := godotenv.Read(file)
		if err != nil {
			if o.optional && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrEnvFile, file, err)
		}
		for k, v := range values {
			if _, set := merged[k]; !set {
				merged[k] = strings.TrimSpace(v)
			}
		}
	}
	return merged, nil
}

func validate(v any) error {
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}
