// Package config loads typed configuration from environment variables.
//
// It wraps github.com/caarlos0/env/v11 for struct parsing and
// github.com/joho/godotenv for .env files. Values are read from the process
// environment (or a map supplied with WithEnvironment), optionally topped up from
// .env files, parsed according to `env` / `envDefault` struct tags and finally
// validated when the type implements Validator.
//
//	cfg, err := config.Load[simpleab.Config](
//		config.WithOptionalEnvFiles(".env"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Errors wrap ErrParsingConfig, ErrEnvFile or ErrValidation and can be checked
// with errors.Is. The validation error is joined with the underlying one, so
// sentinel errors of the config type (e.g. simpleab.ErrInvalidConfig) remain
// reachable.
package config
