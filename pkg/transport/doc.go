// Package transport is the HTTP+JSON implementation of simpleab.Transport.
//
// Every call is a POST carrying the X-API-Key, User-Agent and X-Request-ID
// headers. Network errors, 5xx answers and 408/425/429 are retried with
// exponential backoff up to Config.MaxRetries times; other 4xx answers fail
// immediately with ErrPermanentFailure. Each attempt is bounded by
// Config.Timeout and, when Config.RateLimit is set, waits on a token bucket
// first.
//
// Basic usage:
//
//	tr, err := transport.New(simpleab.Config{
//		APIURL:     "https://api.example.com",
//		APIKey:     os.Getenv("SIMPLEAB_API_KEY"),
//		Timeout:    5 * time.Second,
//		MaxRetries: 2,
//	}, transport.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	client := simpleab.New(tr)
//
// Spans are created from the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. WithOnAttempt exposes per-attempt results for
// custom metrics.
//
// All errors wrap simpleab.ErrTransport together with one of the classification
// errors of this package:
//
//	if errors.Is(err, transport.ErrPermanentFailure) {
//		// bad API key or malformed request
//	}
package transport
