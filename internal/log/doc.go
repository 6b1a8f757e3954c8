// Package log builds the slog loggers used by imagefinder.
//
// Every logger wraps its output handler in a SecureHandler, which masks
// values that look like credentials before they are written:
//   - attributes whose key names a secret (cookie, authorization, token...)
//   - values that match secret formats (bearer tokens, JWTs, private keys)
//   - the user info of URLs and signature-style query parameters, so that
//     crawled or requested URLs can be logged as they are
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("fetching page", "url", "https://user:pw@example.com/?sig=abc")
//	// url=https://***@example.com/?sig=***REDACTED***
package log
