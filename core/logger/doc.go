// Package logger provides slog attribute helpers shared by the framework's
// request logging and error reporting.
//
// All helpers are nil-safe: passing a zero value returns an empty Attr that
// slog drops, so call sites never need conditional logging.
//
//	log.Info("request completed",
//		logger.Method(r.Method),
//		logger.Path(r.URL.Path),
//		logger.StatusCode(status),
//		logger.Duration(time.Since(start)),
//		logger.Error(err),
//	)
package logger
