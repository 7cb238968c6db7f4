// Package response provides constructors for handler responses and the
// total error conversion used by the dispatcher.
//
// A handler returns a handler.Response, a deferred function that writes to
// the ResponseWriter when the framework renders it. Constructors cover the
// common cases: JSON, strings, HTML, redirects, files, streaming, and
// WebSocket upgrades. Decorators wrap an existing response with headers,
// cookies, or cache directives.
//
// Errors are first-class responses. Any error returned by a handler or an
// extractor is converted by ToHTTPError into an HTTPError carrying an HTTP
// status, a stable error type, and a client-safe message. The conversion is
// total: every error value maps to exactly one envelope, with unrecognized
// errors treated as internal server errors. JSONErrorHandler renders the
// envelope as JSON, scrubbing internal details from 5xx responses and
// logging them under a correlation ID instead.
//
// Basic usage:
//
//	func getUser(ctx router.Context) handler.Response {
//		user, err := loadUser(ctx, ctx.Param("id"))
//		if err != nil {
//			return response.Error(response.ErrNotFound.WithMessage("user not found"))
//		}
//		return response.JSON(user)
//	}
package response
