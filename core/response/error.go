package response

import (
	"net/http"

	"github.com/quiverhttp/quiver/core/handler"
)

// Error returns a response that propagates the given error to the
// framework's error handler. Use it when a handler wants to fail without
// formatting the failure itself.
func Error(err error) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		return err
	}
}
