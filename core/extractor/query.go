package extractor

import (
	"net/http"
)

// Query returns an extractor that binds query string parameters into fields
// tagged `query:"name"`. Repeated parameters and comma-separated values
// both populate slice fields. Absent parameters leave the zero value unless
// the tag carries the "required" option.
func Query() Extractor {
	return func(r *http.Request, v any) error {
		return bindValues(v, "query", "invalid_query_parameter", r.URL.Query())
	}
}
