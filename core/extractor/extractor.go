package extractor

import "net/http"

// Extractor populates parts of a target struct from one source of the
// request: path parameters, query string, headers, cookies, body, or shared
// state. An extractor either fully succeeds or reports an error describing
// which input was unacceptable.
type Extractor func(r *http.Request, v any) error

// Apply runs the extractors against the same target in declaration order,
// stopping at the first failure. When any extractor fails, the target must
// be considered unusable and the handler should not run; the returned error
// carries the HTTP status and code for the error envelope.
func Apply(r *http.Request, v any, extractors ...Extractor) error {
	for _, ex := range extractors {
		if ex == nil {
			continue
		}
		if err := ex(r, v); err != nil {
			return err
		}
	}
	return nil
}
