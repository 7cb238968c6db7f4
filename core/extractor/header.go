package extractor

import (
	"net/http"
)

// Header returns an extractor that binds request headers into fields tagged
// `header:"name"`. Header names are case-insensitive; the tag may use any
// casing. A tag with the "required" option rejects requests missing that
// header.
func Header() Extractor {
	return func(r *http.Request, v any) error {
		rv, err := targetStruct(v)
		if err != nil {
			return err
		}
		rt := rv.Type()

		values := make(map[string][]string)
		for i := range rt.NumField() {
			ft, ok := parseFieldTag(rt.Field(i), "header")
			if !ok {
				continue
			}
			if vals := r.Header.Values(ft.name); len(vals) > 0 {
				values[ft.name] = vals
			}
		}

		return bindValues(v, "header", "invalid_header", values)
	}
}
