package extractor

import (
	"net/http"
)

// Cookie returns an extractor that binds cookies into fields tagged
// `cookie:"name"`. Absent cookies leave the zero value unless the tag
// carries the "required" option, in which case the request is rejected.
func Cookie() Extractor {
	return func(r *http.Request, v any) error {
		rv, err := targetStruct(v)
		if err != nil {
			return err
		}
		rt := rv.Type()

		values := make(map[string][]string)
		for i := range rt.NumField() {
			ft, ok := parseFieldTag(rt.Field(i), "cookie")
			if !ok {
				continue
			}
			if c, err := r.Cookie(ft.name); err == nil {
				values[ft.name] = []string{c.Value}
			}
		}

		return bindValues(v, "cookie", "invalid_cookie", values)
	}
}
