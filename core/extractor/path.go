package extractor

import (
	"net/http"
)

// ParamLookup returns the value of one path parameter for the request.
// router.URLParam satisfies it.
type ParamLookup func(r *http.Request, key string) string

// Path returns an extractor that binds path parameters into fields tagged
// `path:"name"`. The route pattern guarantees a matched parameter is
// present, so an empty value only occurs when the tag names a parameter the
// pattern does not declare; such fields keep their zero value. A value that
// fails to parse into the field's type is a client error.
func Path(lookup ParamLookup) Extractor {
	return func(r *http.Request, v any) error {
		rv, err := targetStruct(v)
		if err != nil {
			return err
		}
		rt := rv.Type()

		values := make(map[string][]string)
		for i := range rt.NumField() {
			ft, ok := parseFieldTag(rt.Field(i), "path")
			if !ok {
				continue
			}
			if val := lookup(r, ft.name); val != "" {
				values[ft.name] = []string{val}
			}
		}

		return bindValues(v, "path", "invalid_path_parameter", values)
	}
}
