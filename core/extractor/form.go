package extractor

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
)

// DefaultMaxFormMemory is the default memory ceiling for buffered multipart
// parsing (10MB); larger file parts spill to disk via net/http.
const DefaultMaxFormMemory = 10 << 20

// Form returns an extractor for form submissions. It accepts both
// application/x-www-form-urlencoded and multipart/form-data bodies, binding
// value fields through `form:"name"` tags and uploaded files through
// `file:"name"` tags with *multipart.FileHeader or []*multipart.FileHeader
// targets. The whole form is buffered; use Multipart for bounded-memory
// streaming over large uploads. The extractor consumes the body.
func Form() Extractor {
	return func(r *http.Request, v any) error {
		if bodyConsumed(r) {
			return errBodyAlreadyConsumed()
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return newError(http.StatusBadRequest, "missing_content_type", "", ErrMissingContentType)
		}

		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			return newError(http.StatusBadRequest, "unsupported_media_type", "",
				fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err))
		}

		if err := ClaimBody(r); err != nil {
			return err
		}

		var values map[string][]string
		var files map[string][]*multipart.FileHeader

		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return newError(http.StatusBadRequest, "malformed_form", "",
					fmt.Errorf("%w: %v", ErrMalformedBody, err))
			}
			values = r.Form

		case "multipart/form-data":
			if !validateBoundary(params["boundary"]) {
				return newError(http.StatusBadRequest, "malformed_form", "",
					fmt.Errorf("%w: invalid multipart boundary", ErrMalformedBody))
			}
			if err := r.ParseMultipartForm(DefaultMaxFormMemory); err != nil {
				return newError(http.StatusBadRequest, "malformed_form", "",
					fmt.Errorf("%w: %v", ErrMalformedBody, err))
			}
			if r.MultipartForm != nil {
				values = r.MultipartForm.Value
				files = r.MultipartForm.File
			} else {
				values = make(map[string][]string)
			}

		default:
			return newError(http.StatusBadRequest, "unsupported_media_type", "",
				fmt.Errorf("%w: got %q, expected form content", ErrUnsupportedMediaType, mediaType))
		}

		if err := bindValues(v, "form", "invalid_form_field", values); err != nil {
			return err
		}
		return bindFiles(v, files)
	}
}

// bindFiles binds uploaded file headers into fields tagged `file:"name"`.
func bindFiles(v any, files map[string][]*multipart.FileHeader) error {
	if files == nil {
		return nil
	}

	rv, err := targetStruct(v)
	if err != nil {
		return err
	}
	rt := rv.Type()

	for i := range rv.NumField() {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}

		ft, ok := parseFieldTag(rt.Field(i), "file")
		if !ok {
			continue
		}

		headers, exists := files[ft.name]
		if !exists || len(headers) == 0 {
			if ft.required {
				return newError(http.StatusBadRequest, "missing_file", ft.name, ErrMissingValue)
			}
			continue
		}

		if err := setFileField(field, rt.Field(i).Type, headers); err != nil {
			return newError(http.StatusBadRequest, "invalid_file_field", ft.name, err)
		}
	}

	return nil
}

// setFileField assigns file headers to a field of type *multipart.FileHeader
// or []*multipart.FileHeader.
func setFileField(field reflect.Value, fieldType reflect.Type, headers []*multipart.FileHeader) error {
	for _, fh := range headers {
		fh.Filename = sanitizeFilename(fh.Filename)
	}

	headerType := reflect.TypeOf((*multipart.FileHeader)(nil))

	if fieldType.Kind() == reflect.Slice {
		if fieldType.Elem() != headerType {
			return fmt.Errorf("unsupported slice element type for file field: %v", fieldType.Elem())
		}
		slice := reflect.MakeSlice(fieldType, len(headers), len(headers))
		for i, fh := range headers {
			slice.Index(i).Set(reflect.ValueOf(fh))
		}
		field.Set(slice)
		return nil
	}

	if fieldType != headerType {
		return fmt.Errorf("unsupported type for file field: %v", fieldType)
	}
	field.Set(reflect.ValueOf(headers[0]))
	return nil
}

// sanitizeFilename strips directory components and NUL bytes from uploaded
// filenames to prevent path traversal.
func sanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}
	return filename
}
