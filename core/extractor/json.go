package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize is the default ceiling for JSON request bodies (1MB).
const DefaultMaxJSONSize = 1 << 20

// JSON returns an extractor that decodes an application/json body into the
// target with the default size ceiling.
func JSON() Extractor {
	return JSONWithLimit(DefaultMaxJSONSize)
}

// JSONWithLimit decodes an application/json body into the target. The
// Content-Type must be application/json; anything else is rejected before
// the body is touched. Decoding is strict: unknown fields, trailing data,
// and empty bodies are all client errors. The extractor consumes the body,
// so it must be the only body-consuming extractor on the request.
func JSONWithLimit(maxSize int64) Extractor {
	return func(r *http.Request, v any) error {
		if bodyConsumed(r) {
			return errBodyAlreadyConsumed()
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return newError(http.StatusBadRequest, "missing_content_type", "", ErrMissingContentType)
		}

		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return newError(http.StatusBadRequest, "unsupported_media_type", "",
				fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, contentType))
		}

		if err := ClaimBody(r); err != nil {
			return err
		}

		// Read one extra byte past the ceiling so oversized bodies are
		// distinguishable from exactly-full ones.
		body, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
		if err != nil {
			return newError(http.StatusBadRequest, "unreadable_body", "",
				fmt.Errorf("%w: %v", ErrMalformedBody, err))
		}
		if int64(len(body)) > maxSize {
			return newError(http.StatusRequestEntityTooLarge, "request_too_large", "", ErrRequestTooLarge)
		}
		if len(body) == 0 {
			return newError(http.StatusBadRequest, "empty_body", "",
				fmt.Errorf("%w: empty body", ErrMalformedBody))
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(v); err != nil {
			return newError(http.StatusBadRequest, "malformed_json", "",
				fmt.Errorf("%w: %v", ErrMalformedBody, err))
		}

		// Reject trailing data after the JSON document.
		var extra json.RawMessage
		if err := decoder.Decode(&extra); err != io.EOF {
			return newError(http.StatusBadRequest, "malformed_json", "",
				fmt.Errorf("%w: unexpected data after JSON document", ErrMalformedBody))
		}

		sanitizeDecoded(v)
		return nil
	}
}
