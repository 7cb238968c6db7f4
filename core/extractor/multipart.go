package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
)

// Multipart limit defaults. They bound worst-case memory and disk usage for
// a single request while staying permissive enough for typical uploads.
const (
	DefaultMaxRequestSize  = 32 << 20 // 32 MB whole body
	DefaultMaxFieldSize    = 10 << 20 // 10 MB per field
	DefaultMaxFields       = 1000
	DefaultMemoryThreshold = 256 << 10 // 256 KB before spilling to disk
)

// MultipartConfig bounds a streaming multipart read. Zero values fall back
// to the package defaults.
type MultipartConfig struct {
	// MaxRequestSize caps the total body size in bytes.
	MaxRequestSize int64
	// MaxFieldSize caps each field's content size in bytes.
	MaxFieldSize int64
	// MaxFields caps how many fields the reader will iterate.
	MaxFields int
	// MemoryThreshold is the field size above which content moves from an
	// in-memory buffer to a temporary file.
	MemoryThreshold int64
}

func (c MultipartConfig) withDefaults() MultipartConfig {
	if c.MaxRequestSize <= 0 {
		c.MaxRequestSize = DefaultMaxRequestSize
	}
	if c.MaxFieldSize <= 0 {
		c.MaxFieldSize = DefaultMaxFieldSize
	}
	if c.MaxFields <= 0 {
		c.MaxFields = DefaultMaxFields
	}
	if c.MemoryThreshold <= 0 {
		c.MemoryThreshold = DefaultMemoryThreshold
	}
	return c
}

// Field is one multipart field produced by the streaming reader. Small
// fields live in memory; fields over the configured threshold are backed by
// a temporary file that MultipartReader.Close removes.
type Field struct {
	// Name is the form field name.
	Name string
	// Filename is the sanitized client filename, empty for value fields.
	Filename string
	// ContentType is the part's declared content type, if any.
	ContentType string

	data    []byte
	tmpPath string
	size    int64
}

// IsFile reports whether the field arrived as a file part.
func (f *Field) IsFile() bool {
	return f.Filename != ""
}

// Size returns the field content size in bytes.
func (f *Field) Size() int64 {
	return f.size
}

// Open returns a reader over the field content. Each call returns an
// independent reader positioned at the start.
func (f *Field) Open() (io.ReadCloser, error) {
	if f.tmpPath == "" {
		return io.NopCloser(bytes.NewReader(f.data)), nil
	}
	return os.Open(f.tmpPath)
}

// Bytes returns the full field content. For spilled fields this reads the
// backing file, so prefer Open for large content.
func (f *Field) Bytes() ([]byte, error) {
	if f.tmpPath == "" {
		return f.data, nil
	}
	return os.ReadFile(f.tmpPath)
}

// errBodyLimit marks reads past the whole-request ceiling so they are
// distinguishable from ordinary read failures.
var errBodyLimit = errors.New("multipart body limit reached")

// limitedBody fails the stream once more than max bytes were read.
type limitedBody struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.read > l.max {
		return 0, errBodyLimit
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, errBodyLimit
	}
	return n, err
}

// MultipartReader iterates the fields of a multipart/form-data body without
// buffering the whole body. Limits are enforced as soon as they are
// crossed: the reader fails mid-stream rather than after the fact.
type MultipartReader struct {
	mr     *multipart.Reader
	cfg    MultipartConfig
	count  int
	failed error
	fields []*Field
}

// Multipart opens a streaming reader over the request's multipart body.
// The extractor consumes the body; it must be the only body-consuming
// extractor on the request. Callers must Close the reader to release any
// temporary files, typically with defer.
func Multipart(r *http.Request, cfg MultipartConfig) (*MultipartReader, error) {
	cfg = cfg.withDefaults()

	if bodyConsumed(r) {
		return nil, errBodyAlreadyConsumed()
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return nil, newError(http.StatusBadRequest, "missing_content_type", "", ErrMissingContentType)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return nil, newError(http.StatusBadRequest, "unsupported_media_type", "",
			fmt.Errorf("%w: got %q, expected multipart/form-data", ErrUnsupportedMediaType, contentType))
	}
	if !validateBoundary(params["boundary"]) {
		return nil, newError(http.StatusBadRequest, "malformed_multipart", "",
			fmt.Errorf("%w: invalid multipart boundary", ErrMalformedBody))
	}

	if err := ClaimBody(r); err != nil {
		return nil, err
	}

	body := &limitedBody{r: r.Body, max: cfg.MaxRequestSize}
	return &MultipartReader{
		mr:  multipart.NewReader(body, params["boundary"]),
		cfg: cfg,
	}, nil
}

// Next returns the next field, or io.EOF when the form is exhausted. Once
// Next returns a non-EOF error the reader is failed and every later call
// returns the same error.
func (m *MultipartReader) Next() (*Field, error) {
	if m.failed != nil {
		return nil, m.failed
	}

	if m.count >= m.cfg.MaxFields {
		return nil, m.fail(newError(http.StatusBadRequest, "too_many_fields", "", ErrTooManyFields))
	}

	part, err := m.mr.NextPart()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, errBodyLimit) {
			return nil, m.fail(newError(http.StatusRequestEntityTooLarge, "request_too_large", "", ErrRequestTooLarge))
		}
		return nil, m.fail(newError(http.StatusBadRequest, "malformed_multipart", "",
			fmt.Errorf("%w: %v", ErrMalformedBody, err)))
	}
	defer part.Close()

	field, err := m.readField(part)
	if err != nil {
		return nil, m.fail(err)
	}

	m.count++
	m.fields = append(m.fields, field)
	return field, nil
}

// Close releases the temporary files behind spilled fields. Fields become
// unreadable afterwards.
func (m *MultipartReader) Close() error {
	var errs []error
	for _, f := range m.fields {
		if f.tmpPath != "" {
			if err := os.Remove(f.tmpPath); err != nil && !os.IsNotExist(err) {
				errs = append(errs, err)
			}
		}
	}
	m.fields = nil
	return errors.Join(errs...)
}

func (m *MultipartReader) fail(err error) error {
	m.failed = err
	return err
}

// readField reads one part's content, buffering in memory up to the
// threshold and spilling to a temporary file beyond it. The per-field
// ceiling is enforced during the copy, so an oversized field fails without
// ever being fully stored.
func (m *MultipartReader) readField(part *multipart.Part) (*Field, error) {
	field := &Field{
		Name:        part.FormName(),
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
	}
	if field.Filename != "" {
		field.Filename = sanitizeFilename(field.Filename)
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, part, m.cfg.MemoryThreshold+1)
	if err != nil && err != io.EOF {
		return nil, m.copyError(field.Name, err)
	}
	if n > m.cfg.MaxFieldSize {
		return nil, newError(http.StatusRequestEntityTooLarge, "field_too_large", field.Name, ErrFieldTooLarge)
	}

	if n <= m.cfg.MemoryThreshold {
		field.data = buf.Bytes()
		field.size = n
		return field, nil
	}

	tmp, err := os.CreateTemp("", "quiver-multipart-*")
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "multipart_spill_failed", field.Name, err)
	}
	field.tmpPath = tmp.Name()

	spillFail := func(err error) (*Field, error) {
		tmp.Close()
		os.Remove(field.tmpPath)
		field.tmpPath = ""
		return nil, err
	}

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return spillFail(newError(http.StatusInternalServerError, "multipart_spill_failed", field.Name, err))
	}

	rest, err := io.CopyN(tmp, part, m.cfg.MaxFieldSize-n+1)
	if err != nil && err != io.EOF {
		return spillFail(m.copyError(field.Name, err))
	}
	if n+rest > m.cfg.MaxFieldSize {
		return spillFail(newError(http.StatusRequestEntityTooLarge, "field_too_large", field.Name, ErrFieldTooLarge))
	}

	if err := tmp.Close(); err != nil {
		os.Remove(field.tmpPath)
		field.tmpPath = ""
		return nil, newError(http.StatusInternalServerError, "multipart_spill_failed", field.Name, err)
	}

	field.size = n + rest
	return field, nil
}

// copyError maps a mid-field read failure onto the limit that caused it.
func (m *MultipartReader) copyError(fieldName string, err error) error {
	if errors.Is(err, errBodyLimit) {
		return newError(http.StatusRequestEntityTooLarge, "request_too_large", fieldName, ErrRequestTooLarge)
	}
	return newError(http.StatusBadRequest, "malformed_multipart", fieldName,
		fmt.Errorf("%w: %v", ErrMalformedBody, err))
}
