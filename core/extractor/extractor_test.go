package extractor_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhttp/quiver/core/extractor"
	"github.com/quiverhttp/quiver/core/state"
)

// requireExtractError asserts the error is an extraction failure with the
// given status and code.
func requireExtractError(t *testing.T, err error, status int, code string) *extractor.Error {
	t.Helper()
	var exErr *extractor.Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, status, exErr.StatusCode())
	assert.Equal(t, code, exErr.ErrorCode())
	return exErr
}

func TestApplyFailFast(t *testing.T) {
	t.Parallel()

	var ran []string
	ok := func(name string) extractor.Extractor {
		return func(r *http.Request, v any) error {
			ran = append(ran, name)
			return nil
		}
	}
	failing := func(r *http.Request, v any) error {
		ran = append(ran, "failing")
		return errors.New("boom")
	}

	req := httptest.NewRequest("GET", "/", nil)
	var target struct{}
	err := extractor.Apply(req, &target, ok("a"), failing, ok("c"))

	require.Error(t, err)
	assert.Equal(t, []string{"a", "failing"}, ran, "extractors after the failure must not run")
}

func TestApplySkipsNilExtractors(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/", nil)
	var target struct{}
	assert.NoError(t, extractor.Apply(req, &target, nil, nil))
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type searchQuery struct {
		Term    string   `query:"q"`
		Page    int      `query:"page"`
		Active  bool     `query:"active"`
		Tags    []string `query:"tags"`
		Ignored string
	}

	t.Run("binds typed fields", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/?q=golang&page=3&active=true&tags=a&tags=b,c", nil)
		var q searchQuery
		require.NoError(t, extractor.Query()(req, &q))

		assert.Equal(t, "golang", q.Term)
		assert.Equal(t, 3, q.Page)
		assert.True(t, q.Active)
		assert.Equal(t, []string{"a", "b", "c"}, q.Tags)
		assert.Empty(t, q.Ignored)
	})

	t.Run("absent optional values keep zero values", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/?q=x", nil)
		var q searchQuery
		require.NoError(t, extractor.Query()(req, &q))
		assert.Zero(t, q.Page)
	})

	t.Run("unparsable value names the source field", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/?page=nope", nil)
		var q searchQuery
		err := extractor.Query()(req, &q)

		exErr := requireExtractError(t, err, http.StatusBadRequest, "invalid_query_parameter")
		assert.Equal(t, "page", exErr.Field)
	})

	t.Run("missing required value is rejected", func(t *testing.T) {
		t.Parallel()

		var q struct {
			Term string `query:"q,required"`
		}
		req := httptest.NewRequest("GET", "/", nil)
		err := extractor.Query()(req, &q)

		requireExtractError(t, err, http.StatusBadRequest, "missing_query")
		assert.ErrorIs(t, err, extractor.ErrMissingValue)
	})

	t.Run("non-struct target is an internal error", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		var s string
		err := extractor.Query()(req, &s)

		requireExtractError(t, err, http.StatusInternalServerError, "invalid_target")
		assert.ErrorIs(t, err, extractor.ErrInvalidTarget)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	lookup := func(params map[string]string) extractor.ParamLookup {
		return func(r *http.Request, key string) string {
			return params[key]
		}
	}

	t.Run("binds and converts parameters", func(t *testing.T) {
		t.Parallel()

		var target struct {
			ID   uint32 `path:"id"`
			Slug string `path:"slug"`
		}
		req := httptest.NewRequest("GET", "/items/7/intro", nil)
		err := extractor.Path(lookup(map[string]string{"id": "7", "slug": "intro"}))(req, &target)

		require.NoError(t, err)
		assert.Equal(t, uint32(7), target.ID)
		assert.Equal(t, "intro", target.Slug)
	})

	t.Run("non-numeric value for numeric field is a client error", func(t *testing.T) {
		t.Parallel()

		var target struct {
			ID uint32 `path:"id"`
		}
		req := httptest.NewRequest("GET", "/items/abc", nil)
		err := extractor.Path(lookup(map[string]string{"id": "abc"}))(req, &target)

		exErr := requireExtractError(t, err, http.StatusBadRequest, "invalid_path_parameter")
		assert.Equal(t, "id", exErr.Field)
	})

	t.Run("undeclared parameter keeps zero value", func(t *testing.T) {
		t.Parallel()

		var target struct {
			Missing string `path:"missing"`
		}
		req := httptest.NewRequest("GET", "/items", nil)
		require.NoError(t, extractor.Path(lookup(nil))(req, &target))
		assert.Empty(t, target.Missing)
	})
}

func TestHeader(t *testing.T) {
	t.Parallel()

	var target struct {
		Trace  string `header:"X-Trace-ID"`
		Agent  string `header:"User-Agent"`
		APIKey string `header:"X-API-Key,required"`
	}

	t.Run("binds present headers", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Trace-ID", "t-1")
		req.Header.Set("User-Agent", "quiver-test")
		req.Header.Set("X-API-Key", "secret")

		tv := target
		require.NoError(t, extractor.Header()(req, &tv))
		assert.Equal(t, "t-1", tv.Trace)
		assert.Equal(t, "quiver-test", tv.Agent)
	})

	t.Run("missing required header is rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		tv := target
		err := extractor.Header()(req, &tv)
		requireExtractError(t, err, http.StatusBadRequest, "missing_header")
	})
}

func TestCookie(t *testing.T) {
	t.Parallel()

	var target struct {
		Session string `cookie:"session_id"`
		Theme   string `cookie:"theme"`
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "s-42"})

	tv := target
	require.NoError(t, extractor.Cookie()(req, &tv))
	assert.Equal(t, "s-42", tv.Session)
	assert.Empty(t, tv.Theme)
}

type createItemRequest struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func jsonRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest("POST", "/items", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("decodes a valid body", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"widget","count":3}`, "application/json"), &target)

		require.NoError(t, err)
		assert.Equal(t, "widget", target.Name)
		assert.Equal(t, 3, target.Count)
	})

	t.Run("accepts media type parameters", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"x"}`, "application/json; charset=utf-8"), &target)
		require.NoError(t, err)
	})

	t.Run("missing content type is rejected before reading", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"x"}`, ""), &target)

		requireExtractError(t, err, http.StatusBadRequest, "missing_content_type")
		assert.ErrorIs(t, err, extractor.ErrMissingContentType)
	})

	t.Run("wrong content type is rejected before reading", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"x"}`, "text/plain"), &target)

		requireExtractError(t, err, http.StatusBadRequest, "unsupported_media_type")
		assert.ErrorIs(t, err, extractor.ErrUnsupportedMediaType)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"x","bogus":1}`, "application/json"), &target)
		requireExtractError(t, err, http.StatusBadRequest, "malformed_json")
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"x"}{"name":"y"}`, "application/json"), &target)
		requireExtractError(t, err, http.StatusBadRequest, "malformed_json")
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(``, "application/json"), &target)
		requireExtractError(t, err, http.StatusBadRequest, "empty_body")
	})

	t.Run("oversized body is 413", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		body := `{"name":"` + strings.Repeat("a", 100) + `"}`
		err := extractor.JSONWithLimit(10)(jsonRequest(body, "application/json"), &target)

		requireExtractError(t, err, http.StatusRequestEntityTooLarge, "request_too_large")
		assert.ErrorIs(t, err, extractor.ErrRequestTooLarge)
	})

	t.Run("decoded strings are sanitized", func(t *testing.T) {
		t.Parallel()

		var target createItemRequest
		err := extractor.JSON()(jsonRequest(`{"name":"wid\u0000get\r\n"}`, "application/json"), &target)

		require.NoError(t, err)
		assert.Equal(t, "widget", target.Name)
	})
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("binds urlencoded fields", func(t *testing.T) {
		t.Parallel()

		var target struct {
			Name  string `form:"name"`
			Count int    `form:"count"`
		}
		form := url.Values{"name": {"widget"}, "count": {"5"}}
		req := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		require.NoError(t, extractor.Form()(req, &target))
		assert.Equal(t, "widget", target.Name)
		assert.Equal(t, 5, target.Count)
	})

	t.Run("missing required field is rejected", func(t *testing.T) {
		t.Parallel()

		var target struct {
			Name string `form:"name,required"`
		}
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		err := extractor.Form()(req, &target)
		requireExtractError(t, err, http.StatusBadRequest, "missing_form")
	})

	t.Run("unsupported media type is rejected", func(t *testing.T) {
		t.Parallel()

		var target struct{}
		req := httptest.NewRequest("POST", "/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")

		err := extractor.Form()(req, &target)
		requireExtractError(t, err, http.StatusBadRequest, "unsupported_media_type")
	})
}

func TestBodyConsumedOnce(t *testing.T) {
	t.Parallel()

	t.Run("second body claim is an internal error", func(t *testing.T) {
		t.Parallel()

		req := jsonRequest(`{"name":"x"}`, "application/json")
		req = extractor.TrackBody(req)

		var first, second createItemRequest
		require.NoError(t, extractor.JSON()(req, &first))

		err := extractor.JSON()(req, &second)
		requireExtractError(t, err, http.StatusInternalServerError, "body_already_consumed")
		assert.ErrorIs(t, err, extractor.ErrBodyConsumed)
	})

	t.Run("untracked requests are not guarded", func(t *testing.T) {
		t.Parallel()

		req := jsonRequest(`{"name":"x"}`, "application/json")
		var target createItemRequest
		require.NoError(t, extractor.JSON()(req, &target))
	})

	t.Run("consumed body outranks content type validation", func(t *testing.T) {
		t.Parallel()

		// A second body-consuming extractor with a different expected media
		// type must still report the contract violation, not a client error
		// about the content type it would have wanted.
		req := jsonRequest(`{"name":"x"}`, "application/json")
		req = extractor.TrackBody(req)

		var first, second createItemRequest
		require.NoError(t, extractor.JSON()(req, &first))

		err := extractor.Form()(req, &second)
		requireExtractError(t, err, http.StatusInternalServerError, "body_already_consumed")
		assert.ErrorIs(t, err, extractor.ErrBodyConsumed)
	})

	t.Run("tracking twice keeps the same guard", func(t *testing.T) {
		t.Parallel()

		req := jsonRequest(`{"name":"x"}`, "application/json")
		req = extractor.TrackBody(req)
		req = extractor.TrackBody(req)

		require.NoError(t, extractor.ClaimBody(req))
		require.Error(t, extractor.ClaimBody(req))
	})

	t.Run("non-body extractors do not claim", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("POST", "/?q=x", strings.NewReader(`{"name":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req = extractor.TrackBody(req)

		var target struct {
			Q    string `query:"q"`
			Hdr  string `header:"X-H"`
			Body createItemRequest
		}
		require.NoError(t, extractor.Query()(req, &target))
		require.NoError(t, extractor.Header()(req, &target))
		require.NoError(t, extractor.JSON()(req, &target.Body))
	})
}

type notifier interface {
	Notify(msg string) error
}

type emailNotifier struct{}

func (emailNotifier) Notify(string) error { return nil }

func TestState(t *testing.T) {
	t.Parallel()

	type database struct{ dsn string }

	t.Run("injects registered values by type", func(t *testing.T) {
		t.Parallel()

		container := state.NewContainer()
		state.Register(container, &database{dsn: "postgres://"})

		var target struct {
			DB *database `state:"inject"`
		}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(state.NewContext(req.Context(), container))

		require.NoError(t, extractor.State()(req, &target))
		require.NotNil(t, target.DB)
		assert.Equal(t, "postgres://", target.DB.dsn)
	})

	t.Run("resolves interface fields by assignability", func(t *testing.T) {
		t.Parallel()

		container := state.NewContainer()
		state.Register(container, emailNotifier{})

		var target struct {
			N notifier `state:"inject"`
		}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(state.NewContext(req.Context(), container))

		require.NoError(t, extractor.State()(req, &target))
		assert.NotNil(t, target.N)
	})

	t.Run("missing container is an internal error", func(t *testing.T) {
		t.Parallel()

		var target struct {
			DB *database `state:"inject"`
		}
		req := httptest.NewRequest("GET", "/", nil)

		err := extractor.State()(req, &target)
		requireExtractError(t, err, http.StatusInternalServerError, "state_unavailable")
	})

	t.Run("unregistered type is an internal error", func(t *testing.T) {
		t.Parallel()

		container := state.NewContainer()

		var target struct {
			DB *database `state:"inject"`
		}
		req := httptest.NewRequest("GET", "/", nil)
		req = req.WithContext(state.NewContext(req.Context(), container))

		err := extractor.State()(req, &target)
		requireExtractError(t, err, http.StatusInternalServerError, "state_not_registered")
		assert.ErrorIs(t, err, state.ErrNotRegistered)
	})
}
