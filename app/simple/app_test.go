package simple_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhttp/quiver/app/simple"
	"github.com/quiverhttp/quiver/core/extractor"
	"github.com/quiverhttp/quiver/core/handler"
	"github.com/quiverhttp/quiver/core/response"
	"github.com/quiverhttp/quiver/core/router"
	"github.com/quiverhttp/quiver/core/state"
)

type greeter struct {
	greeting string
}

func TestApp(t *testing.T) {
	t.Setenv("APP_NAME", "demo")
	t.Setenv("APP_ENV", "development")

	app, err := simple.NewApp()
	require.NoError(t, err)
	require.NotNil(t, app.Router())

	assert.Equal(t, "demo", app.Config().AppName)

	state.Register(app.State(), &greeter{greeting: "hello"})

	app.Router().Get("/greet/{name}", func(ctx *simple.Context) handler.Response {
		var req struct {
			Name    string   `path:"name"`
			Greeter *greeter `state:"inject"`
		}
		if err := extractor.Apply(ctx.Request(), &req,
			extractor.Path(router.URLParam),
			extractor.State(),
		); err != nil {
			return response.Error(err)
		}
		return response.String(req.Greeter.greeting + ", " + req.Name)
	})

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/greet/ann", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "hello, ann", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAppContextEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	app, err := simple.NewApp()
	require.NoError(t, err)

	app.Router().Get("/", func(ctx *simple.Context) handler.Response {
		assert.True(t, ctx.IsDevelopment())
		return response.String(ctx.Env())
	})

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, "development", rec.Body.String())
}
