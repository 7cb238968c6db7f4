package simple

import (
	"github.com/quiverhttp/quiver/core/server"
)

// Config is the application configuration, populated from environment
// variables by config.Load.
type Config struct {
	Server server.Config

	AppName  string `env:"APP_NAME" envDefault:"quiver-app"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}
