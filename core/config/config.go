package config

import (
	"fmt"
	"reflect"
	"sync"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.Mutex
	cache   = make(map[reflect.Type]any)

	loadDotenv sync.Once
)

// Load populates cfg from environment variables using `env` struct tags.
// The first call for a given type parses the environment; later calls for
// the same type return the cached value. A .env file in the working
// directory is loaded once before the first parse, without overriding
// variables already set in the process environment.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("config: nil target")
	}

	loadDotenv.Do(func() {
		// Missing .env is the normal production case, not an error.
		_ = godotenv.Load()
	})

	t := reflect.TypeOf(*cfg)

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[t]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", t, err)
	}

	cache[t] = *cfg
	return nil
}

// MustLoad is Load for application startup: it panics on failure.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
