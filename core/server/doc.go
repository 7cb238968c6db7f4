// Package server wraps net/http's server with graceful shutdown,
// environment-driven configuration, and optional TLS.
//
// Basic usage:
//
//	var cfg server.Config
//	config.MustLoad(&cfg)
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		log.Error("server config", "error", err)
//		os.Exit(1)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	if err := srv.Start(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
//		log.Error("server", "error", err)
//	}
//	srv.Stop()
//
// Run returns an errgroup-compatible closure for applications coordinating
// several long-running components.
package server
