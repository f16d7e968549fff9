// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Proxima serves a multi-language conversation as plain server-rendered HTML.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeberg.org/proxima/proxima/config"
	"codeberg.org/proxima/proxima/core/audit"
	"codeberg.org/proxima/proxima/core/content"
	"codeberg.org/proxima/proxima/core/content/seed"
	"codeberg.org/proxima/proxima/core/imagecache"
	"codeberg.org/proxima/proxima/core/provider"
	"codeberg.org/proxima/proxima/core/session"
	"codeberg.org/proxima/proxima/core/translations"
	"codeberg.org/proxima/proxima/server/router"
	"codeberg.org/proxima/proxima/server/routes"
)

// http.Server timeouts (gosec G112).
const (
	readHeaderTimeout = 15 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 30 * time.Second

	shutdownDeadline = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run serves until ctx is cancelled, then shuts the server down gracefully.
func run(ctx context.Context) error {
	audit.SetDefaultLogger()

	if err := config.Global.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := translations.Open(ctx, config.Global.Content.TranslationStore, config.Global.TranslationStoreLocation())
	if err != nil {
		return fmt.Errorf("failed to open translation store: %w", err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Err(err).Msg("Failed to close translation store")
		}
	}()

	contentProvider, err := setupProvider(store)
	if err != nil {
		return err
	}

	sessions := session.NewStore()

	mux := router.NewRouter()
	mux.DefineRoutes(routes.New(contentProvider))
	mux.RegisterMiddleware(sessions)

	listener, err := listen(ctx)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownDeadline)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().
		Int("sessions", sessions.Len()).
		Msg("Server exited gracefully")

	return nil
}

// setupProvider builds the content provider described by config.Global:
// seed messages, the image source, the optional image cache and tracing.
func setupProvider(store translations.Store) (content.Provider, error) {
	cfg := config.Global.Content

	messages := seed.Demo()

	if cfg.SeedFile != "" {
		var err error

		messages, err = seed.Load(cfg.SeedFile)
		if err != nil {
			return nil, err
		}
	}

	var images provider.Images = provider.StaticImages{seed.DemoImageID: seed.DemoImage()}
	if cfg.ImageDir != "" {
		images = provider.DirImages{Dir: cfg.ImageDir, Fallback: images}
	}

	var p content.Provider = provider.New(messages, store, images,
		provider.WithMaxTranslationLength(cfg.MaxTranslationLength))

	if config.Global.Cache.Enabled {
		cached, err := imagecache.Wrap(p, config.Global.Cache.Size, config.Global.Cache.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create image cache: %w", err)
		}

		p = cached
	}

	log.Info().
		Int("messages", len(messages)).
		Str("translation_store", cfg.TranslationStore).
		Bool("image_cache", config.Global.Cache.Enabled).
		Msg("Loaded conversation")

	return provider.Trace(p), nil
}
