// registry-stub serves the in-process lobby registry over HTTP for local
// development: real challenge-response auth, real lobby rules, no durability.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchlobby/go-client/internal/platform/privacylog"
	"matchlobby/go-client/internal/registrytest"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	addr := flag.String("addr", "127.0.0.1:3536", "listen address")
	secret := flag.String("secret", "", "token signing secret (random when empty)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("registry-stub version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	log := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, nil)))
	signingSecret := *secret
	if signingSecret == "" {
		signingSecret = privacylog.FingerprintID("registry-stub-" + time.Now().String())
		log.Warn("no signing secret given; tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           registrytest.New(signingSecret, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("registry-stub listening", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("registry-stub failed", "error", err)
		os.Exit(1)
	}
	log.Info("registry-stub stopped")
}
