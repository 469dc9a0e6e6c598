// Package main implements the SSH server that serves the Hemline storefront.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"

	"github.com/hemline/hemline-terminal/internal/api"
	"github.com/hemline/hemline-terminal/internal/auth"
	"github.com/hemline/hemline-terminal/internal/cache"
	"github.com/hemline/hemline-terminal/internal/config"
	"github.com/hemline/hemline-terminal/internal/store"
	"github.com/hemline/hemline-terminal/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "hemlinessh",
	})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if err := ensureHostKey(logger, cfg.SSHHostKeyPath); err != nil {
		logger.Fatal("Failed to ensure host key", "err", err)
	}

	var allowlist *auth.Allowlist
	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		allowlist, err = auth.Load(cfg.AllowlistPath)
		if err != nil {
			if errors.Is(err, auth.ErrAllowlistNotFound) {
				logger.Info("Creating empty allowlist", "path", cfg.AllowlistPath)
				if err := auth.WriteTemplate(cfg.AllowlistPath); err != nil {
					logger.Fatal("Failed to create allowlist", "err", err)
				}
				logger.Fatal("Add your SSH public key to the allowlist and restart")
			}
			logger.Fatal("Failed to load allowlist", "err", err)
		}
		if allowlist.Len() == 0 {
			logger.Warn("Allowlist is empty, no connections will be accepted", "path", cfg.AllowlistPath)
		}
		logger.Info("Loaded allowlist", "keys", allowlist.Len())
	} else {
		logger.Warn("Running in PUBLIC mode, anyone can connect")
	}

	// One catalog cache shared across sessions; carts are per-session.
	productsCache := cache.New[tui.ProductListKey, []api.Product](cfg.CacheTTL())

	opts := []ssh.Option{
		wish.WithAddress(cfg.SSHAddr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				sessionLog := logger.With("user", s.User(), "remote", s.RemoteAddr().String())
				sessionLog.Info("session started")

				clientOpts := []api.ClientOption{}
				if cfg.SessionToken != "" {
					clientOpts = append(clientOpts, api.WithSession(cfg.SessionToken))
				}
				client := api.NewClient(cfg.BackendBaseURL, clientOpts...)
				cartStore := store.New(client, sessionLog)

				model := tui.NewModel(client, cartStore, productsCache, sessionLog)
				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
		),
	}

	if cfg.SSHAuthMode == config.AuthModeAllowlist {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return allowlist.Contains(key)
		}))
	} else {
		opts = append(opts, wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			return true
		}))
	}

	opts = append(opts, wish.WithPasswordAuth(func(ctx ssh.Context, password string) bool {
		return false
	}))

	server, err := wish.NewServer(opts...)
	if err != nil {
		logger.Fatal("Failed to create SSH server", "err", err)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Starting SSH server",
		"addr", cfg.SSHAddr,
		"backend", cfg.BackendBaseURL,
		"auth", cfg.SSHAuthMode)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Fatal("Server error", "err", err)
		}
	}()

	<-done
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Shutdown error", "err", err)
	}
}

// ensureHostKey generates an ED25519 host key if it doesn't exist.
func ensureHostKey(logger *log.Logger, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	logger.Info("Generating new ED25519 host key", "path", path)

	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	sshPrivKey, err := gossh.MarshalPrivateKey(privKey, "")
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}

	if err := os.WriteFile(path, pem.EncodeToMemory(sshPrivKey), 0600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}

	sshPubKey, err := gossh.NewPublicKey(pubKey)
	if err != nil {
		return fmt.Errorf("creating public key: %w", err)
	}
	if err := os.WriteFile(path+".pub", gossh.MarshalAuthorizedKey(sshPubKey), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	return nil
}
