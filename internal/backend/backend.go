// Package backend builds the ledger implementation selected by config.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"finanzas/internal/analytics"
	"finanzas/internal/config"
	"finanzas/internal/ledger"
	"finanzas/internal/ledger/memory"
)

// BackendType represents the type of ledger backend
type BackendType string

const (
	RemoteBackend BackendType = config.BackendRemote
	MemoryBackend BackendType = config.BackendMemory
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote specific
	BaseURL  string
	Token    string
	Username string
	Password string
	Timeout  time.Duration

	// Memory specific
	SeedFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	bt := BackendType(appConfig.LedgerBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}
	return Config{
		Type:     bt,
		BaseURL:  appConfig.LedgerBaseURL,
		Token:    appConfig.LedgerToken,
		Username: appConfig.LedgerUsername,
		Password: appConfig.LedgerPassword,
		Timeout:  appConfig.LedgerTimeout,
		SeedFile: appConfig.LedgerSeedFile,
	}, nil
}

// Factory creates ledgers based on configuration
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create returns the configured ledger. With credentials set, the remote
// client logs in up front and again whenever its token expires, so
// background jobs can read without a user session.
func (f *Factory) Create(ctx context.Context, cfg Config) (ledger.Ledger, error) {
	switch cfg.Type {
	case RemoteBackend:
		return f.createRemote(ctx, cfg)
	case MemoryBackend:
		return f.createMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *Factory) createRemote(ctx context.Context, cfg Config) (ledger.Ledger, error) {
	lcfg := ledger.Config{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.Timeout,
	}
	if cfg.Username != "" {
		lcfg.Credentials = &ledger.Credentials{Username: cfg.Username, Password: cfg.Password}
	}
	client := ledger.NewClient(lcfg)
	if lcfg.Credentials != nil {
		s, err := client.Login(ctx, *lcfg.Credentials)
		if err != nil {
			return nil, fmt.Errorf("ledger login as %s: %w", cfg.Username, err)
		}
		f.logger.Info("Logged in to ledger", "subject", s.Subject, "expires_at", s.ExpiresAt)
	}
	f.logger.Info("Initialized remote ledger", "base_url", client.BaseURL(), "authenticated", client.Token() != "")
	return client, nil
}

func (f *Factory) createMemory(cfg Config) (ledger.Ledger, error) {
	store, err := memory.NewFromFile(cfg.SeedFile)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("Ledger seed not found, starting empty", "seed_file", cfg.SeedFile)
		store = memory.New(analytics.Collections{})
	} else if err != nil {
		return nil, fmt.Errorf("failed to initialize memory ledger: %w", err)
	}
	if cfg.Username != "" {
		store.WithCredentials(cfg.Username, cfg.Password)
	}
	f.logger.Info("Initialized memory ledger", "seed_file", cfg.SeedFile)
	return store, nil
}
