// Package app wires together configuration, the API client, and the local
// store into a single Deps struct that commands receive at runtime.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/eas/auth"
	"github.com/zepben/eas-go/internal/config"
	"github.com/zepben/eas-go/internal/store"
)

// Deps holds all runtime dependencies injected into command Run functions.
// Client is built eagerly; Store is opened on demand via RequireStore.
type Deps struct {
	Config *config.Config
	Client *eas.Client
	Store  *store.Store
}

// New builds a Deps from resolved config. The config must already have
// passed Validate.
func New(cfg *config.Config) (*Deps, error) {
	clientCfg := eas.ClientConfig{
		Host:              cfg.Host,
		Port:              cfg.Port,
		Protocol:          cfg.Protocol,
		VerifyCertificate: cfg.VerifyCert,
		CAFilename:        cfg.CAFile,
		Timeout:           cfg.Timeout,
		Logger:            buildLogger(cfg),
	}

	switch {
	case cfg.AccessToken != "":
		clientCfg.AccessToken = cfg.AccessToken
	case cfg.HasCredentials():
		clientCfg.Credentials = &auth.Credentials{
			ClientID:      cfg.ClientID,
			ClientSecret:  cfg.ClientSecret,
			Username:      cfg.Username,
			Password:      cfg.Password,
			TokenEndpoint: cfg.TokenEndpoint,
			Audience:      cfg.Audience,
		}
	}

	client, err := eas.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}
	return &Deps{
		Config: cfg,
		Client: client,
	}, nil
}

// RequireStore opens the local database if it is not open yet.
func (d *Deps) RequireStore() error {
	if d.Store != nil {
		return nil
	}
	if d.Config.DBPath == "" {
		return fmt.Errorf("no database path configured (set EASCTL_DB_PATH or db_path in config.json)")
	}
	s, err := store.Open(d.Config.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	d.Store = s
	return nil
}

// Close releases the store, if open. Safe to call multiple times.
func (d *Deps) Close() {
	if d.Store != nil {
		_ = d.Store.Close()
		d.Store = nil
	}
}

// buildLogger returns a logger honouring --debug; otherwise logging stays
// at warn so request debug lines stay out of normal output.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
