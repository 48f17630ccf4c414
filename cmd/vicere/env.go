package main

import (
	"log/slog"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/example/vicere/internal/config"
	"github.com/example/vicere/internal/session"
	"github.com/example/vicere/internal/store"
	"github.com/example/vicere/internal/wp"
)

// env is what every command needs: configuration, the backend client and,
// for session commands, the store and manager.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	client  *wp.Client
	store   store.Backend
	manager *session.Manager
}

func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("closing store", slog.Any("error", err))
		}
	}
}

func newLogger(c *cli.Context, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case c.Bool(flagVerbose):
		level = slog.LevelDebug
	case os.Getenv("LOG_LEVEL") != "":
		level = cfg.SlogLevel()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func getClient(c *cli.Context) (*env, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, errors.Wrap(err, "error reading configuration")
	}
	logger := newLogger(c, cfg)

	opts := wp.Options{
		BaseURL: cfg.BaseURL,
		APIURL:  cfg.APIURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	}
	if cfg.ConsumerKey != "" {
		opts.Auth = &wp.BasicAuth{Username: cfg.ConsumerKey, Password: cfg.ConsumerSecret}
	}
	return &env{cfg: cfg, log: logger, client: wp.New(opts)}, nil
}

// getManager opens the configured store and builds a session manager.
func getManager(c *cli.Context) (*env, error) {
	e, err := getClient(c)
	if err != nil {
		return nil, err
	}
	if e.cfg.StoreAdapter == "sqlite" && e.cfg.SQLiteFile == "" {
		home, err := getVicereHome()
		if err != nil {
			return nil, err
		}
		e.cfg.SQLiteFile = path.Join(home, "session.db")
	}
	st, err := store.Open(e.cfg, c.String(flagMigrations))
	if err != nil {
		return nil, errors.Wrap(err, "error opening session store")
	}
	e.store = st
	e.manager = session.NewManager(st, e.client, session.WithLogger(e.log))
	return e, nil
}

func getVicereHome() (string, error) {
	homeDir, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error locating user's home directory")
	}
	return path.Join(homeDir, ".vicere"), nil
}
