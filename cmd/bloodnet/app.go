package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/auth"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/client"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/composer"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/config"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/feed"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/logger"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/session"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/shell"
)

// app wires the client components for one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage session.Storage

	store    *session.Store
	auth     *auth.Service
	feed     *feed.Feed
	composer *composer.Composer
	shell    *shell.Shell

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
	json   bool
}

func newApp(ctx context.Context, opts globalOptions, stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(cfg.Log,
		logger.WithVerbose(opts.verbose),
		logger.WithFields(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	storage, err := session.NewStorageFactory(*cfg,
		session.WithLogger(logger.Named(log, "session")),
	).CreateStorage(ctx)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(storage, logger.Named(log, "session"))
	if _, err := store.Restore(ctx); err != nil {
		log.Warn("could not restore session", zap.Error(err))
	}

	httpClient, err := client.NewClient(cfg.API, client.WithLogger(logger.Named(log, "client")))
	if err != nil {
		return nil, err
	}
	api := client.NewAPI(httpClient)

	return &app{
		cfg:      cfg,
		logger:   log,
		storage:  storage,
		store:    store,
		auth:     auth.NewService(api, store, logger.Named(log, "auth")),
		feed:     feed.New(api, store, logger.Named(log, "feed")),
		composer: composer.New(api, store, logger.Named(log, "composer")),
		shell:    shell.New(store, logger.Named(log, "shell")),
		in:       bufio.NewReader(stdin),
		out:      stdout,
		errOut:   stderr,
		json:     opts.jsonOutput,
	}, nil
}

func (a *app) close() {
	if closer, ok := a.storage.(io.Closer); ok {
		_ = closer.Close()
	}
	_ = logger.Sync(a.logger)
}

// withUser tags ctx with the session's user id so backend call logs carry it.
func (a *app) withUser(ctx context.Context) context.Context {
	return logger.WithUserID(ctx, a.store.Current().UserID)
}

// emit prints v as JSON in -json mode, otherwise calls text.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.out)
	return nil
}

func (a *app) printError(err error) {
	var de *domain.Error
	if a.json {
		if !errors.As(err, &de) {
			de = &domain.Error{Message: err.Error()}
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"error": de})
		return
	}
	fmt.Fprintf(a.errOut, "Error: %v\n", err)
}

// prompt writes label and reads one line from stdin.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.errOut, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
