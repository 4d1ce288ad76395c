package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/mailfeed/internal/imap"
	"github.com/teemow/mailfeed/internal/logging"
	"github.com/teemow/mailfeed/internal/store"
)

// sessionOpener connects an authenticated IMAP session. Overridable in tests.
type sessionOpener func(creds *imap.Credentials, logger *slog.Logger) (session, error)

type session interface {
	ListFolders() ([]string, error)
	InspectFolder(folder string) (*imap.FolderStatus, error)
	Close() error
}

// Processor opens IMAP sessions for the configured mailbox and runs
// on-demand operations against it: connection tests, folder listing,
// and processing passes over the watched folder.
type Processor struct {
	settings store.SettingsStore
	selector *imap.Selector
	open     sessionOpener
	logger   *slog.Logger
}

// New creates a processor over the stored mailbox settings.
func New(settings store.SettingsStore, selector *imap.Selector, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		settings: settings,
		selector: selector,
		open: func(creds *imap.Credentials, l *slog.Logger) (session, error) {
			return imap.Connect(creds, l)
		},
		logger: logger,
	}
}

// ErrNotConfigured is returned when no IMAP settings have been saved yet.
var ErrNotConfigured = errors.New("imap settings not configured")

func (p *Processor) connect(ctx context.Context) (session, *store.Settings, error) {
	cfg, err := p.settings.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotConfigured
		}
		return nil, nil, err
	}

	creds, err := p.selector.Select(ctx, cfg.IMAPServer, cfg.IMAPUsername, cfg.IMAPPassword)
	if err != nil {
		return nil, nil, err
	}

	sess, err := p.open(creds, p.logger)
	if err != nil {
		return nil, nil, err
	}
	return sess, cfg, nil
}

// TestConnection verifies the mailbox settings by authenticating and
// immediately logging out. It reports the authentication method used.
func (p *Processor) TestConnection(ctx context.Context) (method string, err error) {
	cfg, err := p.settings.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotConfigured
		}
		return "", err
	}

	creds, err := p.selector.Select(ctx, cfg.IMAPServer, cfg.IMAPUsername, cfg.IMAPPassword)
	if err != nil {
		return "", err
	}

	method = "password"
	if creds.UsesOAuth2() {
		method = "oauth2"
	}

	sess, err := p.open(creds, p.logger)
	if err != nil {
		return method, err
	}
	defer sess.Close()

	p.logger.Info("connection test succeeded",
		logging.Operation("imap.test"),
		logging.Server(cfg.IMAPServer),
		logging.UserHash(cfg.IMAPUsername),
		slog.String("auth_method", method),
	)
	return method, nil
}

// ListFolders returns the mailbox folder names for the configured account.
func (p *Processor) ListFolders(ctx context.Context) ([]string, error) {
	sess, _, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	return sess.ListFolders()
}

// Result summarizes one processing pass over the watched folder.
type Result struct {
	Folder string `json:"folder"`
	Total  uint32 `json:"total_messages"`
	Unseen uint32 `json:"unseen_messages"`
}

// Run performs one processing pass: open a session, select the watched
// folder read-only and report its message counts.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	sess, cfg, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	folder := cfg.SearchFolder
	if folder == "" {
		folder = "INBOX"
	}

	status, err := sess.InspectFolder(folder)
	if err != nil {
		return nil, fmt.Errorf("inspecting %q: %w", folder, err)
	}

	p.logger.Info("processing pass complete",
		logging.Operation("imap.process"),
		logging.Folder(folder),
		slog.Uint64("total", uint64(status.Total)),
		slog.Uint64("unseen", uint64(status.Unseen)),
	)

	return &Result{
		Folder: status.Folder,
		Total:  status.Total,
		Unseen: status.Unseen,
	}, nil
}
