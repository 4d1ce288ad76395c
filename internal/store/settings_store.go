package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSettings returns the single settings row, or ErrNotFound when the
// mailbox has not been configured yet.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*Settings, error) {
	var settings Settings
	err := s.db.GetContext(ctx, &settings, "SELECT * FROM settings WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings creates or replaces the settings row. An empty password on
// update keeps the previously stored one so that clients can round-trip the
// redacted settings view without wiping the credential.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, in Settings) (*Settings, error) {
	if in.IMAPPassword == "" {
		if existing, err := s.GetSettings(ctx); err == nil {
			in.IMAPPassword = existing.IMAPPassword
		}
	}
	if in.SearchFolder == "" {
		in.SearchFolder = "INBOX"
	}
	if in.EmailCheckInterval <= 0 {
		in.EmailCheckInterval = 15
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings
			(id, imap_server, imap_username, imap_password, search_folder,
			 move_to_folder, mark_as_read, email_check_interval, auto_add_new_senders)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			imap_server = excluded.imap_server,
			imap_username = excluded.imap_username,
			imap_password = excluded.imap_password,
			search_folder = excluded.search_folder,
			move_to_folder = excluded.move_to_folder,
			mark_as_read = excluded.mark_as_read,
			email_check_interval = excluded.email_check_interval,
			auto_add_new_senders = excluded.auto_add_new_senders`,
		in.IMAPServer, in.IMAPUsername, in.IMAPPassword, in.SearchFolder,
		in.MoveToFolder, in.MarkAsRead, in.EmailCheckInterval, in.AutoAddNewSenders,
	)
	if err != nil {
		return nil, fmt.Errorf("updating settings: %w", err)
	}

	return s.GetSettings(ctx)
}
