package processor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailfeed/internal/imap"
	"github.com/teemow/mailfeed/internal/secrets"
	"github.com/teemow/mailfeed/internal/store"
)

type fakeSession struct {
	folders   []string
	status    *imap.FolderStatus
	statusErr error
	closed    bool
}

func (f *fakeSession) ListFolders() ([]string, error) { return f.folders, nil }

func (f *fakeSession) InspectFolder(folder string) (*imap.FolderStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func newTestProcessor(t *testing.T, sess *fakeSession, openErr error) (*Processor, *store.SQLiteStore) {
	t.Helper()

	key, err := secrets.GenerateEncryptionKey()
	require.NoError(t, err)
	enc, err := secrets.NewTokenEncryption(key)
	require.NoError(t, err)
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), enc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	sel := imap.NewSelector(s, nil, "", nil)
	p := New(s, sel, slog.Default())
	p.open = func(creds *imap.Credentials, _ *slog.Logger) (session, error) {
		if openErr != nil {
			return nil, openErr
		}
		return sess, nil
	}
	return p, s
}

func TestRunWithoutSettings(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeSession{}, nil)

	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRunReportsFolderCounts(t *testing.T) {
	ctx := context.Background()
	sess := &fakeSession{
		status: &imap.FolderStatus{Folder: "Newsletters", Total: 42, Unseen: 7},
	}
	p, s := newTestProcessor(t, sess, nil)

	_, err := s.UpdateSettings(ctx, store.Settings{
		IMAPServer:   "mail.example.com",
		IMAPUsername: "user@example.com",
		IMAPPassword: "pw",
		SearchFolder: "Newsletters",
	})
	require.NoError(t, err)

	result, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Newsletters", result.Folder)
	assert.Equal(t, uint32(42), result.Total)
	assert.Equal(t, uint32(7), result.Unseen)
	assert.True(t, sess.closed)
}

func TestTestConnectionReportsMethod(t *testing.T) {
	ctx := context.Background()
	sess := &fakeSession{}
	p, s := newTestProcessor(t, sess, nil)

	_, err := s.UpdateSettings(ctx, store.Settings{
		IMAPServer:   "mail.example.com",
		IMAPUsername: "user@example.com",
		IMAPPassword: "pw",
	})
	require.NoError(t, err)

	method, err := p.TestConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "password", method)
	assert.True(t, sess.closed)
}

func TestTestConnectionAuthFailure(t *testing.T) {
	ctx := context.Background()
	p, s := newTestProcessor(t, nil, &imap.AuthenticationError{
		User: "user:ab12cd34",
		Err:  errors.New("LOGIN failed"),
	})

	_, err := s.UpdateSettings(ctx, store.Settings{
		IMAPServer:   "mail.example.com",
		IMAPUsername: "user@example.com",
		IMAPPassword: "bad",
	})
	require.NoError(t, err)

	_, err = p.TestConnection(ctx)
	var authErr *imap.AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestListFoldersClosesSession(t *testing.T) {
	ctx := context.Background()
	sess := &fakeSession{folders: []string{"INBOX", "Sent"}}
	p, s := newTestProcessor(t, sess, nil)

	_, err := s.UpdateSettings(ctx, store.Settings{
		IMAPServer:   "mail.example.com",
		IMAPUsername: "user@example.com",
		IMAPPassword: "pw",
	})
	require.NoError(t, err)

	folders, err := p.ListFolders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INBOX", "Sent"}, folders)
	assert.True(t, sess.closed)
}
