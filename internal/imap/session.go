package imap

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/mailfeed/internal/logging"
)

// Session is an authenticated IMAP connection.
type Session struct {
	client *imapclient.Client
	logger *slog.Logger
}

// Connect dials the server over implicit TLS on port 993 and authenticates
// with the selected credential bundle: LOGIN for password credentials,
// SASL XOAUTH2 for OAuth2 ones.
func Connect(creds *Credentials, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf("%s:993", creds.Server)
	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	if creds.UsesOAuth2() {
		err = client.Authenticate(NewXOAuth2Client(creds.OAuth2Email, creds.OAuth2AccessToken))
	} else {
		err = client.Login(creds.Username, creds.Password).Wait()
	}
	if err != nil {
		client.Close()
		return nil, &AuthenticationError{
			User: logging.AnonymizeEmail(creds.Username),
			Err:  err,
		}
	}

	logger.Debug("IMAP session established",
		logging.Server(creds.Server),
		logging.UserHash(creds.Username),
		slog.Bool("oauth2", creds.UsesOAuth2()),
	)

	return &Session{client: client, logger: logger}, nil
}

// Close logs out and tears down the connection.
func (s *Session) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return s.client.Close()
	}
	return nil
}

// ListFolders returns the mailbox names visible to the account, sorted.
func (s *Session) ListFolders() ([]string, error) {
	mailboxes, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}

	names := make([]string, 0, len(mailboxes))
	for _, mbox := range mailboxes {
		names = append(names, mbox.Mailbox)
	}
	sort.Strings(names)
	return names, nil
}

// FolderStatus holds message counts for a selected mailbox.
type FolderStatus struct {
	Folder string `json:"folder"`
	Total  uint32 `json:"total_messages"`
	Unseen uint32 `json:"unseen_messages"`
}

// InspectFolder selects a mailbox read-only and reports its counts.
func (s *Session) InspectFolder(folder string) (*FolderStatus, error) {
	data, err := s.client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("selecting %q: %w", folder, err)
	}

	status := &FolderStatus{
		Folder: folder,
		Total:  data.NumMessages,
	}

	unseen, err := s.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen in %q: %w", folder, err)
	}
	status.Unseen = uint32(len(unseen.AllUIDs()))

	return status, nil
}
