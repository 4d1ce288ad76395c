package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	id                   INTEGER PRIMARY KEY CHECK (id = 1),
	imap_server          TEXT NOT NULL DEFAULT '',
	imap_username        TEXT NOT NULL DEFAULT '',
	imap_password        TEXT NOT NULL DEFAULT '',
	search_folder        TEXT NOT NULL DEFAULT 'INBOX',
	move_to_folder       TEXT NOT NULL DEFAULT '',
	mark_as_read         INTEGER NOT NULL DEFAULT 0,
	email_check_interval INTEGER NOT NULL DEFAULT 15,
	auto_add_new_senders INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS gmail_oauth2_credentials (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	email                   TEXT NOT NULL UNIQUE,
	encrypted_access_token  TEXT NOT NULL,
	encrypted_refresh_token TEXT NOT NULL,
	token_expiry            DATETIME,
	created_at              DATETIME NOT NULL,
	updated_at              DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_oauth2_credentials_email ON gmail_oauth2_credentials(email);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
