package google

import (
	"errors"
	"testing"
)

func TestParseClientSecrets(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		wantID  string
	}{
		{
			name:   "flat shape",
			raw:    `{"client_id":"id-1","client_secret":"secret","token_uri":"https://oauth2.googleapis.com/token"}`,
			wantID: "id-1",
		},
		{
			name:   "web wrapper",
			raw:    `{"web":{"client_id":"id-2","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`,
			wantID: "id-2",
		},
		{
			name:   "installed wrapper",
			raw:    `{"installed":{"client_id":"id-3","client_secret":"secret","token_uri":"https://oauth2.googleapis.com/token"}}`,
			wantID: "id-3",
		},
		{
			name:   "flat wins over wrapper",
			raw:    `{"client_id":"flat","client_secret":"s","token_uri":"t","web":{"client_id":"wrapped","client_secret":"s","token_uri":"t"}}`,
			wantID: "flat",
		},
		{
			name:    "empty document",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "invalid json",
			raw:     "{not json",
			wantErr: true,
		},
		{
			name:    "missing token_uri",
			raw:     `{"client_id":"id","client_secret":"secret"}`,
			wantErr: true,
		},
		{
			name:    "wrapper missing client_secret",
			raw:     `{"web":{"client_id":"id","token_uri":"t"}}`,
			wantErr: true,
		},
		{
			name:    "unrecognized wrapper key",
			raw:     `{"desktop":{"client_id":"id","client_secret":"s","token_uri":"t"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secrets, err := ParseClientSecrets(tt.raw)

			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseClientSecrets() succeeded, want error")
				}
				var confErr *ConfigurationError
				if !errors.As(err, &confErr) {
					t.Errorf("ParseClientSecrets() error = %T, want *ConfigurationError", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseClientSecrets() error = %v", err)
			}
			if secrets.ClientID != tt.wantID {
				t.Errorf("ClientID = %q, want %q", secrets.ClientID, tt.wantID)
			}
			if secrets.ClientSecret == "" || secrets.TokenURI == "" {
				t.Error("resolved secrets missing client_secret or token_uri")
			}
		})
	}
}
