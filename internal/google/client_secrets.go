package google

import (
	"encoding/json"
)

// ClientSecrets is the flat OAuth2 client configuration resolved from the
// Google client secrets JSON. Every consumer works with this flat triple;
// the accepted wire shapes are handled by ParseClientSecrets only.
type ClientSecrets struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// clientSecretsFile models the two accepted JSON shapes: the flat triple at
// the top level, or the same triple wrapped under "web" or "installed" as
// downloaded from the Google Cloud console.
type clientSecretsFile struct {
	ClientSecrets
	Web       *ClientSecrets `json:"web"`
	Installed *ClientSecrets `json:"installed"`
}

// ParseClientSecrets resolves the raw client secrets JSON to the flat
// triple. An empty document, unparseable JSON, or a document in which no
// recognized shape carries all of client_id, client_secret, and token_uri
// is a *ConfigurationError.
func ParseClientSecrets(raw string) (*ClientSecrets, error) {
	if raw == "" {
		return nil, &ConfigurationError{Reason: "client secrets not configured"}
	}

	var file clientSecretsFile
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		return nil, &ConfigurationError{Reason: "client secrets are not valid JSON: " + err.Error()}
	}

	for _, candidate := range []*ClientSecrets{&file.ClientSecrets, file.Web, file.Installed} {
		if candidate == nil {
			continue
		}
		if candidate.ClientID != "" && candidate.ClientSecret != "" && candidate.TokenURI != "" {
			secrets := *candidate
			return &secrets, nil
		}
	}

	return nil, &ConfigurationError{
		Reason: "client secrets must contain client_id, client_secret and token_uri, " +
			"either flat or under \"web\" or \"installed\"",
	}
}
