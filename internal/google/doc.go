// Package google implements the OAuth2 token lifecycle against Google:
// authorization URL construction, authorization-code exchange, access-token
// refresh, identity lookup, and the expiry policy deciding when a token is
// due for refresh.
//
// Client secrets are resolved to a flat triple by ParseClientSecrets before
// use; both the flat shape and the console-downloaded "web"/"installed"
// wrappers are accepted. Failures surface through the typed errors in
// errors.go so callers can map them to their own failure modes.
package google
