// Package imap selects credentials for and drives authenticated IMAP
// sessions. Gmail accounts with stored OAuth2 tokens authenticate via
// SASL XOAUTH2, refreshing expired access tokens on the way in; every
// other account, and every degraded OAuth2 state, uses LOGIN with the
// stored password.
package imap
