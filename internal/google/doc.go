// Package google provides OAuth2 authentication for the Google APIs used by
// mulch.
//
// Credentials follow the installed-application flow: the OAuth client comes
// from a credentials.json downloaded from the Google Cloud console, and the
// user's token is cached in token.json. When no token is cached, an
// Authorizer obtains one, by default through a loopback redirect opened in the
// user's browser. Refreshed tokens are written back to the token file.
package google
