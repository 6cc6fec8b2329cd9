// Package authflow obtains OAuth2 credentials for the Gemini API.
//
// The Authenticator composes four ways of producing an authenticated client,
// tried in a fixed order:
//
//  1. Cached credentials from the credential store always win; no network
//     authorization flow runs when a usable bundle exists on disk.
//  2. Cloud-metadata identity (when requested): a token from the local
//     metadata service, never persisted, refreshed by the service itself.
//  3. Manual user-code flow when launching a browser is pointless (explicit
//     configuration, CI environment, or no terminal attached).
//  4. Browser/loopback flow: an ephemeral localhost listener catches the
//     authorization redirect and exchanges the code for tokens. A failure
//     here falls back once to the manual flow.
//
// Wire-level OAuth2 mechanics (URL signing, code exchange, refresh) are
// delegated entirely to golang.org/x/oauth2; this package only orchestrates
// flows and persists the resulting bundles through credstore.
package authflow
