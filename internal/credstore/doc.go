// Package credstore provides persistent storage for OAuth credential bundles.
//
// Two writable backends are supported:
//   - File: JSON file under the user's Gemini directory (the format the wider
//     Gemini CLI tooling reads and writes)
//   - Keyring: OS-native credential storage (macOS Keychain, Windows
//     Credential Manager, Linux Secret Service)
//
// A read-only environment-variable accessor covers static API-key
// authentication, and ProfileCache stores the non-secret account profile
// fetched from the provider's userinfo endpoint.
//
// Missing or corrupt cached state is reported as absence, never as an error:
// the authentication flows treat "no usable cache" as a signal to
// re-authenticate, and a broken cache file must not block that.
package credstore
