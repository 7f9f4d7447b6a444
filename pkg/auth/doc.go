// Package auth implements the OAuth2 login flows for the wbctl CLI:
// authorization code with PKCE through a loopback callback listener, and
// the device authorization grant for headless sessions, plus credential
// storage in a file or the system keychain.
package auth
