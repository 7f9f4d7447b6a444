// Package client implements the HTTP client for the wbctl CLI to communicate
// with the Workbench API and its OAuth endpoints, with request-ID tracing and
// typed transport errors.
package client
