// Package cmd implements the cobra command tree for the wbctl CLI, including
// subcommands for authentication, token inspection, configuration, and shell
// completion.
package cmd
