package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName  = "wbctl"
	defaultConfigFile     = "config.yaml"
	defaultCredentialFile = "credential"
)

func DefaultConfigPath() string {
	if env := os.Getenv("WBCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wbctl", defaultConfigFile)
}

// DefaultCredentialPath is where the file token store keeps the plaintext
// access token.
func DefaultCredentialPath() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultCredentialFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".wbctl", defaultCredentialFile)
}
