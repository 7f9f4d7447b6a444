package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/workbench-cloud/workbench-cli/pkg/config"
	"github.com/workbench-cloud/workbench-cli/pkg/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage wbctl configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigSetValueCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		server   string
		clientID string
		issuer   string
		insecure bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a wbctl config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			if server != "" {
				cfg.Server = server
			}
			if clientID != "" {
				cfg.Auth.ClientID = clientID
			}
			cfg.Auth.Issuer = issuer
			cfg.Auth.InsecureSkipTLSVerify = insecure
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Workbench server URL")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer for endpoint discovery")
	cmd.Flags().BoolVar(&insecure, "insecure-skip-tls-verify", false, "Skip TLS verification")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")

	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			return output.WriteObject(rt.Writer(), output.FormatYAML, rt.cfg)
		},
	}
}

func newConfigSetValueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			key := args[0]
			value := args[1]
			switch key {
			case "server":
				rt.cfg.Server = value
			case "auth.client-id":
				rt.cfg.Auth.ClientID = value
			case "auth.issuer":
				rt.cfg.Auth.Issuer = value
			case "settings.output-format":
				if _, err := output.Parse(value); err != nil {
					return err
				}
				rt.cfg.Settings.OutputFormat = value
			case "settings.timeout":
				if _, err := time.ParseDuration(value); err != nil {
					return fmt.Errorf("invalid timeout: %s", value)
				}
				rt.cfg.Settings.Timeout = value
			case "settings.token-storage":
				if value != config.StorageFile && value != config.StorageKeyring {
					return fmt.Errorf("unknown token storage: %s", value)
				}
				rt.cfg.Settings.TokenStorage = value
			default:
				return fmt.Errorf("unsupported key: %s", key)
			}
			if err := config.Save(rt.configPathValue(), rt.cfg); err != nil {
				return err
			}
			return nil
		},
	}
}
