package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/workbench-cloud/workbench-cli/pkg/auth"
	"github.com/workbench-cloud/workbench-cli/pkg/output"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Workbench",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

const (
	methodBrowser = "Browser (opens a local callback listener)"
	methodDevice  = "Device code (for SSH sessions and headless machines)"
)

func newAuthLoginCommand() *cobra.Command {
	var (
		device  bool
		force   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Workbench",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			store := newStore(rt)
			if !force && store.Has() {
				_, _ = fmt.Fprintln(rt.Writer(), "Already logged in (use --force to log in again)")
				return nil
			}

			useDevice := device
			if !cmd.Flags().Changed("device") {
				if interactive(rt) {
					choice, err := promptLoginMethod()
					if err != nil {
						return err
					}
					useDevice = choice == methodDevice
				} else if rt.nonInteractive {
					// The device grant is the only flow that doesn't depend
					// on a local browser reaching the loopback listener.
					useDevice = true
				}
			}

			ctx := cmd.Context()
			loginCfg, err := buildLoginConfig(ctx, rt, timeout)
			if err != nil {
				return err
			}
			token, err := runLogin(ctx, loginCfg, useDevice)
			if err != nil {
				return err
			}
			if err := store.Store(token.AccessToken); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			_, _ = fmt.Fprintf(rt.Writer(), "%s\n", color.GreenString("✅ Successfully logged in!"))
			if who := whoami(ctx, rt, token.AccessToken); who != "" {
				_, _ = fmt.Fprintf(rt.Writer(), "Logged in as %s\n", color.CyanString(who))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&device, "device", false, "Use the device-code flow instead of the browser")
	cmd.Flags().BoolVar(&force, "force", false, "Log in even when a credential is already stored")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for authorization (default 5m browser, 10m device)")

	return cmd
}

// interactive reports whether login may prompt: stdin is a terminal and
// --non-interactive was not given.
func interactive(rt *runtimeState) bool {
	return !rt.nonInteractive && term.IsTerminal(int(os.Stdin.Fd()))
}

func promptLoginMethod() (string, error) {
	choice := methodBrowser
	prompt := &survey.Select{
		Message: "How would you like to sign in?",
		Options: []string{methodBrowser, methodDevice},
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

func runLogin(ctx context.Context, cfg auth.Config, device bool) (*auth.TokenResponse, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	sp.Suffix = " Waiting for authorization..."
	sp.Start()
	defer sp.Stop()
	if device {
		return auth.DeviceLogin(ctx, cfg)
	}
	return auth.BrowserLogin(ctx, cfg)
}

// whoami asks the server who the token belongs to, falling back to the JWT
// claims when the API is unreachable. Best-effort: login already succeeded.
func whoami(ctx context.Context, rt *runtimeState, token string) string {
	api, err := newClientWithToken(rt, token)
	if err == nil {
		if user, err := api.Users().Me(ctx); err == nil {
			if user.Email != "" {
				return user.Email
			}
			if user.Name != "" {
				return user.Name
			}
		}
	}
	return claimsIdentity(token)
}

type authStatus struct {
	Server    string     `json:"server" yaml:"server"`
	User      string     `json:"user,omitempty" yaml:"user,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

func newAuthStatusCommand() *cobra.Command {
	var showToken bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			token := rt.resolveToken()
			if token == "" {
				stored, ok, err := newStore(rt).Get()
				if err != nil {
					return err
				}
				if ok {
					token = stored
				}
			}
			if showToken {
				if token == "" {
					return errors.New("not logged in")
				}
				_, _ = fmt.Fprint(rt.Writer(), token)
				return nil
			}
			if token == "" {
				_, _ = fmt.Fprintln(rt.Writer(), "Not logged in")
				_, _ = fmt.Fprintf(rt.Writer(), "Run %s to authenticate\n", color.CyanString("wbctl auth login"))
				return nil
			}

			status := authStatus{
				Server:    rt.resolveServer(),
				User:      claimsIdentity(token),
				ExpiresAt: tokenExpiry(token),
			}
			format, err := output.Parse(rt.OutputFormat())
			if err != nil {
				return err
			}
			if format != output.FormatText {
				return output.WriteObject(rt.Writer(), format, status)
			}
			_, _ = fmt.Fprintf(rt.Writer(), "%s\n", color.GreenString("Logged in to %s", status.Server))
			if status.User != "" {
				_, _ = fmt.Fprintf(rt.Writer(), "User: %s\n", status.User)
			}
			if status.ExpiresAt != nil {
				if status.ExpiresAt.Before(time.Now()) {
					_, _ = fmt.Fprintf(rt.Writer(), "%s\n", color.YellowString("Token expired at %s", status.ExpiresAt.UTC().Format(time.RFC3339)))
				} else {
					_, _ = fmt.Fprintf(rt.Writer(), "Token expires at %s\n", status.ExpiresAt.UTC().Format(time.RFC3339))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showToken, "show-token", false, "Print the raw access token and nothing else")

	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			removed, err := newStore(rt).Remove()
			if err != nil {
				return err
			}
			if !removed {
				_, _ = fmt.Fprintln(rt.Writer(), "Not logged in")
				return nil
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out")
			return nil
		},
	}
}
