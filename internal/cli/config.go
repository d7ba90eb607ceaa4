package cli

import (
	"fmt"
	"slices"
	"sort"

	"github.com/spf13/cobra"

	"github.com/alnah/go-ballot/internal/config"
)

// validConfigKeys lists all supported configuration keys.
var validConfigKeys = config.Keys

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/ballot/config.
Settings can also be overridden via environment variables.

Supported settings:
  api-base-url   Base URL of API requests (env: BALLOT_API_BASE_URL)
  upstream-url   Upstream the proxy forwards to (env: BALLOT_UPSTREAM_URL)
  listen-addr    Proxy listen address (env: BALLOT_LISTEN_ADDR)
  log-level      debug, info, warn, or error (env: BALLOT_LOG_LEVEL)`,
		Example: `  ballot config set api-base-url https://vote.example.com/api/proxy
  ballot config get api-base-url
  ballot config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

URLs must be absolute http(s) URLs. Trailing slashes are ignored when loaded.`,
		Example: `  ballot config set upstream-url http://localhost:8080/api
  ballot config set log-level debug`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			return runConfigSet(env, key, value)
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the effective value to stdout: the config file first, then the
environment variable, then the built-in default.`,
		Example: `  ballot config get api-base-url`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Each value is annotated with where it came from when it is not in the
config file.`,
		Example: `  ballot config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w %q (valid keys: %v)", ErrUnknownConfigKey, key, validConfigKeys)
	}

	if err := config.Validate(key, value); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidValue, key, err)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !isValidConfigKey(key) {
		return fmt.Errorf("%w %q (valid keys: %v)", ErrUnknownConfigKey, key, validConfigKeys)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	if value == "" {
		value = env.Getenv(config.EnvFor(key))
	}
	if value == "" {
		value = config.DefaultFor(key)
	}

	_, _ = fmt.Fprintln(env.Stdout, value)
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	for _, key := range validConfigKeys {
		switch {
		case data[key] != "":
			_, _ = fmt.Fprintf(env.Stdout, "%s=%s\n", key, data[key])
		case env.Getenv(config.EnvFor(key)) != "":
			_, _ = fmt.Fprintf(env.Stdout, "%s=%s (from env)\n", key, env.Getenv(config.EnvFor(key)))
		default:
			_, _ = fmt.Fprintf(env.Stdout, "%s=%s (default)\n", key, config.DefaultFor(key))
		}
	}

	// Keys the file carries that this version doesn't know.
	var extra []string
	for key := range data {
		if !isValidConfigKey(key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		_, _ = fmt.Fprintf(env.Stdout, "%s=%s (unknown key)\n", key, data[key])
	}

	return nil
}

// isValidConfigKey checks if a key is a valid configuration key.
func isValidConfigKey(key string) bool {
	return slices.Contains(validConfigKeys, key)
}
