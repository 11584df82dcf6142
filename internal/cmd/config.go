package cmd

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Long: `Inspect the configuration after merging the config file, the
.pgbranch.local.yml overlay, and PGBRANCH_* environment variables.`,
		// Default action shows the merged configuration.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigGetCmd())
	configCmd.AddCommand(newConfigListCmd())

	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}
}

func runConfigShow() error {
	cfg, err := mergedConfig()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	enc.Close()

	fmt.Println("Current configuration:")
	fmt.Print(maskPasswords(buf.String()))
	return nil
}

// newConfigGetCmd creates the 'config get' subcommand.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a single configuration value",
		Long: `Print one value from the merged configuration using dot notation.

Examples:
  pgbranch config get database.host
  pgbranch config get git.main_branch
  pgbranch config get behavior.naming_strategy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := configViper()
			if err != nil {
				return err
			}

			key := args[0]
			if !v.IsSet(key) {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			value := fmt.Sprintf("%v", v.Get(key))
			if strings.Contains(key, "password") && value != "" {
				value = "****"
			}
			fmt.Println(value)
			return nil
		},
	}
}

// newConfigListCmd creates the 'config list' subcommand.
func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration keys and values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := configViper()
			if err != nil {
				return err
			}

			keys := v.AllKeys()
			sort.Strings(keys)
			for _, key := range keys {
				value := fmt.Sprintf("%v", v.Get(key))
				if strings.Contains(key, "password") && value != "" {
					value = "****"
				}
				fmt.Printf("%s = %s\n", key, value)
			}
			return nil
		},
	}
}

func mergedConfig() (*config.Config, error) {
	svc, err := buildService(false, false)
	if err != nil {
		return nil, err
	}
	return svc.Config(), nil
}

// configViper loads the merged configuration into a viper instance for
// dot-notation access.
func configViper() (*viper.Viper, error) {
	cfg, err := mergedConfig()
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return v, nil
}

// maskPasswords hides password values in rendered YAML.
func maskPasswords(rendered string) string {
	lines := strings.Split(rendered, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "password:") && trimmed != "password: \"\"" && trimmed != "password:" {
			indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
			lines[i] = indent + "password: '****'"
		}
	}
	return strings.Join(lines, "\n")
}
