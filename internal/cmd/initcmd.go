package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pgbranch/pgbranch/internal/pkg/config"
	"github.com/pgbranch/pgbranch/internal/pkg/docker"
	"github.com/pgbranch/pgbranch/internal/pkg/git"
	"github.com/pgbranch/pgbranch/internal/pkg/ui"
)

// NewInitCmd creates the 'init' command.
func NewInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .pgbranch.yml configuration file",
		Long: `Create a .pgbranch.yml in the current directory with sensible defaults.
The main git branch is auto-detected, and when a docker-compose file
declares a postgres service its connection settings are offered as the
starting configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return runInit(cmd, force)
		},
	}

	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing configuration file")
	return initCmd
}

func runInit(cmd *cobra.Command, force bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	configPath := filepath.Join(cwd, ".pgbranch.yml")

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s, use --force to overwrite", configPath)
	}

	cfg := config.Default()
	uiManager := ui.NewDefaultManager(true)

	if mainBranch, err := git.NewClient().DetectMainBranch(cmd.Context()); err == nil && mainBranch != "" {
		cfg.Git.MainBranch = mainBranch
		fmt.Printf("Auto-detected main git branch: %s\n", mainBranch)
	} else {
		fmt.Println("Could not auto-detect main git branch, using default: main")
	}

	if composePath := docker.FindComposeFile(cwd); composePath != "" {
		fmt.Printf("Found compose file: %s\n", filepath.Base(composePath))
		applyComposeSettings(cfg, composePath, uiManager)
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}
	uiManager.ShowSuccess("Initialized pgbranch configuration at " + configPath)
	return nil
}

// applyComposeSettings offers the postgres settings from a compose file as
// the initial database configuration. Detection problems are reported and
// skipped; init still succeeds with defaults.
func applyComposeSettings(cfg *config.Config, composePath string, uiManager ui.Manager) {
	svc, err := docker.DetectPostgres(composePath)
	if err != nil {
		uiManager.ShowError(err)
		return
	}
	if svc == nil {
		fmt.Println("No postgres service found in compose file")
		return
	}

	prompt := fmt.Sprintf("Use PostgreSQL settings from compose service %q (%s:%d)?", svc.Name, svc.Host, svc.Port)
	useIt, err := uiManager.PromptConfirm(prompt)
	if err != nil || !useIt {
		return
	}

	cfg.Database.Host = svc.Host
	cfg.Database.Port = svc.Port
	if svc.User != "" {
		cfg.Database.User = svc.User
	}
	if svc.Password != "" {
		cfg.Database.Password = svc.Password
	}
	if svc.Database != "" {
		cfg.Database.TemplateDatabase = svc.Database
	}
	uiManager.ShowSuccess("Using PostgreSQL configuration from compose file")
}
