// Package main provides the focusflow CLI entry point.
// focusflow scores recorded meetings against their agendas.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/focusflow/cmd"
	"github.com/otherjamesbrown/focusflow/config"
	"github.com/otherjamesbrown/focusflow/pkg/buildinfo"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// serviceName identifies the CLI in version output.
const serviceName = "focusflow"

// Global flags and state.
var (
	configDir    string
	timeout      time.Duration
	outputFormat string
	debug        bool
	logJSON      bool

	// cfg holds the loaded configuration.
	cfg *config.CLIConfig
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "focusflow",
	Short: "FocusFlow - meeting agenda alignment",
	Long: `focusflow scores how well a meeting followed its agenda.

It splits a transcript into time windows, compares each window with the agenda
items using text embeddings and reports how long each item was discussed,
where the conversation drifted off-topic and an overall focus score. An AI
summary adds the decisions and action items.

COMMON WORKFLOWS:
  One meeting:      focusflow analyze --agenda plan.txt --transcript call.vtt
  A folder:         focusflow watch ~/Meetings
  As a service:     focusflow serve
  First-time setup: focusflow auth login  →  focusflow config init

DISCOVERY:
  focusflow <command> --help   Subcommands, flags, and examples for any command
  focusflow config show        Effective settings after file and environment overrides`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configDir != "" {
			if err := os.Setenv("FOCUSFLOW_CONFIG_DIR", configDir); err != nil {
				return err
			}
		}

		// Skip initialization for commands that don't need it.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		// Override with command-line flags.
		if timeout != 0 {
			cfg.Timeout = timeout
		}
		if outputFormat != "" {
			format := config.OutputFormat(outputFormat)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", outputFormat)
			}
			cfg.OutputFormat = format
		}
		if debug {
			cfg.Debug = true
		}

		logging.SetGlobal(newLogger(cfg))
		return nil
	},
}

// newLogger builds the process logger. Logs go to stderr so that report
// output on stdout stays parseable.
func newLogger(c *config.CLIConfig) logging.Logger {
	lc := logging.DefaultConfig()
	lc.JSONFormat = logJSON
	if c.Debug {
		lc.Level = logging.LevelDebug
	}
	return logging.NewLogger(lc)
}

// loadedConfig returns the configuration prepared by PersistentPreRunE.
func loadedConfig() (*config.CLIConfig, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the focusflow CLI.

Use --output json or --output yaml for machine-readable output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get(serviceName)
		out := cmd.OutOrStdout()

		switch config.OutputFormat(outputFormat) {
		case config.OutputFormatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case config.OutputFormatYAML:
			return yaml.NewEncoder(out).Encode(info)
		}

		fmt.Fprintf(out, "focusflow version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:         %s\n", info.GoVersion)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the focusflow configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration: defaults, then the config file, then
FOCUSFLOW_* environment variables, then command-line flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := loadedConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		out := cmd.OutOrStdout()

		shown := *current
		if shown.Redis.Password != "" {
			shown.Redis.Password = "********"
		}
		shown.Database.URL = redactURL(shown.Database.URL)

		switch current.OutputFormat {
		case config.OutputFormatJSON:
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(shown)
		case config.OutputFormatYAML:
			return yaml.NewEncoder(out).Encode(shown)
		}

		configPath, _ := config.ConfigPath()
		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:      %s\n", configPath)
		fmt.Fprintf(out, "  Timeout:          %s\n", shown.Timeout)
		fmt.Fprintf(out, "  Output format:    %s\n", shown.OutputFormat)
		fmt.Fprintf(out, "  Debug:            %t\n", shown.Debug)
		fmt.Fprintln(out, "  Analysis:")
		fmt.Fprintf(out, "    Threshold:      %.2f\n", shown.Analysis.Threshold)
		fmt.Fprintf(out, "    Window:         %.0fs\n", shown.Analysis.WindowSeconds)
		fmt.Fprintf(out, "    Batch size:     %d\n", shown.Analysis.BatchSize)
		fmt.Fprintf(out, "    Balance score:  %.1f\n", shown.Analysis.BalanceScore)
		fmt.Fprintln(out, "  Gemini:")
		fmt.Fprintf(out, "    Embedding:      %s\n", shown.Gemini.EmbeddingModel)
		fmt.Fprintf(out, "    Chat:           %s\n", shown.Gemini.ChatModel)
		fmt.Fprintln(out, "  Whisper:")
		fmt.Fprintf(out, "    URL:            %s\n", shown.Whisper.URL)
		fmt.Fprintf(out, "    Model:          %s\n", shown.Whisper.Model)
		fmt.Fprintln(out, "  Redis cache:")
		fmt.Fprintf(out, "    Address:        %s\n", valueOrDefault(shown.Redis.Addr, "(disabled)"))
		fmt.Fprintf(out, "    TTL:            %s\n", shown.Redis.TTL)
		fmt.Fprintln(out, "  Report database:")
		fmt.Fprintf(out, "    URL:            %s\n", valueOrDefault(shown.Database.URL, "(disabled)"))
		fmt.Fprintf(out, "    Table:          %s\n", shown.Database.Table)
		fmt.Fprintf(out, "  Server address:   %s\n", shown.Server.Addr)
		fmt.Fprintf(out, "  Watch workers:    %d\n", shown.Watch.Workers)
		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
			fmt.Fprintln(out, "Use 'focusflow config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
		fmt.Fprintln(out, "\nDefault settings:")
		fmt.Fprintf(out, "  Timeout:        %s\n", defaultCfg.Timeout)
		fmt.Fprintf(out, "  Output format:  %s\n", defaultCfg.OutputFormat)
		fmt.Fprintf(out, "  Threshold:      %.2f\n", defaultCfg.Analysis.Threshold)
		fmt.Fprintf(out, "  Server address: %s\n", defaultCfg.Server.Addr)
		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  ` + strings.Join(config.Keys(), "\n  ") + `

Examples:
  focusflow config set timeout 5m
  focusflow config set analysis.threshold 0.7
  focusflow config set redis.addr localhost:6379
  focusflow config set database.url postgres://localhost/focusflow`,
	Args: cobra.ExactArgs(2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return config.Keys(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		// Start from the file alone so environment overrides are not persisted.
		currentCfg, err := config.LoadFile()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := currentCfg.Set(key, value); err != nil {
			return err
		}
		if err := currentCfg.Validate(); err != nil {
			return err
		}
		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

// completionCmd generates shell completion scripts.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for focusflow.

To load completions:

Bash:
  $ source <(focusflow completion bash)

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ focusflow completion zsh > "${fpath[1]}/_focusflow"

Fish:
  $ focusflow completion fish | source

PowerShell:
  PS> focusflow completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(out)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// redactURL hides the password in a connection URL.
func redactURL(u string) string {
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return u
	}
	userinfo := u[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return u[:scheme+3] + userinfo[:colon] + ":********" + u[at:]
	}
	return u
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config and credentials directory (default is ~/.focusflow)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "analysis timeout (e.g., 30s, 5m)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "analysis", Title: "Analysis:"},
		&cobra.Group{ID: "history", Title: "Report History:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	deps := &cmd.Deps{LoadConfig: loadedConfig}
	dbDeps := &cmd.DbCommandDeps{LoadConfig: loadedConfig, ConnectToDB: cmd.DefaultDbDeps().ConnectToDB}

	// Analysis
	analyzeCmd := cmd.NewAnalyzeCommand(deps)
	analyzeCmd.GroupID = "analysis"
	rootCmd.AddCommand(analyzeCmd)

	watchCmd := cmd.NewWatchCommand(deps)
	watchCmd.GroupID = "analysis"
	rootCmd.AddCommand(watchCmd)

	serveCmd := cmd.NewServeCommand(deps)
	serveCmd.GroupID = "analysis"
	rootCmd.AddCommand(serveCmd)

	// Report history
	reportsCmd := cmd.NewReportsCommand(dbDeps)
	reportsCmd.GroupID = "history"
	rootCmd.AddCommand(reportsCmd)

	dbCmd := cmd.NewDbCommand(dbDeps)
	dbCmd.GroupID = "history"
	rootCmd.AddCommand(dbCmd)

	// Setup
	authCmd := cmd.NewAuthCommand(nil)
	authCmd.GroupID = "setup"
	rootCmd.AddCommand(authCmd)

	configCmd.GroupID = "setup"
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Cancel the context on SIGINT/SIGTERM so that serve and watch drain cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
