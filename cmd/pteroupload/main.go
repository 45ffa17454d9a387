package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"pteroupload/internal/logging"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

var (
	logLevel  string
	logFormat string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "pteroupload",
	Short: "Upload build artifacts to game servers through the panel API",
	Long: `pteroupload copies local files to one or more game servers managed by a
Pterodactyl-compatible panel, optionally extracts uploaded archives and
restarts the servers afterwards.

Run without a command it behaves like 'pteroupload deploy', which is how the
GitHub Action invokes it.`,
	Version:       version,
	SilenceErrors: true,
	RunE:          runDeploy,
}

// Custom usage template that encourages 'help' subcommand pattern
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} help [command]" for more information about a command.{{end}}
`

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Set custom usage template to encourage 'help' subcommand pattern
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", getEnvOrDefault("PTERO_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", getEnvOrDefault("PTERO_LOG_FORMAT", "text"), "Log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", getEnvOrDefault("PTERO_LOG_FILE", ""), "Also write logs to this file, rotated by size")

	// The root command accepts the deploy flags so it can run as deploy
	registerDeployFlags(rootCmd)

	// Register subcommands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mockPanelCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging builds the logger from the global flags.
// The caller must close the returned closer.
func setupLogging(console io.Writer) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Level:  logLevel,
		Format: logFormat,
		File:   logFile,
		Output: console,
	})
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
