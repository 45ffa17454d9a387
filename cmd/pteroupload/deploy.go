package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"pteroupload/internal/deployment"
	"pteroupload/internal/history"
	"pteroupload/internal/inputs"
	"pteroupload/internal/panel"
	"pteroupload/internal/plan"
	"pteroupload/internal/security"
	"pteroupload/pkg/fileutil"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var deployFlags struct {
	panelHost        string
	apiKey           string
	source           string
	sources          []string
	target           string
	serverID         string
	serverIDs        []string
	restart          bool
	proxy            string
	decompressTarget bool
	followSymlinks   bool

	configFile  string
	envFile     string
	historyDB   string
	maxAttempts int
	retryDelay  time.Duration
	rateLimit   int
	timeout     time.Duration
}

// serverLocks is shared by every run started from this process.
var serverLocks = deployment.NewServerLocks()

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Upload files to one or more servers",
	Long: `Upload local files to every configured server, then optionally extract
uploaded archives and restart the servers.

Each input is read from its flag, then from the GitHub Actions step input
(INPUT_<NAME>), then from the PTERO_<NAME> environment variable. Sources,
targets and servers may also come from .pterodactyl-upload.json (or .yaml)
in the working directory.`,
	Example: `  pteroupload deploy --panel-host https://panel.example.com --api-key $KEY \
    --server-id 1a2b3c4d --source 'build/libs/*.jar' --target /plugins/ --restart`,
	RunE: runDeploy,
}

func init() {
	registerDeployFlags(deployCmd)
}

func registerDeployFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&deployFlags.panelHost, inputs.PanelHost, "", "Panel base URL")
	f.StringVar(&deployFlags.apiKey, inputs.APIKey, "", "Panel client API key")
	f.StringVar(&deployFlags.source, inputs.Source, "", "Source file or glob")
	f.StringArrayVar(&deployFlags.sources, inputs.Sources, nil, "Source file or glob (repeatable)")
	f.StringVar(&deployFlags.target, inputs.Target, "", "Remote path; a trailing / uploads into that directory")
	f.StringVar(&deployFlags.serverID, inputs.ServerID, "", "Server identifier")
	f.StringArrayVar(&deployFlags.serverIDs, inputs.ServerIDs, nil, "Server identifier (repeatable)")
	f.BoolVar(&deployFlags.restart, inputs.Restart, false, "Restart each server after uploading")
	f.StringVar(&deployFlags.proxy, inputs.Proxy, "", "Proxy as user:pass@host:port")
	f.BoolVar(&deployFlags.decompressTarget, inputs.DecompressTarget, false, "Extract uploaded archives and delete them")
	f.BoolVar(&deployFlags.followSymlinks, inputs.FollowSymlinks, false, "Follow symbolic links when resolving sources")

	f.StringVarP(&deployFlags.configFile, "config", "c", getEnvOrDefault("PTERO_CONFIG_FILE", ""), "Path to the declarative config file")
	f.StringVar(&deployFlags.envFile, "env-file", getEnvOrDefault("PTERO_ENV_FILE", ".env"), "Load environment variables from this file if it exists")
	f.StringVar(&deployFlags.historyDB, "history-db", getEnvOrDefault("PTERO_HISTORY_DB", ""), "Record runs in this SQLite database")
	f.IntVar(&deployFlags.maxAttempts, "max-attempts", getEnvOrDefaultInt("PTERO_MAX_ATTEMPTS", panel.DefaultMaxAttempts), "Attempts for uploads and deletes")
	f.DurationVar(&deployFlags.retryDelay, "retry-delay", 0, "Pause between attempts")
	f.IntVar(&deployFlags.rateLimit, "rate-limit", getEnvOrDefaultInt("PTERO_RATE_LIMIT", 0), "Maximum panel requests per minute (0 = unlimited)")
	f.DurationVar(&deployFlags.timeout, "timeout", panel.DefaultTimeout, "Timeout for a single panel request")
}

// explicitInputs returns the input flags set on the command line, encoded
// the way the other input sources encode them.
func explicitInputs(cmd *cobra.Command) map[string]string {
	values := make(map[string]string)
	cmd.Flags().Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case inputs.Sources:
			values[fl.Name] = strings.Join(deployFlags.sources, "\n")
		case inputs.ServerIDs:
			values[fl.Name] = strings.Join(deployFlags.serverIDs, "\n")
		case inputs.Restart, inputs.DecompressTarget, inputs.FollowSymlinks,
			inputs.PanelHost, inputs.APIKey, inputs.Source, inputs.Target,
			inputs.ServerID, inputs.Proxy:
			values[fl.Name] = fl.Value.String()
		}
	})
	return values
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if err := inputs.LoadDotEnv(deployFlags.envFile); err != nil {
		return err
	}

	logger, closer, err := setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closer.Close()

	if fileutil.FileExists(deployFlags.envFile) {
		if err := security.ValidateSecurePermissions(deployFlags.envFile); err != nil {
			logger.Warn("Environment file may expose credentials",
				"error", err,
				"fix", security.SecretFileHint(deployFlags.envFile))
		}
	}

	reader := inputs.NewReader(explicitInputs(cmd), nil)
	secrets := credentials(reader)

	if reader.InActions() {
		for _, secret := range secrets {
			if secret != "" {
				reader.Action().AddMask(secret)
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := deploy(ctx, reader, logger)
	if err != nil {
		err = errors.New(security.Redact(err.Error(), secrets...))
		if reader.InActions() {
			reader.Action().Errorf("%s", err)
		}
		return err
	}

	if reader.InActions() {
		action := reader.Action()
		action.SetOutput("run-id", summary.RunID)
		action.SetOutput("uploaded-files", strconv.Itoa(summary.Uploads))
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Done")
	return nil
}

// credentials returns the secret values that must never reach the output.
func credentials(reader *inputs.Reader) []string {
	secrets := []string{reader.Get(inputs.APIKey)}
	if proxy, err := plan.ParseProxy(reader.Get(inputs.Proxy)); err == nil && proxy != nil {
		secrets = append(secrets, proxy.Password)
	}
	return secrets
}

func deploy(ctx context.Context, reader *inputs.Reader, logger *slog.Logger) (*deployment.Summary, error) {
	configPath := deployFlags.configFile
	if configPath == "" {
		configPath = plan.FindConfigFile(".")
	}
	if configPath != "" {
		logger.Debug("Loading config file", "config", configPath)
	}

	fileConfig, err := plan.LoadFileConfig(configPath)
	if err != nil {
		return nil, err
	}

	p, err := plan.Build(reader.Inputs(), fileConfig)
	if err != nil {
		return nil, err
	}

	logger.Debug("Panel credentials", "panel", p.PanelHost, "api_key", security.MaskSecret(p.APIKey))
	if security.IsWeakSecret(p.APIKey) {
		logger.Warn("API key looks like a placeholder", "api_key", security.MaskSecret(p.APIKey))
	}

	if reader.InActions() {
		reader.Action().Debugf("Deploying %d mapping(s) to %d server(s)", len(p.Mappings), len(p.ServerIDs))
	}

	client, err := panel.NewClient(panel.Config{
		BaseURL:     p.PanelHost,
		APIKey:      p.APIKey,
		Proxy:       p.Proxy,
		Timeout:     deployFlags.timeout,
		MaxAttempts: deployFlags.maxAttempts,
		RetryDelay:  deployFlags.retryDelay,
		RateLimit:   deployFlags.rateLimit,
		Progress:    deployment.LogProgress(logger),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	opts := []deployment.Option{
		deployment.WithLogger(logger),
		deployment.WithServerLocks(serverLocks),
	}

	if deployFlags.historyDB != "" {
		logger.Debug("Opening history database", "db", deployFlags.historyDB)
		hist, err := history.NewHistory(deployFlags.historyDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
		defer hist.Close()
		if err := security.RestrictPermissions(deployFlags.historyDB, security.PermDBFile); err != nil {
			logger.Warn("Failed to restrict history database permissions", "error", err)
		}
		opts = append(opts, deployment.WithRecorder(hist))
	}

	return deployment.New(p, client, opts...).Run(ctx)
}
