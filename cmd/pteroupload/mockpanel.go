package main

import (
	"fmt"
	"os"

	"pteroupload/internal/mockpanel"
	"pteroupload/pkg/fileutil"

	"github.com/spf13/cobra"
)

var mockPanelFlags struct {
	root       string
	apiKey     string
	host       string
	port       int
	rateLimit  int
	failWrites int
}

var mockPanelCmd = &cobra.Command{
	Use:   "mock-panel",
	Short: "Run a local fake of the panel API",
	Long: `Serve the file and power endpoints of the panel client API on a local
port. Uploaded files are stored under --root, one directory per server, and
archives are extracted in place on decompress.

Point deploy at it with --panel-host http://127.0.0.1:<port> to try a
configuration without touching real servers.`,
	RunE: runMockPanel,
}

func init() {
	f := mockPanelCmd.Flags()
	f.StringVar(&mockPanelFlags.root, "root", getEnvOrDefault("PTERO_MOCK_ROOT", "./mock-panel"), "Directory holding the fake servers' files")
	f.StringVar(&mockPanelFlags.apiKey, "api-key", getEnvOrDefault("PTERO_MOCK_API_KEY", ""), "Bearer token clients must send")
	f.StringVar(&mockPanelFlags.host, "host", getEnvOrDefault("PTERO_MOCK_HOST", "127.0.0.1"), "Host to bind to")
	f.IntVarP(&mockPanelFlags.port, "port", "p", getEnvOrDefaultInt("PTERO_MOCK_PORT", 8080), "Port to listen on")
	f.IntVar(&mockPanelFlags.rateLimit, "rate-limit", 0, "Requests per minute per client IP (0 = unlimited)")
	f.IntVar(&mockPanelFlags.failWrites, "fail-writes", 0, "Answer the first N file writes with HTTP 500")
}

func runMockPanel(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	if mockPanelFlags.apiKey == "" {
		return fmt.Errorf("--api-key (or PTERO_MOCK_API_KEY) is required")
	}

	logger, closer, err := setupLogging(cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer closer.Close()

	if !fileutil.DirExists(mockPanelFlags.root) {
		logger.Info("Creating mock panel root", "root", mockPanelFlags.root)
		if err := os.MkdirAll(mockPanelFlags.root, 0755); err != nil {
			return fmt.Errorf("failed to create root directory: %w", err)
		}
	}

	srv := mockpanel.New(mockpanel.Options{
		Root:       mockPanelFlags.root,
		APIKey:     mockPanelFlags.apiKey,
		RateLimit:  mockPanelFlags.rateLimit,
		FailWrites: mockPanelFlags.failWrites,
		Logger:     logger,
	})

	if err := srv.Start(mockPanelFlags.host, mockPanelFlags.port); err != nil {
		logger.Error("Mock panel failed", "error", err)
		return fmt.Errorf("mock panel failed: %w", err)
	}

	return nil
}
