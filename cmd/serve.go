package cmd

import (
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vibeboard/vibeboard/api"
	"github.com/vibeboard/vibeboard/config"
	"github.com/vibeboard/vibeboard/janitor"
	"github.com/vibeboard/vibeboard/store"
	"github.com/vibeboard/vibeboard/uploads"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vibeboard server",
	Long:  `Start the vibeboard server: the REST API, the embedded frontend and the periodic upload sweep.`,
	Run:   serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	level := rootCmdPersistentFlags.LogLevel
	if level == "" {
		level = cfg.Server.LogLevel
	}
	setLogLevel(level)

	st, err := store.NewFileStore(cfg.DocumentPath(), store.AdminCredentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}

	um, err := uploads.New(cfg.UploadsDir())
	if err != nil {
		log.Fatalf("failed to initialize uploads: %v", err)
	}

	server, err := api.New(cfg, st, um, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Janitor != nil && cfg.Janitor.Enabled {
		j := janitor.New(st, um, cfg.Janitor)
		go func() {
			if err := j.Run(ctx); err != nil {
				log.Error("janitor error", "error", err)
			}
		}()
	}

	log.Info("starting server", "listen", cfg.Server.Listen, "data_dir", cfg.Server.DataDir)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Info("vibeboard stopped")
}
