package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/app"
	"github.com/abhisek/edubot/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive tutor (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	ctx := cmd.Context()
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	sc := session.NewSessionContext()
	opts := app.Options{
		Session:      sc,
		Credentials:  e.store.CredentialRepo(),
		Logger:       e.log,
		APIURL:       e.apiURL(),
		Timeout:      e.cfg.Timeout,
		HistoryLimit: e.cfg.HistoryLimit,
		Offline:      e.cfg.Offline,
		Recorder: &session.StoreRecorder{
			Events:  e.store.EventRepo(),
			APIURL:  e.apiURL(),
			Session: sc,
		},
	}

	if e.cfg.Offline {
		svc, err := e.offlineService(ctx, sc)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "Offline mode needs an LLM API key, e.g. GEMINI_API_KEY.")
			return err
		}
		opts.Service = svc
	} else {
		if _, err := e.restore(ctx, sc); err != nil {
			e.log.Warn("restore credential", "error", err)
		}
		client, err := e.client(sc)
		if err != nil {
			return err
		}
		opts.Service = client
		opts.Auth = client
	}

	e.log.Info("starting", "version", version, "offline", e.cfg.Offline)
	return app.Run(opts)
}
