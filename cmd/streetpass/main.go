// Command streetpass is the operations CLI: schema migrations, token
// issuing, replays of archived uploads and contact queries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/config"
	"github.com/dharsanguruparan/StreetPass/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "streetpass: %v\n", err)
		os.Exit(1)
	}
}

// env is loaded once per invocation by the root command.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:   "streetpass",
		Short: "StreetPass operations CLI",
		Long: `streetpass runs maintenance tasks against the StreetPass stores: applying migrations,
issuing upload tokens, replaying archived uploads and querying contacts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
	}
	cmd.AddCommand(
		newMigrateCmd(e),
		newIssueTokenCmd(e),
		newReprocessCmd(e),
		newContactsCmd(e),
		newProcessLocalCmd(e),
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
