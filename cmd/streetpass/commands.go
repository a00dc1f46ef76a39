package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/StreetPass/internal/aggregate"
	"github.com/dharsanguruparan/StreetPass/internal/app"
	"github.com/dharsanguruparan/StreetPass/internal/database"
	"github.com/dharsanguruparan/StreetPass/internal/forwarder"
	"github.com/dharsanguruparan/StreetPass/internal/processing"
	"github.com/dharsanguruparan/StreetPass/internal/queue"
	"github.com/dharsanguruparan/StreetPass/internal/repository"
	"github.com/dharsanguruparan/StreetPass/internal/storage"
	"github.com/dharsanguruparan/StreetPass/internal/token"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.Migrate(e.cfg.DatabaseURL, e.logger)
		},
	}
}

func newIssueTokenCmd(e *env) *cobra.Command {
	var (
		uploadCode string
		ttl        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue-token <uid>",
		Short: "Mint an upload token for a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				ttl = e.cfg.TokenTTL
			}
			raw, err := token.NewService(e.cfg.TokenSecret, e.cfg.TokenIssuer).Issue(args[0], uploadCode, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	cmd.Flags().StringVar(&uploadCode, "upload-code", "", "Upload code embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to STREETPASS_TOKEN_TTL)")
	return cmd
}

func newReprocessCmd(e *env) *cobra.Command {
	var (
		skipExpiry bool
		workers    int
		prefix     string
		enqueue    bool
	)
	cmd := &cobra.Command{
		Use:   "reprocess [archivePath...]",
		Short: "Run archived uploads through the pipeline again",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			paths := args
			if prefix != "" {
				listed, err := a.Objects.ListArchived(ctx, prefix)
				if err != nil {
					return err
				}
				paths = append(paths, listed...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("no archived uploads given")
			}

			if enqueue {
				for _, p := range paths {
					payload := queue.ReprocessPayload{FilePath: p, CheckTokenExpiry: !skipExpiry}
					if err := queue.EnqueueReprocess(ctx, a.Queue, payload); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d uploads\n", len(paths))
				return nil
			}

			if workers <= 0 {
				workers = e.cfg.Workers
			}
			sum := processing.New(a.Pipeline, workers, e.logger.Named("replay")).Replay(ctx, paths, !skipExpiry)
			if err := printJSON(cmd.OutOrStdout(), sum); err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", sum.Failed, len(paths))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipExpiry, "skip-token-expiry", false, "Accept uploads whose token has expired since")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent pipeline runs (defaults to STREETPASS_WORKERS)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Also replay every archived upload under this prefix")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Hand the replays to the worker instead of running them here")
	return cmd
}

func newContactsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts <uid>",
		Short: "List stored exposures to a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.Connect(ctx, e.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			found, err := repository.NewContactRepository(pool).FindByContact(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), app.ExposureFilter(e.cfg).Exposures(found, args[0], time.Now()))
		},
	}
}

// localName is the audit key process-local runs under.
const localName = "upload"

func newProcessLocalCmd(e *env) *cobra.Command {
	var skipExpiry bool
	cmd := &cobra.Command{
		Use:   "process-local <file.json>",
		Short: "Run a records file through the pipeline against in-memory stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read upload: %w", err)
			}

			localPath := "local/" + localName + e.cfg.RecordsExt
			objects := storage.NewMemoryObjects()
			objects.PutArchived(localPath, data)
			store := storage.NewMemoryStore()
			fwd, err := forwarder.NewDocument(store, aggregate.PolicyAppend, e.logger)
			if err != nil {
				return err
			}
			tokens := token.NewService(e.cfg.TokenSecret, e.cfg.TokenIssuer)
			p, err := app.NewPipeline(e.cfg, e.logger, app.Stores{Objects: objects, Audit: store, Forwarder: fwd}, tokens)
			if err != nil {
				return err
			}

			res := p.Reprocess(ctx, localPath, !skipExpiry)
			out := map[string]any{"result": res}
			if entry, err := store.UploadLog(ctx, localName); err == nil {
				out["log"] = entry
				if summaries, err := store.Contacts(ctx, entry.ID); err == nil {
					out["summaries"] = summaries
				}
			} else {
				e.logger.Warn("no upload log recorded", zap.Error(err))
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&skipExpiry, "skip-token-expiry", false, "Accept an expired upload token")
	return cmd
}
