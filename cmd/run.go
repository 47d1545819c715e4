package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lotsmith/internal/catalog"
	"github.com/sells-group/lotsmith/internal/model"
	"github.com/sells-group/lotsmith/internal/session"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run <archive.zip>",
	Short: "Enrich every lot in a catalog archive and export the result",
	Long:  "Parses an AuctionMethod catalog export (items list plus lead images), enriches each lot sequentially, and writes a CSV with the rewritten titles and descriptions.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "run: read archive")
		}

		lots, err := catalog.ParseArchive(data)
		if err != nil {
			return eris.Wrap(err, "run: parse archive")
		}
		if len(lots) == 0 {
			return eris.New("run: archive contains no lots")
		}

		sess := session.New(uuid.NewString(), lots, buildEnricher(cfg), sessionConfig(cfg))
		sess.OnUpdate(func(index int, lot model.EnrichedLot) {
			zap.L().Info("lot updated",
				zap.String("lot", lot.Original.LotNumber),
				zap.String("status", string(lot.Status)),
			)
		})

		g, gctx := errgroup.WithContext(ctx)
		loopDone := make(chan struct{})
		g.Go(func() error {
			defer close(loopDone)
			return sess.Run(gctx)
		})
		g.Go(func() error {
			return reportProgress(gctx, loopDone, sess, progressEvery)
		})
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "run: enrichment loop")
		}

		out, err := catalog.ExportCSV(sess.Snapshot())
		if err != nil {
			return eris.Wrap(err, "run: export")
		}

		dest := runOutput
		if dest == "" {
			dest = outputPath(args[0])
		}
		if err := os.WriteFile(dest, out, 0644); err != nil {
			return eris.Wrap(err, "run: write output")
		}

		summary := sess.Summary()
		zap.L().Info("run complete",
			zap.String("output", dest),
			zap.Int("total", summary.Total),
			zap.Int("enriched", summary.Enriched),
			zap.Int("errors", summary.Errors),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runOutput, "output", "", "output CSV path (default <archive>-enriched.csv)")
	rootCmd.AddCommand(runCmd)
}

// outputPath derives the default export path from the archive name.
func outputPath(archive string) string {
	base := strings.TrimSuffix(archive, filepath.Ext(archive))
	return base + "-enriched.csv"
}

const progressEvery = 15 * time.Second

type summarizer interface {
	Summary() model.Summary
}

// reportProgress logs the aggregate batch counts on a fixed cadence while the
// run loop is active. It returns nil in every case so a finished or cancelled
// run surfaces the loop's own error, not the reporter's.
func reportProgress(ctx context.Context, done <-chan struct{}, s summarizer, every time.Duration) error {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return nil
		case <-tick.C:
			sum := s.Summary()
			zap.L().Info("enrichment progress",
				zap.Int("enriched", sum.Enriched),
				zap.Int("errors", sum.Errors),
				zap.Int("remaining", sum.Remaining),
				zap.Int("total", sum.Total),
			)
		}
	}
}
