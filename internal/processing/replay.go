// Package processing replays archived uploads through the pipeline with a
// bounded number of concurrent runs.
package processing

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/StreetPass/internal/pipeline"
)

// Reprocessor is the part of *pipeline.Pipeline a replay needs.
type Reprocessor interface {
	Reprocess(ctx context.Context, filePath string, checkTokenExpiry bool) pipeline.Result
}

// Outcome pairs a replayed file with its result.
type Outcome struct {
	FilePath string          `json:"filePath"`
	Result   pipeline.Result `json:"result"`
}

// Summary counts outcomes of a replay.
type Summary struct {
	Outcomes  []Outcome `json:"outcomes"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
}

// Pool runs replays with at most workers concurrent pipeline runs.
type Pool struct {
	runner  Reprocessor
	workers int
	logger  *zap.Logger
}

// New builds a Pool. A non-positive worker count means one.
func New(runner Reprocessor, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{runner: runner, workers: workers, logger: logger}
}

// Replay reprocesses every path. A failed file does not stop the others;
// cancelling ctx stops scheduling and the files not yet started are left
// out of the summary. Outcomes keep the order of paths.
func (p *Pool) Replay(ctx context.Context, paths []string, checkTokenExpiry bool) Summary {
	results := make([]*Outcome, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return nil
			}
			res := p.runner.Reprocess(gctx, path, checkTokenExpiry)
			p.logger.Info("replayed upload", zap.String("filePath", path), zap.String("status", string(res.Status)))
			mu.Lock()
			results[i] = &Outcome{FilePath: path, Result: res}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var sum Summary
	for _, o := range results {
		if o == nil {
			continue
		}
		sum.Outcomes = append(sum.Outcomes, *o)
		switch o.Result.Status {
		case pipeline.StatusSuccess:
			sum.Succeeded++
		case pipeline.StatusError:
			sum.Failed++
		default:
			sum.Skipped++
		}
	}
	return sum
}
