package api

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/worker"
	"github.com/new20/newsai/internal/process/pipeline"
)

// AutoFetch triggers an ingestion run immediately and then on every interval until ctx ends.
// A tick that finds a run in progress is skipped.
func AutoFetch(ctx context.Context, runner Runner, interval time.Duration, logger *zerolog.Logger) error {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       "auto-fetch",
		Interval:   interval,
		RunOnStart: true,
		Logger:     logger,
		OnTick: func(ctx context.Context) {
			res, err := runner.Run(ctx, pipeline.Options{})

			switch {
			case errors.Is(err, coreerrors.ErrRunInProgress):
				logger.Info().Msg("auto-fetch skipped, run already in progress")
			case err != nil:
				logger.Error().Err(err).Msg("auto-fetch run failed")
			default:
				logger.Info().Str("run_id", res.RunID).Int("upserted", res.Metrics.Upserted).Msg("auto-fetch complete")
			}
		},
	})
}
