// Package worker plugs dataset analysis into the asynq server loop.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/queue"
)

// DatasetProcessor parses and analyzes one stored dataset.
type DatasetProcessor interface {
	Process(ctx context.Context, datasetID string) error
}

// Processor handles queue tasks.
type Processor struct {
	datasets DatasetProcessor
}

func NewProcessor(datasets DatasetProcessor) *Processor {
	return &Processor{datasets: datasets}
}

// Handler registers the analyze task handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeAnalyzeDataset, p.HandleAnalyze)
	return mux
}

// HandleAnalyze runs the analysis. Failures that retrying cannot fix, such as
// a deleted dataset or unparseable content, skip the retry queue.
func (p *Processor) HandleAnalyze(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseAnalyzePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := logging.With().Str("dataset_id", payload.DatasetID).Logger()
	if err := p.datasets.Process(ctx, payload.DatasetID); err != nil {
		log.Error().Err(err).Msg("analyze failed")
		if apperr.Is(err, apperr.NotFound) || apperr.Is(err, apperr.InvalidInput) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	log.Info().Msg("dataset analyzed")
	return nil
}

// IsSkipRetry reports whether err opted out of retries.
func IsSkipRetry(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
