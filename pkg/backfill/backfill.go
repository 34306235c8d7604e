// Package backfill fills the gap between the last processed webhook
// notification and now by re-walking Graph's callRecords feed directly,
// for the window where a subscription renewal failed, the relay dropped a
// notification, or the service was simply down. It shares the classify/
// dedupe/enqueue path with pkg/ingest entirely — a backfilled call record
// and a webhook-delivered one are processed identically from the moment
// their id is known.
package backfill

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/meetingcore/pkg/graph"
	"github.com/codeready-toolchain/meetingcore/pkg/ingest"
	"github.com/codeready-toolchain/meetingcore/pkg/store"
)

// gapDetectionMargin is subtracted from the last webhook's processed_at to
// form the gap-based cutoff, covering a notification that arrived slightly
// out of order around the boundary.
const gapDetectionMargin = 5 * time.Minute

// Service runs a backfill sweep each time Run is called; the only caller is
// the `webhooks listen --backfill` CLI path. Nothing in the module schedules
// periodic sweeps.
type Service struct {
	graph       *graph.Client
	callRecords *store.CallRecordStore
	runs        *store.BackfillStore
	handler     *ingest.Handler
}

// NewService builds a backfill Service.
func NewService(g *graph.Client, callRecords *store.CallRecordStore, runs *store.BackfillStore, handler *ingest.Handler) *Service {
	return &Service{graph: g, callRecords: callRecords, runs: runs, handler: handler}
}

// Run sweeps callRecords since the cutoff — the earlier of lookbackHours
// ago and (last webhook processed_at - gapDetectionMargin) — so a short
// outage is covered by gap detection while a cold start falls back to the
// full requested lookback window.
func (s *Service) Run(ctx context.Context, lookbackHours int) (*store.BackfillRun, error) {
	cutoff, err := s.cutoff(ctx, lookbackHours)
	if err != nil {
		return nil, err
	}
	slog.Info("backfill sweep starting", "cutoff", cutoff, "lookback_hours", lookbackHours)

	records, err := s.graph.ListCallRecordsSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	run := &store.BackfillRun{
		LookbackHours:    lookbackHours,
		CallRecordsFound: len(records),
	}

	for _, record := range records {
		result := s.handler.ProcessCallRecord(ctx, record.ID, store.SourceBackfill)
		switch result.Status {
		case ingest.StatusProcessed:
			run.MeetingsCreated++
			run.JobsCreated++
		case ingest.StatusSkipped:
			run.SkippedNoOptin++
		case ingest.StatusJobExists, ingest.StatusDuplicate:
			// Expected overlap with webhook-driven or prior backfill
			// processing — not an error, just nothing new to do.
		case ingest.StatusError:
			run.Errors++
			slog.Warn("backfill: call record processing failed", "call_record_id", record.ID, "error", result.Error)
		}
	}

	if err := s.runs.RecordRun(ctx, run); err != nil {
		slog.Warn("recording backfill run failed", "error", err)
	}

	slog.Info("backfill sweep complete",
		"call_records_found", run.CallRecordsFound,
		"meetings_created", run.MeetingsCreated,
		"skipped_no_optin", run.SkippedNoOptin,
		"errors", run.Errors,
	)
	return run, nil
}

func (s *Service) cutoff(ctx context.Context, lookbackHours int) (time.Time, error) {
	lookbackCutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	lastWebhook, err := s.callRecords.MostRecentBySource(ctx, store.SourceWebhook)
	if err != nil {
		return time.Time{}, err
	}
	if lastWebhook == nil {
		return lookbackCutoff, nil
	}

	gapCutoff := lastWebhook.Add(-gapDetectionMargin)
	if lookbackCutoff.Before(gapCutoff) {
		return lookbackCutoff, nil
	}
	return gapCutoff, nil
}
