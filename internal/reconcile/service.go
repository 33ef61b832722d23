// Package reconcile drives the full reconciliation pipeline: export
// ingestion, match proposal and confirmation, aggregation, and the
// transactional save / approve / reject workflow that protects approved
// hours from ever being double-counted.
package reconcile

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/crewtally/tally-api/internal/aggregate"
	"github.com/crewtally/tally-api/internal/ingest"
	"github.com/crewtally/tally-api/internal/match"
	"github.com/crewtally/tally-api/internal/models"
	"github.com/crewtally/tally-api/internal/repository"
)

// Validation sentinels. These reject a call before any side effect.
var (
	ErrBatchRequired    = errors.New("batch id is required")
	ErrLedgerRowTaken   = errors.New("ledger row already confirmed to another raw label")
	ErrUnknownLedgerRow = errors.New("ledger row does not belong to the batch")
)

// Directory is the lookup-or-create collaborator for crew-member names.
// Resolution is mandatory for regular-shift persistence.
type Directory interface {
	ResolveOrCreate(ctx context.Context, name string, branchID int64) (models.Employee, error)
}

// AlertSink receives one batch of overrun alerts after commit. Delivery
// failures come back as strings and never unwind the transaction.
type AlertSink interface {
	Dispatch(ctx context.Context, alerts []models.OverrunAlert) []string
}

// Thresholds carries the matcher confidence floors, configurable but
// defaulting to the package constants in internal/match.
type Thresholds struct {
	CrossSource  int
	DuplicateJob int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		CrossSource:  match.DefaultThreshold,
		DuplicateJob: match.DuplicateJobThreshold,
	}
}

// Service is the reconciliation orchestrator. Every operation runs to
// completion within the caller's request; nothing here spawns
// background work.
type Service struct {
	store      *repository.Store
	parser     *ingest.Parser
	directory  Directory
	alerts     AlertSink
	thresholds Thresholds
	logger     zerolog.Logger
}

func NewService(store *repository.Store, parser *ingest.Parser, dir Directory, alerts AlertSink, thresholds Thresholds, logger zerolog.Logger) *Service {
	if thresholds.CrossSource <= 0 {
		thresholds.CrossSource = match.DefaultThreshold
	}
	if thresholds.DuplicateJob <= 0 {
		thresholds.DuplicateJob = match.DuplicateJobThreshold
	}
	return &Service{
		store:      store,
		parser:     parser,
		directory:  dir,
		alerts:     alerts,
		thresholds: thresholds,
		logger:     logger.With().Str("component", "reconcile").Logger(),
	}
}

// IngestExport parses the uploaded time-clock export and stores its
// shift records under the batch, replacing any earlier upload. An
// export with no usable rows is a hard stop: nothing is persisted and
// ingest.ErrEmptyExport surfaces to the operator.
func (s *Service) IngestExport(ctx context.Context, batchID string, export io.Reader) ([]models.RawShiftRecord, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, ErrBatchRequired
	}
	if _, err := s.store.Batches.Get(ctx, batchID); err != nil {
		return nil, err
	}

	records, err := s.parser.Parse(export)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].BatchID = batchID
	}

	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		_, err := tx.RawShifts.ReplaceForBatch(ctx, batchID, records)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "store raw shifts")
	}

	s.logger.Info().Str("batch_id", batchID).Int("records", len(records)).Msg("ingested time-clock export")
	return records, nil
}

// ProposeMatches computes, for every ledger row in the batch, the best
// raw job label at or above the confidence floor. Rows with no
// qualifying candidate get a nil-label proposal routed to manual
// resolution, never a low-confidence guess.
func (s *Service) ProposeMatches(ctx context.Context, batchID string) ([]models.MatchProposal, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, ErrBatchRequired
	}

	ledgerRows, err := s.store.LedgerRows.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	labels, err := s.store.RawShifts.DistinctJobLabels(ctx, batchID)
	if err != nil {
		return nil, err
	}

	candidates := make([]match.Candidate, len(labels))
	for i, label := range labels {
		candidates[i] = match.Candidate{ID: int64(i), Label: label}
	}

	proposals := make([]models.MatchProposal, 0, len(ledgerRows))
	for _, row := range ledgerRows {
		proposal := models.MatchProposal{LedgerRowID: row.ID, LedgerName: row.JobName}
		if res, ok := match.BestMatch(row.JobName, candidates, s.thresholds.CrossSource); ok {
			label := labels[res.Candidate.ID]
			proposal.MatchedLabel = &label
			proposal.Score = res.Score
		}
		proposals = append(proposals, proposal)
	}
	return proposals, nil
}

// UnmatchedLabels returns raw job labels with no confirmed ledger row,
// surfaced separately for operator review rather than silently dropped.
func (s *Service) UnmatchedLabels(ctx context.Context, batchID string) ([]string, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, ErrBatchRequired
	}
	labels, err := s.store.RawShifts.DistinctJobLabels(ctx, batchID)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.store.Matches.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(confirmed))
	for _, m := range confirmed {
		taken[m.RawLabel] = true
	}
	var unmatched []string
	for _, label := range labels {
		if !taken[label] {
			unmatched = append(unmatched, label)
		}
	}
	return unmatched, nil
}

// Confirmation is one operator decision: map the raw label to a ledger
// row, or clear it with a nil LedgerRowID.
type Confirmation struct {
	RawLabel    string `json:"raw_label"`
	LedgerRowID *int64 `json:"ledger_row_id"`
}

// ConfirmMatches applies operator confirmations in one transaction and
// returns the number of mappings written. The 1:1 rule is enforced
// here: confirming a second label to an already-taken ledger row
// rejects the whole call.
func (s *Service) ConfirmMatches(ctx context.Context, batchID string, confirmations []Confirmation) (int, error) {
	if strings.TrimSpace(batchID) == "" {
		return 0, ErrBatchRequired
	}

	ledgerRows, err := s.store.LedgerRows.ListByBatch(ctx, batchID)
	if err != nil {
		return 0, err
	}
	known := make(map[int64]bool, len(ledgerRows))
	for _, row := range ledgerRows {
		known[row.ID] = true
	}

	updated := 0
	err = s.store.WithinTx(ctx, func(tx *repository.Store) error {
		for _, c := range confirmations {
			label := strings.TrimSpace(c.RawLabel)
			if label == "" {
				continue
			}
			if c.LedgerRowID == nil {
				if err := tx.Matches.Delete(ctx, batchID, label); err != nil {
					return err
				}
				updated++
				continue
			}
			if !known[*c.LedgerRowID] {
				return errors.Wrapf(ErrUnknownLedgerRow, "row %d", *c.LedgerRowID)
			}
			taken, err := tx.Matches.LedgerRowTaken(ctx, batchID, *c.LedgerRowID, label)
			if err != nil {
				return err
			}
			if taken {
				return errors.Wrapf(ErrLedgerRowTaken, "row %d", *c.LedgerRowID)
			}
			wrote, err := tx.Matches.Upsert(ctx, batchID, label, *c.LedgerRowID)
			if err != nil {
				return err
			}
			if wrote {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Aggregate recomputes the batch rollup from confirmed matches and raw
// shifts. It persists nothing and is idempotent over unchanged inputs.
func (s *Service) Aggregate(ctx context.Context, batchID string) ([]models.AggregatedLine, []models.RawShiftRecord, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, nil, ErrBatchRequired
	}

	shifts, err := s.store.RawShifts.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	confirmed, err := s.store.Matches.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}

	matches := make(map[string]int64, len(confirmed))
	for _, m := range confirmed {
		matches[m.RawLabel] = m.LedgerRowID
	}
	lines, unmatched := aggregate.Rollup(shifts, matches)
	return lines, unmatched, nil
}
