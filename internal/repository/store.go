package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so
// every repository works both standalone and inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store bundles all repositories over one handle. The reconcile
// service's save and approval sweeps run through WithinTx so that
// partial failure leaves the durable state untouched.
type Store struct {
	db *sql.DB

	Batches       BatchRepository
	LedgerRows    LedgerRowRepository
	RawShifts     RawShiftRepository
	Matches       MatchRepository
	Jobs          JobRepository
	Shifts        ShiftRepository
	SpecialShifts SpecialShiftRepository
	Employees     EmployeeRepository
	Alerts        AlertRepository
	Users         UserRepository
}

func NewStore(db *sql.DB) *Store {
	s := buildStore(db)
	s.db = db
	return s
}

func buildStore(q DBTX) *Store {
	return &Store{
		Batches:       NewBatchRepository(q),
		LedgerRows:    NewLedgerRowRepository(q),
		RawShifts:     NewRawShiftRepository(q),
		Matches:       NewMatchRepository(q),
		Jobs:          NewJobRepository(q),
		Shifts:        NewShiftRepository(q),
		SpecialShifts: NewSpecialShiftRepository(q),
		Employees:     NewEmployeeRepository(q),
		Alerts:        NewAlertRepository(q),
		Users:         NewUserRepository(q),
	}
}

// WithinTx runs fn against a store bound to a single transaction,
// committing on nil and rolling back on error. A store without an
// attached database handle (as test fakes are built) runs fn against
// itself.
func (s *Store) WithinTx(ctx context.Context, fn func(*Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(buildStore(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}
