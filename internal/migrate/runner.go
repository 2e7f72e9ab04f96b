package migrate

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrMigrationNotFound   = errors.New("migration not registered")
	ErrMigrationNotApplied = errors.New("migration not applied")
	ErrRollbackUnsupported = errors.New("migration has no inverse")
	ErrDuplicateMigration  = errors.New("migration id already registered")

	// ErrIndexConflict marks creation attempts against an index whose key
	// pattern already exists with different options. Database
	// implementations wrap it so the reconciler stays driver-agnostic.
	ErrIndexConflict = errors.New("index exists with conflicting options")

	// ErrIndexNotFound marks a drop of an index that does not exist.
	ErrIndexNotFound = errors.New("index not found")
)

// Runner orchestrates registration, ordering, application, rollback and
// status reporting of migrations against a single Database.
//
// The runner is single-threaded: forward functions execute strictly in id
// order, one at a time. There is no coordination across processes. If two
// replicas run concurrently, the unique index on the bookkeeping collection's
// version field is the only guard, and it rejects the duplicate record only
// after the second replica has re-applied the forward function's side
// effects. Forward functions therefore must be idempotent.
type Runner struct {
	db     Database
	logger logrus.FieldLogger

	migrations []Migration
	ids        map[string]struct{}
}

type RunnerOption func(*Runner)

func WithLogger(logger logrus.FieldLogger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner over db. The host composes the full migration
// list and registers it explicitly; there is no package-level registry.
func NewRunner(db Database, opts ...RunnerOption) *Runner {
	r := &Runner{
		db:     db,
		logger: logrus.StandardLogger(),
		ids:    make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register appends a migration to the in-memory set. IDs must be unique;
// registering a colliding or malformed migration is a programming error
// reported immediately rather than at run time.
func (r *Runner) Register(m Migration) error {
	if m.ID == "" {
		return errors.New("migration id is empty")
	}
	if m.Up == nil {
		return errors.Errorf("migration %s has no forward function", m.ID)
	}
	if _, ok := r.ids[m.ID]; ok {
		return errors.Wrap(ErrDuplicateMigration, m.ID)
	}

	r.ids[m.ID] = struct{}{}
	r.migrations = append(r.migrations, m)
	return nil
}

func (r *Runner) RegisterMany(migrations ...Migration) error {
	for _, m := range migrations {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Run applies every registered migration that has no bookkeeping record yet,
// ascending by id. The first forward-function failure aborts the whole run:
// later migrations may assume the failed one's effects exist, so skipping is
// never safe. The failed migration keeps no record and stays pending for the
// next attempt.
func (r *Runner) Run(ctx context.Context) error {
	ctx = withLogger(ctx, r.logger)

	if err := ensureBookkeeping(ctx, r.db); err != nil {
		return err
	}

	applied, err := loadRecords(ctx, r.db)
	if err != nil {
		return err
	}

	pending := 0
	for _, m := range r.sorted() {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		pending++

		r.logger.WithField("migration", m.ID).Info("applying migration")

		if err := m.Up(ctx, r.db); err != nil {
			return errors.Wrapf(err, "migration %s", m.ID)
		}
		if err := insertRecord(ctx, r.db, m.ID); err != nil {
			return err
		}

		r.logger.WithField("migration", m.ID).Info("migration applied")
	}

	if pending == 0 {
		r.logger.Debug("no pending migrations")
	}
	return nil
}

// Rollback undoes exactly one applied migration and deletes its bookkeeping
// record. A rolled-back migration is indistinguishable from one that never
// ran. Later migrations that may depend on it are not consulted; ordering of
// multi-step rollbacks is the caller's responsibility.
func (r *Runner) Rollback(ctx context.Context, id string) error {
	ctx = withLogger(ctx, r.logger)

	var target *Migration
	for i := range r.migrations {
		if r.migrations[i].ID == id {
			target = &r.migrations[i]
			break
		}
	}
	if target == nil {
		return errors.Wrap(ErrMigrationNotFound, id)
	}

	applied, err := loadRecords(ctx, r.db)
	if err != nil {
		return err
	}
	if _, ok := applied[id]; !ok {
		return errors.Wrap(ErrMigrationNotApplied, id)
	}

	if target.Down == nil {
		return errors.Wrap(ErrRollbackUnsupported, id)
	}

	r.logger.WithField("migration", id).Warn("rolling back migration")

	if err := target.Down(ctx, r.db); err != nil {
		return errors.Wrapf(err, "rolling back migration %s", id)
	}
	if err := deleteRecord(ctx, r.db, id); err != nil {
		return err
	}

	r.logger.WithField("migration", id).Info("migration rolled back")
	return nil
}

// Status reports every registered migration joined with its bookkeeping
// record, ascending by id. Reporting only; nothing is mutated and an
// unapplied migration is reported, not an error.
func (r *Runner) Status(ctx context.Context) ([]MigrationStatus, error) {
	// No ensure step: a find against a missing bookkeeping collection is
	// simply empty, and reporting must not mutate anything.
	applied, err := loadRecords(ctx, r.db)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(r.migrations))
	for _, m := range r.sorted() {
		status := MigrationStatus{
			ID:          m.ID,
			Description: m.Description,
		}
		if record, ok := applied[m.ID]; ok {
			appliedAt := record.AppliedAt
			status.Applied = true
			status.AppliedAt = &appliedAt
		}
		statuses = append(statuses, status)
	}

	return statuses, nil
}

func (r *Runner) sorted() []Migration {
	sorted := make([]Migration, len(r.migrations))
	copy(sorted, r.migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
