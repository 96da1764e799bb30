package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/model"
	logpkg "github.com/kilianp07/techsched/infra/logger"
)

const faultColumns = `id, student_id, locker_id, fault_type, severity, books_stuck, is_urgent,
	status, description, created_at, resolved_at, assigned_technician`

// SQLiteStore persists faults to a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	clock func() time.Time
	log   logger.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the time source used for created_at and resolved_at.
func WithClock(clock func() time.Time) Option {
	return func(s *SQLiteStore) { s.clock = clock }
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) { s.log = l }
}

// NewSQLiteStore opens or creates the database at path and migrates the schema.
// Use ":memory:" for a private in-memory database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if err := migrateUp(db); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (migrate err: %w)", cerr, err)
		}
		return nil, err
	}
	s := &SQLiteStore{
		db:    db,
		clock: func() time.Time { return time.Now().UTC() },
		log:   logpkg.New("fault-store"),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Create stores a new open fault and returns it with its assigned id.
func (s *SQLiteStore) Create(ctx context.Context, n NewFault) (model.Fault, error) {
	if err := n.Validate(); err != nil {
		return model.Fault{}, err
	}
	f := n.Fault(s.clock())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO faults (student_id, locker_id, fault_type, severity, books_stuck, is_urgent,
			status, description, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.StudentID, f.LockerID, string(f.Type), f.Severity, f.BooksStuck, f.IsUrgent,
		string(f.Status), f.Description, f.CreatedAt.UnixNano())
	if err != nil {
		return model.Fault{}, fmt.Errorf("insert fault: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Fault{}, fmt.Errorf("insert fault: %w", err)
	}
	f.ID = strconv.FormatInt(id, 10)
	s.log.Debugw("fault created", map[string]any{"fault_id": f.ID, "type": f.Type, "urgent": f.IsUrgent})
	return f, nil
}

// Get returns the fault with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.Fault, error) {
	return getFault(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getFault(ctx context.Context, q queryer, id string) (model.Fault, error) {
	key, err := parseID(id)
	if err != nil {
		return model.Fault{}, err
	}
	row := q.QueryRowContext(ctx, `SELECT `+faultColumns+`, 0 FROM faults WHERE id = ?`, key)
	f, err := scanFault(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Fault{}, fmt.Errorf("%w: %s", ErrFaultNotFound, id)
	}
	return f, err
}

// List returns faults matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, flt Filter) ([]model.Fault, error) {
	var args []any
	query := `SELECT ` + faultColumns + `, 0 FROM faults WHERE 1=1`
	if flt.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(flt.Status))
	}
	if flt.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, flt.StudentID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return s.query(ctx, query, args...)
}

// ListOpen returns every Open fault, oldest first, with IsRecurring set when
// the same student reported the same fault type earlier and that report was
// resolved or closed.
func (s *SQLiteStore) ListOpen(ctx context.Context) ([]model.Fault, error) {
	query := `SELECT ` + faultColumns + `,
		EXISTS (
			SELECT 1 FROM faults p
			WHERE p.student_id = faults.student_id
			  AND p.fault_type = faults.fault_type
			  AND p.id <> faults.id
			  AND p.status IN (?, ?)
			  AND (p.created_at < faults.created_at OR (p.created_at = faults.created_at AND p.id < faults.id))
		)
		FROM faults WHERE status = ? ORDER BY created_at, id`
	return s.query(ctx, query, string(model.StatusResolved), string(model.StatusClosed), string(model.StatusOpen))
}

// UpdateStatus moves a fault through the status state machine.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, to model.Status, technician string) (StatusChange, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StatusChange{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getFault(ctx, tx, id)
	if err != nil {
		return StatusChange{}, err
	}
	next, err := model.Transition(cur, to, model.TransitionOptions{Technician: technician, Now: s.clock()})
	if err != nil {
		return StatusChange{}, err
	}
	var resolved any
	if next.ResolvedAt != nil {
		resolved = next.ResolvedAt.UnixNano()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE faults SET status = ?, resolved_at = ?, assigned_technician = ? WHERE id = ?`,
		string(next.Status), resolved, next.AssignedTechnician, cur.ID); err != nil {
		return StatusChange{}, fmt.Errorf("update fault %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return StatusChange{}, err
	}
	s.log.Infow("fault status changed", map[string]any{"fault_id": id, "from": cur.Status, "to": next.Status})
	return StatusChange{Fault: next, From: cur.Status}, nil
}

// Delete removes a fault.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM faults WHERE id = ?`, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrFaultNotFound, id)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]model.Fault, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Fault
	for rows.Next() {
		f, err := scanFault(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFault(sc scanner) (model.Fault, error) {
	var (
		f         model.Fault
		id        int64
		ftype     string
		status    string
		created   int64
		resolved  sql.NullInt64
		recurring bool
	)
	if err := sc.Scan(&id, &f.StudentID, &f.LockerID, &ftype, &f.Severity, &f.BooksStuck, &f.IsUrgent,
		&status, &f.Description, &created, &resolved, &f.AssignedTechnician, &recurring); err != nil {
		return model.Fault{}, err
	}
	f.ID = strconv.FormatInt(id, 10)
	f.Type = model.FaultType(ftype)
	f.Status = model.Status(status)
	f.CreatedAt = time.Unix(0, created).UTC()
	if resolved.Valid {
		ts := time.Unix(0, resolved.Int64).UTC()
		f.ResolvedAt = &ts
	}
	f.IsRecurring = recurring
	return f, nil
}

func parseID(id string) (int64, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrFaultNotFound, id)
	}
	return key, nil
}
