package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/model"
	logpkg "github.com/kilianp07/techsched/infra/logger"
)

const studentsWithSchoolQuery = `
	SELECT DISTINCT
		s.id::text,
		COALESCE(s."fname", ''),
		COALESCE(s."lname", ''),
		COALESCE(s."studentId", ''),
		COALESCE(s.class, ''),
		COALESCE(sc.name, '')
	FROM "Student" s
	LEFT JOIN "School" sc ON s."schoolId" = CAST(sc.id AS TEXT)
	ORDER BY 2, 3
`

// studentsQuery is used when the School table is unavailable.
const studentsQuery = `
	SELECT DISTINCT
		s.id::text,
		COALESCE(s."fname", ''),
		COALESCE(s."lname", ''),
		COALESCE(s."studentId", ''),
		COALESCE(s.class, ''),
		''
	FROM "Student" s
	ORDER BY 2, 3
`

// PostgresDirectory reads students from the school management database.
type PostgresDirectory struct {
	Pool *pgxpool.Pool
	log  logger.Logger
}

// NewPostgresDirectory connects to the database and verifies the connection.
func NewPostgresDirectory(ctx context.Context, connString string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresDirectory{Pool: pool, log: logpkg.New("directory")}, nil
}

// Students loads all students with their school name. When the join against
// the School table fails the students are returned without schools.
func (d *PostgresDirectory) Students(ctx context.Context) ([]model.Student, error) {
	students, err := d.query(ctx, studentsWithSchoolQuery)
	if err == nil {
		return students, nil
	}
	d.log.Warnf("student query with schools failed, retrying without: %v", err)
	students, ferr := d.query(ctx, studentsQuery)
	if ferr != nil {
		return nil, fmt.Errorf("load students: %w", ferr)
	}
	return students, nil
}

func (d *PostgresDirectory) query(ctx context.Context, q string) ([]model.Student, error) {
	rows, err := d.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Student, error) {
		var s model.Student
		err := row.Scan(&s.ID, &s.FirstName, &s.LastName, &s.StudentID, &s.Class, &s.SchoolName)
		return s, err
	})
}

// Close closes the connection pool.
func (d *PostgresDirectory) Close() {
	d.Pool.Close()
}
