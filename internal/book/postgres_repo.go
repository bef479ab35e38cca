package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalogservice/internal/platform/identity"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableBooks          = "books"
	colID               = "id"
	colISBN             = "isbn"
	colName             = "name"
	colAuthor           = "author"
	colPrice            = "price"
	colPublisher        = "publisher"
	colCreatedDate      = "created_date"
	colLastModifiedDate = "last_modified_date"
	colCreatedBy        = "created_by"
	colLastModifiedBy   = "last_modified_by"
	colVersion          = "version"
	pgUniqueViolation   = "23505"
	dialectPostgres     = "postgres"
	logMsgQueryFailed   = "book query failed"
	logMsgSQLExecuted   = "executed sql"
	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrAction       = "action"
	logAttrDurationMS   = "duration_ms"
	logAttrISBN         = "isbn"
)

var bookColumns = []any{
	colID, colISBN, colName, colAuthor, colPrice, colPublisher,
	colCreatedDate, colLastModifiedDate, colCreatedBy, colLastModifiedBy, colVersion,
}

// Logger receives SQL at debug level and storage failures at error level.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type repoOptions struct {
	now    func() time.Time
	logger Logger
}

// Option configures a repository.
type Option func(*repoOptions)

// WithClock replaces time.Now for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *repoOptions) {
		o.now = now
	}
}

// WithLogger sets the logger that traces executed SQL and storage failures.
func WithLogger(logger Logger) Option {
	return func(o *repoOptions) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) repoOptions {
	o := repoOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stamp is the audit timestamp. Postgres keeps microseconds, so the in-memory
// value is truncated to match what a later read returns.
func (o repoOptions) stamp() time.Time {
	return o.now().UTC().Truncate(time.Microsecond)
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	dialect goqu.DialectWrapper
	timeout time.Duration
	repoOptions
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration, opts ...Option) *PostgresRepo {
	return &PostgresRepo{
		db:          db,
		dialect:     goqu.Dialect(dialectPostgres),
		timeout:     timeout,
		repoOptions: buildOptions(opts),
	}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) logQuery(action, query string, start time.Time) {
	if r.logger != nil {
		r.logger.Debug(logMsgSQLExecuted,
			logAttrAction, action,
			logAttrQuery, query,
			logAttrDurationMS, time.Since(start).Milliseconds())
	}
}

func (r *PostgresRepo) logFailure(action string, err error) {
	if r.logger != nil {
		r.logger.Error(logMsgQueryFailed, logAttrAction, action, logAttrError, err.Error())
	}
}

// auditor is the value stored in created_by/last_modified_by.
func auditor(caller identity.Caller) any {
	if !caller.Authenticated() {
		return nil
	}
	return caller.Name
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b                                     Book
		price                                 float64
		publisher, createdBy, lastModifiedBy *string
	)
	if err := row.Scan(
		&b.ID, &b.ISBN, &b.Name, &b.Author, &price, &publisher,
		&b.CreatedDate, &b.LastModifiedDate, &createdBy, &lastModifiedBy, &b.Version,
	); err != nil {
		return Book{}, err
	}
	b.Price = &price
	if publisher != nil {
		b.Publisher = *publisher
	}
	if createdBy != nil {
		b.CreatedBy = *createdBy
	}
	if lastModifiedBy != nil {
		b.LastModifiedBy = *lastModifiedBy
	}
	b.CreatedDate = b.CreatedDate.UTC()
	b.LastModifiedDate = b.LastModifiedDate.UTC()
	return b, nil
}

func (r *PostgresRepo) FindAll(ctx context.Context) ([]Book, error) {
	query, args, err := r.dialect.From(tableBooks).
		Select(bookColumns...).
		Order(goqu.I(colID).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find all: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	rows, err := r.db.Query(timeoutCtx, query, args...)
	r.logQuery("find_all", query, start)
	if err != nil {
		r.logFailure("find_all", err)
		return nil, fmt.Errorf("find all books: %w", err)
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) FindByISBN(ctx context.Context, isbn string) (Book, bool, error) {
	query, args, err := r.dialect.From(tableBooks).
		Select(bookColumns...).
		Where(goqu.C(colISBN).Eq(isbn)).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, false, fmt.Errorf("build find by isbn: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery("find_by_isbn", query, start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, false, nil
		}
		r.logFailure("find_by_isbn", err)
		return Book{}, false, fmt.Errorf("find book %s: %w", isbn, err)
	}
	return b, true, nil
}

func (r *PostgresRepo) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	query, args, err := r.dialect.From(tableBooks).
		Select(goqu.L("1")).
		Where(goqu.C(colISBN).Eq(isbn)).
		Limit(1).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build exists by isbn: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	var one int
	err = r.db.QueryRow(timeoutCtx, query, args...).Scan(&one)
	r.logQuery("exists_by_isbn", query, start)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logFailure("exists_by_isbn", err)
		return false, fmt.Errorf("check book %s: %w", isbn, err)
	}
	return true, nil
}

func (r *PostgresRepo) Save(ctx context.Context, caller identity.Caller, b Book) (Book, error) {
	if b.ID == 0 {
		return r.insert(ctx, caller, b)
	}
	return r.update(ctx, caller, b)
}

func (r *PostgresRepo) insert(ctx context.Context, caller identity.Caller, b Book) (Book, error) {
	now := r.stamp()
	query, args, err := r.dialect.Insert(tableBooks).
		Rows(goqu.Record{
			colISBN:             b.ISBN,
			colName:             b.Name,
			colAuthor:           b.Author,
			colPrice:            b.PriceValue(),
			colPublisher:        nullable(b.Publisher),
			colCreatedDate:      now,
			colLastModifiedDate: now,
			colCreatedBy:        auditor(caller),
			colLastModifiedBy:   auditor(caller),
			colVersion:          0,
		}).
		Returning(bookColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, fmt.Errorf("build insert: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	saved, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery("insert", query, start)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Book{}, &AlreadyExistsError{ISBN: b.ISBN}
		}
		r.logFailure("insert", err)
		return Book{}, fmt.Errorf("insert book %s: %w", b.ISBN, err)
	}
	return saved, nil
}

func (r *PostgresRepo) update(ctx context.Context, caller identity.Caller, b Book) (Book, error) {
	set := goqu.Record{
		colName:             b.Name,
		colAuthor:           b.Author,
		colPrice:            b.PriceValue(),
		colPublisher:        nullable(b.Publisher),
		colLastModifiedDate: r.stamp(),
		colVersion:          goqu.L(colVersion + " + 1"),
	}
	// An anonymous update keeps the previous modifier.
	if caller.Authenticated() {
		set[colLastModifiedBy] = caller.Name
	}

	query, args, err := r.dialect.Update(tableBooks).
		Set(set).
		Where(goqu.Ex{colID: b.ID, colVersion: b.Version}).
		Returning(bookColumns...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, fmt.Errorf("build update: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	saved, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	r.logQuery("update", query, start)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logFailure("update", err)
		return Book{}, fmt.Errorf("update book %s: %w", b.ISBN, err)
	}

	// No row matched id and version: either the book is gone or it moved on.
	exists, err := r.ExistsByISBN(ctx, b.ISBN)
	if err != nil {
		return Book{}, err
	}
	if !exists {
		return Book{}, &NotFoundError{ISBN: b.ISBN}
	}
	if r.logger != nil {
		r.logger.Info("version conflict", logAttrISBN, b.ISBN, "expected_version", b.Version)
	}
	return Book{}, &VersionConflictError{ISBN: b.ISBN}
}

func (r *PostgresRepo) DeleteByISBN(ctx context.Context, isbn string) error {
	query, args, err := r.dialect.Delete(tableBooks).
		Where(goqu.C(colISBN).Eq(isbn)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	return r.exec(ctx, "delete_by_isbn", query, args)
}

func (r *PostgresRepo) DeleteAll(ctx context.Context) error {
	query, args, err := r.dialect.Delete(tableBooks).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete all: %w", err)
	}
	return r.exec(ctx, "delete_all", query, args)
}

func (r *PostgresRepo) exec(ctx context.Context, action, query string, args []any) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	start := time.Now()
	_, err := r.db.Exec(timeoutCtx, query, args...)
	r.logQuery(action, query, start)
	if err != nil {
		r.logFailure(action, err)
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
