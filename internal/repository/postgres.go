// Package repository implements PostgreSQL persistence for cards and employees.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mateotillmann/elismeres-w3/internal/model"
	"github.com/mateotillmann/elismeres-w3/internal/quota"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrCardNotFound is returned when a card id does not exist.
var (
	ErrCardNotFound = errors.New("card not found")
	// ErrAlreadyRedeemed is returned on a second redeem of the same card.
	ErrAlreadyRedeemed = errors.New("card already redeemed")
	// ErrEmployeeNotFound is returned when an employee id does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// QuotaExceededError is returned when issuing a card would overflow the
// bucket's daily limit. It carries enough detail for a caller to say which
// limit was hit.
type QuotaExceededError struct {
	Bucket quota.Bucket
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily limit of %d cards reached for the %s bucket", e.Limit, e.Bucket)
}

// PostgresRepository provides access to the card and employee tables.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the repository and brings the schema up to
// date through the embedded migrations.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry re-runs fn on transient failures (serialization conflicts,
// deadlocks, dropped connections). Terminal failures such as constraint
// violations are returned immediately.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected
	}

	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Advisory lock class for daily card quotas; keeps quota locks from colliding
// with any other advisory lock users on the same database.
const quotaLockClass = 7201

func bucketLockID(b quota.Bucket) int32 {
	if b == quota.BucketPremium {
		return 1
	}
	return 0
}

// CreateCard inserts the card if its bucket still has allowance on the card's
// issuance day. The recount and the insert run in one transaction under a
// per-day per-bucket advisory lock, so two concurrent issuances for the last
// slot cannot both pass the check.
func (r *PostgresRepository) CreateCard(ctx context.Context, card model.RewardCard) error {
	bucket := quota.BucketFor(card.CardType)
	midnight := quota.Midnight(card.IssuedAt)
	day := int32(midnight.Unix() / 86400)

	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock($1, $2)`,
			quotaLockClass+bucketLockID(bucket), day,
		)
		if err != nil {
			return fmt.Errorf("acquire quota lock: %w", err)
		}

		types := []string{string(model.CardTypeBasic), string(model.CardTypeGold)}
		if bucket == quota.BucketPremium {
			types = []string{string(model.CardTypePlatinum)}
		}

		var issuedToday int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*)
			 FROM reward_cards
			 WHERE card_type = ANY($1) AND NOT is_redeemed AND issued_at >= $2`,
			types, midnight,
		).Scan(&issuedToday)
		if err != nil {
			return fmt.Errorf("count issued cards: %w", err)
		}

		if issuedToday >= bucket.Limit() {
			return &QuotaExceededError{Bucket: bucket, Limit: bucket.Limit()}
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO reward_cards (id, employee_id, card_type, issued_at, is_redeemed)
			 VALUES ($1, $2, $3, $4, FALSE)`,
			card.ID, card.EmployeeID, string(card.CardType), card.IssuedAt,
		)
		if err != nil {
			return fmt.Errorf("insert card: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// GetCard returns a single card by id.
func (r *PostgresRepository) GetCard(ctx context.Context, id string) (*model.RewardCard, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, employee_id, card_type, issued_at, is_redeemed, redeemed_at
		 FROM reward_cards
		 WHERE id = $1`,
		id,
	)

	var c model.RewardCard
	var cardType string
	err := row.Scan(&c.ID, &c.EmployeeID, &cardType, &c.IssuedAt, &c.IsRedeemed, &c.RedeemedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	c.CardType = model.CardType(cardType)

	return &c, nil
}

// ListCards returns all cards, newest first.
func (r *PostgresRepository) ListCards(ctx context.Context) ([]model.RewardCard, error) {
	return r.queryCards(ctx,
		`SELECT id, employee_id, card_type, issued_at, is_redeemed, redeemed_at
		 FROM reward_cards
		 ORDER BY issued_at DESC`,
	)
}

// CardsByEmployee returns the cards issued to one employee, newest first.
// The employee record itself may already be gone; cards survive removal.
func (r *PostgresRepository) CardsByEmployee(ctx context.Context, employeeID string) ([]model.RewardCard, error) {
	return r.queryCards(ctx,
		`SELECT id, employee_id, card_type, issued_at, is_redeemed, redeemed_at
		 FROM reward_cards
		 WHERE employee_id = $1
		 ORDER BY issued_at DESC`,
		employeeID,
	)
}

func (r *PostgresRepository) queryCards(ctx context.Context, query string, args ...any) ([]model.RewardCard, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select cards: %w", err)
	}
	defer rows.Close()

	var cards []model.RewardCard
	for rows.Next() {
		var c model.RewardCard
		var cardType string
		if err := rows.Scan(&c.ID, &c.EmployeeID, &cardType, &c.IssuedAt, &c.IsRedeemed, &c.RedeemedAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.CardType = model.CardType(cardType)
		cards = append(cards, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cards, nil
}

// RedeemCard flips is_redeemed in a single compare-and-set statement, so the
// transition happens at most once regardless of concurrent callers.
func (r *PostgresRepository) RedeemCard(ctx context.Context, id string, now time.Time) (*model.RewardCard, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE reward_cards
		 SET is_redeemed = TRUE, redeemed_at = $2
		 WHERE id = $1 AND NOT is_redeemed`,
		id, now,
	)
	if err != nil {
		return nil, fmt.Errorf("redeem card: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		card, err := r.GetCard(ctx, id)
		if err != nil {
			return nil, err
		}
		if card.IsRedeemed {
			return nil, ErrAlreadyRedeemed
		}
		return nil, ErrCardNotFound
	}

	return r.GetCard(ctx, id)
}

// DeleteCard permanently removes a card. No tombstone is kept.
func (r *PostgresRepository) DeleteCard(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM reward_cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrCardNotFound
	}

	return nil
}

// CreateEmployee inserts a new employee record.
func (r *PostgresRepository) CreateEmployee(ctx context.Context, e model.Employee) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO employees (id, name, position, employment_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Name, e.Position, string(e.EmploymentType), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// GetEmployee returns a single employee by id.
func (r *PostgresRepository) GetEmployee(ctx context.Context, id string) (*model.Employee, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, position, employment_type, created_at
		 FROM employees
		 WHERE id = $1`,
		id,
	)

	var e model.Employee
	var employmentType string
	err := row.Scan(&e.ID, &e.Name, &e.Position, &employmentType, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	e.EmploymentType = model.EmploymentType(employmentType)

	return &e, nil
}

// ListEmployees returns all employees. Ordering is left to the service layer,
// which applies locale-aware collation.
func (r *PostgresRepository) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, position, employment_type, created_at FROM employees`,
	)
	if err != nil {
		return nil, fmt.Errorf("select employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var e model.Employee
		var employmentType string
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &employmentType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		e.EmploymentType = model.EmploymentType(employmentType)
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return employees, nil
}

// UpdateEmployee overwrites the mutable fields of an employee.
func (r *PostgresRepository) UpdateEmployee(ctx context.Context, e model.Employee) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE employees
		 SET name = $2, position = $3, employment_type = $4
		 WHERE id = $1`,
		e.ID, e.Name, e.Position, string(e.EmploymentType),
	)
	if err != nil {
		return fmt.Errorf("update employee: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}

	return nil
}

// DeleteEmployee permanently removes an employee. Cards issued to the
// employee are kept on purpose as historical record.
func (r *PostgresRepository) DeleteEmployee(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}

	return nil
}
