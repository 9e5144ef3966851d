package suppliers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inventaris/inventaris/internal/masterdata/shared"
	"github.com/inventaris/inventaris/internal/platform/db"
)

// Repository is the persistence port used by Service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ContactInfoTaken(ctx context.Context, contactInfo string, excludeID int64) (bool, error)
	// Update writes name, contact and updated_at only when the stored
	// updated_at still equals prevUpdatedAt; otherwise it returns
	// shared.ErrConflict.
	Update(ctx context.Context, supplier Supplier, prevUpdatedAt time.Time) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
}

// TxRepository exposes the operations that must share a transaction.
type TxRepository interface {
	// LockContact serialises writers of the same contact key until the
	// transaction ends.
	LockContact(ctx context.Context, contactInfo string) error
	ContactInfoTaken(ctx context.Context, contactInfo string, excludeID int64) (bool, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, q: pool}
}

const selectColumns = `SELECT id, supplier_name, contact_info, created_at, updated_at FROM suppliers`

// WithTx runs fn in a ReadCommitted transaction: statements issued after
// LockContact must see rows committed while the lock was awaited.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &repository{pool: r.pool, q: tx})
	})
	return translateError(err)
}

func (r *repository) List(ctx context.Context) ([]Supplier, error) {
	rows, err := r.q.Query(ctx, selectColumns+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("suppliers: list: %w", err)
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.SupplierName, &s.ContactInfo, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("suppliers: scan: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.q.QueryRow(ctx, selectColumns+` WHERE id = $1`, id).
		Scan(&s.ID, &s.SupplierName, &s.ContactInfo, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, shared.ErrNotFound
		}
		return Supplier{}, fmt.Errorf("suppliers: get %d: %w", id, err)
	}
	return s, nil
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("suppliers: exists %d: %w", id, err)
	}
	return exists, nil
}

func (r *repository) ContactInfoTaken(ctx context.Context, contactInfo string, excludeID int64) (bool, error) {
	var taken bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE contact_key = $1 AND id <> $2)`,
		contactKey(contactInfo), excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("suppliers: contact lookup: %w", err)
	}
	return taken, nil
}

func (r *repository) LockContact(ctx context.Context, contactInfo string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, contactKey(contactInfo)); err != nil {
		return fmt.Errorf("suppliers: lock contact: %w", err)
	}
	return nil
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	const query = `INSERT INTO suppliers (supplier_name, contact_info, contact_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.q.QueryRow(ctx, query,
		supplier.SupplierName, supplier.ContactInfo, contactKey(supplier.ContactInfo),
		supplier.CreatedAt, supplier.UpdatedAt,
	).Scan(&supplier.ID)
	if err != nil {
		return Supplier{}, fmt.Errorf("suppliers: insert: %w", translateError(err))
	}
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, supplier Supplier, prevUpdatedAt time.Time) error {
	const query = `UPDATE suppliers
SET supplier_name = $1, contact_info = $2, contact_key = $3, updated_at = $4
WHERE id = $5 AND updated_at = $6`
	tag, err := r.q.Exec(ctx, query,
		supplier.SupplierName, supplier.ContactInfo, contactKey(supplier.ContactInfo),
		supplier.UpdatedAt, supplier.ID, prevUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("suppliers: update %d: %w", supplier.ID, translateError(err))
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConflict
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("suppliers: delete %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// translateError maps serialization failures and deadlocks onto
// shared.ErrConflict.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return shared.ErrConflict
		}
	}
	return err
}
