package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"craftfolio/internal/types"
)

// PaymentRepository manages the payments ledger.
//
// The ledger carries a UNIQUE (order_id, payment_id) constraint, which makes
// it the idempotency guard for the verification flow: recording an outcome
// for an already-seen pair is a no-op, and the stored row tells a retried
// caller what happened the first time.
type PaymentRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewPaymentRepository creates a new PaymentRepository backed by the given
// database connection (pool or transaction).
func NewPaymentRepository(db DBTX, logger *slog.Logger) *PaymentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentRepository{db: db, logger: logger}
}

// RecordOutcome inserts a ledger row for a verified callback. Returns
// inserted=false without error when the (order_id, payment_id) pair already
// exists -- the caller should treat the callback as a replay and read the
// recorded outcome instead.
func (r *PaymentRepository) RecordOutcome(ctx context.Context, p types.Payment) (inserted bool, err error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO payments
		   (id, user_id, plan_name, amount_minor, currency, order_id, payment_id, status, outcome, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 ON CONFLICT (order_id, payment_id) DO NOTHING`,
		p.ID,
		p.UserID,
		p.PlanName,
		p.AmountMinor,
		p.Currency,
		p.OrderID,
		p.PaymentID,
		p.Status,
		p.Outcome,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to record payment outcome", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Info("payment callback replayed; ledger row already exists",
			slog.String("order_id", p.OrderID),
			slog.String("payment_id", p.PaymentID),
		)
		return false, nil
	}

	return true, nil
}

// GetByProviderIDs returns the ledger row for the given provider order and
// payment IDs, or nil if no such row exists.
func (r *PaymentRepository) GetByProviderIDs(ctx context.Context, orderID, paymentID string) (*types.Payment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, plan_name, amount_minor, currency, order_id, payment_id, status, outcome, created_at
		 FROM payments
		 WHERE order_id = $1 AND payment_id = $2`,
		orderID,
		paymentID,
	)

	var p types.Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.PlanName,
		&p.AmountMinor,
		&p.Currency,
		&p.OrderID,
		&p.PaymentID,
		&p.Status,
		&p.Outcome,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load payment", err)
	}

	return &p, nil
}

// ListByUser returns the user's ledger rows, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*types.Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, plan_name, amount_minor, currency, order_id, payment_id, status, outcome, created_at
		 FROM payments
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list payments", err)
	}
	defer rows.Close()

	var payments []*types.Payment
	for rows.Next() {
		var p types.Payment
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PlanName,
			&p.AmountMinor,
			&p.Currency,
			&p.OrderID,
			&p.PaymentID,
			&p.Status,
			&p.Outcome,
			&p.CreatedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan payment row", err)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate payment rows", err)
	}

	return payments, nil
}
