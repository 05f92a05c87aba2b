package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"craftfolio/internal/types"
)

func testPayment() types.Payment {
	return types.Payment{
		ID:          "pay_ledger_1",
		UserID:      "user_1",
		PlanName:    "basic",
		AmountMinor: 1000,
		Currency:    "INR",
		OrderID:     "order_abc",
		PaymentID:   "pay_xyz",
		Status:      types.PaymentStatusCompleted,
		Outcome:     types.OutcomeActivated,
	}
}

func TestPaymentRepository_RecordOutcome_Inserted(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewPaymentRepository(dbx, nil)
	ctx := context.Background()

	dbx.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	inserted, err := repo.RecordOutcome(ctx, testPayment())
	require.NoError(t, err)
	assert.True(t, inserted)
	dbx.AssertExpectations(t)
}

func TestPaymentRepository_RecordOutcome_Replay(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewPaymentRepository(dbx, nil)
	ctx := context.Background()

	// ON CONFLICT DO NOTHING reports zero rows on a duplicate (order_id, payment_id).
	dbx.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 0"), nil)

	inserted, err := repo.RecordOutcome(ctx, testPayment())
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestPaymentRepository_RecordOutcome_DBError(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewPaymentRepository(dbx, nil)
	ctx := context.Background()

	dbx.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection reset"))

	_, err := repo.RecordOutcome(ctx, testPayment())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestPaymentRepository_GetByProviderIDs_Found(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewPaymentRepository(dbx, nil)
	ctx := context.Background()

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "pay_ledger_1"
			*dest[1].(*string) = "user_1"
			*dest[2].(*string) = "basic"
			*dest[3].(*int64) = 1000
			*dest[4].(*string) = "INR"
			*dest[5].(*string) = "order_abc"
			*dest[6].(*string) = "pay_xyz"
			*dest[7].(*types.PaymentStatus) = types.PaymentStatusCompleted
			*dest[8].(*types.VerificationOutcome) = types.OutcomeActivated
			return nil
		},
	}
	dbx.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"order_abc", "pay_xyz"}).Return(row)

	p, err := repo.GetByProviderIDs(ctx, "order_abc", "pay_xyz")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "basic", p.PlanName)
	assert.Equal(t, types.OutcomeActivated, p.Outcome)
}

func TestPaymentRepository_GetByProviderIDs_NoRow(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewPaymentRepository(dbx, nil)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	dbx.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"order_abc", "pay_missing"}).Return(row)

	p, err := repo.GetByProviderIDs(ctx, "order_abc", "pay_missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}
