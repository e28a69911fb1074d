package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

// PaymentRepo provides persistence for payments.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const selectPayment = `SELECT id, booking_id, method, amount_cents, status, transaction_at, created_at FROM payments`

func scanPayment(s rowScanner) (model.Payment, error) {
	var (
		p      model.Payment
		method string
		status string
		txAt   sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.BookingID, &method, &p.AmountCents, &status, &txAt, &p.CreatedAt); err != nil {
		return model.Payment{}, err
	}
	p.Method = model.PaymentMethod(method)
	st, err := model.ParsePaymentStatus(status)
	if err != nil {
		return model.Payment{}, err
	}
	p.Status = st
	if txAt.Valid {
		t := txAt.Time
		p.TransactionAt = &t
	}
	return p, nil
}

func (r *PaymentRepo) Get(ctx context.Context, id string) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, selectPayment+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	return p, err
}

func (r *PaymentRepo) ListByBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, selectPayment+` WHERE booking_id = ? ORDER BY created_at`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p model.Payment) error {
	const q = `INSERT INTO payments (id, booking_id, method, amount_cents, status, transaction_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, p.ID, p.BookingID, string(p.Method), p.AmountCents, string(p.Status), p.TransactionAt, p.CreatedAt)
	return err
}

// SettleTx is a conditional update: only a PENDING row is touched. When no
// row changes, the status is re-read to tell a missing payment from one
// that was settled concurrently.
func (r *PaymentRepo) SettleTx(ctx context.Context, tx *sql.Tx, id string, status model.PaymentStatus, at time.Time) error {
	const q = `UPDATE payments SET status = ?, transaction_at = ? WHERE id = ? AND status = 'PENDING'`
	res, err := tx.ExecContext(ctx, q, string(status), at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM payments WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: payment %s is %s", ErrAlreadySettled, id, current)
}
