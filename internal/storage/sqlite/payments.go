package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
)

const paymentColumns = "id, group_member_id, external_ref, amount, status, paid_at, created_at"

func scanPayment(row scanner) (*models.Payment, error) {
	p := &models.Payment{}
	var ref sql.NullString
	var paidAt sql.NullInt64
	var amount int64
	var status string
	if err := row.Scan(&p.ID, &p.GroupMemberID, &ref, &amount, &status, &paidAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ExternalRef = ref.String
	p.Amount = moneyFromDB(amount)
	p.Status = models.PaymentStatus(status)
	p.PaidAt = paidAt.Int64
	return p, nil
}

// CreatePayment persists a new pending payment to the database.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	// Generate ID if not set
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = time.Now().Unix()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, group_member_id, external_ref, amount, status, paid_at, created_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?)`,
		payment.ID, payment.GroupMemberID, nullString(payment.ExternalRef),
		int64(payment.Amount), string(payment.Status), payment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert payment: %w", storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

// SetPaymentExternalRef attaches the processor's transaction reference.
func (s *SQLiteStore) SetPaymentExternalRef(ctx context.Context, paymentID, ref string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE payments SET external_ref = ? WHERE id = ?", ref, paymentID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to set external reference: %w", storage.ErrConflict)
		}
		return fmt.Errorf("failed to set external reference: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("payment %s: %w", paymentID, storage.ErrNotFound)
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// GetPaymentByExternalRef retrieves a payment by the processor's reference.
func (s *SQLiteStore) GetPaymentByExternalRef(ctx context.Context, ref string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE external_ref = ?", ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment with reference %s: %w", ref, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListPaymentsByMember retrieves all payment attempts of a member, newest first.
func (s *SQLiteStore) ListPaymentsByMember(ctx context.Context, memberID string) ([]*models.Payment, error) {
	return s.listPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE group_member_id = ? ORDER BY created_at DESC, rowid DESC",
		memberID)
}

// ListPaymentsByGroup retrieves all payment attempts of a group's members.
func (s *SQLiteStore) ListPaymentsByGroup(ctx context.Context, groupID string) ([]*models.Payment, error) {
	return s.listPayments(ctx,
		`SELECT p.id, p.group_member_id, p.external_ref, p.amount, p.status, p.paid_at, p.created_at
		 FROM payments p
		 JOIN group_members m ON m.id = p.group_member_id
		 WHERE m.group_id = ?
		 ORDER BY p.created_at DESC, p.rowid DESC`,
		groupID)
}

func (s *SQLiteStore) listPayments(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}

// CompletePayment transitions pending -> completed and sets the member's paid
// flag. The conditional UPDATE is the idempotency guard: a second call finds
// no pending row and changes nothing.
func (s *SQLiteStore) CompletePayment(ctx context.Context, paymentID string, paidAt int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE payments SET status = 'completed', paid_at = ? WHERE id = ? AND status = 'pending'",
		paidAt, paymentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete payment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE group_members SET is_paid = 1 WHERE id = (SELECT group_member_id FROM payments WHERE id = ?)",
		paymentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark member paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// FailPayment transitions pending -> failed. The member's paid flag is untouched.
func (s *SQLiteStore) FailPayment(ctx context.Context, paymentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = 'failed' WHERE id = ? AND status = 'pending'",
		paymentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to fail payment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check updated rows: %w", err)
	}
	return n > 0, nil
}
