package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/storage"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func moneyFromDB(v int64) money.Cents {
	return money.Cents(v)
}

const groupColumns = "id, reservation_id, name, invite_code, created_at"

func (s *SQLiteStore) getGroupWhere(ctx context.Context, q querier, column, value string) (*models.Group, error) {
	group := &models.Group{}
	err := q.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE "+column+" = ?", value,
	).Scan(&group.ID, &group.ReservationID, &group.Name, &group.InviteCode, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group with %s %s: %w", column, value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return s.getGroupWhere(ctx, s.db, "id", id)
}

// GetGroupByInviteCode resolves an invite code to its group.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	return s.getGroupWhere(ctx, s.db, "invite_code", code)
}

// GetGroupByReservationID retrieves the group of a reservation.
func (s *SQLiteStore) GetGroupByReservationID(ctx context.Context, reservationID string) (*models.Group, error) {
	return s.getGroupWhere(ctx, s.db, "reservation_id", reservationID)
}

const memberColumns = "id, group_id, user_id, share_amount, is_paid, joined_at"

func scanMember(row scanner) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	var share int64
	if err := row.Scan(&m.ID, &m.GroupID, &m.UserID, &share, &m.IsPaid, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.ShareAmount = moneyFromDB(share)
	return m, nil
}

// GetGroupMember retrieves a membership by ID.
func (s *SQLiteStore) GetGroupMember(ctx context.Context, id string) (*models.GroupMember, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM group_members WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group member %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group member: %w", err)
	}
	return m, nil
}

// ListGroupMembers returns a group's members in join order.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID string) ([]*models.GroupMember, error) {
	return listMembers(ctx, s.db, groupID)
}

func listMembers(ctx context.Context, q querier, groupID string) ([]*models.GroupMember, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM group_members WHERE group_id = ? ORDER BY joined_at, rowid",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []*models.GroupMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}

func insertMember(ctx context.Context, q querier, m *models.GroupMember) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO group_members (id, group_id, user_id, share_amount, is_paid, joined_at) VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.GroupID, m.UserID, int64(m.ShareAmount), m.IsPaid, m.JoinedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert group member: %w", storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert group member: %w", err)
	}
	return nil
}

// committedMembers returns the IDs of members holding a pending or completed payment.
func committedMembers(ctx context.Context, q querier, groupID string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT p.group_member_id
		 FROM payments p
		 JOIN group_members m ON m.id = p.group_member_id
		 WHERE m.group_id = ? AND p.status IN ('pending', 'completed')`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list committed members: %w", err)
	}
	defer rows.Close()

	committed := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan committed member: %w", err)
		}
		committed[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate committed members: %w", err)
	}
	return committed, nil
}

// UpdateGroup applies fn to a snapshot of the group read inside a write
// transaction, then persists new members and changed shares. Nothing is
// written if fn or any statement fails.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, groupID string, fn storage.GroupMutation) (*storage.GroupLedger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := s.getGroupWhere(ctx, tx, "id", groupID)
	if err != nil {
		return nil, err
	}

	res, err := scanReservation(tx.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", group.ReservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %s: %w", group.ReservationID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	members, err := listMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	committed, err := committedMembers(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	before := make(map[string]money.Cents, len(members))
	for _, m := range members {
		before[m.ID] = m.ShareAmount
	}

	ledger := &storage.GroupLedger{
		Reservation: res,
		Group:       group,
		Members:     members,
		Committed:   committed,
	}
	if err := fn(ledger); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	for _, m := range ledger.Members {
		if m.ID == "" {
			m.ID = uuid.New().String()
			m.GroupID = groupID
			if m.JoinedAt == 0 {
				m.JoinedAt = now
			}
			if err := insertMember(ctx, tx, m); err != nil {
				return nil, err
			}
			continue
		}

		if prev, ok := before[m.ID]; ok && prev == m.ShareAmount {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE group_members SET share_amount = ? WHERE id = ? AND group_id = ?",
			int64(m.ShareAmount), m.ID, groupID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update share amount: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ledger, nil
}
