// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver; pragmas apply to every connection
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises write transactions, so a group is
	// never rebalanced by two writers at once.
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateReservation persists a reservation together with its group and the
// owner's membership.
func (s *SQLiteStore) CreateReservation(ctx context.Context, res *models.Reservation, group *models.Group, owner *models.GroupMember) error {
	now := time.Now().Unix()

	// Generate IDs if not set
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.CreatedAt == 0 {
		res.CreatedAt = now
	}
	if res.Status == "" {
		res.Status = models.ReservationActive
	}
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	group.ReservationID = res.ID
	if group.CreatedAt == 0 {
		group.CreatedAt = now
	}
	if owner.ID == "" {
		owner.ID = uuid.New().String()
	}
	owner.GroupID = group.ID
	if owner.JoinedAt == 0 {
		owner.JoinedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservations (id, owner_id, venue_name, venue_image, event_date, total_cost, description, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.OwnerID, res.VenueName, res.VenueImage, res.EventDate,
		int64(res.TotalCost), res.Description, string(res.Status), res.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert reservation: %w", storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE reservation_id = ?", res.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("group already exists for reservation %s: %w", res.ID, storage.ErrConflict)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, reservation_id, name, invite_code, created_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.ReservationID, group.Name, group.InviteCode, group.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "invite_code") {
			return fmt.Errorf("failed to insert group: %w", storage.ErrDuplicateInviteCode)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to insert group: %w", storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMember(ctx, tx, owner); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const reservationColumns = "id, owner_id, venue_name, venue_image, event_date, total_cost, description, status, created_at"

func scanReservation(row scanner) (*models.Reservation, error) {
	res := &models.Reservation{}
	var total int64
	var status string
	if err := row.Scan(&res.ID, &res.OwnerID, &res.VenueName, &res.VenueImage, &res.EventDate,
		&total, &res.Description, &status, &res.CreatedAt); err != nil {
		return nil, err
	}
	res.TotalCost = moneyFromDB(total)
	res.Status = models.ReservationStatus(status)
	return res, nil
}

// GetReservation retrieves a reservation by ID.
func (s *SQLiteStore) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := scanReservation(s.db.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return res, nil
}

// UpdateReservationStatus changes a reservation's status. The total cost is
// never touched.
func (s *SQLiteStore) UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE reservations SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reservation %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListReservationsByOwner returns the user's own reservations, newest first.
func (s *SQLiteStore) ListReservationsByOwner(ctx context.Context, userID string) ([]*models.Reservation, error) {
	return s.listReservations(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC",
		userID)
}

// ListReservationsByMember returns reservations whose group includes the user,
// newest first.
func (s *SQLiteStore) ListReservationsByMember(ctx context.Context, userID string) ([]*models.Reservation, error) {
	return s.listReservations(ctx,
		`SELECT r.id, r.owner_id, r.venue_name, r.venue_image, r.event_date, r.total_cost, r.description, r.status, r.created_at
		 FROM reservations r
		 JOIN groups g ON g.reservation_id = r.id
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY r.created_at DESC, r.rowid DESC`,
		userID)
}

func (s *SQLiteStore) listReservations(ctx context.Context, query string, args ...any) ([]*models.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}

	return reservations, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
