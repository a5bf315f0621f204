package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"stayhold/internal/events"
)

// HoldAuditEntry is one recorded hold mutation.
type HoldAuditEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	LockID    string    `json:"lock_id,omitempty"`
	RoomID    int64     `json:"room_id,omitempty"`
	RoomNo    string    `json:"room_no,omitempty"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	CheckIn   time.Time `json:"check_in,omitempty"`
	CheckOut  time.Time `json:"check_out,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Receipt is the durable trace of a confirmed booking.
type Receipt struct {
	BookingID   string    `json:"booking_id"`
	SessionID   string    `json:"session_id"`
	GrandTotal  int64     `json:"grand_total"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// RecordHoldEvent appends one audit row for an action on a session.
func (d *DB) RecordHoldEvent(ctx context.Context, action string, p events.HoldEventPayload) error {
	query := `INSERT INTO hold_audit (session_id, lock_id, room_id, room_no, action, reason, check_in, check_out, expires_at, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := d.db.ExecContext(ctx, query,
		p.SessionID,
		nullString(p.LockID),
		nullInt64(p.RoomID),
		nullString(p.RoomNumber),
		action,
		nullString(p.Reason),
		nullTime(p.CheckIn),
		nullTime(p.CheckOut),
		nullTime(p.ExpiresAt),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record hold event: %w", err)
	}
	return nil
}

// SaveReceipt stores the confirmation trace. Idempotent on booking id.
func (d *DB) SaveReceipt(ctx context.Context, r Receipt) error {
	query := `INSERT OR REPLACE INTO receipts (booking_id, session_id, grand_total, confirmed_at)
              VALUES (?, ?, ?, ?)`
	if _, err := d.db.ExecContext(ctx, query, r.BookingID, r.SessionID, r.GrandTotal, r.ConfirmedAt); err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

// SessionTrail returns the audit rows for one session, oldest first.
func (d *DB) SessionTrail(ctx context.Context, sessionID string) ([]HoldAuditEntry, error) {
	query := `SELECT id, session_id, lock_id, room_id, room_no, action, reason, check_in, check_out, expires_at, created_at
              FROM hold_audit WHERE session_id = ? ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session trail: %w", err)
	}
	defer rows.Close()

	var entries []HoldAuditEntry
	for rows.Next() {
		var e HoldAuditEntry
		var lockID, roomNo, reason sql.NullString
		var roomID sql.NullInt64
		var checkIn, checkOut, expiresAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.SessionID, &lockID, &roomID, &roomNo, &e.Action, &reason, &checkIn, &checkOut, &expiresAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.LockID = lockID.String
		e.RoomID = roomID.Int64
		e.RoomNo = roomNo.String
		e.Reason = reason.String
		e.CheckIn = checkIn.Time
		e.CheckOut = checkOut.Time
		e.ExpiresAt = expiresAt.Time
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return entries, nil
}

// Receipt returns the stored confirmation for a booking id, or nil.
func (d *DB) Receipt(ctx context.Context, bookingID string) (*Receipt, error) {
	query := `SELECT booking_id, session_id, grand_total, confirmed_at FROM receipts WHERE booking_id = ?`
	var r Receipt
	err := d.db.QueryRowContext(ctx, query, bookingID).Scan(&r.BookingID, &r.SessionID, &r.GrandTotal, &r.ConfirmedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query receipt: %w", err)
	}
	return &r, nil
}

// EventHandler adapts the audit log to the event bus: every published
// checkout event of the subscribed type becomes one audit row, and a
// confirmation additionally becomes a receipt.
func (d *DB) EventHandler(eventType string) events.EventHandler {
	return func(event *events.Event) error {
		var p events.HoldEventPayload
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &p); err != nil {
				d.logger.Error().Err(err).Str("event", eventType).Msg("failed to decode hold event payload")
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := d.RecordHoldEvent(ctx, eventType, p); err != nil {
			d.logger.Error().Err(err).Str("event", eventType).Msg("failed to record audit row")
			return err
		}

		if eventType == events.EventBookingConfirmed && p.BookingID != "" {
			if err := d.SaveReceipt(ctx, Receipt{
				BookingID:   p.BookingID,
				SessionID:   p.SessionID,
				GrandTotal:  p.GrandTotal,
				ConfirmedAt: event.CreatedAt,
			}); err != nil {
				d.logger.Error().Err(err).Str("booking_id", p.BookingID).Msg("failed to save receipt")
				return err
			}
		}
		return nil
	}
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(i int64) interface{} {
	if i == 0 {
		return nil
	}
	return i
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
