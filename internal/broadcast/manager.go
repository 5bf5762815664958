// Package broadcast implements the broadcast lifecycle: composing, scheduling,
// sending to a segment's groups, editing, and deleting sent copies.
package broadcast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/avdeev/teleblast/internal/database"
)

// Sentinel errors surfaced to callers; handlers translate these into
// user-facing replies.
var (
	// ErrNotFound indicates the broadcast id doesn't exist.
	ErrNotFound = errors.New("broadcast not found")

	// ErrDeleted indicates the broadcast was already deleted; deletion is terminal.
	ErrDeleted = errors.New("broadcast already deleted")

	// ErrAutoDeleteTooLate indicates the requested auto-delete time exceeds
	// the allowed horizon after publication.
	ErrAutoDeleteTooLate = errors.New("auto-delete time exceeds allowed horizon after publication")
)

// DefaultAutoDeleteHorizon bounds how long after publication a broadcast may
// live before auto-deletion. Telegram only allows bots to delete messages
// within 48 hours, so later deadlines would silently fail.
const DefaultAutoDeleteHorizon = 48 * time.Hour

// Messenger is the messaging capability the manager needs. The production
// implementation wraps the Telegram Bot API.
type Messenger interface {
	// CopyMessage copies a message into toChatID and returns the new message id.
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int) (int, error)
	// EditMessageText replaces the text of an already-sent message.
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	// DeleteMessage removes an already-sent message.
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// CreateParams describes a new broadcast draft.
type CreateParams struct {
	SegmentID       int64 // 0 targets every registered group
	ContentType     string
	Content         string // text payload; empty for media broadcasts
	SourceChatID    int64
	SourceMessageID int
	ScheduledAt     *time.Time
}

// SendResult reports delivery counts for one send pass.
type SendResult struct {
	Sent  int
	Total int
}

// Manager coordinates broadcast state between the store and the messenger.
type Manager struct {
	store     database.Store
	messenger Messenger
	logger    *slog.Logger

	horizon time.Duration
	now     func() time.Time
}

// NewManager creates a broadcast manager. A zero horizon falls back to
// DefaultAutoDeleteHorizon.
func NewManager(store database.Store, messenger Messenger, logger *slog.Logger, horizon time.Duration) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if horizon <= 0 {
		horizon = DefaultAutoDeleteHorizon
	}
	return &Manager{
		store:     store,
		messenger: messenger,
		logger:    logger.With("component", "broadcast"),
		horizon:   horizon,
		now:       time.Now,
	}
}

// Create inserts a new broadcast draft and returns it with its id filled in.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*database.Broadcast, error) {
	b := &database.Broadcast{
		ContentType:     params.ContentType,
		SourceChatID:    params.SourceChatID,
		SourceMessageID: params.SourceMessageID,
		CreatedAt:       m.now(),
	}
	if params.SegmentID != 0 {
		b.SegmentID = sql.NullInt64{Int64: params.SegmentID, Valid: true}
	}
	if params.Content != "" {
		b.Content = sql.NullString{String: params.Content, Valid: true}
	}
	if params.ScheduledAt != nil {
		b.ScheduledAt = sql.NullTime{Time: *params.ScheduledAt, Valid: true}
	}

	if err := m.store.CreateBroadcast(ctx, b); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Broadcast created",
		"broadcast_id", b.ID, "content_type", b.ContentType, "segment_id", params.SegmentID)
	return b, nil
}

// Schedule sets when the broadcast should be sent and which message to copy.
func (m *Manager) Schedule(ctx context.Context, id int64, at time.Time, sourceChatID int64, sourceMessageID int) error {
	b, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if b.Deleted {
		return ErrDeleted
	}

	if err := m.store.SetBroadcastSchedule(ctx, id, at, sourceChatID, sourceMessageID); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Broadcast scheduled", "broadcast_id", id, "scheduled_at", at)
	return nil
}

// SetAutoDelete sets the auto-delete deadline. The deadline must not exceed
// the horizon after the publish time (the scheduled time for unsent
// broadcasts, creation time otherwise); a rejected deadline leaves any
// previously stored one untouched.
func (m *Manager) SetAutoDelete(ctx context.Context, id int64, at time.Time) error {
	b, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if b.Deleted {
		return ErrDeleted
	}

	publishedAt := b.CreatedAt
	if b.ScheduledAt.Valid {
		publishedAt = b.ScheduledAt.Time
	}
	if at.After(publishedAt.Add(m.horizon)) {
		return fmt.Errorf("%w: %s is more than %s after %s",
			ErrAutoDeleteTooLate, at.Format(time.RFC3339), m.horizon, publishedAt.Format(time.RFC3339))
	}

	if err := m.store.SetBroadcastAutoDelete(ctx, id, at); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Broadcast auto-delete set", "broadcast_id", id, "auto_delete_at", at)
	return nil
}

// Send resolves the target groups and copies the source message to each one.
// Recipients are resolved at send time, so segment edits between scheduling
// and sending take effect. Individual failures are logged and skipped; the
// broadcast is marked sent when at least one copy went out. Sending to an
// empty segment is not an error and leaves the broadcast unsent.
func (m *Manager) Send(ctx context.Context, id int64) (SendResult, error) {
	b, err := m.get(ctx, id)
	if err != nil {
		return SendResult{}, err
	}
	if b.Deleted {
		return SendResult{}, ErrDeleted
	}

	var chatIDs []int64
	if b.SegmentID.Valid {
		chatIDs, err = m.store.ListGroupIDsInSegment(ctx, b.SegmentID.Int64)
	} else {
		var groups []database.Group
		groups, err = m.store.ListGroups(ctx)
		for _, g := range groups {
			chatIDs = append(chatIDs, g.ChatID)
		}
	}
	if err != nil {
		return SendResult{}, fmt.Errorf("failed to resolve recipients for broadcast %d: %w", id, err)
	}

	result := SendResult{Total: len(chatIDs)}
	for _, chatID := range chatIDs {
		messageID, err := m.messenger.CopyMessage(ctx, chatID, b.SourceChatID, b.SourceMessageID)
		if err != nil {
			m.logger.WarnContext(ctx, "Failed to deliver broadcast to chat",
				"broadcast_id", id, "chat_id", chatID, "error", err)
			continue
		}
		if err := m.store.SaveDeliveryRecord(ctx, id, chatID, messageID); err != nil {
			m.logger.ErrorContext(ctx, "Failed to record delivery",
				"broadcast_id", id, "chat_id", chatID, "error", err)
			continue
		}
		result.Sent++
	}

	if result.Sent > 0 {
		if err := m.store.MarkBroadcastSent(ctx, id); err != nil {
			return result, err
		}
	}

	m.logger.InfoContext(ctx, "Broadcast send pass finished",
		"broadcast_id", id, "sent", result.Sent, "total", result.Total)
	return result, nil
}

// Resend clears the sent flag and runs another send pass. Deliveries to chats
// that already received the broadcast replace the old record, so auto-delete
// targets the newest copy.
func (m *Manager) Resend(ctx context.Context, id int64) (SendResult, error) {
	b, err := m.get(ctx, id)
	if err != nil {
		return SendResult{}, err
	}
	if b.Deleted {
		return SendResult{}, ErrDeleted
	}

	if err := m.store.ResetBroadcastSentFlag(ctx, id); err != nil {
		return SendResult{}, err
	}
	return m.Send(ctx, id)
}

// EditText stores the new text and tries to update every sent copy in place.
// Per-chat edit failures are logged and skipped.
func (m *Manager) EditText(ctx context.Context, id int64, text string) error {
	b, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if b.Deleted {
		return ErrDeleted
	}

	if err := m.store.UpdateBroadcastText(ctx, id, text); err != nil {
		return err
	}

	records, err := m.store.ListDeliveryRecords(ctx, id)
	if err != nil {
		return err
	}
	edited := 0
	for _, record := range records {
		if err := m.messenger.EditMessageText(ctx, record.ChatID, record.MessageID, text); err != nil {
			m.logger.WarnContext(ctx, "Failed to edit broadcast copy",
				"broadcast_id", id, "chat_id", record.ChatID, "error", err)
			continue
		}
		edited++
	}

	m.logger.InfoContext(ctx, "Broadcast text edited",
		"broadcast_id", id, "edited", edited, "copies", len(records))
	return nil
}

// Delete removes every sent copy best-effort and marks the broadcast deleted.
// Deletion is terminal and idempotent: deleting an already-deleted broadcast
// does nothing.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	b, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	if b.Deleted {
		return nil
	}

	records, err := m.store.ListDeliveryRecords(ctx, id)
	if err != nil {
		return err
	}
	removed := 0
	for _, record := range records {
		if err := m.messenger.DeleteMessage(ctx, record.ChatID, record.MessageID); err != nil {
			m.logger.WarnContext(ctx, "Failed to delete broadcast copy",
				"broadcast_id", id, "chat_id", record.ChatID, "error", err)
			continue
		}
		removed++
	}

	if err := m.store.MarkBroadcastDeleted(ctx, id); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Broadcast deleted",
		"broadcast_id", id, "removed", removed, "copies", len(records))
	return nil
}

func (m *Manager) get(ctx context.Context, id int64) (*database.Broadcast, error) {
	b, err := m.store.GetBroadcast(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return b, nil
}
