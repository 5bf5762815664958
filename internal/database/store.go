package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
//
// Write operations against non-existent ids are silent no-ops (zero rows
// affected); callers detect "not found" by checking query result emptiness.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateSegment creates a segment if it doesn't exist and returns its id.
	CreateSegment(ctx context.Context, name string) (int64, error)

	// ListSegments retrieves all segments.
	ListSegments(ctx context.Context) ([]Segment, error)

	// GetSegmentByName retrieves a segment by name. Returns nil, nil if not found.
	GetSegmentByName(ctx context.Context, name string) (*Segment, error)

	// DeleteSegment deletes a segment; memberships cascade.
	DeleteSegment(ctx context.Context, segmentID int64) error

	// UpsertGroup inserts a group or refreshes its title.
	UpsertGroup(ctx context.Context, chatID int64, title string) error

	// ListGroups retrieves all registered groups.
	ListGroups(ctx context.Context) ([]Group, error)

	// ListGroupsWithSegments retrieves all groups joined with the
	// comma-separated names of their segments, ordered by title.
	ListGroupsWithSegments(ctx context.Context) ([]GroupWithSegments, error)

	// ListUnassignedGroups retrieves groups that belong to no segment.
	ListUnassignedGroups(ctx context.Context) ([]Group, error)

	// DeleteGroup removes a group entirely; memberships cascade. Historical
	// delivery records keep referencing the chat id.
	DeleteGroup(ctx context.Context, chatID int64) error

	// ListGroupSegments retrieves the names of every segment a group belongs
	// to, ordered by name.
	ListGroupSegments(ctx context.Context, chatID int64) ([]string, error)

	// AddGroupToSegment links a group to a segment. Idempotent.
	AddGroupToSegment(ctx context.Context, chatID, segmentID int64) error

	// RemoveGroupFromSegment unlinks a group from a segment.
	RemoveGroupFromSegment(ctx context.Context, chatID, segmentID int64) error

	// ListGroupIDsInSegment retrieves the chat ids of a segment's groups.
	ListGroupIDsInSegment(ctx context.Context, segmentID int64) ([]int64, error)

	// ListGroupsInSegment retrieves a segment's groups ordered by title.
	ListGroupsInSegment(ctx context.Context, segmentID int64) ([]Group, error)

	// CreateBroadcast inserts a new broadcast and fills in its id.
	CreateBroadcast(ctx context.Context, b *Broadcast) error

	// GetBroadcast retrieves a broadcast by id. Returns nil, nil if not found.
	GetBroadcast(ctx context.Context, id int64) (*Broadcast, error)

	// GetLastBroadcastID returns the highest broadcast id, or 0 when none exist.
	GetLastBroadcastID(ctx context.Context) (int64, error)

	// SetBroadcastSchedule sets the scheduled send time and source coordinates.
	SetBroadcastSchedule(ctx context.Context, id int64, at time.Time, sourceChatID int64, sourceMessageID int) error

	// SetBroadcastAutoDelete sets the auto-delete deadline.
	SetBroadcastAutoDelete(ctx context.Context, id int64, at time.Time) error

	// MarkBroadcastSent sets the sent flag.
	MarkBroadcastSent(ctx context.Context, id int64) error

	// MarkBroadcastDeleted sets the deleted flag. Terminal.
	MarkBroadcastDeleted(ctx context.Context, id int64) error

	// ResetBroadcastSentFlag clears the sent flag so the dispatcher (or a
	// manual resend) picks the broadcast up again.
	ResetBroadcastSentFlag(ctx context.Context, id int64) error

	// UpdateBroadcastText replaces the stored text content.
	UpdateBroadcastText(ctx context.Context, id int64, text string) error

	// ListDueBroadcasts retrieves unsent, undeleted broadcasts whose
	// scheduled time has arrived.
	ListDueBroadcasts(ctx context.Context, now time.Time) ([]Broadcast, error)

	// ListDueAutoDeletions retrieves undeleted broadcasts whose auto-delete
	// deadline has passed.
	ListDueAutoDeletions(ctx context.Context, now time.Time) ([]Broadcast, error)

	// ListRecentBroadcasts retrieves the most recent broadcasts (highest id
	// first) joined with segment name and delivery count.
	ListRecentBroadcasts(ctx context.Context, limit int) ([]BroadcastSummary, error)

	// SaveDeliveryRecord records a successful send; replaces any prior record
	// for the same (broadcast, chat) pair.
	SaveDeliveryRecord(ctx context.Context, broadcastID, chatID int64, messageID int) error

	// ListDeliveryRecords retrieves all delivery records for a broadcast.
	ListDeliveryRecords(ctx context.Context, broadcastID int64) ([]DeliveryRecord, error)

	// CountDeliveryRecords returns the number of delivery records for a broadcast.
	CountDeliveryRecords(ctx context.Context, broadcastID int64) (int, error)

	// SaveAdmin inserts or replaces an administrator row.
	SaveAdmin(ctx context.Context, a *Admin) error

	// RemoveAdmin deletes an administrator row.
	RemoveAdmin(ctx context.Context, userID int64) error

	// IsAdmin reports whether the user is on the roster.
	IsAdmin(ctx context.Context, userID int64) (bool, error)

	// IsSuperAdmin reports whether the user holds the super-admin flag.
	IsSuperAdmin(ctx context.Context, userID int64) (bool, error)

	// ListAdmins retrieves all administrators ordered by when they were added.
	ListAdmins(ctx context.Context) ([]Admin, error)

	// TransferSuperAdmin clears the current super-admin flag and sets it on
	// the target, as one transaction. Fails if the target is not on the roster.
	TransferSuperAdmin(ctx context.Context, userID int64) error

	// SeedAdmins ensures the given user ids are on the roster. The first id
	// becomes super-admin only when no super-admin exists yet.
	SeedAdmins(ctx context.Context, userIDs []int64) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Timestamps are normalized to UTC before they hit SQLite so that the
// textual comparisons in the due queries order chronologically.

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Segments ---

func (s *sqlxStore) CreateSegment(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("segment name cannot be empty")
	}

	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO segments (name) VALUES (?)`, name)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating segment", "name", name, "error", err)
		return 0, fmt.Errorf("failed to create segment %q: %w", name, err)
	}

	var id int64
	if err := s.db.GetContext(ctx, &id, `SELECT id FROM segments WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("failed to look up segment %q after create: %w", name, err)
	}

	s.logger.DebugContext(ctx, "Segment ensured", "name", name, "segment_id", id)
	return id, nil
}

func (s *sqlxStore) ListSegments(ctx context.Context) ([]Segment, error) {
	var segments []Segment
	err := s.db.SelectContext(ctx, &segments, `SELECT id, name FROM segments ORDER BY name`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing segments", "error", err)
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

func (s *sqlxStore) GetSegmentByName(ctx context.Context, name string) (*Segment, error) {
	var segment Segment
	err := s.db.GetContext(ctx, &segment, `SELECT id, name FROM segments WHERE name = ?`, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting segment by name", "name", name, "error", err)
		return nil, fmt.Errorf("failed to get segment %q: %w", name, err)
	}
	return &segment, nil
}

func (s *sqlxStore) DeleteSegment(ctx context.Context, segmentID int64) error {
	// Cascades to segment_groups via the foreign key.
	result, err := s.db.ExecContext(ctx, `DELETE FROM segments WHERE id = ?`, segmentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting segment", "segment_id", segmentID, "error", err)
		return fmt.Errorf("failed to delete segment %d: %w", segmentID, err)
	}
	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Deleted segment", "segment_id", segmentID, "rows", count)
	return nil
}

// --- Groups ---

func (s *sqlxStore) UpsertGroup(ctx context.Context, chatID int64, title string) error {
	if chatID == 0 {
		return fmt.Errorf("group chat_id cannot be zero")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (chat_id, title) VALUES (?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET title = excluded.title`,
		chatID, title)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting group", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to upsert group %d: %w", chatID, err)
	}
	return nil
}

func (s *sqlxStore) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	err := s.db.SelectContext(ctx, &groups, `SELECT chat_id, title FROM groups ORDER BY title`)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing groups", "error", err)
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *sqlxStore) ListGroupsWithSegments(ctx context.Context) ([]GroupWithSegments, error) {
	var groups []GroupWithSegments
	query := `
		SELECT g.chat_id, g.title, GROUP_CONCAT(sg_names.name, ', ') AS segment_names
		FROM groups g
		LEFT JOIN segment_groups sg ON g.chat_id = sg.group_id
		LEFT JOIN segments sg_names ON sg.segment_id = sg_names.id
		GROUP BY g.chat_id, g.title
		ORDER BY g.title`

	err := s.db.SelectContext(ctx, &groups, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing groups with segments", "error", err)
		return nil, fmt.Errorf("failed to list groups with segments: %w", err)
	}
	return groups, nil
}

func (s *sqlxStore) ListUnassignedGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	query := `
		SELECT g.chat_id, g.title
		FROM groups g
		LEFT JOIN segment_groups sg ON g.chat_id = sg.group_id
		WHERE sg.group_id IS NULL
		ORDER BY g.title`

	err := s.db.SelectContext(ctx, &groups, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing unassigned groups", "error", err)
		return nil, fmt.Errorf("failed to list unassigned groups: %w", err)
	}
	return groups, nil
}

func (s *sqlxStore) DeleteGroup(ctx context.Context, chatID int64) error {
	// Membership rows are removed explicitly as well, in case the connection
	// runs with foreign_keys off.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segment_groups WHERE group_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete memberships for group %d: %w", chatID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to delete group %d: %w", chatID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Deleted group", "chat_id", chatID)
	return nil
}

func (s *sqlxStore) ListGroupSegments(ctx context.Context, chatID int64) ([]string, error) {
	var names []string
	query := `
		SELECT s.name FROM segments s
		JOIN segment_groups sg ON s.id = sg.segment_id
		WHERE sg.group_id = ?
		ORDER BY s.name`

	err := s.db.SelectContext(ctx, &names, query, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing segments for group", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to list segments for group %d: %w", chatID, err)
	}
	return names, nil
}

// --- Memberships ---

func (s *sqlxStore) AddGroupToSegment(ctx context.Context, chatID, segmentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO segment_groups (segment_id, group_id) VALUES (?, ?)`,
		segmentID, chatID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding group to segment",
			"chat_id", chatID, "segment_id", segmentID, "error", err)
		return fmt.Errorf("failed to add group %d to segment %d: %w", chatID, segmentID, err)
	}
	return nil
}

func (s *sqlxStore) RemoveGroupFromSegment(ctx context.Context, chatID, segmentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM segment_groups WHERE group_id = ? AND segment_id = ?`,
		chatID, segmentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing group from segment",
			"chat_id", chatID, "segment_id", segmentID, "error", err)
		return fmt.Errorf("failed to remove group %d from segment %d: %w", chatID, segmentID, err)
	}
	return nil
}

func (s *sqlxStore) ListGroupIDsInSegment(ctx context.Context, segmentID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids,
		`SELECT group_id FROM segment_groups WHERE segment_id = ?`, segmentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing group ids in segment", "segment_id", segmentID, "error", err)
		return nil, fmt.Errorf("failed to list groups in segment %d: %w", segmentID, err)
	}
	return ids, nil
}

func (s *sqlxStore) ListGroupsInSegment(ctx context.Context, segmentID int64) ([]Group, error) {
	var groups []Group
	query := `
		SELECT g.chat_id, g.title
		FROM groups g
		JOIN segment_groups sg ON g.chat_id = sg.group_id
		WHERE sg.segment_id = ?
		ORDER BY g.title`

	err := s.db.SelectContext(ctx, &groups, query, segmentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing groups in segment", "segment_id", segmentID, "error", err)
		return nil, fmt.Errorf("failed to list groups in segment %d: %w", segmentID, err)
	}
	return groups, nil
}

// --- Broadcasts ---

func (s *sqlxStore) CreateBroadcast(ctx context.Context, b *Broadcast) error {
	if b == nil {
		return fmt.Errorf("cannot create nil broadcast")
	}
	if b.ContentType == "" {
		return fmt.Errorf("broadcast must have a content type")
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.CreatedAt = b.CreatedAt.UTC()
	if b.ScheduledAt.Valid {
		b.ScheduledAt.Time = b.ScheduledAt.Time.UTC()
	}

	query := `
		INSERT INTO broadcasts (segment_id, content_type, content, source_chat_id, source_message_id, created_at, scheduled_at)
		VALUES (:segment_id, :content_type, :content, :source_chat_id, :source_message_id, :created_at, :scheduled_at)`

	result, err := s.db.NamedExecContext(ctx, query, b)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating broadcast", "error", err)
		return fmt.Errorf("failed to create broadcast: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating broadcast", "error", err)
	} else {
		b.ID = id
	}

	s.logger.DebugContext(ctx, "Broadcast created", "broadcast_id", b.ID, "content_type", b.ContentType)
	return nil
}

func (s *sqlxStore) GetBroadcast(ctx context.Context, id int64) (*Broadcast, error) {
	var b Broadcast
	query := `
		SELECT id, segment_id, content_type, content, source_chat_id, source_message_id,
		       created_at, scheduled_at, auto_delete_at, sent, deleted
		FROM broadcasts WHERE id = ?`

	err := s.db.GetContext(ctx, &b, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting broadcast", "broadcast_id", id, "error", err)
		return nil, fmt.Errorf("failed to get broadcast %d: %w", id, err)
	}
	return &b, nil
}

func (s *sqlxStore) GetLastBroadcastID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, `SELECT id FROM broadcasts ORDER BY id DESC LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("failed to get last broadcast id: %w", err)
	}
	return id, nil
}

func (s *sqlxStore) SetBroadcastSchedule(ctx context.Context, id int64, at time.Time, sourceChatID int64, sourceMessageID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE broadcasts SET scheduled_at = ?, source_chat_id = ?, source_message_id = ? WHERE id = ?`,
		at.UTC(), sourceChatID, sourceMessageID, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting broadcast schedule", "broadcast_id", id, "error", err)
		return fmt.Errorf("failed to set schedule for broadcast %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) SetBroadcastAutoDelete(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE broadcasts SET auto_delete_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error setting broadcast auto-delete", "broadcast_id", id, "error", err)
		return fmt.Errorf("failed to set auto-delete for broadcast %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) MarkBroadcastSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE broadcasts SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark broadcast %d as sent: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) MarkBroadcastDeleted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE broadcasts SET deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark broadcast %d as deleted: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) ResetBroadcastSentFlag(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE broadcasts SET sent = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to reset sent flag for broadcast %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) UpdateBroadcastText(ctx context.Context, id int64, text string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE broadcasts SET content = ? WHERE id = ?`, text, id)
	if err != nil {
		return fmt.Errorf("failed to update content for broadcast %d: %w", id, err)
	}
	return nil
}

func (s *sqlxStore) ListDueBroadcasts(ctx context.Context, now time.Time) ([]Broadcast, error) {
	var broadcasts []Broadcast
	query := `
		SELECT id, segment_id, content_type, content, source_chat_id, source_message_id,
		       created_at, scheduled_at, auto_delete_at, sent, deleted
		FROM broadcasts
		WHERE scheduled_at IS NOT NULL AND scheduled_at <= ? AND sent = 0 AND deleted = 0
		ORDER BY id`

	err := s.db.SelectContext(ctx, &broadcasts, query, now.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing due broadcasts", "error", err)
		return nil, fmt.Errorf("failed to list due broadcasts: %w", err)
	}
	return broadcasts, nil
}

func (s *sqlxStore) ListDueAutoDeletions(ctx context.Context, now time.Time) ([]Broadcast, error) {
	var broadcasts []Broadcast
	query := `
		SELECT id, segment_id, content_type, content, source_chat_id, source_message_id,
		       created_at, scheduled_at, auto_delete_at, sent, deleted
		FROM broadcasts
		WHERE auto_delete_at IS NOT NULL AND auto_delete_at <= ? AND deleted = 0
		ORDER BY id`

	err := s.db.SelectContext(ctx, &broadcasts, query, now.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing due auto-deletions", "error", err)
		return nil, fmt.Errorf("failed to list due auto-deletions: %w", err)
	}
	return broadcasts, nil
}

func (s *sqlxStore) ListRecentBroadcasts(ctx context.Context, limit int) ([]BroadcastSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	var summaries []BroadcastSummary
	query := `
		SELECT
			b.id,
			b.created_at,
			s.name AS segment_name,
			b.content_type,
			b.content,
			b.scheduled_at,
			COALESCE(mc.count, 0) AS message_count,
			b.sent,
			b.deleted
		FROM broadcasts b
		LEFT JOIN segments s ON b.segment_id = s.id
		LEFT JOIN (
			SELECT broadcast_id, COUNT(*) AS count
			FROM broadcast_messages
			GROUP BY broadcast_id
		) mc ON b.id = mc.broadcast_id
		ORDER BY b.id DESC
		LIMIT ?`

	err := s.db.SelectContext(ctx, &summaries, query, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing recent broadcasts", "error", err)
		return nil, fmt.Errorf("failed to list recent broadcasts: %w", err)
	}
	return summaries, nil
}

// --- Delivery records ---

func (s *sqlxStore) SaveDeliveryRecord(ctx context.Context, broadcastID, chatID int64, messageID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO broadcast_messages (broadcast_id, chat_id, message_id) VALUES (?, ?, ?)`,
		broadcastID, chatID, messageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving delivery record",
			"broadcast_id", broadcastID, "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to save delivery record for broadcast %d: %w", broadcastID, err)
	}
	return nil
}

func (s *sqlxStore) ListDeliveryRecords(ctx context.Context, broadcastID int64) ([]DeliveryRecord, error) {
	var records []DeliveryRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT broadcast_id, chat_id, message_id FROM broadcast_messages WHERE broadcast_id = ?`,
		broadcastID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing delivery records", "broadcast_id", broadcastID, "error", err)
		return nil, fmt.Errorf("failed to list delivery records for broadcast %d: %w", broadcastID, err)
	}
	return records, nil
}

func (s *sqlxStore) CountDeliveryRecords(ctx context.Context, broadcastID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM broadcast_messages WHERE broadcast_id = ?`, broadcastID)
	if err != nil {
		return 0, fmt.Errorf("failed to count delivery records for broadcast %d: %w", broadcastID, err)
	}
	return count, nil
}

// --- Administrators ---

func (s *sqlxStore) SaveAdmin(ctx context.Context, a *Admin) error {
	if a == nil {
		return fmt.Errorf("cannot save nil admin")
	}
	if a.UserID == 0 {
		return fmt.Errorf("admin must have a non-zero user_id")
	}

	if a.AddedAt.IsZero() {
		a.AddedAt = time.Now()
	}
	a.AddedAt = a.AddedAt.UTC()

	query := `
		INSERT OR REPLACE INTO admins (user_id, username, first_name, added_at, added_by, super_admin)
		VALUES (:user_id, :username, :first_name, :added_at, :added_by, :super_admin)`

	_, err := s.db.NamedExecContext(ctx, query, a)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving admin", "user_id", a.UserID, "error", err)
		return fmt.Errorf("failed to save admin %d: %w", a.UserID, err)
	}

	s.logger.DebugContext(ctx, "Admin saved", "user_id", a.UserID, "super_admin", a.SuperAdmin)
	return nil
}

func (s *sqlxStore) RemoveAdmin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error removing admin", "user_id", userID, "error", err)
		return fmt.Errorf("failed to remove admin %d: %w", userID, err)
	}
	return nil
}

func (s *sqlxStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT 1 FROM admins WHERE user_id = ? LIMIT 1`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check admin %d: %w", userID, err)
	}
	return exists, nil
}

func (s *sqlxStore) IsSuperAdmin(ctx context.Context, userID int64) (bool, error) {
	var super bool
	err := s.db.GetContext(ctx, &super,
		`SELECT super_admin FROM admins WHERE user_id = ?`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check super-admin %d: %w", userID, err)
	}
	return super, nil
}

func (s *sqlxStore) ListAdmins(ctx context.Context) ([]Admin, error) {
	var admins []Admin
	query := `
		SELECT user_id, username, first_name, added_at, added_by, super_admin
		FROM admins ORDER BY added_at`

	err := s.db.SelectContext(ctx, &admins, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing admins", "error", err)
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

func (s *sqlxStore) TransferSuperAdmin(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE admins SET super_admin = 0 WHERE super_admin = 1`); err != nil {
		return fmt.Errorf("failed to clear super-admin flag: %w", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE admins SET super_admin = 1 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to set super-admin flag on %d: %w", userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check super-admin transfer result: %w", err)
	}
	if affected == 0 {
		// Target is not on the roster. Rolling back keeps the flag with the
		// current holder instead of leaving it abandoned.
		return fmt.Errorf("cannot transfer super-admin: admin %d not found", userID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Super-admin transferred", "user_id", userID)
	return nil
}

func (s *sqlxStore) SeedAdmins(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	var hasSuper bool
	err := s.db.GetContext(ctx, &hasSuper,
		`SELECT 1 FROM admins WHERE super_admin = 1 LIMIT 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for existing super-admin: %w", err)
	}

	for idx, userID := range userIDs {
		superFlag := idx == 0 && !hasSuper

		isAdmin, err := s.IsAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !isAdmin {
			admin := &Admin{
				UserID:     userID,
				SuperAdmin: superFlag,
			}
			if err := s.SaveAdmin(ctx, admin); err != nil {
				return err
			}
			s.logger.InfoContext(ctx, "Seeded admin from config", "user_id", userID, "super_admin", superFlag)
		} else if superFlag {
			if err := s.TransferSuperAdmin(ctx, userID); err != nil {
				return err
			}
		}
	}
	return nil
}
