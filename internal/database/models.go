package database

import (
	"database/sql"
	"time"
)

// Segment is a named collection of groups used as a broadcast target.
type Segment struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Group is a registered chat the bot can message. The title is best-effort
// and refreshed opportunistically when the chat is seen again.
type Group struct {
	ChatID int64  `db:"chat_id"`
	Title  string `db:"title"`
}

// GroupWithSegments is a group row joined with the comma-separated names of
// every segment it belongs to. SegmentNames is NULL for unassigned groups.
type GroupWithSegments struct {
	ChatID       int64          `db:"chat_id"`
	Title        string         `db:"title"`
	SegmentNames sql.NullString `db:"segment_names"`
}

// Broadcast is one scheduled or already-executed send operation.
//
// Non-text payloads are never duplicated into the store; only the source
// message coordinates are kept and delivery copies from the source message.
type Broadcast struct {
	ID              int64          `db:"id"`
	SegmentID       sql.NullInt64  `db:"segment_id"`
	ContentType     string         `db:"content_type"`
	Content         sql.NullString `db:"content"`
	SourceChatID    int64          `db:"source_chat_id"`
	SourceMessageID int            `db:"source_message_id"`
	CreatedAt       time.Time      `db:"created_at"`
	ScheduledAt     sql.NullTime   `db:"scheduled_at"`
	AutoDeleteAt    sql.NullTime   `db:"auto_delete_at"`
	Sent            bool           `db:"sent"`
	Deleted         bool           `db:"deleted"`
}

// BroadcastSummary is a broadcast row joined with its segment name and the
// number of delivery records, used for listing recent broadcasts.
type BroadcastSummary struct {
	ID           int64          `db:"id"`
	CreatedAt    time.Time      `db:"created_at"`
	SegmentName  sql.NullString `db:"segment_name"`
	ContentType  string         `db:"content_type"`
	Content      sql.NullString `db:"content"`
	ScheduledAt  sql.NullTime   `db:"scheduled_at"`
	MessageCount int            `db:"message_count"`
	Sent         bool           `db:"sent"`
	Deleted      bool           `db:"deleted"`
}

// DeliveryRecord is proof of one successful send to one recipient chat.
// At most one record exists per (broadcast, chat) pair; re-sends replace it.
type DeliveryRecord struct {
	BroadcastID int64 `db:"broadcast_id"`
	ChatID      int64 `db:"chat_id"`
	MessageID   int   `db:"message_id"`
}

// Admin is one administrator roster entry. At most one row has SuperAdmin set.
type Admin struct {
	UserID     int64          `db:"user_id"`
	Username   sql.NullString `db:"username"`
	FirstName  sql.NullString `db:"first_name"`
	AddedAt    time.Time      `db:"added_at"`
	AddedBy    sql.NullInt64  `db:"added_by"`
	SuperAdmin bool           `db:"super_admin"`
}
