package database

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func TestSegments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	t.Run("create is idempotent", func(t *testing.T) {
		first, err := store.CreateSegment(ctx, "VIP")
		if err != nil {
			t.Fatalf("CreateSegment failed: %v", err)
		}
		second, err := store.CreateSegment(ctx, "VIP")
		if err != nil {
			t.Fatalf("CreateSegment (repeat) failed: %v", err)
		}
		if first != second {
			t.Errorf("expected same id on repeated create, got %d and %d", first, second)
		}

		segments, err := store.ListSegments(ctx)
		if err != nil {
			t.Fatalf("ListSegments failed: %v", err)
		}
		if len(segments) != 1 {
			t.Errorf("expected 1 segment, got %d", len(segments))
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		if _, err := store.CreateSegment(ctx, ""); err == nil {
			t.Error("expected error for empty segment name")
		}
	})

	t.Run("get by name", func(t *testing.T) {
		segment, err := store.GetSegmentByName(ctx, "VIP")
		if err != nil {
			t.Fatalf("GetSegmentByName failed: %v", err)
		}
		if segment == nil || segment.Name != "VIP" {
			t.Errorf("expected segment VIP, got %+v", segment)
		}

		missing, err := store.GetSegmentByName(ctx, "нет такого")
		if err != nil {
			t.Fatalf("GetSegmentByName for missing failed: %v", err)
		}
		if missing != nil {
			t.Errorf("expected nil for missing segment, got %+v", missing)
		}
	})

	t.Run("delete cascades memberships", func(t *testing.T) {
		id, err := store.CreateSegment(ctx, "Архив")
		if err != nil {
			t.Fatalf("CreateSegment failed: %v", err)
		}
		if err := store.UpsertGroup(ctx, -100123, "Чат А"); err != nil {
			t.Fatalf("UpsertGroup failed: %v", err)
		}
		if err := store.AddGroupToSegment(ctx, -100123, id); err != nil {
			t.Fatalf("AddGroupToSegment failed: %v", err)
		}

		if err := store.DeleteSegment(ctx, id); err != nil {
			t.Fatalf("DeleteSegment failed: %v", err)
		}

		names, err := store.ListGroupSegments(ctx, -100123)
		if err != nil {
			t.Fatalf("ListGroupSegments failed: %v", err)
		}
		if len(names) != 0 {
			t.Errorf("expected no memberships after segment delete, got %v", names)
		}
	})
}

func TestGroupsAndMemberships(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	segmentID, err := store.CreateSegment(ctx, "Новости")
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}

	t.Run("upsert refreshes title", func(t *testing.T) {
		if err := store.UpsertGroup(ctx, -200, "Старое имя"); err != nil {
			t.Fatalf("UpsertGroup failed: %v", err)
		}
		if err := store.UpsertGroup(ctx, -200, "Новое имя"); err != nil {
			t.Fatalf("UpsertGroup (repeat) failed: %v", err)
		}

		groups, err := store.ListGroups(ctx)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(groups) != 1 || groups[0].Title != "Новое имя" {
			t.Errorf("expected single group with refreshed title, got %+v", groups)
		}
	})

	t.Run("membership add is idempotent", func(t *testing.T) {
		if err := store.AddGroupToSegment(ctx, -200, segmentID); err != nil {
			t.Fatalf("AddGroupToSegment failed: %v", err)
		}
		if err := store.AddGroupToSegment(ctx, -200, segmentID); err != nil {
			t.Fatalf("AddGroupToSegment (repeat) failed: %v", err)
		}

		ids, err := store.ListGroupIDsInSegment(ctx, segmentID)
		if err != nil {
			t.Fatalf("ListGroupIDsInSegment failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != -200 {
			t.Errorf("expected exactly one membership row, got %v", ids)
		}
	})

	t.Run("unassigned listing", func(t *testing.T) {
		if err := store.UpsertGroup(ctx, -300, "Без сегмента"); err != nil {
			t.Fatalf("UpsertGroup failed: %v", err)
		}

		unassigned, err := store.ListUnassignedGroups(ctx)
		if err != nil {
			t.Fatalf("ListUnassignedGroups failed: %v", err)
		}
		if len(unassigned) != 1 || unassigned[0].ChatID != -300 {
			t.Errorf("expected only chat -300 unassigned, got %+v", unassigned)
		}
	})

	t.Run("groups with segments join", func(t *testing.T) {
		rows, err := store.ListGroupsWithSegments(ctx)
		if err != nil {
			t.Fatalf("ListGroupsWithSegments failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		for _, row := range rows {
			switch row.ChatID {
			case -200:
				if row.SegmentNames.String != "Новости" {
					t.Errorf("chat -200: expected segment Новости, got %q", row.SegmentNames.String)
				}
			case -300:
				if row.SegmentNames.Valid {
					t.Errorf("chat -300: expected NULL segment names, got %q", row.SegmentNames.String)
				}
			}
		}
	})

	t.Run("delete group removes memberships", func(t *testing.T) {
		if err := store.DeleteGroup(ctx, -200); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}

		ids, err := store.ListGroupIDsInSegment(ctx, segmentID)
		if err != nil {
			t.Fatalf("ListGroupIDsInSegment failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no memberships after group delete, got %v", ids)
		}
	})
}

func TestBroadcasts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	segmentID, err := store.CreateSegment(ctx, "VIP")
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}

	newBroadcast := func(t *testing.T) *Broadcast {
		t.Helper()
		b := &Broadcast{
			SegmentID:       sql.NullInt64{Int64: segmentID, Valid: true},
			ContentType:     "text",
			Content:         sql.NullString{String: "Привет", Valid: true},
			SourceChatID:    111,
			SourceMessageID: 42,
		}
		if err := store.CreateBroadcast(ctx, b); err != nil {
			t.Fatalf("CreateBroadcast failed: %v", err)
		}
		if b.ID == 0 {
			t.Fatal("expected CreateBroadcast to fill in the id")
		}
		return b
	}

	t.Run("due send query respects flags and time", func(t *testing.T) {
		b := newBroadcast(t)
		now := time.Now()

		due, err := store.ListDueBroadcasts(ctx, now)
		if err != nil {
			t.Fatalf("ListDueBroadcasts failed: %v", err)
		}
		if len(due) != 0 {
			t.Fatalf("unscheduled broadcast must not be due, got %d", len(due))
		}

		if err := store.SetBroadcastSchedule(ctx, b.ID, now.Add(time.Hour), 111, 42); err != nil {
			t.Fatalf("SetBroadcastSchedule failed: %v", err)
		}
		due, err = store.ListDueBroadcasts(ctx, now)
		if err != nil {
			t.Fatalf("ListDueBroadcasts failed: %v", err)
		}
		if len(due) != 0 {
			t.Fatalf("future broadcast must not be due, got %d", len(due))
		}

		if err := store.SetBroadcastSchedule(ctx, b.ID, now.Add(-time.Minute), 111, 42); err != nil {
			t.Fatalf("SetBroadcastSchedule failed: %v", err)
		}
		due, err = store.ListDueBroadcasts(ctx, now)
		if err != nil {
			t.Fatalf("ListDueBroadcasts failed: %v", err)
		}
		if len(due) != 1 || due[0].ID != b.ID {
			t.Fatalf("expected broadcast %d due, got %+v", b.ID, due)
		}

		if err := store.MarkBroadcastSent(ctx, b.ID); err != nil {
			t.Fatalf("MarkBroadcastSent failed: %v", err)
		}
		due, err = store.ListDueBroadcasts(ctx, now)
		if err != nil {
			t.Fatalf("ListDueBroadcasts failed: %v", err)
		}
		if len(due) != 0 {
			t.Fatalf("sent broadcast must not be due again, got %d", len(due))
		}

		if err := store.ResetBroadcastSentFlag(ctx, b.ID); err != nil {
			t.Fatalf("ResetBroadcastSentFlag failed: %v", err)
		}
		due, err = store.ListDueBroadcasts(ctx, now)
		if err != nil {
			t.Fatalf("ListDueBroadcasts failed: %v", err)
		}
		if len(due) != 1 {
			t.Fatalf("expected broadcast due again after reset, got %d", len(due))
		}
	})

	t.Run("due auto-delete query", func(t *testing.T) {
		b := newBroadcast(t)
		now := time.Now()

		if err := store.SetBroadcastAutoDelete(ctx, b.ID, now.Add(-time.Second)); err != nil {
			t.Fatalf("SetBroadcastAutoDelete failed: %v", err)
		}

		due, err := store.ListDueAutoDeletions(ctx, now)
		if err != nil {
			t.Fatalf("ListDueAutoDeletions failed: %v", err)
		}
		if len(due) != 1 || due[0].ID != b.ID {
			t.Fatalf("expected broadcast %d due for deletion, got %+v", b.ID, due)
		}

		if err := store.MarkBroadcastDeleted(ctx, b.ID); err != nil {
			t.Fatalf("MarkBroadcastDeleted failed: %v", err)
		}
		due, err = store.ListDueAutoDeletions(ctx, now)
		if err != nil {
			t.Fatalf("ListDueAutoDeletions failed: %v", err)
		}
		if len(due) != 0 {
			t.Fatalf("deleted broadcast must not be due for deletion, got %d", len(due))
		}
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		b, err := store.GetBroadcast(ctx, 999999)
		if err != nil {
			t.Fatalf("GetBroadcast failed: %v", err)
		}
		if b != nil {
			t.Errorf("expected nil for missing broadcast, got %+v", b)
		}
	})

	t.Run("last broadcast id", func(t *testing.T) {
		b := newBroadcast(t)
		last, err := store.GetLastBroadcastID(ctx)
		if err != nil {
			t.Fatalf("GetLastBroadcastID failed: %v", err)
		}
		if last != b.ID {
			t.Errorf("expected last id %d, got %d", b.ID, last)
		}
	})

	t.Run("recent listing carries delivery counts", func(t *testing.T) {
		b := newBroadcast(t)
		if err := store.SaveDeliveryRecord(ctx, b.ID, -200, 7); err != nil {
			t.Fatalf("SaveDeliveryRecord failed: %v", err)
		}
		if err := store.SaveDeliveryRecord(ctx, b.ID, -300, 8); err != nil {
			t.Fatalf("SaveDeliveryRecord failed: %v", err)
		}

		summaries, err := store.ListRecentBroadcasts(ctx, 1)
		if err != nil {
			t.Fatalf("ListRecentBroadcasts failed: %v", err)
		}
		if len(summaries) != 1 {
			t.Fatalf("expected 1 summary, got %d", len(summaries))
		}
		if summaries[0].ID != b.ID || summaries[0].MessageCount != 2 {
			t.Errorf("expected newest broadcast %d with 2 deliveries, got %+v", b.ID, summaries[0])
		}
		if summaries[0].SegmentName.String != "VIP" {
			t.Errorf("expected segment name VIP, got %q", summaries[0].SegmentName.String)
		}
	})
}

func TestDeliveryRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	b := &Broadcast{ContentType: "text", SourceChatID: 1, SourceMessageID: 1}
	if err := store.CreateBroadcast(ctx, b); err != nil {
		t.Fatalf("CreateBroadcast failed: %v", err)
	}

	t.Run("replace on resend", func(t *testing.T) {
		if err := store.SaveDeliveryRecord(ctx, b.ID, -200, 10); err != nil {
			t.Fatalf("SaveDeliveryRecord failed: %v", err)
		}
		if err := store.SaveDeliveryRecord(ctx, b.ID, -200, 20); err != nil {
			t.Fatalf("SaveDeliveryRecord (replace) failed: %v", err)
		}

		records, err := store.ListDeliveryRecords(ctx, b.ID)
		if err != nil {
			t.Fatalf("ListDeliveryRecords failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected a single record per chat, got %d", len(records))
		}
		if records[0].MessageID != 20 {
			t.Errorf("expected latest message id 20, got %d", records[0].MessageID)
		}

		count, err := store.CountDeliveryRecords(ctx, b.ID)
		if err != nil {
			t.Fatalf("CountDeliveryRecords failed: %v", err)
		}
		if count != 1 {
			t.Errorf("expected count 1, got %d", count)
		}
	})
}

func TestAdmins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	t.Run("save and flags", func(t *testing.T) {
		admin := &Admin{
			UserID:     100,
			Username:   sql.NullString{String: "alice", Valid: true},
			SuperAdmin: true,
		}
		if err := store.SaveAdmin(ctx, admin); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}

		isAdmin, err := store.IsAdmin(ctx, 100)
		if err != nil {
			t.Fatalf("IsAdmin failed: %v", err)
		}
		if !isAdmin {
			t.Error("expected user 100 to be an admin")
		}

		isSuper, err := store.IsSuperAdmin(ctx, 100)
		if err != nil {
			t.Fatalf("IsSuperAdmin failed: %v", err)
		}
		if !isSuper {
			t.Error("expected user 100 to be super-admin")
		}

		isAdmin, err = store.IsAdmin(ctx, 200)
		if err != nil {
			t.Fatalf("IsAdmin failed: %v", err)
		}
		if isAdmin {
			t.Error("unknown user must not be an admin")
		}
	})

	t.Run("transfer keeps exactly one super-admin", func(t *testing.T) {
		if err := store.SaveAdmin(ctx, &Admin{UserID: 200}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}
		if err := store.TransferSuperAdmin(ctx, 200); err != nil {
			t.Fatalf("TransferSuperAdmin failed: %v", err)
		}

		admins, err := store.ListAdmins(ctx)
		if err != nil {
			t.Fatalf("ListAdmins failed: %v", err)
		}
		var supers []int64
		for _, a := range admins {
			if a.SuperAdmin {
				supers = append(supers, a.UserID)
			}
		}
		if len(supers) != 1 || supers[0] != 200 {
			t.Errorf("expected only user 200 as super-admin, got %v", supers)
		}
	})

	t.Run("transfer to unknown target fails and keeps current holder", func(t *testing.T) {
		if err := store.TransferSuperAdmin(ctx, 999); err == nil {
			t.Fatal("expected error transferring to unknown user")
		}

		isSuper, err := store.IsSuperAdmin(ctx, 200)
		if err != nil {
			t.Fatalf("IsSuperAdmin failed: %v", err)
		}
		if !isSuper {
			t.Error("failed transfer must leave the flag with its current holder")
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := store.RemoveAdmin(ctx, 100); err != nil {
			t.Fatalf("RemoveAdmin failed: %v", err)
		}
		isAdmin, err := store.IsAdmin(ctx, 100)
		if err != nil {
			t.Fatalf("IsAdmin failed: %v", err)
		}
		if isAdmin {
			t.Error("removed user must not be an admin")
		}
	})
}

func TestSeedAdmins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("first seeded id becomes super-admin", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.SeedAdmins(ctx, []int64{10, 20}); err != nil {
			t.Fatalf("SeedAdmins failed: %v", err)
		}

		isSuper, err := store.IsSuperAdmin(ctx, 10)
		if err != nil {
			t.Fatalf("IsSuperAdmin failed: %v", err)
		}
		if !isSuper {
			t.Error("expected first seeded id to be super-admin")
		}
		isSuper, err = store.IsSuperAdmin(ctx, 20)
		if err != nil {
			t.Fatalf("IsSuperAdmin failed: %v", err)
		}
		if isSuper {
			t.Error("second seeded id must not be super-admin")
		}
	})

	t.Run("existing super-admin is preserved", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.SaveAdmin(ctx, &Admin{UserID: 99, SuperAdmin: true}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}
		if err := store.SeedAdmins(ctx, []int64{10}); err != nil {
			t.Fatalf("SeedAdmins failed: %v", err)
		}

		isSuper, err := store.IsSuperAdmin(ctx, 99)
		if err != nil {
			t.Fatalf("IsSuperAdmin failed: %v", err)
		}
		if !isSuper {
			t.Error("seeding must not displace an existing super-admin")
		}
		isSuper, err = store.IsSuperAdmin(ctx, 10)
		if err != nil {
			t.Fatalf("IsSuperAdmin failed: %v", err)
		}
		if isSuper {
			t.Error("seeded id must not become super-admin when one exists")
		}
	})

	t.Run("seeding is idempotent", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.SeedAdmins(ctx, []int64{10, 20}); err != nil {
			t.Fatalf("SeedAdmins failed: %v", err)
		}
		if err := store.SeedAdmins(ctx, []int64{10, 20}); err != nil {
			t.Fatalf("SeedAdmins (repeat) failed: %v", err)
		}

		admins, err := store.ListAdmins(ctx)
		if err != nil {
			t.Fatalf("ListAdmins failed: %v", err)
		}
		if len(admins) != 2 {
			t.Errorf("expected 2 admins after repeated seed, got %d", len(admins))
		}
	})
}
