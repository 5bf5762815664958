package roster

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/avdeev/teleblast/internal/database"
)

type fakeLookup struct {
	infos map[int64]ChatInfo
}

func (f *fakeLookup) GetChat(_ context.Context, chatID int64) (ChatInfo, error) {
	info, ok := f.infos[chatID]
	if !ok {
		return ChatInfo{}, fmt.Errorf("chat %d not found", chatID)
	}
	return info, nil
}

func newTestService(t *testing.T) (*Service, database.Store, *fakeLookup) {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	lookup := &fakeLookup{infos: map[int64]ChatInfo{}}
	return NewService(store, lookup, nil), store, lookup
}

func TestAddAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stores metadata from lookup", func(t *testing.T) {
		t.Parallel()
		service, store, lookup := newTestService(t)
		lookup.infos[100] = ChatInfo{Username: "alice", FirstName: "Алиса"}

		if err := service.AddAdmin(ctx, 100, 1); err != nil {
			t.Fatalf("AddAdmin failed: %v", err)
		}

		admins, err := store.ListAdmins(ctx)
		if err != nil {
			t.Fatalf("ListAdmins failed: %v", err)
		}
		if len(admins) != 1 {
			t.Fatalf("expected 1 admin, got %d", len(admins))
		}
		if admins[0].Username.String != "alice" || admins[0].FirstName.String != "Алиса" {
			t.Errorf("metadata not stored: %+v", admins[0])
		}
		if admins[0].AddedBy.Int64 != 1 {
			t.Errorf("added_by = %d, want 1", admins[0].AddedBy.Int64)
		}
	})

	t.Run("failed lookup still adds", func(t *testing.T) {
		t.Parallel()
		service, store, _ := newTestService(t)

		if err := service.AddAdmin(ctx, 200, 1); err != nil {
			t.Fatalf("AddAdmin failed: %v", err)
		}

		isAdmin, err := store.IsAdmin(ctx, 200)
		if err != nil {
			t.Fatalf("IsAdmin failed: %v", err)
		}
		if !isAdmin {
			t.Error("admin must be added even when metadata lookup fails")
		}
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newTestService(t)

		if err := service.AddAdmin(ctx, 300, 1); err != nil {
			t.Fatalf("AddAdmin failed: %v", err)
		}
		if err := service.AddAdmin(ctx, 300, 1); !errors.Is(err, ErrAlreadyAdmin) {
			t.Errorf("expected ErrAlreadyAdmin, got %v", err)
		}
	})
}

func TestRemoveAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("last admin is kept", func(t *testing.T) {
		t.Parallel()
		service, store, _ := newTestService(t)
		if err := store.SaveAdmin(ctx, &database.Admin{UserID: 100}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}

		if err := service.RemoveAdmin(ctx, 100); !errors.Is(err, ErrLastAdmin) {
			t.Fatalf("expected ErrLastAdmin, got %v", err)
		}

		admins, err := store.ListAdmins(ctx)
		if err != nil {
			t.Fatalf("ListAdmins failed: %v", err)
		}
		if len(admins) != 1 {
			t.Errorf("refused removal must leave the roster unchanged, got %d admins", len(admins))
		}
	})

	t.Run("super-admin requires transfer first", func(t *testing.T) {
		t.Parallel()
		service, store, _ := newTestService(t)
		if err := store.SaveAdmin(ctx, &database.Admin{UserID: 100, SuperAdmin: true}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}
		if err := store.SaveAdmin(ctx, &database.Admin{UserID: 200}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}

		if err := service.RemoveAdmin(ctx, 100); !errors.Is(err, ErrSuperAdmin) {
			t.Fatalf("expected ErrSuperAdmin, got %v", err)
		}

		if err := service.TransferSuperAdmin(ctx, 100, 200); err != nil {
			t.Fatalf("TransferSuperAdmin failed: %v", err)
		}
		if err := service.RemoveAdmin(ctx, 100); err != nil {
			t.Fatalf("RemoveAdmin after transfer failed: %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newTestService(t)

		if err := service.RemoveAdmin(ctx, 999); !errors.Is(err, ErrNotAdmin) {
			t.Errorf("expected ErrNotAdmin, got %v", err)
		}
	})
}

func TestTransferSuperAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("exactly one super-admin after transfer", func(t *testing.T) {
		t.Parallel()
		service, store, _ := newTestService(t)
		if err := store.SaveAdmin(ctx, &database.Admin{UserID: 100, SuperAdmin: true}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}
		if err := store.SaveAdmin(ctx, &database.Admin{UserID: 200}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}

		if err := service.TransferSuperAdmin(ctx, 100, 200); err != nil {
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

	t.Run("self transfer rejected", func(t *testing.T) {
		t.Parallel()
		service, _, _ := newTestService(t)

		if err := service.TransferSuperAdmin(ctx, 100, 100); !errors.Is(err, ErrSelfTransfer) {
			t.Errorf("expected ErrSelfTransfer, got %v", err)
		}
	})

	t.Run("target must be on the roster", func(t *testing.T) {
		t.Parallel()
		service, store, _ := newTestService(t)
		if err := store.SaveAdmin(ctx, &database.Admin{UserID: 100, SuperAdmin: true}); err != nil {
			t.Fatalf("SaveAdmin failed: %v", err)
		}

		if err := service.TransferSuperAdmin(ctx, 100, 999); !errors.Is(err, ErrNotAdmin) {
			t.Errorf("expected ErrNotAdmin, got %v", err)
		}
	})
}

func TestRefreshAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, store, lookup := newTestService(t)

	if err := store.SaveAdmin(ctx, &database.Admin{UserID: 100, SuperAdmin: true}); err != nil {
		t.Fatalf("SaveAdmin failed: %v", err)
	}
	lookup.infos[100] = ChatInfo{Username: "renamed", FirstName: "Новое имя"}

	if err := service.RefreshAdmin(ctx, 100); err != nil {
		t.Fatalf("RefreshAdmin failed: %v", err)
	}

	admins, err := store.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins failed: %v", err)
	}
	if admins[0].Username.String != "renamed" {
		t.Errorf("username not refreshed: %+v", admins[0])
	}
	if !admins[0].SuperAdmin {
		t.Error("refresh must preserve the super-admin flag")
	}

	if err := service.RefreshAdmin(ctx, 999); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("expected ErrNotAdmin for unknown user, got %v", err)
	}
}
