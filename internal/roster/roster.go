// Package roster manages the administrator roster and its single super-admin.
package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/avdeev/teleblast/internal/database"
)

var (
	// ErrLastAdmin indicates the removal would leave the roster empty.
	ErrLastAdmin = errors.New("cannot remove the last administrator")

	// ErrSuperAdmin indicates the target holds the super-admin flag; it must
	// be transferred before the holder can be removed.
	ErrSuperAdmin = errors.New("cannot remove the super-admin; transfer the flag first")

	// ErrNotAdmin indicates the target user is not on the roster.
	ErrNotAdmin = errors.New("user is not an administrator")

	// ErrAlreadyAdmin indicates the target user is already on the roster.
	ErrAlreadyAdmin = errors.New("user is already an administrator")

	// ErrSelfTransfer indicates the super-admin tried to transfer the flag
	// to themselves.
	ErrSelfTransfer = errors.New("cannot transfer super-admin to yourself")
)

// ChatInfo is the display metadata kept for an administrator.
type ChatInfo struct {
	Username  string
	FirstName string
}

// ChatLookup resolves display metadata for a user id. The production
// implementation asks the Telegram Bot API; lookups are best-effort.
type ChatLookup interface {
	GetChat(ctx context.Context, chatID int64) (ChatInfo, error)
}

// Service orchestrates roster changes over the store, enforcing the
// roster-never-empty and single-super-admin rules.
type Service struct {
	store  database.Store
	lookup ChatLookup
	logger *slog.Logger
}

// NewService creates a roster service. lookup may be nil; metadata is then
// never refreshed.
func NewService(store database.Store, lookup ChatLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:  store,
		lookup: lookup,
		logger: logger.With("component", "roster"),
	}
}

// IsAdmin reports whether the user is on the roster.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.store.IsAdmin(ctx, userID)
}

// IsSuperAdmin reports whether the user holds the super-admin flag.
func (s *Service) IsSuperAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.store.IsSuperAdmin(ctx, userID)
}

// List returns all administrators ordered by when they were added.
func (s *Service) List(ctx context.Context) ([]database.Admin, error) {
	return s.store.ListAdmins(ctx)
}

// AddAdmin puts a user on the roster. Display metadata is fetched
// best-effort; a failed lookup still adds the admin.
func (s *Service) AddAdmin(ctx context.Context, userID, addedBy int64) error {
	isAdmin, err := s.store.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if isAdmin {
		return fmt.Errorf("%w: %d", ErrAlreadyAdmin, userID)
	}

	admin := &database.Admin{
		UserID:  userID,
		AddedBy: sql.NullInt64{Int64: addedBy, Valid: addedBy != 0},
	}
	s.fillMetadata(ctx, admin)

	if err := s.store.SaveAdmin(ctx, admin); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Administrator added", "user_id", userID, "added_by", addedBy)
	return nil
}

// RemoveAdmin takes a user off the roster. It refuses to empty the roster and
// refuses to remove the super-admin; the flag must be transferred first.
func (s *Service) RemoveAdmin(ctx context.Context, userID int64) error {
	isAdmin, err := s.store.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: %d", ErrNotAdmin, userID)
	}

	isSuper, err := s.store.IsSuperAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if isSuper {
		return ErrSuperAdmin
	}

	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return err
	}
	if len(admins) <= 1 {
		return ErrLastAdmin
	}

	if err := s.store.RemoveAdmin(ctx, userID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Administrator removed", "user_id", userID)
	return nil
}

// TransferSuperAdmin moves the super-admin flag from the caller to target.
// The target must already be on the roster.
func (s *Service) TransferSuperAdmin(ctx context.Context, callerID, targetID int64) error {
	if callerID == targetID {
		return ErrSelfTransfer
	}

	isAdmin, err := s.store.IsAdmin(ctx, targetID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: %d", ErrNotAdmin, targetID)
	}

	if err := s.store.TransferSuperAdmin(ctx, targetID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Super-admin transferred", "from", callerID, "to", targetID)
	return nil
}

// RefreshAdmin re-fetches display metadata for an existing administrator.
// Idempotent; the super-admin flag and audit fields are preserved.
func (s *Service) RefreshAdmin(ctx context.Context, userID int64) error {
	admins, err := s.store.ListAdmins(ctx)
	if err != nil {
		return err
	}

	var admin *database.Admin
	for i := range admins {
		if admins[i].UserID == userID {
			admin = &admins[i]
			break
		}
	}
	if admin == nil {
		return fmt.Errorf("%w: %d", ErrNotAdmin, userID)
	}

	s.fillMetadata(ctx, admin)
	return s.store.SaveAdmin(ctx, admin)
}

func (s *Service) fillMetadata(ctx context.Context, admin *database.Admin) {
	if s.lookup == nil {
		return
	}
	info, err := s.lookup.GetChat(ctx, admin.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not fetch admin metadata", "user_id", admin.UserID, "error", err)
		return
	}
	if info.Username != "" {
		admin.Username = sql.NullString{String: info.Username, Valid: true}
	}
	if info.FirstName != "" {
		admin.FirstName = sql.NullString{String: info.FirstName, Valid: true}
	}
}
