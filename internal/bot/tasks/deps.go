// Package tasks implements the scheduled tasks of the TeleBlast bot:
// dispatching due broadcasts and removing expired ones.
package tasks

import (
	"log/slog"
	"time"

	"github.com/avdeev/teleblast/internal/broadcast"
	"github.com/avdeev/teleblast/internal/config"
	"github.com/avdeev/teleblast/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Broadcasts *broadcast.Manager
	Config     *config.Config

	// Now supplies the current time; nil means time.Now. Tests override it.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
