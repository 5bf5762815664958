// Package webapp provides the basic-auth web panel for managing groups and
// broadcast segments.
package webapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avdeev/teleblast/internal/database"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server is the web panel HTTP server. All routes sit behind basic auth and
// every mutation redirects back to the index.
type Server struct {
	store  database.Store
	logger *slog.Logger
	engine *gin.Engine
	listen string
}

// Credentials for the single basic-auth account.
type Credentials struct {
	Username string
	Password string
}

// NewServer creates the web panel server.
func NewServer(store database.Store, logger *slog.Logger, listen string, creds Credentials) (*Server, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("webapp credentials are not configured")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		store:  store,
		logger: logger.With("component", "webapp"),
		engine: engine,
		listen: listen,
	}

	authorized := engine.Group("/", gin.BasicAuth(gin.Accounts{creds.Username: creds.Password}))
	authorized.GET("/", s.index)
	authorized.POST("/lists/create", s.createList)
	authorized.POST("/lists/:id/delete", s.deleteList)
	authorized.POST("/groups/:chat_id/delete", s.deleteGroup)
	authorized.POST("/groups/:chat_id/assign", s.assignGroup)
	authorized.POST("/groups/:chat_id/unassign", s.unassignGroup)
	authorized.POST("/groups/bulk", s.bulkGroups)

	return s, nil
}

// Handler exposes the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Web panel listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webapp shutdown failed: %w", err)
		}
		s.logger.Info("Web panel stopped gracefully.")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webapp server failed: %w", err)
	}
}

type groupRow struct {
	ChatID       int64
	Title        string
	SegmentNames string
}

func (s *Server) index(c *gin.Context) {
	ctx := c.Request.Context()

	seg, err := s.store.ListSegments(ctx)
	if err != nil {
		s.fail(c, "list segments", err)
		return
	}

	includeID, _ := strconv.ParseInt(c.Query("include"), 10, 64)
	excludeID, _ := strconv.ParseInt(c.Query("exclude"), 10, 64)
	unassignedOnly := c.Query("unassigned") == "1"

	var rows []groupRow
	switch {
	case unassignedOnly:
		groups, err := s.store.ListUnassignedGroups(ctx)
		if err != nil {
			s.fail(c, "list unassigned groups", err)
			return
		}
		for _, g := range groups {
			rows = append(rows, groupRow{ChatID: g.ChatID, Title: g.Title})
		}
	default:
		groups, err := s.store.ListGroupsWithSegments(ctx)
		if err != nil {
			s.fail(c, "list groups", err)
			return
		}

		includeSet, err := s.segmentMembers(ctx, includeID)
		if err != nil {
			s.fail(c, "resolve include filter", err)
			return
		}
		excludeSet, err := s.segmentMembers(ctx, excludeID)
		if err != nil {
			s.fail(c, "resolve exclude filter", err)
			return
		}

		for _, g := range groups {
			if includeSet != nil && !includeSet[g.ChatID] {
				continue
			}
			if excludeSet != nil && excludeSet[g.ChatID] {
				continue
			}
			rows = append(rows, groupRow{
				ChatID:       g.ChatID,
				Title:        g.Title,
				SegmentNames: g.SegmentNames.String,
			})
		}
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Segments":   seg,
		"Groups":     rows,
		"Include":    includeID,
		"Exclude":    excludeID,
		"Unassigned": unassignedOnly,
	})
}

// segmentMembers returns the member set of a segment, or nil when no filter
// is requested.
func (s *Server) segmentMembers(ctx context.Context, segmentID int64) (map[int64]bool, error) {
	if segmentID == 0 {
		return nil, nil
	}
	ids, err := s.store.ListGroupIDsInSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	members := make(map[int64]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	return members, nil
}

func (s *Server) createList(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if _, err := s.store.CreateSegment(c.Request.Context(), name); err != nil {
		s.fail(c, "create segment", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) deleteList(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad segment id")
		return
	}
	if err := s.store.DeleteSegment(c.Request.Context(), id); err != nil {
		s.fail(c, "delete segment", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) deleteGroup(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad chat id")
		return
	}
	if err := s.store.DeleteGroup(c.Request.Context(), chatID); err != nil {
		s.fail(c, "delete group", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) assignGroup(c *gin.Context) {
	s.changeMembership(c, s.store.AddGroupToSegment)
}

func (s *Server) unassignGroup(c *gin.Context) {
	s.changeMembership(c, s.store.RemoveGroupFromSegment)
}

func (s *Server) changeMembership(c *gin.Context, op func(context.Context, int64, int64) error) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad chat id")
		return
	}
	segmentID, err := strconv.ParseInt(c.PostForm("segment_id"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad segment id")
		return
	}
	if err := op(c.Request.Context(), chatID, segmentID); err != nil {
		s.fail(c, "change membership", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// bulkGroups applies one action to every checked group. Per-group failures
// are logged and skipped so a single bad row doesn't abort the batch.
func (s *Server) bulkGroups(c *gin.Context) {
	ctx := c.Request.Context()
	action := c.PostForm("action")

	var segmentID int64
	if action == "assign" || action == "unassign" {
		var err error
		segmentID, err = strconv.ParseInt(c.PostForm("segment_id"), 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "bad segment id")
			return
		}
	}

	for _, raw := range c.PostFormArray("chat_ids") {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		switch action {
		case "assign":
			err = s.store.AddGroupToSegment(ctx, chatID, segmentID)
		case "unassign":
			err = s.store.RemoveGroupFromSegment(ctx, chatID, segmentID)
		case "delete":
			err = s.store.DeleteGroup(ctx, chatID)
		default:
			c.String(http.StatusBadRequest, "unknown action")
			return
		}
		if err != nil {
			s.logger.Error("Bulk action failed for group",
				"action", action, "chat_id", chatID, "error", err)
		}
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) fail(c *gin.Context, what string, err error) {
	s.logger.Error("Web panel operation failed", "operation", what, "error", err)
	c.String(http.StatusInternalServerError, "internal error")
}
