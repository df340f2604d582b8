// Package app provides application-level orchestration for ticsmerge.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zerofisher/ticsmerge/internal/config"
	"github.com/Zerofisher/ticsmerge/internal/logging"
	"github.com/Zerofisher/ticsmerge/pkg/blob"
	"github.com/Zerofisher/ticsmerge/pkg/merge"
	"github.com/Zerofisher/ticsmerge/pkg/model"
	"github.com/Zerofisher/ticsmerge/pkg/store"
	"github.com/Zerofisher/ticsmerge/pkg/store/sqlite"
	"github.com/Zerofisher/ticsmerge/pkg/view"
)

// MessageKind distinguishes the two kinds of user-visible message.
type MessageKind int

const (
	// Notice reports a completed action.
	Notice MessageKind = iota
	// Error reports a failed action.
	Error
)

func (k MessageKind) String() string {
	if k == Error {
		return "error"
	}
	return "notice"
}

// Message is the single user-visible message slot. Each action replaces it.
type Message struct {
	Kind MessageKind
	Text string
}

// Session is the application handle created once at startup. It owns the
// stores, the merge engine and the in-memory groups the view is built from.
type Session struct {
	cfg    config.Config
	log    *logging.Logger
	blobs  blob.Store
	store  *sqlite.SQLiteStore
	engine *merge.Engine
	groups []model.Group
	msg    Message
}

// Open creates the blob store and the relational store and loads all
// groups. Failures to bring up either store are *store.InitError; Open may
// be retried.
func Open(ctx context.Context, cfg config.Config, log *logging.Logger) (*Session, error) {
	if log == nil {
		log = logging.Nop()
	}

	blobs, err := blob.Open(ctx, cfg.Blob())
	if err != nil {
		return nil, &store.InitError{Op: "open blob store", Err: err}
	}
	return open(ctx, cfg, blobs, log)
}

// open brings up the relational store over blobs and loads the groups.
// blobs is closed on failure.
func open(ctx context.Context, cfg config.Config, blobs blob.Store, log *logging.Logger) (*Session, error) {
	st, err := sqlite.Open(ctx, sqlite.Config{Blobs: blobs, Logger: log.With("component", "store")})
	if err != nil {
		_ = blobs.Close()
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		log:    log,
		blobs:  blobs,
		store:  st,
		engine: merge.NewEngine(st, log.With("component", "merge")),
	}
	if err := s.Load(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	log.Debug("session opened", "backend", cfg.Backend, "groups", len(s.groups))
	return s, nil
}

// Close closes the stores. The blob store is closed by the relational store.
func (s *Session) Close() error {
	return s.store.Close()
}

// Store returns the relational store.
func (s *Session) Store() *sqlite.SQLiteStore { return s.store }

// Load replaces the in-memory groups with everything in the store.
func (s *Session) Load(ctx context.Context) error {
	docs, err := s.store.All(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	s.groups = view.BuildGroups(docs)
	return nil
}

// Groups returns the current in-memory groups.
func (s *Session) Groups() []model.Group { return s.groups }

// Group returns the group with the given key, or nil.
func (s *Session) Group(key model.GroupKey) *model.Group {
	return view.Find(s.groups, key)
}

// View filters, sorts and paginates the groups. A non-positive perPage
// uses the configured page size.
func (s *Session) View(c view.Criteria, page, perPage int) view.Page {
	if perPage <= 0 {
		perPage = s.cfg.View.PerPage
	}
	return view.Paginate(view.Filter(s.groups, c), page, perPage)
}

// PerPage returns the configured page size.
func (s *Session) PerPage() int { return s.cfg.View.PerPage }

// GTINOptions returns the distinct gtins of all groups.
func (s *Session) GTINOptions() []string {
	return view.GTINOptions(s.groups)
}

// Message returns the last user-visible message.
func (s *Session) Message() Message { return s.msg }

func (s *Session) notice(format string, args ...any) {
	s.msg = Message{Kind: Notice, Text: fmt.Sprintf(format, args...)}
}

// fail records text as the user-visible error, logs err and returns it.
func (s *Session) fail(err error, text string) error {
	s.msg = Message{Kind: Error, Text: text}
	s.log.Error(text, "error", err)
	return err
}

// Clear deletes every record and the persisted snapshot.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return s.fail(err, "Failed to clear data.")
	}
	s.groups = nil
	s.notice("All data cleared.")
	s.log.Info("data cleared")
	return nil
}

// userText picks the message for an ingestion error.
func userText(err error, fallback string) string {
	var initErr *store.InitError
	if errors.As(err, &initErr) {
		return "Database unavailable: " + initErr.Error()
	}
	return fallback
}
