package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"pdf-explorer/internal/chromemdb"
	"pdf-explorer/internal/models"
)

// Page is the view a session is currently looking at.
type Page int

const (
	PageHome Page = iota
	PageHistory
)

func (p Page) String() string {
	switch p {
	case PageHistory:
		return "History"
	default:
		return "Home"
	}
}

// ParsePage maps the page query parameter to a Page. ok is false for
// values that name no page.
func ParsePage(v string) (Page, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "home":
		return PageHome, true
	case "history":
		return PageHistory, true
	default:
		return PageHome, false
	}
}

// Document describes the upload currently backing the session's index.
type Document struct {
	Name         string
	Pages        int
	SkippedPages []int
	ChunkCount   int
}

// Session is the state of one visitor. Lock serialises the visitor's
// actions; the accessors below expect the caller to hold it.
type Session struct {
	sync.Mutex

	ID       string
	Page     Page
	Document *Document

	index    *chromemdb.Index
	history  []models.QAEntry
	lastSeen time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, Page: PageHome, lastSeen: now}
}

// Navigate applies the page query parameter. An empty or unknown value
// keeps the current page.
func (s *Session) Navigate(param string) Page {
	if p, ok := ParsePage(param); ok {
		s.Page = p
	}
	return s.Page
}

// SetIndex replaces the session's index and the document it was built from.
func (s *Session) SetIndex(doc *Document, index *chromemdb.Index) {
	s.Document = doc
	s.index = index
}

func (s *Session) Index() *chromemdb.Index {
	return s.index
}

// Append records an answered question. Blank questions are ignored and
// reported as not appended.
func (s *Session) Append(entry models.QAEntry) bool {
	if strings.TrimSpace(entry.Question) == "" {
		return false
	}
	s.history = append(s.history, entry)
	return true
}

func (s *Session) Len() int {
	return len(s.history)
}

// Entries returns the history oldest first.
func (s *Session) Entries() []models.QAEntry {
	return append([]models.QAEntry(nil), s.history...)
}

// Newest returns the history newest first.
func (s *Session) Newest() []models.QAEntry {
	out := make([]models.QAEntry, len(s.history))
	for i, e := range s.history {
		out[len(s.history)-1-i] = e
	}
	return out
}

// Last returns the most recent entry.
func (s *Session) Last() (models.QAEntry, bool) {
	if len(s.history) == 0 {
		return models.QAEntry{}, false
	}
	return s.history[len(s.history)-1], true
}

// Export renders the history oldest first as "Q: ...\nA: ..." blocks
// separated by blank lines.
func (s *Session) Export() string {
	return Export(s.history)
}

func Export(entries []models.QAEntry) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		blocks[i] = fmt.Sprintf("Q: %s\nA: %s", e.Question, e.Answer)
	}
	return strings.Join(blocks, "\n\n")
}

func (s *Session) clear() {
	s.history = nil
	s.index = nil
	s.Document = nil
}
