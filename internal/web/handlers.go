package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-explorer/internal/llmservice"
	"pdf-explorer/internal/models"
	"pdf-explorer/internal/parser"
	"pdf-explorer/internal/rag"
	"pdf-explorer/internal/session"
)

const multipartMemory = 32 << 20

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Lock()
	defer sess.Unlock()

	page := sess.Navigate(r.URL.Query().Get("page"))
	s.render(w, page, s.pageData(sess, page))
}

// pageData fills in what every render of page needs from the session.
func (s *Server) pageData(sess *session.Session, page session.Page) pageData {
	data := pageData{Document: sess.Document}
	if page == session.PageHistory {
		for _, e := range sess.Newest() {
			data.Entries = append(data.Entries, newEntryView(e))
		}
	}
	return data
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Lock()
	defer sess.Unlock()
	sess.Page = session.PageHome

	fail := func(msg string) {
		data := s.pageData(sess, session.PageHome)
		data.Error = msg
		s.render(w, session.PageHome, data)
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(fmt.Sprintf("The file is larger than %d MB.", s.cfg.Server.MaxUploadBytes>>20))
			return
		}
		fail("Please choose a file to upload.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		fail("Please choose a file to upload.")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !slices.Contains(s.cfg.Server.AllowedExtensions, strings.ToLower(filepath.Ext(name))) {
		fail(fmt.Sprintf("Unsupported file type. Allowed: %s", strings.Join(s.cfg.Server.AllowedExtensions, ", ")))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		fail("Could not read the uploaded file.")
		return
	}

	doc, err := s.rag.Ingest(r.Context(), name, data)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Str("file", name).Msg("Error processing upload")
		fail(uploadErrorMessage(err, name))
		return
	}

	sess.SetIndex(&session.Document{
		Name:         doc.Name,
		Pages:        doc.Pages,
		SkippedPages: doc.SkippedPages,
		ChunkCount:   doc.ChunkCount,
	}, doc.Index)
	log.Info().Str("session", sess.ID).Str("file", name).Int("chunks", doc.ChunkCount).Msg("Index rebuilt")

	page := s.pageData(sess, session.PageHome)
	page.Notices = []string{
		fmt.Sprintf("✅ %s loaded successfully!", doc.Name),
		fmt.Sprintf("Document split into %d chunks.", doc.ChunkCount),
		"✅ Embeddings ready!",
	}
	if len(doc.SkippedPages) > 0 {
		page.Notices = append(page.Notices, "Pages without extractable text: "+joinInts(doc.SkippedPages))
	}
	s.render(w, session.PageHome, page)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Lock()
	defer sess.Unlock()
	sess.Page = session.PageHome

	data := s.pageData(sess, session.PageHome)
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		s.render(w, session.PageHome, data)
		return
	}

	resp, err := s.rag.Query(r.Context(), sess.Index(), question)
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("Error answering question")
		data.Error = askErrorMessage(err)
		s.render(w, session.PageHome, data)
		return
	}

	entry := models.QAEntry{Question: question, Answer: resp.Content}
	sess.Append(entry)
	latest := newEntryView(entry)
	data.Latest = &latest
	s.render(w, session.PageHome, data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.Lock()
	body := sess.Export()
	sess.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="answers.txt"`)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.End(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func uploadErrorMessage(err error, name string) string {
	switch {
	case errors.Is(err, parser.ErrInvalidDocument):
		return fmt.Sprintf("The file could not be read. Please upload a valid %s.", documentKind(name))
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return "Unsupported file type."
	case errors.Is(err, rag.ErrNoText):
		return "No extractable text was found in this document."
	default:
		return "Could not build embeddings: " + err.Error()
	}
}

// documentKind names a file's type for messages, e.g. "PDF" for a.pdf.
func documentKind(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "document"
	}
	return strings.ToUpper(ext)
}

func askErrorMessage(err error) string {
	switch {
	case errors.Is(err, rag.ErrNoDocument):
		return "📌 Please upload a PDF to start asking questions."
	case errors.Is(err, llmservice.ErrEmptyAnswer):
		return "The model returned an empty answer. Please try again."
	default:
		return "Could not generate an answer: " + err.Error()
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
