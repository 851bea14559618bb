package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"pdf-explorer/internal/models"
	"pdf-explorer/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[session.Page]*template.Template{
	session.PageHome:    parsePage("templates/home.html"),
	session.PageHistory: parsePage("templates/history.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/layout.html", name))
}

// Raw HTML in model output is dropped, not passed through.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

type entryView struct {
	Question string
	Answer   template.HTML
}

type pageData struct {
	Active   string
	Accept   string
	Error    string
	Notices  []string
	Document *session.Document
	Latest   *entryView
	Entries  []entryView
}

func newEntryView(e models.QAEntry) entryView {
	return entryView{Question: e.Question, Answer: renderMarkdown(e.Answer)}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		log.Warn().Err(err).Msg("Markdown conversion failed")
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(strings.TrimSpace(buf.String()))
}

func (s *Server) render(w http.ResponseWriter, page session.Page, data pageData) {
	data.Active = page.String()
	data.Accept = strings.Join(s.cfg.Server.AllowedExtensions, ",")

	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Error().Err(err).Str("page", page.String()).Msg("Error rendering page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
