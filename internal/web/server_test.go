package web

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pdf-explorer/internal/config"
	"pdf-explorer/internal/parser"
	"pdf-explorer/internal/rag"
	"pdf-explorer/internal/ragtest"
	"pdf-explorer/internal/session"
)

const fruitDoc = `Apples grow in orchards and are crisp.
Bananas are yellow and grow in bunches.
Cherries are small red stone fruit.`

const animalDoc = `Zebras have black and white stripes.
Owls hunt at night.`

type testApp struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	model  *ragtest.Model
}

func newTestApp(t *testing.T, model *ragtest.Model) *testApp {
	t.Helper()
	cfg := config.Default()
	cfg.RAG.ChunkSize = 50
	cfg.RAG.ChunkOverlap = 10
	cfg.RAG.TopK = 1

	r := rag.NewRAG(ragtest.LetterEmbedder{}, model, cfg)
	srv := httptest.NewServer(NewServer(r, session.NewStore(time.Hour), cfg))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &testApp{t: t, srv: srv, client: &http.Client{Jar: jar}, model: model}
}

func (a *testApp) body(resp *http.Response, err error) string {
	a.t.Helper()
	if err != nil {
		a.t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		a.t.Fatalf("unexpected status %d: %s", resp.StatusCode, b)
	}
	return string(b)
}

func (a *testApp) get(path string) string {
	a.t.Helper()
	return a.body(a.client.Get(a.srv.URL + path))
}

func (a *testApp) upload(filename, content string) string {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		a.t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return a.body(a.client.Post(a.srv.URL+"/upload", mw.FormDataContentType(), &buf))
}

func (a *testApp) ask(question string) string {
	a.t.Helper()
	return a.body(a.client.PostForm(a.srv.URL+"/ask", url.Values{"question": {question}}))
}

func TestPages_DefaultAndPersistedSelection(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})

	home := app.get("/")
	if !strings.Contains(home, "Please upload a PDF to start asking questions.") {
		t.Errorf("home page missing upload prompt")
	}
	if !strings.Contains(home, `href="/?page=Home" class="active"`) {
		t.Errorf("Home should be the active menu entry")
	}

	history := app.get("/?page=History")
	if !strings.Contains(history, "No questions have been asked yet.") {
		t.Errorf("history page missing empty message")
	}

	again := app.get("/")
	if !strings.Contains(again, "Chat History</h2>") {
		t.Errorf("page selection should persist in the session")
	}
	if !strings.Contains(app.get("/?page=nonsense"), "Chat History</h2>") {
		t.Errorf("unknown page value should keep the current page")
	}
}

func TestUploadAskHistoryAndExport(t *testing.T) {
	answers := []string{"They are **crisp**.", "They are yellow."}
	var n atomic.Int32
	app := newTestApp(t, &ragtest.Model{Reply: func(string) string {
		return answers[int(n.Add(1)-1)%len(answers)]
	}})

	page := app.upload("fruit.txt", fruitDoc)
	if !strings.Contains(page, "split into 3 chunks") {
		t.Fatalf("expected chunk count notice, got:\n%s", page)
	}

	page = app.ask("What are apples like?")
	if !strings.Contains(page, "What are apples like?") || !strings.Contains(page, "<strong>crisp</strong>") {
		t.Errorf("latest answer should be rendered below the input:\n%s", page)
	}
	app.ask("What colour are bananas?")

	history := app.get("/?page=History")
	first := strings.Index(history, "What are apples like?")
	second := strings.Index(history, "What colour are bananas?")
	if first < 0 || second < 0 || second > first {
		t.Errorf("history should list newest first (first=%d second=%d)", first, second)
	}

	resp, err := app.client.Get(app.srv.URL + "/history/download")
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="answers.txt"`) {
		t.Errorf("unexpected content disposition %q", cd)
	}
	want := "Q: What are apples like?\nA: They are **crisp**.\n\nQ: What colour are bananas?\nA: They are yellow."
	if got := app.body(resp, nil); got != want {
		t.Errorf("export =\n%q\nwant\n%q", got, want)
	}
}

func TestAsk_EmptyQuestionIsNoop(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})
	app.upload("fruit.txt", fruitDoc)
	app.ask("real question?")

	app.ask("   ")
	if app.model.Calls() != 1 {
		t.Errorf("blank question should not reach the model, calls=%d", app.model.Calls())
	}
	if got := app.get("/history/download"); strings.Count(got, "Q: ") != 1 {
		t.Errorf("history length changed: %q", got)
	}
}

func TestAsk_BeforeUpload(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})

	page := app.ask("anything?")
	if !strings.Contains(page, `class="error"`) {
		t.Errorf("expected inline error:\n%s", page)
	}
	if got := app.get("/history/download"); got != "" {
		t.Errorf("nothing should be recorded, got %q", got)
	}
}

func TestAsk_ServiceErrorKeepsState(t *testing.T) {
	var failing atomic.Bool
	model := &ragtest.Model{Reply: func(string) string {
		if failing.Load() {
			return ""
		}
		return "fine"
	}}
	app := newTestApp(t, model)
	app.upload("fruit.txt", fruitDoc)
	app.ask("first?")

	failing.Store(true)
	page := app.ask("second?")
	if !strings.Contains(page, "empty answer") {
		t.Errorf("expected empty answer error:\n%s", page)
	}

	failing.Store(false)
	app.ask("third?")
	want := "Q: first?\nA: fine\n\nQ: third?\nA: fine"
	if got := app.get("/history/download"); got != want {
		t.Errorf("export =\n%q\nwant\n%q", got, want)
	}
}

func TestUpload_SecondDocumentReplacesIndex(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})
	app.upload("fruit.txt", fruitDoc)
	app.upload("animals.txt", animalDoc)

	app.ask("apples orchards crisp")
	if strings.Contains(app.model.LastPrompt(), "Apples grow in orchards") {
		t.Errorf("prompt used content from the discarded document:\n%s", app.model.LastPrompt())
	}
	if !strings.Contains(app.get("/"), "animals.txt") {
		t.Errorf("current document should be animals.txt")
	}
}

func TestUpload_FailureKeepsPreviousIndex(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})
	app.upload("fruit.txt", fruitDoc)

	page := app.upload("broken.pdf", "definitely not a pdf")
	if !strings.Contains(page, "could not be read. Please upload a valid PDF.") {
		t.Errorf("expected invalid document message:\n%s", page)
	}
	page = app.upload("broken.docx", "definitely not a docx")
	if !strings.Contains(page, "Please upload a valid DOCX.") {
		t.Errorf("expected the message to name the docx type:\n%s", page)
	}
	page = app.upload("picture.png", "png")
	if !strings.Contains(page, "Unsupported file type") {
		t.Errorf("expected unsupported type message:\n%s", page)
	}

	app.ask("bananas yellow bunches")
	if !strings.Contains(app.model.LastPrompt(), "Bananas are yellow") {
		t.Errorf("previous index should still answer questions:\n%s", app.model.LastPrompt())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})
	app.upload("fruit.txt", fruitDoc)
	app.ask("mine?")

	other := &testApp{t: t, srv: app.srv, client: &http.Client{}, model: app.model}
	if got := other.get("/history/download"); got != "" {
		t.Errorf("another session should not see this history, got %q", got)
	}
	if !strings.Contains(other.get("/"), "Please upload a PDF") {
		t.Errorf("another session should have no document")
	}
}

func TestEndSession(t *testing.T) {
	app := newTestApp(t, &ragtest.Model{})
	app.upload("fruit.txt", fruitDoc)
	app.ask("q?")

	app.body(app.client.Post(app.srv.URL+"/session/end", "", nil))
	if got := app.get("/history/download"); got != "" {
		t.Errorf("history should be cleared after the session ends, got %q", got)
	}
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	got := string(renderMarkdown("hello <script>alert(1)</script> *there*"))
	if strings.Contains(got, "<script>") {
		t.Errorf("raw html passed through: %s", got)
	}
	if !strings.Contains(got, "<em>there</em>") {
		t.Errorf("markdown not rendered: %s", got)
	}
}

func TestErrorMessages(t *testing.T) {
	if msg := askErrorMessage(rag.ErrNoDocument); !strings.Contains(msg, "upload") {
		t.Errorf("unexpected message %q", msg)
	}
	if msg := uploadErrorMessage(errors.New("503"), "a.pdf"); !strings.Contains(msg, "503") {
		t.Errorf("service error should be surfaced, got %q", msg)
	}
	for name, want := range map[string]string{
		"report.docx": "valid DOCX.",
		"book.XLSX":   "valid XLSX.",
		"scan.pdf":    "valid PDF.",
		"noext":       "valid document.",
	} {
		if msg := uploadErrorMessage(parser.ErrInvalidDocument, name); !strings.Contains(msg, want) {
			t.Errorf("%s: expected %q in %q", name, want, msg)
		}
	}
}
