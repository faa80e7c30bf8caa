package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/sentiscope/internal/database"
	"github.com/TobiSchelling/sentiscope/internal/pipeline"
	"github.com/TobiSchelling/sentiscope/internal/runner"
	"github.com/TobiSchelling/sentiscope/internal/sentiment"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// historyLimit is the number of recent runs listed on the page.
const historyLimit = 10

// Service runs the pipeline and loads the checkpoint.
type Service interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	Load() (*database.Checkpoint, error)
}

// History lists previous runs.
type History interface {
	GetRecentRuns(limit int) ([]database.Run, error)
}

// Server is the HTTP server for the sentiment page.
type Server struct {
	svc     Service
	history History
	page    *template.Template
	mux     *http.ServeMux
}

// view is the data rendered by index.html.
type view struct {
	Text           string
	FeatureText    string
	Classification *string
	Emotions       []string
	Sentiment      *sentiment.Score
	Source         string
	Notice         string
	Error          string
	Runs           []database.Run
}

// New creates a new Server. history may be nil.
func New(svc Service, history History) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"truncate": truncate,
	}

	page, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html", "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{svc: svc, history: history, page: page, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/process", s.handleProcess)
	s.mux.HandleFunc("/load", s.handleLoad)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.render(w, http.StatusOK, &view{})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	text := r.FormValue("text")
	v := &view{Text: text}
	if strings.TrimSpace(text) == "" {
		v.Notice = "Enter some text to analyze."
		s.render(w, http.StatusOK, v)
		return
	}

	res, err := s.svc.Run(r.Context(), pipeline.Input{Text: text, Source: "web"})
	switch {
	case errors.Is(err, runner.ErrSuperseded):
		v.Notice = "A newer request replaced this one."
		s.render(w, http.StatusConflict, v)
		return
	case err != nil:
		slog.Error("[Server] Processing failed", slog.Any("error", err))
		v.Error = err.Error()
		s.render(w, http.StatusInternalServerError, v)
		return
	}

	v.FeatureText = res.FeatureText
	v.Classification = res.Classification
	v.Emotions = res.Emotions
	v.Sentiment = &res.Sentiment
	if res.Classification == nil {
		v.Notice = "The classification service returned no result."
	}
	s.render(w, http.StatusOK, v)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	cp, err := s.svc.Load()
	if errors.Is(err, database.ErrCheckpointNotFound) {
		slog.Info("[Server] Breakpoint data not found")
		s.render(w, http.StatusOK, &view{Text: r.FormValue("text"), Notice: "Breakpoint data not found."})
		return
	}
	if err != nil {
		slog.Error("[Server] Loading checkpoint failed", slog.Any("error", err))
		s.render(w, http.StatusInternalServerError, &view{Text: r.FormValue("text"), Error: err.Error()})
		return
	}

	v := &view{
		Text:           cp.Text,
		FeatureText:    cp.IntermediateText,
		Classification: cp.Classification,
		Source:         cp.Source,
	}
	// Rows migrated from the first schema carry no local score.
	if cp.SentimentLabel != "" {
		v.Sentiment = &sentiment.Score{Compound: cp.SentimentScore, Label: cp.SentimentLabel}
	}
	s.render(w, http.StatusOK, v)
}

func (s *Server) render(w http.ResponseWriter, status int, v *view) {
	if s.history != nil {
		runs, err := s.history.GetRecentRuns(historyLimit)
		if err != nil {
			slog.Warn("[Server] Listing runs failed", slog.Any("error", err))
		}
		v.Runs = runs
	}

	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "base.html", v); err != nil {
		slog.Error("[Server] Error rendering template", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func truncate(n int, s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Serve starts the HTTP server on the given port and shuts it down when
// ctx is cancelled.
func Serve(ctx context.Context, svc Service, history History, port int) error {
	srv, err := New(svc, history)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[Server] Listening", slog.String("url", "http://"+addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
