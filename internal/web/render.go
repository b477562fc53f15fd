package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"

	"warbler/internal/forms"
	"warbler/internal/models"
	"warbler/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.html"

// pages maps a page name (the template file name without .html) to its
// template, each parsed together with the shared layout.
type pages map[string]*template.Template

var funcs = template.FuncMap{
	"date":       func(t time.Time) string { return t.Format("02 January 2006") },
	"has":        func(set map[uint]bool, id uint) bool { return set[id] },
	"messageURL": messageURL,
}

func parsePages() (pages, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pg := pages{}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		t, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		pg[name] = t
	}
	return pg, nil
}

// view is the data every page template receives.
type view struct {
	CurrentUser *models.User
	Flashes     []Flash
	CSRFField   template.HTML

	Form   any
	Errors forms.Errors

	User      *models.User
	Users     []models.User
	Message   *models.Message
	Messages  []models.Message
	Stats     service.UserStats
	Following bool
	Liked     map[uint]bool
	Query     string
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v *view) {
	t, ok := h.pages[page]
	if !ok {
		h.serverError(w, r, fmt.Errorf("unknown page %q", page))
		return
	}
	if v == nil {
		v = &view{}
	}
	if v.Errors == nil {
		v.Errors = forms.Errors{}
	}
	v.CurrentUser = CurrentUser(r)
	v.CSRFField = csrf.TemplateField(r)
	v.Flashes = takeFlashes(r)

	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		h.serverError(w, r, fmt.Errorf("render %s: %w", page, err))
		return
	}

	h.saveSession(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect saves pending session changes and sends a 302.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, url string) {
	h.saveSession(w, r)
	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "404", nil)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": requestID(r),
	}).Error("Internal server error")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
