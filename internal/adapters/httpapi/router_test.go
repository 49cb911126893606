package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"tutorcore/internal/core"
	"tutorcore/internal/infra/persistence/memory"
	"tutorcore/pkg/domain"
)

func init() { gin.SetMode(gin.TestMode) }

type captureLogger struct {
	mu    sync.Mutex
	warns int
	errs  int
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}
func (l *captureLogger) Error(string, ...any) {
	l.mu.Lock()
	l.errs++
	l.mu.Unlock()
}

func newTestRouter(t *testing.T) (*gin.Engine, *captureLogger) {
	t.Helper()
	store := memory.NewStore()
	log := &captureLogger{}
	router := NewRouter(Config{
		Students: core.NewStudentCatalog(store),
		Themes:   core.NewThemeCatalog(store),
		Logger:   log,
		Gatherer: prometheus.NewRegistry(),
	})
	return router, log
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestStudentRoutes(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/api/v1/students", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/students", studentRequest{Text: "Вася Пупкин 6 класс любит математику"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add student: %d %s", rec.Code, rec.Body.String())
	}
	added := decode[domain.Student](t, rec)
	if added.FullName != "Вася Пупкин" || added.Grade != "6 класс" || added.ID != nil {
		t.Fatalf("unexpected student %+v", added)
	}

	if rec = do(t, r, http.MethodPost, "/api/v1/themes", themeRequest{Grade: "6 класс", Name: "Причастие"}); rec.Code != http.StatusCreated {
		t.Fatalf("add theme: %d %s", rec.Code, rec.Body.String())
	}

	students := decode[[]domain.Student](t, do(t, r, http.MethodGet, "/api/v1/students", nil))
	if len(students) != 1 || students[0].ID == nil {
		t.Fatalf("unexpected students %+v", students)
	}
	id := *students[0].ID

	views := decode[[]domain.StudentThemeView](t, do(t, r, http.MethodGet, "/api/v1/students/themes", nil))
	if len(views) != 1 || views[0].StudentID != id || len(views[0].ThemeNames) != 1 || views[0].ThemeNames[0] != "Причастие" {
		t.Fatalf("unexpected views %+v", views)
	}

	path := "/api/v1/students/" + itoa(id)
	if rec = do(t, r, http.MethodGet, path, nil); rec.Code != http.StatusOK {
		t.Fatalf("get student: %d", rec.Code)
	}
	if rec = do(t, r, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete student: %d", rec.Code)
	}
	if rec = do(t, r, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestThemeRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, name := range []string{"Причастие", "Наречие"} {
		if rec := do(t, r, http.MethodPost, "/api/v1/themes", themeRequest{Grade: "6 класс", Name: name}); rec.Code != http.StatusCreated {
			t.Fatalf("add theme %s: %d", name, rec.Code)
		}
	}
	grades := decode[[]domain.GradeThemeView](t, do(t, r, http.MethodGet, "/api/v1/themes", nil))
	if len(grades) != 1 || len(grades[0].Themes) != 2 {
		t.Fatalf("unexpected grade views %+v", grades)
	}
	var themeID int64
	for _, e := range grades[0].Themes {
		if e.Name == "Причастие" {
			themeID = e.ID
		}
	}
	base := "/api/v1/themes/" + itoa(themeID)

	rec := do(t, r, http.MethodPatch, base, renameRequest{Name: "Наречие"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected rename conflict, got %d", rec.Code)
	}
	if env := decode[errorEnvelope](t, rec); env.Error.Code != codeDuplicate || !strings.Contains(env.Error.Message, "Такая тема") {
		t.Fatalf("unexpected conflict body %+v", env)
	}
	rec = do(t, r, http.MethodPatch, base, renameRequest{Name: "Причастный оборот"})
	if rec.Code != http.StatusOK || decode[domain.Theme](t, rec).Name != "Причастный оборот" {
		t.Fatalf("rename: %d %s", rec.Code, rec.Body.String())
	}

	if rec = do(t, r, http.MethodPost, base+"/dictations", dictationRequest{Text: "Текст диктанта"}); rec.Code != http.StatusCreated {
		t.Fatalf("add dictation: %d %s", rec.Code, rec.Body.String())
	}
	dictations := decode[[]domain.Dictation](t, do(t, r, http.MethodGet, base+"/dictations", nil))
	if len(dictations) != 1 || dictations[0].ThemeID != themeID {
		t.Fatalf("unexpected dictations %+v", dictations)
	}

	if rec = do(t, r, http.MethodDelete, base, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete theme: %d", rec.Code)
	}
	if rec = do(t, r, http.MethodGet, base+"/dictations", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected dictations gone with theme, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	r, log := newTestRouter(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unparseable student", http.MethodPost, "/api/v1/students", studentRequest{Text: "Вася"}, http.StatusUnprocessableEntity, codeValidation},
		{"bad grade", http.MethodPost, "/api/v1/grades/validate", gradeRequest{Grade: "шестой"}, http.StatusUnprocessableEntity, codeValidation},
		{"missing theme", http.MethodGet, "/api/v1/themes/42", nil, http.StatusNotFound, codeNotFound},
		{"bad id", http.MethodGet, "/api/v1/students/abc", nil, http.StatusBadRequest, codeBadRequest},
		{"negative id", http.MethodDelete, "/api/v1/themes/-1", nil, http.StatusBadRequest, codeBadRequest},
		{"malformed body", http.MethodPost, "/api/v1/themes", "{", http.StatusBadRequest, codeBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, r, tc.method, tc.path, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, rec.Code, rec.Body.String())
			}
			if env := decode[errorEnvelope](t, rec); env.Error.Code != tc.code {
				t.Fatalf("expected code %s, got %+v", tc.code, env)
			}
		})
	}
	if log.warns != len(cases) {
		t.Fatalf("expected a warning per rejected request, got %d", log.warns)
	}

	rec := do(t, r, http.MethodPost, "/api/v1/grades/validate", gradeRequest{Grade: "6 класс"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid grade: %d", rec.Code)
	}
}

type brokenThemes struct{ ThemeService }

func (brokenThemes) ListGradeThemeViews(context.Context) ([]domain.GradeThemeView, error) {
	return nil, errors.New("connection reset")
}

func TestStorageFailureIsGeneric(t *testing.T) {
	store := memory.NewStore()
	log := &captureLogger{}
	r := NewRouter(Config{
		Students: core.NewStudentCatalog(store),
		Themes:   brokenThemes{ThemeService: core.NewThemeCatalog(store)},
		Logger:   log,
	})
	rec := do(t, r, http.MethodGet, "/api/v1/themes", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if env := decode[errorEnvelope](t, rec); env.Error.Message != "internal error" {
		t.Fatalf("storage details leaked: %+v", env)
	}
	if log.errs != 1 {
		t.Fatalf("expected error log, got %d", log.errs)
	}
}

func TestRequestIDAndOperationalRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(headerRequestID, "req-123")
	mrec := httptest.NewRecorder()
	r.ServeHTTP(mrec, req)
	if mrec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", mrec.Code)
	}
	if mrec.Header().Get(headerRequestID) != "req-123" {
		t.Fatalf("expected propagated request id, got %q", mrec.Header().Get(headerRequestID))
	}
}

func TestCORSAndTracingMiddleware(t *testing.T) {
	store := memory.NewStore()
	r := NewRouter(Config{
		Students:     core.NewStudentCatalog(store),
		Themes:       core.NewThemeCatalog(store),
		Gatherer:     prometheus.NewRegistry(),
		ServiceName:  "tutorcore-test",
		AllowOrigins: []string{"http://localhost:3000"},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/themes", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list themes: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected CORS header, got %v", rec.Header())
	}
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
