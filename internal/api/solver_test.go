package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/config"
	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/solver"
)

type stubOCR struct{}

func (stubOCR) Recognize(ctx context.Context, image []byte, filename string) (string, error) {
	return "2+2=?", nil
}

type stubGen struct {
	responses []string
	calls     int
}

func (g *stubGen) Complete(ctx context.Context, prompt string) (string, error) {
	idx := g.calls
	g.calls++
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

type stubArchiver struct{}

func (stubArchiver) Upload(ctx context.Context, image []byte, filename, caption string) error {
	return nil
}

type stubExporter struct{}

func (stubExporter) Render(answers []domain.Answer) ([]byte, error) {
	return []byte("%PDF-1.4 fake"), nil
}

func newSolverRouter(repo *stubRepo, gen *stubGen) chi.Router {
	svc := solver.NewService(stubOCR{}, gen, stubArchiver{}, stubExporter{}, repo, config.RegenReplace, time.Hour)
	h := NewSolverHandler(NewHandler(repo), svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func imageUpload(t *testing.T, userID string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "homework.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("fake image")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/solver/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return asUser(req, userID, userID+"@example.com")
}

const extractionJSON = `{"questions":[{"id":"Q1","question":"2+2=?"}]}`

func TestSolverSubmitImage(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "u1@example.com"})
	router := newSolverRouter(repo, &stubGen{responses: []string{extractionJSON}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, imageUpload(t, "u1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Questions []domain.Question `json:"questions"`
	}
	decodeBody(t, rec, &res)
	if len(res.Questions) != 1 || res.Questions[0].ID != "Q1" {
		t.Errorf("Unexpected questions %+v", res.Questions)
	}
}

func TestSolverSubmitImageMissingFile(t *testing.T) {
	router := newSolverRouter(newStubRepo(), &stubGen{responses: []string{extractionJSON}})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no image here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/solver/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(req, "u1", ""))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestSolverSubmitImageMalformedExtraction(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "u1@example.com"})
	router := newSolverRouter(repo, &stubGen{responses: []string{"this is not json"}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, imageUpload(t, "u1"))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSolverAnswerFlow(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "u1@example.com"})
	router := newSolverRouter(repo, &stubGen{responses: []string{extractionJSON, "The answer is 4."}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, imageUpload(t, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload failed: %d", rec.Code)
	}

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/solver/questions/Q1/answer", nil), "u1", "u1@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var ans domain.Answer
	decodeBody(t, rec, &ans)
	if ans.QuestionID != "Q1" || ans.AnswerText != "The answer is 4." {
		t.Errorf("Unexpected answer %+v", ans)
	}

	// Free tier: asking again for the same question is refused with an
	// upgrade nudge.
	req = asUser(httptest.NewRequest(http.MethodPost, "/api/solver/questions/Q1/answer", nil), "u1", "u1@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "upgrade") {
		t.Errorf("403 body should nudge an upgrade: %s", rec.Body.String())
	}

	// The collection endpoint reflects the stored answer.
	req = asUser(httptest.NewRequest(http.MethodGet, "/api/solver/answers", nil), "u1", "u1@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var answers struct {
		Answers []domain.Answer `json:"answers"`
	}
	decodeBody(t, rec, &answers)
	if len(answers.Answers) != 1 {
		t.Errorf("Expected 1 answer, got %d", len(answers.Answers))
	}
}

func TestSolverAnswerUnknownQuestion(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "u1@example.com"})
	router := newSolverRouter(repo, &stubGen{responses: []string{extractionJSON}})

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/solver/questions/Q9/answer", nil), "u1", "u1@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestSolverQuestionsEmpty(t *testing.T) {
	router := newSolverRouter(newStubRepo(), &stubGen{responses: []string{extractionJSON}})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/solver/questions", nil), "u1", "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"questions":[]}` {
		t.Errorf("Expected empty array body, got %s", got)
	}
}

func TestSolverExport(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "u1@example.com"})
	router := newSolverRouter(repo, &stubGen{responses: []string{extractionJSON, "The answer is 4."}})

	// Empty collection first.
	req := asUser(httptest.NewRequest(http.MethodGet, "/api/solver/export", nil), "u1", "u1@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty export, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, imageUpload(t, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload failed: %d", rec.Code)
	}
	req = asUser(httptest.NewRequest(http.MethodPost, "/api/solver/questions/Q1/answer", nil), "u1", "u1@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Answer failed: %d", rec.Code)
	}

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/solver/export", nil), "u1", "u1@example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Expected application/pdf, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "answers-collage.pdf") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
}
