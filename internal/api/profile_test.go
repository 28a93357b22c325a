package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/identity"
)

func newProfileRouter(repo *stubRepo) chi.Router {
	h := NewProfileHandler(NewHandler(repo))
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func asUser(req *http.Request, userID, email string) *http.Request {
	return req.WithContext(identity.WithIdentity(req.Context(), userID, email))
}

func TestProfileGet(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "kid@example.com", Grade: "11"})
	router := newProfileRouter(repo)

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/profile/", nil), "u1", "kid@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var p domain.Profile
	decodeBody(t, rec, &p)
	if p.Email != "kid@example.com" || p.Grade != "11" {
		t.Errorf("Unexpected profile %+v", p)
	}
}

func TestProfileGetNotFound(t *testing.T) {
	router := newProfileRouter(newStubRepo())

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/profile/", nil), "ghost", "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestProfileUpdate(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "kid@example.com", Grade: "10"})
	router := newProfileRouter(repo)

	body := `{"phone":"+200","grade":"12"}`
	req := asUser(httptest.NewRequest(http.MethodPut, "/api/profile/", strings.NewReader(body)), "u1", "kid@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var p domain.Profile
	decodeBody(t, rec, &p)
	if p.Phone != "+200" || p.Grade != "12" {
		t.Errorf("Update not applied: %+v", p)
	}
}

func TestProfileUpdateBadGrade(t *testing.T) {
	repo := newStubRepo()
	repo.addProfile(&domain.Profile{ID: "u1", Email: "kid@example.com", Grade: "10"})
	router := newProfileRouter(repo)

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/profile/", strings.NewReader(`{"grade":"7"}`)), "u1", "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
