package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/identity"
)

func newAuthRouter(repo *stubRepo) chi.Router {
	auth := identity.New("test-secret", time.Hour)
	svc := identity.NewService(repo, auth)
	h := NewAuthHandler(NewHandler(repo), svc)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestRegisterEndpoint(t *testing.T) {
	router := newAuthRouter(newStubRepo())

	body := `{"email":"kid@example.com","password":"secret123","grade":"11","phone":"+100"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var res struct {
		Token   string `json:"token"`
		Profile struct {
			Email     string `json:"email"`
			Grade     string `json:"grade"`
			IsPremium bool   `json:"is_premium"`
		} `json:"profile"`
	}
	decodeBody(t, rec, &res)
	if res.Token == "" {
		t.Error("Expected a token in the response")
	}
	if res.Profile.Email != "kid@example.com" || res.Profile.Grade != "11" {
		t.Errorf("Unexpected profile %+v", res.Profile)
	}
	if strings.Contains(rec.Body.String(), "secret123") {
		t.Error("Response leaks the password")
	}
}

func TestRegisterEndpointValidation(t *testing.T) {
	router := newAuthRouter(newStubRepo())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"missing grade", `{"email":"a@b.com","password":"x"}`, http.StatusBadRequest},
		{"bad grade", `{"email":"a@b.com","password":"x","grade":"8"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	router := newAuthRouter(newStubRepo())
	body := `{"email":"kid@example.com","password":"secret","grade":"10"}`

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("First register: expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("Duplicate register: expected 409, got %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	repo := newStubRepo()
	router := newAuthRouter(repo)

	register := `{"email":"kid@example.com","password":"secret","grade":"12"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(register))
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"kid@example.com","password":"secret"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"kid@example.com","password":"wrong"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Wrong password: expected 401, got %d", rec.Code)
	}
}
