package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ChrisAbdo/event-manager/internal/models"
	"github.com/ChrisAbdo/event-manager/internal/service"

	"github.com/google/uuid"
)

func doJSON(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

type userFixture struct {
	auth  *mockAuth
	users *mockUsers
	ids   map[string]uuid.UUID
	r     http.Handler
}

// newUserFixture registers one token per role, named after the role.
func newUserFixture() *userFixture {
	f := &userFixture{
		auth:  &mockAuth{},
		users: &mockUsers{user: &models.User{ID: uuid.New(), Email: "x@example.com", Role: models.RoleAuthenticated}},
		ids:   map[string]uuid.UUID{},
	}
	for _, role := range []models.Role{models.RoleAnonymous, models.RoleAuthenticated, models.RoleManager, models.RoleAdmin} {
		f.ids[string(role)] = f.auth.withUser(string(role), role)
	}
	f.r = newTestRouter(&service.Service{Authorization: f.auth, Users: f.users, AuditLog: &mockAuditLog{}})
	return f
}

func TestUsersRoutes_RoleMatrix(t *testing.T) {
	target := "/api/v1/users/" + uuid.NewString()

	cases := []struct {
		method string
		path   string
		body   string
		min    models.Role
		okCode int
	}{
		{http.MethodGet, "/api/v1/users/me", "", models.RoleAnonymous, http.StatusOK},
		{http.MethodPatch, "/api/v1/users/me", `{"first_name":"A"}`, models.RoleAnonymous, http.StatusOK},
		{http.MethodGet, "/api/v1/users", "", models.RoleManager, http.StatusOK},
		{http.MethodGet, target, "", models.RoleManager, http.StatusOK},
		{http.MethodPatch, target + "/professional", `{"is_professional":true}`, models.RoleManager, http.StatusOK},
		{http.MethodPatch, target, `{"role":"MANAGER"}`, models.RoleAdmin, http.StatusOK},
		{http.MethodPost, target + "/unlock", "", models.RoleAdmin, http.StatusOK},
		{http.MethodDelete, target, "", models.RoleAdmin, http.StatusNoContent},
		{http.MethodGet, "/api/v1/audit", "", models.RoleAdmin, http.StatusOK},
	}

	for _, tc := range cases {
		for _, role := range []models.Role{models.RoleAnonymous, models.RoleAuthenticated, models.RoleManager, models.RoleAdmin} {
			t.Run(tc.method+" "+tc.path+" as "+string(role), func(t *testing.T) {
				f := newUserFixture()
				f.users.page = &models.UserPage{Items: []models.User{}, Page: 1, Size: 10}

				w := doJSON(f.r, tc.method, tc.path, string(role), tc.body)
				want := tc.okCode
				if !role.AtLeast(tc.min) {
					want = http.StatusForbidden
				}
				if w.Code != want {
					t.Fatalf("status=%d want %d body=%s", w.Code, want, w.Body.String())
				}
			})
		}
	}
}

func TestUsersRoutes_MeUsesCallerID(t *testing.T) {
	f := newUserFixture()

	w := doJSON(f.r, http.MethodPatch, "/api/v1/users/me", "AUTHENTICATED", `{"bio":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	me := f.ids["AUTHENTICATED"]
	if f.users.lastActor != me || f.users.lastID != me || f.users.lastAllowRole {
		t.Fatalf("unexpected call: actor=%s id=%s allowRole=%t", f.users.lastActor, f.users.lastID, f.users.lastAllowRole)
	}

	f.users.err = service.ErrRoleChangeDenied
	w = doJSON(f.r, http.MethodPatch, "/api/v1/users/me", "AUTHENTICATED", `{"role":"ADMIN"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("role in self update: expected 403, got %d", w.Code)
	}
	if msg := decodeError(t, w).Error; msg != "role can only be changed by an administrator" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestUsersRoutes_AdminUpdateAllowsRole(t *testing.T) {
	f := newUserFixture()
	target := uuid.New()

	w := doJSON(f.r, http.MethodPatch, "/api/v1/users/"+target.String(), "ADMIN", `{"role":"MANAGER"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !f.users.lastAllowRole || f.users.lastID != target || f.users.lastActor != f.ids["ADMIN"] {
		t.Fatalf("unexpected call: %+v", f.users)
	}
	if f.users.lastUpdate.Role == nil || *f.users.lastUpdate.Role != "MANAGER" {
		t.Fatalf("role not forwarded: %v", f.users.lastUpdate.Role)
	}
}

func TestUsersRoutes_ListQueryValidation(t *testing.T) {
	cases := []struct {
		query    string
		wantCode int
		wantPage int
		wantSize int
	}{
		{"", http.StatusOK, 1, 10},
		{"?page=3&size=25", http.StatusOK, 3, 25},
		{"?size=100", http.StatusOK, 1, 100},
		{"?size=101", http.StatusBadRequest, 0, 0},
		{"?size=0", http.StatusBadRequest, 0, 0},
		{"?page=0", http.StatusBadRequest, 0, 0},
		{"?page=abc", http.StatusBadRequest, 0, 0},
		{"?page=21474836&size=100", http.StatusOK, 21474836, 100},
		{"?page=21474837", http.StatusBadRequest, 0, 0},
		{"?page=92233720368547758", http.StatusBadRequest, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			f := newUserFixture()
			f.users.page = &models.UserPage{Items: []models.User{}}

			w := doJSON(f.r, http.MethodGet, "/api/v1/users"+tc.query, "MANAGER", "")
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			if f.users.lastList.Page != tc.wantPage || f.users.lastList.Size != tc.wantSize {
				t.Fatalf("service got %+v", f.users.lastList)
			}
		})
	}
}

func TestUsersRoutes_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		path     string
		body     string
		err      error
		wantCode int
	}{
		{"bad id", http.MethodGet, "/api/v1/users/not-a-uuid", "", nil, http.StatusBadRequest},
		{"not found", http.MethodGet, "/api/v1/users/" + uuid.NewString(), "", service.ErrUserNotFound, http.StatusNotFound},
		{"transition refused", http.MethodPatch, "/api/v1/users/" + uuid.NewString(), `{"role":"ADMIN"}`, service.ErrRoleTransition, http.StatusUnprocessableEntity},
		{"nickname taken", http.MethodPatch, "/api/v1/users/" + uuid.NewString(), `{"nickname":"taken"}`, service.ErrNicknameTaken, http.StatusConflict},
		{"self delete", http.MethodDelete, "/api/v1/users/" + uuid.NewString(), "", service.ErrSelfDelete, http.StatusForbidden},
		{"professional missing flag", http.MethodPatch, "/api/v1/users/" + uuid.NewString() + "/professional", `{}`, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newUserFixture()
			f.users.err = tc.err

			w := doJSON(f.r, tc.method, tc.path, "ADMIN", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.wantCode, w.Body.String())
			}
		})
	}
}

func TestUsersRoutes_SetProfessionalFalse(t *testing.T) {
	f := newUserFixture()
	f.users.lastPro = true

	w := doJSON(f.r, http.MethodPatch, "/api/v1/users/"+uuid.NewString()+"/professional", "MANAGER", `{"is_professional":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if f.users.lastPro {
		t.Fatalf("expected false to be forwarded")
	}

	var u models.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}
