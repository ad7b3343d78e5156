package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/explanner/planner-client/internal/api"
	"github.com/explanner/planner-client/internal/auth/credfile"
	"github.com/explanner/planner-client/internal/auth/model"
	"github.com/explanner/planner-client/internal/auth/session"
	"github.com/explanner/planner-client/internal/auth/store"
	"github.com/explanner/planner-client/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func accessToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

// fakeBackend is a minimal stand-in for the planner backend's token and
// resource endpoints.
type fakeBackend struct {
	t           *testing.T
	accessToken string
	refreshOK   bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/", func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Username != "staff01" || creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		json.NewEncoder(w).Encode(model.TokenPair{AccessToken: f.accessToken, RefreshToken: "refresh-1"})
	})
	mux.HandleFunc("POST /api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		if !f.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(model.TokenPair{AccessToken: f.accessToken, RefreshToken: "refresh-2"})
	})
	mux.HandleFunc("GET /api/course-sets/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.CourseSet{{ID: 1, Name: "2024 First Semester", Courses: []api.Course{
			{Code: "CSC101", NumStudents: 120, Units: 3, DepartmentName: "Computer Science", Level: "100"},
		}}})
	})
	mux.HandleFunc("GET /api/venue-sets/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.VenueSet{{ID: 1, Name: "Main Campus", Venues: []api.Venue{
			{Name: "Main Hall", Capacity: 300},
		}}})
	})
	mux.HandleFunc("POST /api/process-time-table/", func(w http.ResponseWriter, r *http.Request) {
		var plan api.PlanRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&plan))
		json.NewEncoder(w).Encode(map[string]any{"data_dict": map[string]any{"day 1": []string{"CSC101"}}})
	})
	mux.HandleFunc("GET /api/venues/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Venue{{ID: 1, Name: "Main Hall", Capacity: 300}})
	})
	mux.HandleFunc("GET /api/courses/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Course{})
	})
	mux.HandleFunc("GET /api/departments/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Department{{ID: 1, Name: "Computer Science"}})
	})
	mux.HandleFunc("GET /api/exam-time-table/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.TimeTable{
			{ID: 1, Title: "First Semester Exams", CourseSetName: "2024 First Semester", VenueSetName: "Main Campus"},
			{ID: 2, Title: "Resit Exams", CourseSetName: "Resit Set", VenueSetName: "Annex"},
		})
	})
	return mux
}

type fixture struct {
	router  *gin.Engine
	store   *store.Store
	auth    *session.Controller
	file    *credfile.File
	backend *fakeBackend
}

func newFixture(t *testing.T, seed *model.TokenPair) *fixture {
	t.Helper()

	backend := &fakeBackend{
		t:           t,
		accessToken: accessToken(t, "staff01", time.Now().Add(time.Hour)),
		refreshOK:   true,
	}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	file := credfile.New(filepath.Join(t.TempDir(), "authTokens.json"))
	if seed != nil {
		require.NoError(t, file.Save(*seed))
	}

	s := store.New(file, zap.NewNop())
	client := api.New(srv.URL+"/api", api.WithTokenSource(tokenSource{s}))
	auth := session.New(s, client, zap.NewNop(), 17*time.Minute, time.Minute)
	t.Cleanup(auth.Close)

	h := NewHandler(client, auth, s, zap.NewNop())
	cfg := &config.Config{TemplatesGlob: "../../../web/templates/*.html"}
	router := NewRouter(h, cfg, zap.NewNop(), prometheus.NewRegistry())

	return &fixture{router: router, store: s, auth: auth, file: file, backend: backend}
}

type tokenSource struct{ s *store.Store }

func (ts tokenSource) AccessToken() (string, bool) {
	pair, ok := ts.s.Pair()
	return pair.AccessToken, ok
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	f.router.ServeHTTP(w, req)
	return w
}

func TestGuard_RedirectsWhenUnauthenticated(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/plan", "/venues", "/courses", "/time-table"} {
		w := f.get(path)
		require.Equal(t, http.StatusSeeOther, w.Code, path)
		require.Equal(t, "/login", w.Header().Get("Location"), path)
	}
}

func TestGuard_AllowsRehydratedSession(t *testing.T) {
	seed := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-0",
	}
	f := newFixture(t, &seed)

	// No re-login required: the persisted record restored the session.
	w := f.get("/plan")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Plan a new exam timetable")
	require.Contains(t, w.Body.String(), "Signed in as staff01")
}

func TestLogin_SuccessRedirectsToPlan(t *testing.T) {
	f := newFixture(t, nil)

	w := f.postForm("/login", url.Values{"username": {"STAFF01"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/plan", w.Header().Get("Location"))

	require.True(t, f.store.Authenticated())
	persisted, err := f.file.Load()
	require.NoError(t, err)
	require.Equal(t, "refresh-1", persisted.RefreshToken)
}

func TestLogin_RejectedShowsMessage(t *testing.T) {
	f := newFixture(t, nil)

	w := f.postForm("/login", url.Values{"username": {"staff01"}, "password": {"wrong"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Incorrect login details.")
	require.False(t, f.store.Authenticated())
}

func TestLogin_MissingFields(t *testing.T) {
	f := newFixture(t, nil)

	w := f.postForm("/login", url.Values{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Please fill in your username")
	require.Contains(t, w.Body.String(), "Please fill in your password")
}

func TestLogout_Idempotent(t *testing.T) {
	seed := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-0",
	}
	f := newFixture(t, &seed)

	for i := 0; i < 2; i++ {
		w := f.postForm("/logout", url.Values{})
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/login", w.Header().Get("Location"))
	}
	require.False(t, f.store.Authenticated())
}

func TestRefreshFailure_LocksOutOfProtectedViews(t *testing.T) {
	seed := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-0",
	}
	f := newFixture(t, &seed)
	f.backend.refreshOK = false

	require.Error(t, f.auth.Refresh(context.Background()))

	require.False(t, f.store.Authenticated())
	_, err := f.file.Load()
	require.Error(t, err, "persisted record must be removed")

	w := f.get("/plan")
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
}

func TestPlanSubmit_GeneratesTimetable(t *testing.T) {
	seed := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-0",
	}
	f := newFixture(t, &seed)

	w := f.postForm("/plan", url.Values{
		"title":      {"First Semester Exams"},
		"course_set": {"2024 First Semester"},
		"venue_set":  {"Main Campus"},
		"start_date": {"2026-01-12"},
		"end_date":   {"2026-01-23"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "The time table has been generated successfully!")
}

func TestPlanSubmit_DateOrderValidated(t *testing.T) {
	seed := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-0",
	}
	f := newFixture(t, &seed)

	w := f.postForm("/plan", url.Values{
		"title":      {"First Semester Exams"},
		"course_set": {"2024 First Semester"},
		"venue_set":  {"Main Campus"},
		"start_date": {"2026-01-23"},
		"end_date":   {"2026-01-12"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "End date must be after start date.")
}

func TestTimeTable_SearchFilters(t *testing.T) {
	seed := model.TokenPair{
		AccessToken:  accessToken(t, "staff01", time.Now().Add(time.Hour)),
		RefreshToken: "refresh-0",
	}
	f := newFixture(t, &seed)

	w := f.get("/time-table?q=resit")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Resit Exams")
	require.NotContains(t, w.Body.String(), "First Semester Exams")
}
