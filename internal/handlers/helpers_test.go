package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/teamroom-api/internal/middleware"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key", 15*time.Minute, 24*time.Hour)
}

func generateTestToken(t *testing.T, jwtSvc *services.JWTService, userID uuid.UUID, email string) string {
	t.Helper()
	pair, err := jwtSvc.GenerateTokenPair(userID, email)
	require.NoError(t, err)
	return pair.AccessToken
}

// testRoute is one route registered on a fresh authenticated app.
type testRoute struct {
	method  string
	path    string
	handler drift.HandlerFunc
}

// authedClient mounts routes behind the body parser and JWT middleware, and
// returns a client plus the headers of an authenticated caller.
func authedClient(t *testing.T, userID uuid.UUID, routes ...testRoute) (*testutil.HTTPTestClient, map[string]string) {
	t.Helper()
	jwtSvc := newTestJWTService()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	for _, r := range routes {
		switch r.method {
		case http.MethodGet:
			app.Get(r.path, r.handler)
		case http.MethodPost:
			app.Post(r.path, r.handler)
		case http.MethodPatch:
			app.Patch(r.path, r.handler)
		default:
			t.Fatalf("unsupported method %s", r.method)
		}
	}

	token := generateTestToken(t, jwtSvc, userID, "caller@example.com")
	return testutil.NewHTTPTestClient(t, app), testutil.Bearer(token)
}

func get(path string, h drift.HandlerFunc) testRoute   { return testRoute{http.MethodGet, path, h} }
func post(path string, h drift.HandlerFunc) testRoute  { return testRoute{http.MethodPost, path, h} }
func patch(path string, h drift.HandlerFunc) testRoute { return testRoute{http.MethodPatch, path, h} }

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	testutil.AssertStatus(t, rec, status)
	var body map[string]any
	testutil.ParseJSON(t, rec, &body)
	require.Equal(t, code, body["code"])
}
