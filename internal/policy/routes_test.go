package policy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_DefaultRoutes(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	engine.LoadRoutes(DefaultRoutes())

	cases := []struct {
		method string
		path   string
		class  string
		public bool
	}{
		{http.MethodGet, "/health", ClassDetail, true},
		{http.MethodPost, "/api/v1/auth/register", ClassAuth, true},
		{http.MethodPost, "/api/v1/auth/login", ClassAuth, true},
		{http.MethodGet, "/api/v1/auth/me", ClassAuth, false},
		{http.MethodPost, "/api/v1/auth/logout", ClassAuth, false},
		{http.MethodGet, "/api/v1/pokemon/search", ClassSearch, true},
		{http.MethodGet, "/api/v1/pokemon/type/fire", ClassSearch, true},
		{http.MethodGet, "/api/v1/pokemon/pikachu", ClassDetail, true},
		{http.MethodGet, "/api/v1/pokedex", ClassCollection, false},
		{http.MethodGet, "/api/v1/pokedex/export", ClassExport, false},
		{http.MethodGet, "/api/v1/teams", ClassCollection, false},
		{http.MethodGet, "/api/v1/teams/abc/export", ClassExport, false},
		{http.MethodPut, "/api/v1/teams/abc", ClassCollection, false},
	}

	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		route := engine.Evaluate(r)
		assert.Equal(t, tc.class, route.Class, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.public, route.Public, "%s %s", tc.method, tc.path)
	}
}

func TestEvaluate_UnmatchedIsProtected(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	engine.LoadRoutes(DefaultRoutes())

	route := engine.Evaluate(httptest.NewRequest(http.MethodGet, "/api/v2/unknown", nil))
	assert.Equal(t, "default", route.ID)
	assert.False(t, route.Public)
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	engine.LoadRoutes([]Route{
		NewRoute("narrow", http.MethodGet, "/api/x/special", ClassExport, false),
		NewRoute("wide", "*", "/api/x", ClassCollection, false),
	})

	assert.Equal(t, "narrow", engine.Evaluate(httptest.NewRequest(http.MethodGet, "/api/x/special", nil)).ID)
	assert.Equal(t, "wide", engine.Evaluate(httptest.NewRequest(http.MethodPost, "/api/x/special", nil)).ID)
	assert.Equal(t, "wide", engine.Evaluate(httptest.NewRequest(http.MethodGet, "/api/x/other", nil)).ID)
}
