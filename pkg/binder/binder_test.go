package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/binder"
)

type env string

type listRequest struct {
	Page    int       `query:"page"`
	Search  string    `query:"search"`
	Keys    []string  `query:"keys"`
	DryRun  bool      `query:"dry_run"`
	Env     env       `query:"env"`
	Actor   *string   `query:"actor"`
	Entity  uuid.UUID `query:"entityId"`
	Ignored string    `query:"-"`
}

func TestQuery(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	r := httptest.NewRequest(http.MethodGet,
		"/features?page=2&search=dark&keys=a,b&keys=c&dry_run=yes&env=PROD&actor=alice&entityId="+id.String()+"&Ignored=x", nil)

	var req listRequest
	require.NoError(t, binder.Query()(r, &req))
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, "dark", req.Search)
	assert.Equal(t, []string{"a", "b", "c"}, req.Keys)
	assert.True(t, req.DryRun)
	assert.Equal(t, env("PROD"), req.Env)
	require.NotNil(t, req.Actor)
	assert.Equal(t, "alice", *req.Actor)
	assert.Equal(t, id, req.Entity)
	assert.Empty(t, req.Ignored)

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()
		for _, q := range []string{"page=two", "entityId=nope", "dry_run=maybe"} {
			var req listRequest
			err := binder.Query()(httptest.NewRequest(http.MethodGet, "/?"+q, nil), &req)
			require.ErrorIs(t, err, binder.ErrFailedToParseQuery, q)
		}
	})

	t.Run("unsupported field type", func(t *testing.T) {
		t.Parallel()
		var req struct {
			Page  int            `query:"page"`
			Attrs map[string]int `query:"attrs"`
		}
		err := binder.Query()(httptest.NewRequest(http.MethodGet, "/?page=1", nil), &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseQuery)
		assert.Contains(t, err.Error(), "Attrs")
	})

	t.Run("repeated binds reuse the field plan", func(t *testing.T) {
		t.Parallel()
		for _, page := range []string{"3", "4"} {
			var req listRequest
			require.NoError(t, binder.Query()(httptest.NewRequest(http.MethodGet, "/?page="+page, nil), &req))
			assert.Equal(t, page, strconv.Itoa(req.Page))
			assert.Nil(t, req.Actor)
		}
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		err := binder.Query()(httptest.NewRequest(http.MethodGet, "/", nil), listRequest{})
		require.ErrorIs(t, err, binder.ErrFailedToParseQuery)
	})
}

func TestPath(t *testing.T) {
	t.Parallel()

	type flagRequest struct {
		FeatureID uuid.UUID `path:"featureID"`
		Env       env       `path:"env"`
	}

	id := uuid.New()
	var (
		got    flagRequest
		gotErr error
	)
	router := chi.NewRouter()
	router.Get("/features/{featureID}/flags/{env}", func(w http.ResponseWriter, r *http.Request) {
		gotErr = binder.Path(chi.URLParam)(r, &got)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/features/"+id.String()+"/flags/DEV", nil))

	require.NoError(t, gotErr)
	assert.Equal(t, id, got.FeatureID)
	assert.Equal(t, env("DEV"), got.Env)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/features/not-a-uuid/flags/DEV", nil))
	require.ErrorIs(t, gotErr, binder.ErrFailedToParsePath)
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type body struct {
		Name string `json:"name"`
	}

	newRequest := func(payload, contentType string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		return r
	}

	tests := []struct {
		name       string
		payload    string
		ctype      string
		allowEmpty bool
		wantErr    error
		want       string
	}{
		{name: "valid", payload: `{"name":"x"}`, ctype: "application/json; charset=utf-8", want: "x"},
		{name: "unknown field", payload: `{"nam":"x"}`, ctype: "application/json", wantErr: binder.ErrFailedToParseJSON},
		{name: "trailing data", payload: `{"name":"x"}{}`, ctype: "application/json", wantErr: binder.ErrFailedToParseJSON},
		{name: "wrong media type", payload: `{"name":"x"}`, ctype: "text/plain", wantErr: binder.ErrUnsupportedMediaType},
		{name: "missing content type", payload: `{"name":"x"}`, wantErr: binder.ErrMissingContentType},
		{name: "empty required", payload: "", ctype: "application/json", wantErr: binder.ErrFailedToParseJSON},
		{name: "empty allowed", payload: "", allowEmpty: true},
		{name: "malformed", payload: `{"name":`, ctype: "application/json", wantErr: binder.ErrFailedToParseJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var b body
			err := binder.JSON(tt.allowEmpty)(newRequest(tt.payload, tt.ctype), &b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Name)
		})
	}
}
