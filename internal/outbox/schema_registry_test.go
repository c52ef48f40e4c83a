package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	mu       sync.Mutex
	schemas  map[string]int
	requests []string
	nextID   int
	fail     bool
}

func (f *fakeRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.EscapedPath())

	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error_code":50001,"message":"store unavailable"}`))
		return
	}

	var body schemaRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SchemaType != "JSON" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}

	switch r.URL.Path {
	case "/subjects/startsnap_events-vibelog_posted":
		id, ok := f.schemas[body.Schema]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":40403,"message":"Schema not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(schemaResponse{ID: id})
	case "/subjects/startsnap_events-vibelog_posted/versions":
		f.nextID++
		f.schemas[body.Schema] = f.nextID
		_ = json.NewEncoder(w).Encode(schemaResponse{ID: f.nextID})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestSchemaRegistryRegistersUnknownSchemaOnce(t *testing.T) {
	registry := &fakeRegistry{schemas: map[string]int{}, nextID: 40}
	srv := httptest.NewServer(registry)
	defer srv.Close()

	client := NewSchemaRegistryClient(srv.URL + "/")
	ctx := context.Background()

	id, err := client.EnsureSchema(ctx, "startsnap_events-vibelog_posted", `{"type":"object"}`)
	require.NoError(t, err)
	require.Equal(t, 41, id)

	id, err = client.EnsureSchema(ctx, "startsnap_events-vibelog_posted", `{"type":"object"}`)
	require.NoError(t, err)
	require.Equal(t, 41, id)

	id, err = client.EnsureSchema(ctx, "startsnap_events-vibelog_posted", `{"type":"object","required":["title"]}`)
	require.NoError(t, err)
	require.Equal(t, 42, id, "a changed schema becomes a new version")

	require.Equal(t, []string{
		"POST /subjects/startsnap_events-vibelog_posted",
		"POST /subjects/startsnap_events-vibelog_posted/versions",
		"POST /subjects/startsnap_events-vibelog_posted",
		"POST /subjects/startsnap_events-vibelog_posted",
		"POST /subjects/startsnap_events-vibelog_posted/versions",
	}, registry.requests)
}

func TestSchemaRegistrySurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(&fakeRegistry{schemas: map[string]int{}, fail: true})
	defer srv.Close()

	_, err := NewSchemaRegistryClient(srv.URL).EnsureSchema(context.Background(), "startsnap_events-vibelog_posted", `{}`)
	require.Error(t, err)
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	require.Equal(t, http.StatusInternalServerError, regErr.Status)
	require.Equal(t, 50001, regErr.Code)
	require.Equal(t, "store unavailable", regErr.Detail)
}
