package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Unknownaod/shoreroleplay-radio/internal/core/domain"
)

func newTestBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 2*time.Second, zap.NewNop().Sugar())
}

func TestValidate_TokenPath(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/validate", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"user": map[string]interface{}{
				"id":         "u1",
				"username":   "ember",
				"department": "fire",
				"roles":      []string{"firefighter"},
				"staff":      false,
			},
		})
	})

	profile, err := client.Validate(context.Background(), "tok-123", "")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u1"), profile.ID)
	assert.Equal(t, "ember", profile.Username)
	assert.Equal(t, "fire", profile.Department)
	assert.False(t, profile.Staff)
}

func TestValidate_FallsBackToIDLookup(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/validate":
			w.WriteHeader(http.StatusUnauthorized)
		case "/users/u2":
			json.NewEncoder(w).Encode(domain.UserProfile{
				ID:       "u2",
				Username: "badge",
				Staff:    true,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	profile, err := client.Validate(context.Background(), "expired-token", "u2")
	require.NoError(t, err)
	assert.Equal(t, "badge", profile.Username)
	assert.True(t, profile.Staff)
}

func TestValidate_BothPathsFail(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	profile, err := client.Validate(context.Background(), "tok", "u1")
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, domain.ErrNoProfile)
}

func TestValidate_UnreachableBackend(t *testing.T) {
	// Point at a closed port; the failure must surface as ErrNoProfile, not
	// a panic or a transport error leaking to the caller.
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond, zap.NewNop().Sugar())

	profile, err := client.Validate(context.Background(), "tok", "u1")
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, domain.ErrNoProfile)
}

func TestValidate_MalformedBodyFallsThrough(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/validate" {
			w.Write([]byte("{not json"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	profile, err := client.Validate(context.Background(), "tok", "")
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, domain.ErrNoProfile)
}

func TestValidate_NoCredentials(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called without credentials")
	})

	profile, err := client.Validate(context.Background(), "", "")
	assert.Nil(t, profile)
	assert.ErrorIs(t, err, domain.ErrNoProfile)
}

func TestFetchChannels(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/radio/channels", r.URL.Path)
		json.NewEncoder(w).Encode([]domain.ChannelDefinition{
			{ID: "public", Name: "Public", Type: domain.ChannelPublic},
			{ID: "staff-ops", Name: "Staff Ops", Type: domain.ChannelStaff},
		})
	})

	channels, err := client.FetchChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, domain.ChannelID("public"), channels[0].ID)
	assert.Equal(t, domain.ChannelStaff, channels[1].Type)
}

func TestFetchChannels_Non200(t *testing.T) {
	client := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchChannels(context.Background())
	assert.Error(t, err)
}
