package aiworker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackURLEscapesJobID(t *testing.T) {
	got := CallbackURL("https://api.example.com/", "videos/u1/abc_clip.mp4")
	assert.Equal(t, "https://api.example.com/internal/jobs/videos%2Fu1%2Fabc_clip.mp4/complete", got)

	got = CallbackURL("https://api.example.com", "videos/u1/a+b c.mp4")
	assert.Equal(t, "https://api.example.com/internal/jobs/videos%2Fu1%2Fa%2Bb+c.mp4/complete", got)
}

func TestHTTPClientSubmit(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, nil)
	req := NewRequest("videos/u1/a_b.mp4", "http://cb")
	require.NoError(t, c.Submit(context.Background(), req))
	assert.Equal(t, "videos/u1/a_b.mp4", got.JobID)
	assert.Equal(t, "videos/u1/a_b.mp4", got.SourceKey)
	assert.Equal(t, "http://cb/internal/jobs/videos%2Fu1%2Fa_b.mp4/complete", got.CallbackURL)
}

func TestHTTPClientRejectedIntake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, time.Second, nil).Submit(context.Background(), NewRequest("k", "http://cb"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

type fakePublisher struct {
	subject string
	payload any
	err     error
}

func (f *fakePublisher) PublishJSON(subject string, v any, _ time.Duration) error {
	f.subject, f.payload = subject, v
	return f.err
}

func TestNATSClientSubmit(t *testing.T) {
	pub := &fakePublisher{}
	c := NewNATSClient(pub, "ai.jobs.intake", 0, nil)
	require.NoError(t, c.Submit(context.Background(), NewRequest("k", "http://cb")))
	assert.Equal(t, "ai.jobs.intake", pub.subject)
	assert.Equal(t, "k", pub.payload.(Request).JobID)

	pub.err = errors.New("no responders")
	require.Error(t, c.Submit(context.Background(), NewRequest("k", "http://cb")))
}
