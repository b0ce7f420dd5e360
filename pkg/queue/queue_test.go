package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJobRoundTripsAssetPayload(t *testing.T) {
	job, err := NewJob(JobTypeThumbnail, AssetPayload{AssetID: 7, VideoKey: "videos/u1/a_b.mp4"})
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Equal(t, JobTypeThumbnail, job.Type)

	raw, err := json.Marshal(job)
	require.NoError(t, err)
	var decoded Job
	require.NoError(t, json.Unmarshal(raw, &decoded))

	p, err := decoded.AssetPayload()
	require.NoError(t, err)
	require.Equal(t, int64(7), p.AssetID)
	require.Equal(t, "videos/u1/a_b.mp4", p.VideoKey)
}

func TestAssetPayloadRejectsEmpty(t *testing.T) {
	job := &Job{Type: JobTypeTagSync, Payload: json.RawMessage(`{}`)}
	_, err := job.AssetPayload()
	require.Error(t, err)

	job.Payload = json.RawMessage(`not json`)
	_, err = job.AssetPayload()
	require.Error(t, err)
}
