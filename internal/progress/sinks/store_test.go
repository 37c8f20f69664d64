package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/socialpulse/internal/progress"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// TestStoreSinkPersistsLatestNote ensures heartbeats collapse to the newest note per job.
func TestStoreSinkPersistsLatestNote(t *testing.T) {
	t.Parallel()

	store := &fakeJobProgressStore{progress: make(map[string]string)}
	sink := NewStoreSink(store, nil)
	now := time.Now()

	batch := []progress.Event{
		{JobID: "job-1", Kind: "sync", TS: now, Stage: progress.StageJobStart},
		{JobID: "job-1", Kind: "sync", TS: now.Add(time.Second), Stage: progress.StageJobHeartbeat, Note: "syncing 1/2: jack"},
		{JobID: "job-1", Kind: "sync", TS: now.Add(2 * time.Second), Stage: progress.StageJobHeartbeat, Note: "syncing 2/2: naval"},
		{JobID: "job-2", Kind: "discovery", TS: now.Add(time.Second), Stage: progress.StageJobHeartbeat, Note: "seed 1/1: jack"},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))
	require.Equal(t, "syncing 2/2: naval", store.progress["job-1"])
	require.Equal(t, "seed 1/1: jack", store.progress["job-2"])
	require.Equal(t, 2, store.updates)
}

// TestStoreSinkSkipsUnknownJobs ensures notes for deleted jobs do not fail the batch.
func TestStoreSinkSkipsUnknownJobs(t *testing.T) {
	t.Parallel()

	store := &fakeJobProgressStore{progress: make(map[string]string), missing: map[string]bool{"gone": true}}
	sink := NewStoreSink(store, nil)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{JobID: "gone", Kind: "sync", TS: time.Now(), Stage: progress.StageJobHeartbeat, Note: "syncing 1/1: jack"},
	}))
}

// TestStoreSinkSurfacesStoreErrors returns failures other than missing jobs to the hub.
func TestStoreSinkSurfacesStoreErrors(t *testing.T) {
	t.Parallel()

	store := &fakeJobProgressStore{progress: make(map[string]string), fail: true}
	sink := NewStoreSink(store, nil)

	err := sink.Consume(context.Background(), []progress.Event{
		{JobID: "job-1", Kind: "sync", TS: time.Now(), Stage: progress.StageJobHeartbeat, Note: "syncing 1/1: jack"},
	})
	require.Error(t, err)
}

type fakeJobProgressStore struct {
	progress map[string]string
	missing  map[string]bool
	fail     bool
	updates  int
}

func (f *fakeJobProgressStore) CreateJob(context.Context, social.Job) error { return nil }

func (f *fakeJobProgressStore) UpdateJobStatus(context.Context, string, social.JobStatus, string, social.JobCounters) error {
	return nil
}

func (f *fakeJobProgressStore) UpdateJobProgress(_ context.Context, jobID string, progress string) error {
	if f.fail {
		return errors.New("store down")
	}
	if f.missing[jobID] {
		return social.ErrNotFound
	}
	f.progress[jobID] = progress
	f.updates++
	return nil
}

func (f *fakeJobProgressStore) SetJobResult(context.Context, string, []social.Profile) error {
	return nil
}

func (f *fakeJobProgressStore) GetJob(context.Context, string) (social.Job, error) {
	return social.Job{}, social.ErrNotFound
}
