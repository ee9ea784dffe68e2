package pipeline

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	errs "wallgrab/pkg/errors"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/metadata"
	"wallgrab/pkg/models"
	"wallgrab/pkg/resolver"
	"wallgrab/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with failure injection
type memStore struct {
	hashes    models.Set
	completed models.Set
	fetched   models.Set
	records   []models.Record

	completedCalls []string
	loadErr        error
	recordErr      error
	completeErr    error
}

func newMemStore() *memStore {
	return &memStore{hashes: models.NewSet(), completed: models.NewSet(), fetched: models.NewSet()}
}

func (m *memStore) LoadKnownHashes(ctx context.Context) (models.Set, error) {
	return m.hashes.Clone(), m.loadErr
}

func (m *memStore) LoadCompletedPostURLs(ctx context.Context) (models.Set, error) {
	return m.completed.Clone(), m.loadErr
}

func (m *memStore) LoadFetchedImageURLs(ctx context.Context) (models.Set, error) {
	return m.fetched.Clone(), m.loadErr
}

func (m *memStore) RecordImage(ctx context.Context, rec models.Record) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	if !m.hashes.Add(rec.ContentHash) {
		return models.ErrDuplicateHash
	}
	m.fetched.Add(rec.URL)
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) RecordCompletedPost(ctx context.Context, url string) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completedCalls = append(m.completedCalls, url)
	m.completed.Add(url)
	return nil
}

type fakeResponse struct {
	contentType string
	data        []byte
	err         error
}

// fakeFetcher serves canned payloads and records every requested url
type fakeFetcher struct {
	responses map[string]fakeResponse
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string]fakeResponse)}
}

func (f *fakeFetcher) serve(url, contentType string, data []byte) {
	f.responses[url] = fakeResponse{contentType: contentType, data: data}
}

func (f *fakeFetcher) fail(url string, err error) {
	f.responses[url] = fakeResponse{err: err}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.Payload, error) {
	f.calls = append(f.calls, url)
	resp, ok := f.responses[url]
	if !ok {
		return nil, errs.New(errs.ErrorTypeNotFound, 404, url, "Not Found")
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return &models.Payload{URL: url, ContentType: resp.contentType, Data: resp.data}, nil
}

// mapResolver resolves post urls from a fixed table and declines the rest
type mapResolver struct {
	targets map[string][]string
	errs    map[string]error
	panics  map[string]bool
	calls   []string
}

func (r *mapResolver) Name() string { return "map" }

func (r *mapResolver) Resolve(ctx context.Context, c models.Candidate) ([]models.Target, error) {
	r.calls = append(r.calls, c.URL)
	if r.panics[c.URL] {
		panic("resolver bug")
	}
	if err := r.errs[c.URL]; err != nil {
		return nil, err
	}
	var out []models.Target
	for _, u := range r.targets[c.URL] {
		out = append(out, models.Target{URL: u, Channel: c.Channel, Title: c.Title})
	}
	return out, nil
}

func jpegBytes(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: shade, G: uint8(x * 30), B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type harness struct {
	store    *memStore
	fetcher  *fakeFetcher
	writer   *storage.Manager
	outcomes []models.Outcome
	log      *logger.TestLogger
	dir      string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	w, err := storage.NewManager(dir)
	require.NoError(t, err)
	return &harness{
		store:   newMemStore(),
		fetcher: newFakeFetcher(),
		writer:  w,
		log:     logger.NewTestLogger(),
		dir:     dir,
	}
}

func (h *harness) orchestrator(t *testing.T, res resolver.Resolver, extra ...Observer) *Orchestrator {
	t.Helper()
	observers := Observers{ObserverFunc(func(o models.Outcome) { h.outcomes = append(h.outcomes, o) })}
	observers = append(observers, extra...)
	o, err := New(Config{
		Store:    h.store,
		Resolver: res,
		Fetcher:  h.fetcher,
		Writer:   h.writer,
		Observer: observers,
		Logger:   h.log,
	})
	require.NoError(t, err)
	return o
}

func (h *harness) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func statuses(outcomes []models.Outcome) []models.Status {
	var out []models.Status
	for _, o := range outcomes {
		out = append(out, o.Status)
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Store: newMemStore(), Resolver: resolver.NewDirect(), Fetcher: newFakeFetcher()})
	assert.Error(t, err)
}

func TestRunSingleDirectImage(t *testing.T) {
	h := newHarness(t)
	data := jpegBytes(t, 10)
	h.fetcher.serve("http://i.imgur.com/abc.jpg", "image/jpeg", data)

	post := models.Post{Title: "A", Channel: "x", URL: "http://i.imgur.com/abc.jpg"}
	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{post})
	require.NoError(t, err)

	assert.Equal(t, []string{"abc.jpg"}, h.files(t))
	written, err := os.ReadFile(filepath.Join(h.dir, "abc.jpg"))
	require.NoError(t, err)
	assert.Equal(t, data, written)

	require.Len(t, h.store.records, 1)
	assert.Equal(t, models.Record{
		Channel:     "x",
		Title:       "A",
		URL:         "http://i.imgur.com/abc.jpg",
		Filename:    "abc.jpg",
		ContentHash: md5Hex(data),
	}, h.store.records[0])
	assert.Equal(t, []string{"http://i.imgur.com/abc.jpg"}, h.store.completedCalls)

	require.Len(t, res.Handled, 1)
	assert.Equal(t, "http://i.imgur.com/abc.jpg", res.Handled[0].URL)
	assert.Empty(t, res.Unhandled)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, int64(len(data)), res.Bytes)
	assert.False(t, res.Interrupted)

	require.Len(t, h.outcomes, 1)
	assert.Equal(t, models.StatusSaved, h.outcomes[0].Status)
	assert.Equal(t, filepath.Join(h.dir, "abc.jpg"), h.outcomes[0].Path)
	assert.Equal(t, 1, h.outcomes[0].Index)
	assert.Equal(t, 1, h.outcomes[0].Total)
}

func TestRunPrunesBeforeAnyNetworkCall(t *testing.T) {
	h := newHarness(t)
	h.store.fetched.Add("http://example.com/old.jpg")
	h.store.completed.Add("http://imgur.com/gallery")
	res := &mapResolver{}

	result, err := h.orchestrator(t, res).Run(context.Background(), []models.Post{
		{Title: "old", Channel: "x", URL: "http://example.com/old.jpg"},
		{Title: "gallery", Channel: "x", URL: "http://imgur.com/gallery"},
	})
	require.NoError(t, err)

	assert.Empty(t, h.fetcher.calls)
	assert.Empty(t, res.calls)
	assert.Empty(t, h.files(t))
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, []models.Status{models.StatusPruned, models.StatusPruned}, statuses(h.outcomes))
}

func TestSavedHashIsNewThenKnown(t *testing.T) {
	h := newHarness(t)
	data := jpegBytes(t, 20)
	h.fetcher.serve("http://example.com/a.jpg", "image/jpeg", data)
	hash := md5Hex(data)

	before, err := h.store.LoadKnownHashes(context.Background())
	require.NoError(t, err)
	assert.False(t, before.Has(hash))

	_, err = h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "a", Channel: "x", URL: "http://example.com/a.jpg"},
	})
	require.NoError(t, err)

	after, err := h.store.LoadKnownHashes(context.Background())
	require.NoError(t, err)
	assert.True(t, after.Has(hash))
	require.Len(t, h.outcomes, 1)
	assert.Equal(t, hash, h.outcomes[0].Target.ContentHash)
}

func TestSecondRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	res := &mapResolver{targets: map[string][]string{
		"http://imgur.com/gallery": {"http://i.imgur.com/1.jpg", "http://i.imgur.com/2.jpg"},
		"http://example.com/c.jpg": {"http://example.com/c.jpg"},
	}}
	h.fetcher.serve("http://i.imgur.com/1.jpg", "image/jpeg", jpegBytes(t, 1))
	h.fetcher.serve("http://i.imgur.com/2.jpg", "image/jpeg", jpegBytes(t, 2))
	h.fetcher.serve("http://example.com/c.jpg", "image/jpeg", jpegBytes(t, 3))
	feed := []models.Post{
		{Title: "g", Channel: "x", URL: "http://imgur.com/gallery"},
		{Title: "c", Channel: "x", URL: "http://example.com/c.jpg"},
	}

	first, err := h.orchestrator(t, res).Run(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Saved)
	require.Len(t, h.store.records, 3)

	h.fetcher.calls = nil
	second, err := h.orchestrator(t, res).Run(context.Background(), feed)
	require.NoError(t, err)

	assert.Len(t, h.store.records, 3, "second run must add no records")
	assert.Equal(t, 0, second.Saved)
	assert.Equal(t, 2, second.Skipped)
	assert.Empty(t, h.fetcher.calls)
}

func TestGalleryResumesAfterTargetFailure(t *testing.T) {
	h := newHarness(t)
	gallery := "http://imgur.com/gallery"
	targets := []string{"http://i.imgur.com/1.jpg", "http://i.imgur.com/2.jpg", "http://i.imgur.com/3.jpg", "http://i.imgur.com/4.jpg"}
	res := &mapResolver{targets: map[string][]string{gallery: targets}}
	for i, u := range targets {
		h.fetcher.serve(u, "image/jpeg", jpegBytes(t, uint8(40*i)))
	}
	h.fetcher.fail(targets[2], errs.New(errs.ErrorTypeServerError, 503, targets[2], "Service Unavailable"))
	feed := []models.Post{{Title: "g", Channel: "x", URL: gallery}}

	first, err := h.orchestrator(t, res).Run(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Saved, "a failed target must not block the rest of the gallery")
	assert.Equal(t, 1, first.Failed)
	require.Len(t, first.Unhandled, 1)
	assert.False(t, h.store.completed.Has(gallery), "post stays open while a target failed")

	h.fetcher.serve(targets[2], "image/jpeg", jpegBytes(t, 80))
	h.fetcher.calls = nil
	h.outcomes = nil

	second, err := h.orchestrator(t, res).Run(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Saved)
	assert.Equal(t, []string{targets[2]}, h.fetcher.calls)
	assert.Len(t, h.store.records, 4)
	assert.True(t, h.store.completed.Has(gallery))
	require.Len(t, second.Handled, 1)
	assert.Len(t, h.files(t), 4)
}

func TestGalleryResumesAfterInterruption(t *testing.T) {
	h := newHarness(t)
	gallery := "http://example.com/gallery"
	var targets []string
	for i := 0; i < 5; i++ {
		u := fmt.Sprintf("http://example.com/img%d.jpg", i)
		targets = append(targets, u)
		h.fetcher.serve(u, "image/jpeg", jpegBytes(t, uint8(i*50)))
	}
	res := &mapResolver{targets: map[string][]string{gallery: targets}}
	feed := []models.Post{
		{Title: "g", Channel: "x", URL: gallery},
		{Title: "later", Channel: "x", URL: "http://example.com/later.jpg"},
	}

	const k = 2
	ctx, cancel := context.WithCancel(context.Background())
	saved := 0
	stopper := ObserverFunc(func(o models.Outcome) {
		if o.Status == models.StatusSaved {
			saved++
			if saved == k {
				cancel()
			}
		}
	})

	first, err := h.orchestrator(t, res, stopper).Run(ctx, feed)
	require.NoError(t, err)
	assert.True(t, first.Interrupted)
	assert.Equal(t, k, first.Saved)
	assert.NotContains(t, res.calls, "http://example.com/later.jpg")
	assert.False(t, h.store.completed.Has(gallery))

	h.fetcher.calls = nil
	second, err := h.orchestrator(t, res).Run(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, len(targets)-k, second.Saved)
	assert.Equal(t, targets[k:], h.fetcher.calls[:len(targets)-k])
	assert.Len(t, h.store.records, len(targets))
	assert.True(t, h.store.completed.Has(gallery))
}

func TestRejectsNonImageContentType(t *testing.T) {
	h := newHarness(t)
	h.fetcher.serve("http://example.com/page.jpg", "text/html; charset=utf-8", []byte("<html></html>"))

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "p", Channel: "x", URL: "http://example.com/page.jpg"},
	})
	require.NoError(t, err)

	assert.Empty(t, h.files(t))
	assert.Empty(t, h.store.records)
	assert.Empty(t, h.store.completedCalls)
	assert.Equal(t, 1, res.Rejected)
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, models.StatusInvalidContentType, res.Outcomes[0].Status)
	assert.Equal(t, "http://example.com/page.jpg", res.Outcomes[0].Candidate.URL)
	assert.Error(t, res.Outcomes[0].Err)
}

func TestDuplicateContentMarksPostCompleted(t *testing.T) {
	h := newHarness(t)
	data := jpegBytes(t, 99)
	h.fetcher.serve("http://a.example/one.jpg", "image/jpeg", data)
	h.fetcher.serve("http://b.example/two.jpg", "image/jpg", data)

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "one", Channel: "x", URL: "http://a.example/one.jpg"},
		{Title: "two", Channel: "y", URL: "http://b.example/two.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"one.jpg"}, h.files(t))
	require.Len(t, h.store.records, 1)
	assert.Equal(t, "http://a.example/one.jpg", h.store.records[0].URL)
	assert.True(t, h.store.completed.Has("http://b.example/two.jpg"))
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Duplicates)
	assert.Len(t, res.Handled, 2)
	assert.Equal(t, []models.Status{models.StatusSaved, models.StatusDuplicateContent}, statuses(h.outcomes))
}

func TestCorruptImageIsRemoved(t *testing.T) {
	h := newHarness(t)
	h.fetcher.serve("http://example.com/bad.jpg", "image/jpeg", []byte("definitely not a jpeg"))

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "bad", Channel: "x", URL: "http://example.com/bad.jpg"},
	})
	require.NoError(t, err)

	assert.Empty(t, h.files(t))
	assert.Empty(t, h.store.records)
	assert.Empty(t, h.store.completedCalls)
	assert.Equal(t, 1, res.Rejected)
	assert.Equal(t, []models.Status{models.StatusCorruptImage}, statuses(h.outcomes))
}

func TestFailuresDoNotAbortBatch(t *testing.T) {
	h := newHarness(t)
	res := &mapResolver{
		targets: map[string][]string{
			"http://example.com/fetchfail": {"http://example.com/missing.jpg"},
			"http://example.com/good":      {"http://example.com/good.png"},
		},
		errs:   map[string]error{"http://example.com/broken": errors.New("parse failure")},
		panics: map[string]bool{"http://example.com/panics": true},
	}
	h.fetcher.serve("http://example.com/good.png", "image/png", pngBytes(t))

	result, err := h.orchestrator(t, res).Run(context.Background(), []models.Post{
		{Title: "1", Channel: "x", URL: "http://example.com/broken"},
		{Title: "2", Channel: "x", URL: "http://example.com/panics"},
		{Title: "3", Channel: "x", URL: "http://example.com/fetchfail"},
		{Title: "4", Channel: "x", URL: "http://example.com/declined"},
		{Title: "5", Channel: "x", URL: "http://example.com/good"},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Status{
		models.StatusUnhandledError,
		models.StatusUnhandledError,
		models.StatusFetchFailed,
		models.StatusDeclined,
		models.StatusSaved,
	}, statuses(h.outcomes))

	var unhandled []string
	for _, c := range result.Unhandled {
		unhandled = append(unhandled, c.URL)
	}
	assert.Equal(t, []string{"http://example.com/broken", "http://example.com/panics", "http://example.com/fetchfail"}, unhandled)
	require.Len(t, result.Handled, 1)
	assert.Equal(t, "http://example.com/good", result.Handled[0].URL)
	assert.Equal(t, 1, result.Declined)
	assert.True(t, h.store.completed.Has("http://example.com/good"))
	assert.False(t, h.store.completed.Has("http://example.com/declined"))
	assert.True(t, h.log.HasMessage("Run finished"))
}

func TestDuplicateFeedEntriesResolveOnce(t *testing.T) {
	h := newHarness(t)
	res := &mapResolver{targets: map[string][]string{"http://example.com/p": {"http://example.com/p.jpg"}}}
	h.fetcher.serve("http://example.com/p.jpg", "image/jpeg", jpegBytes(t, 5))

	result, err := h.orchestrator(t, res).Run(context.Background(), []models.Post{
		{Title: "p", Channel: "x", URL: "http://example.com/p"},
		{Title: "p again", Channel: "y", URL: "http://example.com/p"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"http://example.com/p"}, res.calls)
	assert.Equal(t, []string{"http://example.com/p.jpg"}, h.fetcher.calls)
	assert.Equal(t, []models.Status{models.StatusSaved, models.StatusSkippedDuplicatePost}, statuses(h.outcomes))
	assert.Equal(t, 1, result.Skipped)
}

func TestSharedTargetAcrossPosts(t *testing.T) {
	h := newHarness(t)
	shared := "http://example.com/shared.jpg"
	res := &mapResolver{targets: map[string][]string{
		"http://example.com/p1": {shared},
		"http://example.com/p2": {shared},
	}}
	h.fetcher.serve(shared, "image/jpeg", jpegBytes(t, 7))

	_, err := h.orchestrator(t, res).Run(context.Background(), []models.Post{
		{Title: "1", Channel: "x", URL: "http://example.com/p1"},
		{Title: "2", Channel: "x", URL: "http://example.com/p2"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{shared}, h.fetcher.calls)
	assert.True(t, h.store.completed.Has("http://example.com/p1"))
	assert.True(t, h.store.completed.Has("http://example.com/p2"))
}

func TestSharedFailedTargetKeepsBothPostsOpen(t *testing.T) {
	h := newHarness(t)
	shared := "http://example.com/down.jpg"
	res := &mapResolver{targets: map[string][]string{
		"http://example.com/p1": {shared},
		"http://example.com/p2": {shared},
	}}
	h.fetcher.fail(shared, errs.New(errs.ErrorTypeTimeout, 0, shared, "timeout"))

	_, err := h.orchestrator(t, res).Run(context.Background(), []models.Post{
		{Title: "1", Channel: "x", URL: "http://example.com/p1"},
		{Title: "2", Channel: "x", URL: "http://example.com/p2"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{shared}, h.fetcher.calls)
	assert.Empty(t, h.store.completedCalls)
}

func TestStoreLoadFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.store.loadErr = errors.New("disk gone")

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "a", Channel: "x", URL: "http://example.com/a.jpg"},
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, h.fetcher.calls)
}

func TestRecordFailureLeavesPostOpen(t *testing.T) {
	h := newHarness(t)
	h.store.recordErr = errors.New("database is locked")
	h.fetcher.serve("http://example.com/a.jpg", "image/jpeg", jpegBytes(t, 11))

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "a", Channel: "x", URL: "http://example.com/a.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Status{models.StatusUnhandledError}, statuses(h.outcomes))
	assert.Empty(t, h.files(t))
	assert.Empty(t, h.store.completedCalls)
	assert.Len(t, res.Unhandled, 1)
}

// removeFailingWriter is a Writer whose Remove always fails
type removeFailingWriter struct {
	*storage.Manager
}

func (w removeFailingWriter) Remove(path string) error {
	return errors.New("device busy")
}

func TestRecordFailureLogsRemoveError(t *testing.T) {
	h := newHarness(t)
	h.store.recordErr = errors.New("database is locked")
	h.fetcher.serve("http://example.com/a.jpg", "image/jpeg", jpegBytes(t, 12))

	o, err := New(Config{
		Store:    h.store,
		Resolver: resolver.NewDirect(),
		Fetcher:  h.fetcher,
		Writer:   removeFailingWriter{h.writer},
		Logger:   h.log,
	})
	require.NoError(t, err)

	res, err := o.Run(context.Background(), []models.Post{
		{Title: "a", Channel: "x", URL: "http://example.com/a.jpg"},
	})
	require.NoError(t, err)

	assert.Len(t, res.Unhandled, 1)
	assert.True(t, h.log.HasMessage("Failed to remove unrecorded image"))
}

func TestCorruptImageKeepsSavedFileWithSameName(t *testing.T) {
	h := newHarness(t)
	good := jpegBytes(t, 14)
	h.fetcher.serve("http://a.example/x/pic.jpg", "image/jpeg", good)
	h.fetcher.serve("http://b.example/y/pic.jpg", "image/jpeg", []byte("garbage bytes, not a jpeg"))

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "A", Channel: "x", URL: "http://a.example/x/pic.jpg"},
		{Title: "B", Channel: "x", URL: "http://b.example/y/pic.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Status{models.StatusSaved, models.StatusCorruptImage}, statuses(h.outcomes))
	require.Len(t, h.store.records, 1)
	assert.Equal(t, md5Hex(good), h.store.records[0].ContentHash)
	assert.Equal(t, 1, res.Saved)

	assert.Equal(t, []string{"pic.jpg"}, h.files(t))
	onDisk, err := os.ReadFile(filepath.Join(h.dir, "pic.jpg"))
	require.NoError(t, err)
	assert.Equal(t, good, onDisk)
}

func TestDuplicateHashFromStoreCountsAsSaved(t *testing.T) {
	h := newHarness(t)
	data := jpegBytes(t, 13)
	h.fetcher.serve("http://example.com/a.jpg", "image/jpeg", data)
	h.store.recordErr = models.ErrDuplicateHash

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "a", Channel: "x", URL: "http://example.com/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.True(t, h.store.completed.Has("http://example.com/a.jpg"))
}

func TestCompletedPostFailureIsLogged(t *testing.T) {
	h := newHarness(t)
	h.store.completeErr = errors.New("readonly database")
	h.fetcher.serve("http://example.com/a.jpg", "image/jpeg", jpegBytes(t, 17))

	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), []models.Post{
		{Title: "a", Channel: "x", URL: "http://example.com/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Len(t, h.store.records, 1)
	assert.Len(t, res.Handled, 1)
	assert.Empty(t, res.Unhandled)
	assert.Error(t, h.outcomes[0].Err)
	assert.True(t, h.log.HasMessage("Failed to record completed post"))
}

func TestFilenameFallsBackToHash(t *testing.T) {
	h := newHarness(t)
	res := &mapResolver{targets: map[string][]string{"http://example.com/p": {"http://example.com/img/"}}}
	data := pngBytes(t)
	h.fetcher.serve("http://example.com/img/", "image/png", data)

	_, err := h.orchestrator(t, res).Run(context.Background(), []models.Post{
		{Title: "p", Channel: "x", URL: "http://example.com/p"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{md5Hex(data) + ".png"}, h.files(t))
}

func TestSaveMetadata(t *testing.T) {
	h := newHarness(t)
	h.fetcher.serve("http://example.com/meta.jpg", "image/jpeg", jpegBytes(t, 3))

	o, err := New(Config{
		Store:        h.store,
		Resolver:     resolver.NewDirect(),
		Fetcher:      h.fetcher,
		Writer:       h.writer,
		SaveMetadata: true,
	})
	require.NoError(t, err)

	_, err = o.Run(context.Background(), []models.Post{{Title: "m", Channel: "x", URL: "http://example.com/meta.jpg"}})
	require.NoError(t, err)

	meta, err := metadata.Load(filepath.Join(h.dir, "meta.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", meta.Format)
	assert.Equal(t, 8, meta.Width)
	assert.Equal(t, "md5", meta.HashAlgorithm)
	assert.Equal(t, "http://example.com/meta.jpg", meta.ImageURL)
}

func TestCandidatesPassThroughNormalize(t *testing.T) {
	h := newHarness(t)
	h.fetcher.serve("http://example.com/n.jpg", "image/jpeg", jpegBytes(t, 33))

	feed := []models.Post{{Title: "n", Channel: "x", URL: "  http://example.com/n.jpg  "}}
	res, err := h.orchestrator(t, resolver.NewDirect()).Run(context.Background(), feed)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, "n.jpg", res.Handled[0].Filename)
}

func TestLogObserver(t *testing.T) {
	log := logger.NewTestLogger()
	obs := Observers{LogObserver{Logger: log}, nil}

	c := models.NewCandidate("t", "x", "http://example.com/a.jpg")
	obs.Observe(models.Outcome{Candidate: c, Status: models.StatusSaved, Target: &c})
	obs.Observe(models.Outcome{Candidate: c, Status: models.StatusFetchFailed, Err: errors.New("boom")})

	assert.True(t, log.HasMessage("Image saved"))
	assert.True(t, log.HasError())
}
