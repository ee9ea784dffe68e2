package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallgrab/pkg/digest"
	"wallgrab/pkg/logger"
	"wallgrab/pkg/media"
	"wallgrab/pkg/metadata"
	"wallgrab/pkg/models"
	"wallgrab/pkg/resolver"
)

// Config wires the collaborators of an Orchestrator. Store, Resolver,
// Fetcher and Writer are required.
type Config struct {
	Store        Store
	Resolver     resolver.Resolver
	Fetcher      Fetcher
	Writer       Writer
	Verifier     media.Verifier
	Hasher       digest.Hasher
	SaveMetadata bool
	Observer     Observer
	Logger       logger.Logger
}

// Orchestrator runs the acquisition pipeline over one feed
type Orchestrator struct {
	store        Store
	resolver     resolver.Resolver
	fetcher      Fetcher
	writer       Writer
	verifier     media.Verifier
	hasher       digest.Hasher
	saveMetadata bool
	observer     Observer
	logger       logger.Logger
}

// New creates an Orchestrator, filling optional collaborators with defaults
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case cfg.Resolver == nil:
		return nil, errors.New("pipeline: resolver is required")
	case cfg.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case cfg.Writer == nil:
		return nil, errors.New("pipeline: writer is required")
	}

	o := &Orchestrator{
		store:        cfg.Store,
		resolver:     cfg.Resolver,
		fetcher:      cfg.Fetcher,
		writer:       cfg.Writer,
		verifier:     cfg.Verifier,
		hasher:       cfg.Hasher,
		saveMetadata: cfg.SaveMetadata,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
	}
	if o.verifier == nil {
		o.verifier = media.DecodeVerifier{}
	}
	if o.hasher == nil {
		o.hasher, _ = digest.New(digest.MD5)
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	if o.logger == nil {
		o.logger = logger.NewNopLogger()
	}
	return o, nil
}

// runState holds the in-memory dedup views of one run
type runState struct {
	knownHashes    models.Set
	fetchedURLs    models.Set
	seenPosts      models.Set
	recordedPosts  models.Set
	openURLs       models.Set
	seenCandidates models.Set
}

func (o *Orchestrator) loadState(ctx context.Context) (*runState, error) {
	hashes, err := o.store.LoadKnownHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hashes: %w", err)
	}
	completed, err := o.store.LoadCompletedPostURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed posts: %w", err)
	}
	fetched, err := o.store.LoadFetchedImageURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load fetched image urls: %w", err)
	}

	return &runState{
		knownHashes:    hashes,
		fetchedURLs:    fetched,
		seenPosts:      completed.Clone(),
		recordedPosts:  completed,
		openURLs:       models.NewSet(),
		seenCandidates: models.NewSet(),
	}, nil
}

// Run processes posts in feed order. Only a failure to read the store is
// returned as an error; every per-candidate problem becomes an outcome.
// Cancelling ctx stops the run before the next candidate or target.
func (o *Orchestrator) Run(ctx context.Context, posts []models.Post) (*models.Result, error) {
	start := time.Now()
	candidates := models.Normalize(posts)

	st, err := o.loadState(ctx)
	if err != nil {
		return nil, err
	}

	res := &models.Result{}
	working := o.prune(candidates, st, res)

	o.logger.InfoWithFields("Starting run", map[string]interface{}{
		"candidates":   len(candidates),
		"pruned":       len(candidates) - len(working),
		"known_hashes": st.knownHashes.Len(),
		"completed":    st.recordedPosts.Len(),
	})

	for i, c := range working {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}
		o.process(ctx, st, res, c, i+1, len(working))
	}

	logger.LogRunSummary(o.logger, res, time.Since(start))
	return res, nil
}

// prune drops candidates whose url is already a fetched image or a
// completed post, before any resolver or network call.
func (o *Orchestrator) prune(candidates []models.Candidate, st *runState, res *models.Result) []models.Candidate {
	working := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if st.fetchedURLs.Has(c.URL) || st.recordedPosts.Has(c.URL) {
			o.emit(res, models.Outcome{Candidate: c, Status: models.StatusPruned, Total: len(candidates)})
			continue
		}
		working = append(working, c)
	}
	return working
}

func (o *Orchestrator) emit(res *models.Result, out models.Outcome) {
	res.Tally(out)
	o.observer.Observe(out)
}

func (o *Orchestrator) process(ctx context.Context, st *runState, res *models.Result, c models.Candidate, index, total int) {
	emit := func(out models.Outcome) {
		out.Candidate = c
		out.Index = index
		out.Total = total
		o.emit(res, out)
	}

	if !st.seenCandidates.Add(c.URL) {
		emit(models.Outcome{Status: models.StatusSkippedDuplicatePost})
		return
	}

	targets, err := o.resolve(ctx, c)
	if err != nil {
		emit(models.Outcome{Status: models.StatusUnhandledError, Err: err})
		res.Unhandled = append(res.Unhandled, c)
		return
	}
	if len(targets) == 0 {
		emit(models.Outcome{Status: models.StatusDeclined})
		return
	}

	handled, failed, settled := false, false, true
	for _, t := range targets {
		if ctx.Err() != nil {
			res.Interrupted = true
			settled = false
			break
		}

		tc := t.Candidate()
		out := o.processTarget(ctx, st, c, &tc)
		emit(out)

		switch {
		case out.Status == models.StatusSaved, out.Status == models.StatusDuplicateContent:
			handled = true
		case out.Status.Failed():
			failed = true
		}
		if !out.Status.Settled() || st.openURLs.Has(tc.URL) {
			st.openURLs.Add(tc.URL)
			settled = false
		}
	}

	if settled {
		o.markCompleted(ctx, st, c.URL)
	}

	switch {
	case failed:
		res.Unhandled = append(res.Unhandled, c)
	case handled:
		res.Handled = append(res.Handled, c)
	}
}

// resolve runs the resolver, turning a panic into an error so one
// misbehaving resolver cannot abort the batch.
func (o *Orchestrator) resolve(ctx context.Context, c models.Candidate) (targets []models.Target, err error) {
	defer func() {
		if r := recover(); r != nil {
			targets = nil
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()
	return o.resolver.Resolve(ctx, c)
}

// processTarget takes one resolved image URL through fetch, validation,
// hashing, save and record.
func (o *Orchestrator) processTarget(ctx context.Context, st *runState, post models.Candidate, tc *models.Candidate) models.Outcome {
	out := models.Outcome{Target: tc}
	url := tc.URL

	if !st.seenPosts.Add(url) {
		out.Status = models.StatusSkippedDuplicatePost
		return out
	}
	if st.fetchedURLs.Has(url) {
		out.Status = models.StatusSkippedDuplicateImage
		return out
	}

	payload, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		out.Status = models.StatusFetchFailed
		out.Err = err
		return out
	}
	out.Bytes = len(payload.Data)

	if !media.Accepts(payload.ContentType) {
		out.Status = models.StatusInvalidContentType
		out.Err = fmt.Errorf("non-image content type %q", payload.ContentType)
		return out
	}

	hash := o.hasher.Sum(payload.Data)
	tc.SetContentHash(hash)

	if st.knownHashes.Has(hash) {
		out.Status = models.StatusDuplicateContent
		if err := o.markCompleted(ctx, st, url); err != nil {
			out.Err = err
		}
		return out
	}

	if tc.Filename == "" {
		tc.Filename = hash + media.ExtensionFor(payload.ContentType)
	}

	tmp, err := o.writer.Stage(tc.Filename, payload.Data)
	if err != nil {
		out.Status = models.StatusUnhandledError
		out.Err = err
		return out
	}

	info, err := o.verifier.Verify(tmp)
	if err != nil {
		if rmErr := o.writer.Discard(tmp); rmErr != nil {
			o.logger.WithError(rmErr).WarnWithFields("Failed to remove corrupt image", map[string]interface{}{
				"path": tmp,
			})
		}
		out.Status = models.StatusCorruptImage
		out.Err = err
		return out
	}

	path, err := o.writer.Commit(tmp, tc.Filename)
	if err != nil {
		out.Status = models.StatusUnhandledError
		out.Err = err
		return out
	}

	if err := o.store.RecordImage(ctx, tc.Record()); err != nil && !errors.Is(err, models.ErrDuplicateHash) {
		if rmErr := o.writer.Remove(path); rmErr != nil {
			o.logger.WithError(rmErr).WarnWithFields("Failed to remove unrecorded image", map[string]interface{}{
				"path": path,
			})
		}
		out.Status = models.StatusUnhandledError
		out.Err = fmt.Errorf("failed to record image: %w", err)
		return out
	}
	st.knownHashes.Add(hash)
	st.fetchedURLs.Add(url)

	out.Status = models.StatusSaved
	out.Path = path
	if err := o.markCompleted(ctx, st, url); err != nil {
		out.Err = err
	}

	if o.saveMetadata {
		meta := metadata.New(post, *tc, info, o.hasher.Algorithm(), payload.ContentType, int64(len(payload.Data)))
		if err := meta.Save(path); err != nil {
			o.logger.WithError(err).WarnWithFields("Failed to write metadata", map[string]interface{}{
				"path": path,
			})
		}
	}
	return out
}

// markCompleted persists url in the completed-post set once per run.
// A failure leaves url open so the post is retried next run.
func (o *Orchestrator) markCompleted(ctx context.Context, st *runState, url string) error {
	if st.recordedPosts.Has(url) {
		return nil
	}
	if err := o.store.RecordCompletedPost(ctx, url); err != nil {
		o.logger.WithError(err).ErrorWithFields("Failed to record completed post", map[string]interface{}{
			"url": url,
		})
		st.openURLs.Add(url)
		return err
	}
	st.recordedPosts.Add(url)
	return nil
}
