// Package pipeline drives a batch of posts through extraction, tag
// unification and persistence.
//
// Phases run strictly in order: Load, Extract, Unify & Rewrite, Persist.
// The first fatal error ends the run and nothing is written.
package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/postmeta/pkg/postmeta"
	"github.com/cognicore/postmeta/pkg/postmeta/corpus"
	"github.com/cognicore/postmeta/pkg/postmeta/internalerr"
	"github.com/cognicore/postmeta/pkg/postmeta/metadata"
	"github.com/cognicore/postmeta/pkg/postmeta/metrics"
	"github.com/cognicore/postmeta/pkg/postmeta/sanitize"
	"github.com/cognicore/postmeta/pkg/postmeta/store"
	"github.com/cognicore/postmeta/pkg/postmeta/tags"
)

// ErrorPolicy decides what a malformed extraction does to the batch.
type ErrorPolicy string

const (
	// PolicyAbort fails the whole batch.
	PolicyAbort ErrorPolicy = "abort"
	// PolicySkip keeps the post without metadata and carries on.
	PolicySkip ErrorPolicy = "skip"
)

// ParsePolicy converts a config string to an ErrorPolicy.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: unknown error policy %q (valid: abort, skip)", internalerr.ErrInvalidConfig, s)
	}
}

// Options configures a Pipeline
type Options struct {
	Invoker postmeta.Invoker // required
	Model   string           // part of checkpoint keys
	Store   store.Store      // optional checkpoint store
	Metrics *metrics.Metrics // optional
	Logger  *slog.Logger

	Workers         int // extract concurrency, default 1
	OnExtractError  ErrorPolicy
	ExtractAttempts int // model calls per post on malformed output, default 1
	Strict          bool
	StripMarkup     bool

	Now func() time.Time
}

// Pipeline is the enrichment orchestrator.
type Pipeline struct {
	extractor *metadata.Extractor
	unifier   *tags.Unifier

	model       string
	store       store.Store
	metrics     *metrics.Metrics
	logger      *slog.Logger
	workers     int
	policy      ErrorPolicy
	attempts    int
	strict      bool
	stripMarkup bool
	now         func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a Pipeline with the given dependencies
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	attempts := opts.ExtractAttempts
	if attempts < 1 {
		attempts = 1
	}
	policy := opts.OnExtractError
	if policy == "" {
		policy = PolicyAbort
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		extractor: metadata.NewExtractor(opts.Invoker,
			metadata.WithStrict(opts.Strict),
			metadata.WithLogger(logger),
		),
		unifier:     tags.NewUnifier(opts.Invoker, logger),
		model:       opts.Model,
		store:       opts.Store,
		metrics:     opts.Metrics,
		logger:      logger.With("component", "pipeline"),
		workers:     workers,
		policy:      policy,
		attempts:    attempts,
		strict:      opts.Strict,
		stripMarkup: opts.StripMarkup,
		now:         now,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}
}

// Result summarizes a run.
type Result struct {
	RunID          string
	Posts          int
	Extracted      int   // posts that got metadata from a model call
	CheckpointHits int   // posts whose metadata came from the store
	Skipped        []int // input indexes kept without metadata
	RawTags        []string
	TagMap         tags.TagMap
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Run loads posts from src, enriches them and saves the corpus to sink.
func (p *Pipeline) Run(ctx context.Context, src corpus.Source, sink corpus.Sink) (Result, error) {
	res := Result{RunID: p.newRunID(), StartedAt: p.now()}
	logger := p.logger.With("run", res.RunID)

	posts, err := src.Load(ctx)
	if err != nil {
		return p.finish(ctx, res, false, fmt.Errorf("load: %w", err))
	}
	res.Posts = len(posts)
	logger.Info("posts loaded", "count", len(posts))

	if p.store != nil {
		run := store.Run{
			ID:        res.RunID,
			Source:    describe(src),
			Posts:     len(posts),
			Status:    store.RunRunning,
			StartedAt: res.StartedAt,
		}
		if err := p.store.StartRun(ctx, run); err != nil {
			return p.finish(ctx, res, false, fmt.Errorf("record run: %w", err))
		}
	}
	recorded := p.store != nil

	c, err := p.process(ctx, &res, posts)
	if err != nil {
		return p.finish(ctx, res, recorded, err)
	}

	if err := sink.Save(ctx, c); err != nil {
		return p.finish(ctx, res, recorded, fmt.Errorf("persist: %w", err))
	}
	logger.Info("corpus persisted", "posts", len(c), "skipped", len(res.Skipped))
	return p.finish(ctx, res, recorded, nil)
}

// Process enriches posts in memory without touching a source or sink.
func (p *Pipeline) Process(ctx context.Context, posts []corpus.Post) (corpus.Corpus, Result, error) {
	res := Result{RunID: p.newRunID(), StartedAt: p.now(), Posts: len(posts)}
	c, err := p.process(ctx, &res, posts)
	res.FinishedAt = p.now()
	if err != nil {
		return nil, res, err
	}
	return c, res, nil
}

func (p *Pipeline) process(ctx context.Context, res *Result, posts []corpus.Post) (corpus.Corpus, error) {
	c, err := p.extractAll(ctx, res, posts)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if err := p.unifyAndRewrite(ctx, res, c); err != nil {
		return nil, fmt.Errorf("unify: %w", err)
	}
	return c, nil
}

// extractAll runs extraction over every post with a bounded worker pool.
// Each worker writes only its own slot, so the corpus keeps input order.
func (p *Pipeline) extractAll(ctx context.Context, res *Result, posts []corpus.Post) (corpus.Corpus, error) {
	out := make(corpus.Corpus, len(posts))
	fromStore := make([]bool, len(posts))
	skipped := make([]bool, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			md, cached, err := p.extractOne(gctx, res.RunID, i, posts[i])
			if err != nil {
				if p.policy == PolicySkip && errors.Is(err, internalerr.ErrMalformedModelOutput) {
					p.logger.Warn("skipping post with malformed metadata",
						"run", res.RunID, "index", i, "error", err)
					out[i] = corpus.EnrichedPost{Post: posts[i]}
					skipped[i] = true
					p.metrics.ObservePost(metrics.OutcomeSkipped)
					return nil
				}
				return fmt.Errorf("post %d: %w", i, err)
			}

			out[i] = corpus.Merge(posts[i], md)
			fromStore[i] = cached
			if cached {
				p.metrics.ObservePost(metrics.OutcomeCached)
			} else {
				p.metrics.ObservePost(metrics.OutcomeOK)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range posts {
		switch {
		case skipped[i]:
			res.Skipped = append(res.Skipped, i)
		case fromStore[i]:
			res.CheckpointHits++
		default:
			res.Extracted++
		}
	}
	p.logger.Info("extraction finished",
		"run", res.RunID,
		"extracted", res.Extracted,
		"checkpoint_hits", res.CheckpointHits,
		"skipped", len(res.Skipped),
	)
	return out, nil
}

// extractOne returns the metadata for one post, from the checkpoint store
// when possible. cached reports a store hit.
func (p *Pipeline) extractOne(ctx context.Context, runID string, index int, post corpus.Post) (md metadata.Metadata, cached bool, err error) {
	text := sanitize.Sanitize(post.Text)
	if p.stripMarkup {
		text = sanitize.StripMarkup(text)
	}
	key := store.Key(p.model, text)

	if p.store != nil {
		e, found, err := p.store.GetExtraction(ctx, key)
		if err != nil {
			return metadata.Metadata{}, false, fmt.Errorf("read checkpoint: %w", err)
		}
		if found {
			md = metadata.Metadata{LineCount: e.LineCount, Language: e.Language, Tags: e.Tags}
			if !p.strict || md.Validate() == nil {
				return md, true, nil
			}
		}
	}

	for attempt := 1; attempt <= p.attempts; attempt++ {
		start := p.now()
		md, err = p.extractor.Extract(ctx, text)
		p.metrics.ObserveCall(metadata.Stage, outcome(err), p.now().Sub(start))
		if err == nil || !errors.Is(err, internalerr.ErrMalformedModelOutput) {
			break
		}
		if attempt < p.attempts {
			p.logger.Debug("malformed extraction, asking again",
				"run", runID, "index", index, "attempt", attempt)
		}
	}
	if err != nil {
		return metadata.Metadata{}, false, err
	}

	if p.store != nil {
		e := store.Extraction{
			Key:       key,
			RunID:     runID,
			Index:     index,
			LineCount: md.LineCount,
			Language:  md.Language,
			Tags:      md.Tags,
			CreatedAt: p.now(),
		}
		if err := p.store.PutExtraction(ctx, e); err != nil {
			return metadata.Metadata{}, false, fmt.Errorf("write checkpoint: %w", err)
		}
	}
	return md, false, nil
}

// unifyAndRewrite canonicalizes every post's tags through one TagMap.
func (p *Pipeline) unifyAndRewrite(ctx context.Context, res *Result, c corpus.Corpus) error {
	tagSets := make([][]string, 0, len(c))
	for _, e := range c {
		if e.Metadata != nil {
			tagSets = append(tagSets, e.Metadata.Tags)
		}
	}
	res.RawTags = tags.Distinct(tagSets)

	start := p.now()
	tm, err := p.unifier.Unify(ctx, tagSets)
	if len(res.RawTags) > 0 {
		p.metrics.ObserveCall(tags.Stage, outcome(err), p.now().Sub(start))
	}
	if err != nil {
		return err
	}
	res.TagMap = tm

	for i := range c {
		if c[i].Metadata == nil {
			continue
		}
		canonical, err := tm.Apply(c[i].Metadata.Tags)
		if err != nil {
			return fmt.Errorf("post %d: %w", i, err)
		}
		c[i].Metadata.Tags = canonical
	}
	p.metrics.ObserveTags(len(res.RawTags), len(tm.Canonical()))
	return nil
}

func (p *Pipeline) finish(ctx context.Context, res Result, recorded bool, runErr error) (Result, error) {
	res.FinishedAt = p.now()
	logger := p.logger.With("run", res.RunID)

	status := store.RunCompleted
	if runErr != nil {
		status = store.RunFailed
		logger.Error("run failed", "error", runErr)
	}
	if recorded {
		// The run context may already be cancelled.
		if err := p.store.FinishRun(context.WithoutCancel(ctx), res.RunID, status, res.FinishedAt); err != nil {
			logger.Warn("failed to record run status", "error", err)
		}
	}
	p.metrics.ObserveRun(res.FinishedAt.Sub(res.StartedAt), runErr == nil, res.FinishedAt)
	return res, runErr
}

func (p *Pipeline) newRunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(p.now()), p.entropy).String()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, internalerr.ErrMalformedModelOutput):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeError
	}
}

func describe(src corpus.Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}
