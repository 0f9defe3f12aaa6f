package sweep

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
)

// RequiredKeys is the minimal set of document keys needed to run anything.
var RequiredKeys = []string{"data_name", "data_dir", "batch_size", "epochs"}

// ErrMissingRequiredKey indicates the document lacks one of [RequiredKeys].
var ErrMissingRequiredKey = errors.New("missing required key")

// Engine derives the run queue for one version of a configuration document.
// The derive pipeline (expand, exclude, shuffle) runs once and is memoized;
// repeated calls return the same queue, not merely an equal one.
//
// Engine is not safe for concurrent use. [watch.Watcher] guards it with a
// lock and replaces it wholesale on reload.
type Engine struct {
	doc        *Document
	excl       *Exclusions
	rand       *rand.Rand
	permutable map[string]struct{}
	runConfigs []RunConfig
	generated  bool
}

// EngineOpt configures an [Engine].
type EngineOpt func(*Engine)

// WithExclusions sets the exclusion filter applied during the derive pipeline.
func WithExclusions(excl *Exclusions) EngineOpt {
	return func(e *Engine) {
		e.excl = excl
	}
}

// WithRand sets the random source used for the queue shuffle.
// Useful for deterministic tests; the default is the shared global source.
func WithRand(r *rand.Rand) EngineOpt {
	return func(e *Engine) {
		e.rand = r
	}
}

// NewEngine creates an [Engine] for the given document. It fails with
// [ErrMissingRequiredKey] before any expansion work is attempted if the
// document lacks a required key.
func NewEngine(doc *Document, opts ...EngineOpt) (*Engine, error) {
	for _, key := range RequiredKeys {
		if !doc.Has(key) {
			return nil, fmt.Errorf("%w: %s", ErrMissingRequiredKey, key)
		}
	}

	e := &Engine{
		doc:        doc,
		permutable: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Document returns the document this engine was built from.
func (e *Engine) Document() *Document {
	return e.doc
}

// RunConfigs derives the run queue: every permutation of the document's
// array-valued keys, minus exclusions, in shuffled order. It also returns the
// set of keys that branched during expansion. The pipeline runs once; later
// calls return the memoized queue.
func (e *Engine) RunConfigs() ([]RunConfig, map[string]struct{}) {
	if !e.generated {
		e.runConfigs = e.expand()
		e.applyExclusions()
		e.shuffle()
		e.generated = true
	}

	return e.runConfigs, e.permutable
}

// PermutableKeys returns the permuted key set in sorted order.
func (e *Engine) PermutableKeys() []string {
	_, permutable := e.RunConfigs()

	keys := make([]string, 0, len(permutable))
	for key := range permutable {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// RemoveCompleted removes at most one run configuration matching the given
// completed-run record from the queue. Records with no remaining match are
// skipped, so replaying the same record is a no-op. It reports whether an
// entry was removed.
func (e *Engine) RemoveCompleted(record RunConfig) bool {
	e.RunConfigs()

	for i, rc := range e.runConfigs {
		if rc.EqualValues(record) {
			slog.Debug("removing previous run from queue",
				slog.Any("config", rc),
			)

			e.runConfigs = slices.Delete(e.runConfigs, i, i+1)

			return true
		}
	}

	return false
}

// expand performs the depth-indexed recursive cartesian-product build over the
// document's entries, in document order. A key whose value is an array is
// recorded as permutable regardless of its length; an empty array therefore
// yields zero configurations for the whole product. This multiplicative zero
// silently discards the entire sweep, mirroring the input document.
func (e *Engine) expand() []RunConfig {
	entries := e.doc.Entries()
	configs := []RunConfig{}

	var build func(depth int, current RunConfig)
	build = func(depth int, current RunConfig) {
		if depth == len(entries) {
			configs = append(configs, current.clone())

			return
		}

		entry := entries[depth]
		if entry.Value.IsList() {
			e.permutable[entry.Key] = struct{}{}
		}

		for _, v := range entry.Value.Scalars() {
			current[entry.Key] = v
			build(depth+1, current)
		}

		delete(current, entry.Key)
	}

	build(0, RunConfig{})

	return configs
}

// applyExclusions removes every run configuration matching at least one
// exclusion. A queue with at most one entry is never filtered, so a
// degenerate single-permutation sweep always keeps its one run.
func (e *Engine) applyExclusions() {
	if e.excl.Empty() || len(e.runConfigs) <= 1 {
		return
	}

	kept := e.runConfigs[:0]

	for _, rc := range e.runConfigs {
		matched, err := e.excl.Matches(rc)
		if err != nil {
			slog.Warn("skipping unevaluable exclusion",
				slog.Any("error", err),
			)
		}

		if !matched {
			kept = append(kept, rc)
		}
	}

	if removed := len(e.runConfigs) - len(kept); removed > 0 {
		slog.Info("excluding configs matching configured exclusions",
			slog.Int("count", removed),
		)
	}

	e.runConfigs = kept
}

// shuffle randomizes presentation order only; callers must not rely on any
// ordering beyond "arbitrary".
func (e *Engine) shuffle() {
	swap := func(i, j int) {
		e.runConfigs[i], e.runConfigs[j] = e.runConfigs[j], e.runConfigs[i]
	}

	if e.rand != nil {
		e.rand.Shuffle(len(e.runConfigs), swap)

		return
	}

	rand.Shuffle(len(e.runConfigs), swap)
}
