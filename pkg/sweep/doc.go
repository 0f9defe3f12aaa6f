// Package sweep expands a configuration document into the full set of run
// configurations implied by its array-valued keys, filters out excluded and
// already-completed runs, and returns a shuffled run queue.
package sweep
