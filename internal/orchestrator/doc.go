// Package orchestrator turns a queue of operations into a stage graph and
// drives it to completion.
//
// The pieces, in the order a run uses them:
//
//	Coordinator  reacts to start-pipeline, reads runtime config and queue from the store
//	CreatePipeline  builds one stage per operation, each depending on the previous
//	Executor     runs ready stages sequentially or in parallel, with retry and backoff
//	Handler      does the work of one stage type (parse, transform, render, write)
//
// Artifacts flow between stages through the store: a successful parse saves
// the document under the ast key, transform reads it from there, and so on.
// The executor enforces the pipeline timeout with a context deadline; a
// handler that does not return in time is abandoned and its stage fails
// with ErrStageTimeout.
//
// In parallel mode a failed stage never satisfies its dependents. They are
// marked skipped instead of run, and a pipeline whose pending stages can
// never become ready (a cycle, a self-dependency) fails with
// ErrStuckPipeline.
package orchestrator
