// Package pipeline wires simple-command stages into pipelines, runs them
// in the foreground or as background jobs, and provides a bounded
// scatter/gather primitive for fanning a stage out over many inputs.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StageFunc executes one pipeline stage against the previous stage's
// captured stdout (nil for the first stage).
type StageFunc func(stdin []byte) (stdout []byte, stderr []byte, code int, err error)

// Result is the outcome of running a pipeline: the last stage's exit
// status and captured output, with OK true only when every stage in the
// chain exited zero.
type Result struct {
	OK     bool
	Code   int
	Stdout []byte
	Stderr []byte
	Err    error
}

// Run executes stages in sequence, piping each stage's stdout into the
// next stage's stdin. It stops at the first stage that errors or exits
// non-zero, matching the kernel's "ok is AND of stages" contract.
func Run(stages []StageFunc) Result {
	var stdin []byte
	var last Result

	for _, stage := range stages {
		out, errOut, code, err := stage(stdin)
		last = Result{
			OK:     err == nil && code == 0,
			Code:   code,
			Stdout: out,
			Stderr: errOut,
			Err:    err,
		}
		if err != nil || code != 0 {
			return last
		}
		stdin = out
	}

	return last
}

// Job tracks one backgrounded pipeline (`cmd &`).
type Job struct {
	ID     string
	done   chan struct{}
	result Result
	cancel context.CancelFunc
}

// Wait blocks until the job completes and returns its result.
func (j *Job) Wait() Result {
	<-j.done
	return j.result
}

// Done reports whether the job has finished without blocking.
func (j *Job) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Cancel requests the job stop at its next I/O boundary. A job started
// without a cancellable context (Start rather than StartCancelable) has
// no effect.
func (j *Job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// Manager tracks backgrounded jobs so a script can `wait` or `wait %ID`
// on them later.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates an empty job manager.
func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*Job)}
}

// Start launches stages in a goroutine and returns immediately with a
// handle to the running job.
func (m *Manager) Start(stages []StageFunc) *Job {
	return m.StartCancelable(stages, nil)
}

// StartCancelable is Start plus a cancel func the Job's Cancel method (and
// the RPC surface's `cancelJob`) can invoke to unwind a backgrounded
// pipeline at its next I/O boundary. Callers build stages that close over
// the same cancellable context so cancel actually reaches them.
func (m *Manager) StartCancelable(stages []StageFunc, cancel context.CancelFunc) *Job {
	j := &Job{ID: uuid.NewString(), done: make(chan struct{}), cancel: cancel}

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.mu.Unlock()

	go func() {
		j.result = Run(stages)
		close(j.done)
	}()

	return j
}

// Cancel cancels a tracked job by ID, returning false if no such job is
// tracked (already GC'd or never existed).
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	j.Cancel()
	return true
}

// Wait waits for a specific job by ID.
func (m *Manager) Wait(id string) (Result, bool) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	return j.Wait(), true
}

// WaitAll waits for every job currently tracked, in no particular order,
// and returns their results.
func (m *Manager) WaitAll() []Result {
	m.mu.Lock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.Wait(id); ok {
			results = append(results, r)
		}
	}
	return results
}

// List returns the IDs of jobs still running.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var running []string
	for id, j := range m.jobs {
		if !j.Done() {
			running = append(running, id)
		}
	}
	return running
}
