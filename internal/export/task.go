package export

import (
	"context"
	"sync/atomic"
	"time"
)

type State int32

const (
	Queued State = iota
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Queued:
		return "QUEUED"
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Record is what the export ledger keeps about a finished export.
type Record struct {
	Task        string    `json:"task"`
	Scene       string    `json:"scene"`
	Description string    `json:"description"`
	Key         string    `json:"key"`
	Bands       []string  `json:"bands"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Bytes       int64     `json:"bytes"`
	Completed   time.Time `json:"completed"`
	// Cached is set when the export was satisfied from the ledger.
	Cached bool `json:"-"`
}

// Task is a queued export. Its result is available once Done is closed.
type Task struct {
	ID     string
	Params Params

	state  atomic.Int32
	done   chan struct{}
	record Record
	err    error
}

func newTask(id string, p Params) *Task {
	return &Task{ID: id, Params: p, done: make(chan struct{})}
}

func (t *Task) State() State {
	return State(t.state.Load())
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (Record, error) {
	select {
	case <-t.done:
		return t.record, t.err
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}

func (t *Task) finish(rec Record, err error) {
	t.record, t.err = rec, err
	if err != nil {
		t.state.Store(int32(Failed))
	} else {
		t.state.Store(int32(Completed))
	}
	close(t.done)
}
