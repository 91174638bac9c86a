package light

import (
	"context"

	"github.com/google/uuid"
)

// Task names used by the core. A light runs at most one task per name; the
// visible effect and the keepalive refresh are independent slots.
const (
	TaskEffect    = "effect"
	TaskKeepalive = "keepalive"
)

// TaskFunc is the unit of cooperative work a task runs. It must return
// promptly once ctx is cancelled; any finalization (turning the light off)
// happens inside the function before it returns.
type TaskFunc func(ctx context.Context)

// Task is a handle to one named, cancellable unit of work owned by a Light.
type Task struct {
	ID       uuid.UUID
	Name     string
	Priority int

	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed once the task's work, including its finalization, has
// returned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task completes or ctx expires.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddTask starts fn as the named task. If a task with the same name is
// still running: with replace false the existing handle is returned
// unchanged and fn is never scheduled; with replace true the existing task
// is cancelled and fully torn down before the new one starts, so two tasks
// never mutate the light concurrently.
func (l *Light) AddTask(name string, priority int, replace bool, fn TaskFunc) *Task {
	l.tasksMu.Lock()
	defer l.tasksMu.Unlock()

	if old, ok := l.tasks[name]; ok {
		select {
		case <-old.done:
			// Finished; the slot is free.
		default:
			if !replace {
				return old
			}
			old.cancel()
			<-old.done
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		ID:       uuid.New(),
		Name:     name,
		Priority: priority,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	l.tasks[name] = t

	l.log.Debug().Str("task", name).Str("id", t.ID.String()).Msg("task started")

	go func() {
		defer close(t.done)
		defer cancel()
		fn(ctx)
	}()

	return t
}

// CancelTask cancels the named task and waits for its teardown. Cancelling
// an absent or finished task is a no-op.
func (l *Light) CancelTask(name string) {
	l.tasksMu.Lock()
	defer l.tasksMu.Unlock()
	l.cancelLocked(name)
}

// CancelAll cancels every task the light owns and waits for all teardowns.
func (l *Light) CancelAll() {
	l.tasksMu.Lock()
	defer l.tasksMu.Unlock()
	for name := range l.tasks {
		l.cancelLocked(name)
	}
}

// cancelLocked cancels one task while holding tasksMu. Task goroutines
// never take tasksMu, so waiting on done here cannot deadlock.
func (l *Light) cancelLocked(name string) {
	t, ok := l.tasks[name]
	if !ok {
		return
	}
	t.cancel()
	<-t.done
	delete(l.tasks, name)
	l.log.Debug().Str("task", name).Msg("task cancelled")
}
