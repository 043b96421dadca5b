package hooks

// Task is a handle to a broadcast hook running in the background.
type Task struct {
	hook string
	done chan struct{}
	err  error
}

// Hook returns the name of the hook the task is running.
func (t *Task) Hook() string { return t.hook }

// Wait blocks until every plugin started by the task has exited and returns
// the broadcast's fatal error, if any. It may be called more than once.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Done is closed once the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }
