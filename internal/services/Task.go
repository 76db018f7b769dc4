package services

import "context"

// Callback receives the Response of a finished operation.
type Callback func(Response)

// Task is the pending result of an asynchronous user operation.
type Task struct {
	done chan struct{}
	resp Response
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// complete runs cb (if any) before marking the task done, so a returned Wait implies the callback has run.
func (t *Task) complete(resp Response, cb Callback) {
	t.resp = resp
	if cb != nil {
		cb(resp)
	}
	close(t.done)
}

// Done is closed once the operation has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the operation finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (Response, error) {
	select {
	case <-t.done:
		return t.resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Response blocks until the operation finishes and returns its Response.
func (t *Task) Response() Response {
	<-t.done
	return t.resp
}
