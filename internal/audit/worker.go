package audit

import "context"

// Worker drains an inbox channel into the publisher so gating hooks never
// block on audit persistence. Producers should drop on a full inbox rather
// than wait.
type Worker struct {
	publisher *Publisher
	inbox     <-chan Event
}

func NewWorker(publisher *Publisher, inbox <-chan Event) *Worker {
	return &Worker{publisher: publisher, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.publisher.Emit(ctx, event)
		}
	}
}
