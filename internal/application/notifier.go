package application

import "context"

// Notifier pushes each spoken response somewhere outside the car.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string) error {
	return nil
}
