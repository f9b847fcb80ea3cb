package queue

import "context"

// Client publishes ingestion events to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
