// Package messaging defines the change notifier contract.
//
// A notification is a set of routing attributes plus an opaque payload.
// Attributes travel as message metadata so consumers can bind on them
// without inspecting the body.
package messaging

import (
	"context"
	"errors"
)

// Attribute keys present on every notification.
const (
	AttrEvent    = "event"
	AttrRowCount = "rowCount"
)

// Event kinds.
const (
	EventProductUpdate = "product.update"
	EventProductDelete = "product.delete"
)

// ErrNotification wraps every failure to deliver a notification.
var ErrNotification = errors.New("notification failed")

// Attributes are routing metadata attached to a notification.
type Attributes map[string]any

// Event returns the event kind, or "" when absent.
func (a Attributes) Event() string {
	s, _ := a[AttrEvent].(string)
	return s
}

type Publisher interface {
	// Publish sends payload with attrs. It does not retry.
	Publish(ctx context.Context, attrs Attributes, payload any) error
}

// NopPublisher discards every notification.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Attributes, any) error { return nil }
