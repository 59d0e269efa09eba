package interfaces

import "context"

// Notifier delivers user-facing messages about transfer outcomes. Delivery is
// fire-and-forget from the core's point of view; a returned error is logged,
// never acted on.
type Notifier interface {
	Notify(ctx context.Context, accountOwnerID, title, message string) error
}
