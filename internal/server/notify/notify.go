// Package notify delivers account lifecycle email to users. Content and
// templating live entirely here; the engine only triggers sends.
package notify

import (
	"context"

	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// Notifier is the notification collaborator consumed by the engine.
// Sends are best-effort from the engine's point of view: a failed send
// never rolls back an already-persisted state change.
type Notifier interface {
	SendConfirmation(ctx context.Context, user *models.User, code string) error
	SendPasswordReset(ctx context.Context, user *models.User, code string) error
	SendOAuthWelcome(ctx context.Context, user *models.User) error
}
