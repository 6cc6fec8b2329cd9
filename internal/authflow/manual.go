package authflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// manualMaxRetries bounds consecutive manual-flow attempts before giving up.
const manualMaxRetries = 2

// manualFlow runs the user-code flow: print an authorization URL without a
// redirect target and block until the user confirms with a line of input.
//
// Confirmation is a synchronization point only. There is no redirect to
// observe, so the flow cannot verify that the out-of-band authorization
// actually succeeded on the provider side; it resolves as soon as the user
// presses enter.
func (a *Authenticator) manualFlow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conf := a.oauthConfig("")
	authURL := conf.AuthCodeURL(uuid.NewString(),
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
	)

	fmt.Fprintf(a.out, "\nPlease visit the following URL to authorize:\n\n%s\n\n", authURL)
	fmt.Fprint(a.out, "Press enter once you have completed authorization in your browser... ")

	if _, err := a.confirm.ReadString('\n'); err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	fmt.Fprintln(a.out, "Authorization confirmed.")
	return nil
}

// manualFlowWithRetries runs the manual flow up to manualMaxRetries times
// before failing fatally.
func (a *Authenticator) manualFlowWithRetries(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= manualMaxRetries; attempt++ {
		if err := a.manualFlow(ctx); err != nil {
			lastErr = err
			slog.WarnContext(ctx, "manual authentication attempt failed", "attempt", attempt, "error", err)
			continue
		}
		return nil
	}
	return fmt.Errorf("authentication failed after multiple attempts: %w", lastErr)
}
