package authflow

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// metadataTokenSource obtains a token from the local cloud metadata identity
// service. The metadata service manages its own refresh, so these
// credentials are never written to the credential cache.
func (a *Authenticator) metadataTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !metadata.OnGCE() {
		return nil, errors.New("metadata identity service is not reachable")
	}

	src := google.ComputeTokenSource("", scopes...)
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("fetching token from metadata service: %w", err)
	}

	return oauth2.ReuseTokenSource(tok, src), nil
}
