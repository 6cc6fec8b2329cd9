package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/florianilch/geminine/internal/credstore"
)

// fetchUserInfo resolves the account profile from the provider's userinfo
// endpoint using an already-authenticated HTTP client.
func (a *Authenticator) fetchUserInfo(ctx context.Context, httpc *http.Client) (*credstore.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %s", resp.Status)
	}

	var info credstore.Profile
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo response: %w", err)
	}

	return &info, nil
}

// UserInfo returns the account profile for the current cached credentials,
// preferring the profile cache and falling back to a userinfo fetch.
func (a *Authenticator) UserInfo(ctx context.Context) (*credstore.Profile, error) {
	if a.profile != nil {
		if info, ok := a.profile.Load(ctx); ok {
			return info, nil
		}
	}

	src, err := a.CachedTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	info, err := a.fetchUserInfo(ctx, a.clientForSource(ctx, src).HTTP)
	if err != nil {
		return nil, err
	}

	if a.profile != nil {
		if err := a.profile.Save(ctx, info); err != nil {
			slog.WarnContext(ctx, "could not cache account profile", "error", err)
		}
	}
	return info, nil
}
