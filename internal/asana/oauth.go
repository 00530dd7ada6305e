package asana

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// OAuth drives the authorization-code flow against Asana.
type OAuth struct {
	cfg        oauth2.Config
	httpClient *http.Client
}

func NewOAuth(clientID, clientSecret, redirectURL, authURL, tokenURL string, hc *http.Client) *OAuth {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &OAuth{
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: hc,
	}
}

// AuthCodeURL builds the authorization URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// Exchange trades a single-use authorization code for an access token. It is never retried.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %w", ErrUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token exchange returned no access token", ErrUnavailable)
	}
	return tok.AccessToken, nil
}
