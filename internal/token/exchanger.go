package token

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2/jwt"

	"helios/internal/credentials"
	"helios/pkg/domain"
	dErrors "helios/pkg/domain-errors"
	"helios/pkg/platform/sentinel"
	"helios/pkg/requestcontext"
)

// OAuthExchanger exchanges an organization's delegated service-account
// credential for an access token at the provider's token endpoint, using the
// JWT assertion flow with domain-wide delegation (the credential's Subject is
// the impersonated admin).
type OAuthExchanger struct {
	store  credentials.Store
	logger *slog.Logger
}

func NewOAuthExchanger(store credentials.Store, logger *slog.Logger) *OAuthExchanger {
	return &OAuthExchanger{store: store, logger: logger}
}

func (e *OAuthExchanger) Exchange(ctx context.Context, orgID domain.OrgID, scope string) (Token, error) {
	cred, err := e.store.GetDelegatedCredential(ctx, orgID, scope)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotConfigured) {
			return Token{}, dErrors.Newf(dErrors.CodeUpstreamUnavailable,
				"organization has no delegated credential for scope %s", scope)
		}
		return Token{}, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "credential lookup failed")
	}

	cfg := &jwt.Config{
		Email:      cred.ClientEmail,
		PrivateKey: cred.PrivateKeyPEM,
		Subject:    cred.Subject,
		Scopes:     []string{scope},
		TokenURL:   cred.TokenURI,
	}

	tok, err := cfg.TokenSource(ctx).Token()
	if err != nil {
		e.logger.WarnContext(ctx, "token exchange failed",
			"organization_id", orgID.String(),
			"scope", scope,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return Token{}, dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable, "upstream token exchange failed")
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		// Providers that omit expires_in get a conservative default.
		expiry = time.Now().Add(10 * time.Minute)
	}
	return Token{AccessToken: tok.AccessToken, ExpiresAt: expiry}, nil
}
