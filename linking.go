package gotauth

import (
	"context"
	"fmt"
)

// Assertion is the identity an external provider vouches for after it has
// verified its own token.
type Assertion struct {
	ProviderID  string
	Email       string
	DisplayName string
}

// Outcome says which branch of the linking sequence produced the user.
type Outcome int

const (
	// OutcomeLoggedIn means a user was already linked to the provider id.
	OutcomeLoggedIn Outcome = iota
	// OutcomeLinked means the provider id was attached to the user with the
	// same email.
	OutcomeLinked
	// OutcomeProvisioned means a new user was created.
	OutcomeProvisioned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoggedIn:
		return "logged_in"
	case OutcomeLinked:
		return "linked"
	case OutcomeProvisioned:
		return "provisioned"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// LinkResult is the user an assertion resolved to and how.
type LinkResult struct {
	User    User
	Outcome Outcome
}

// ResolveAssertion maps a provider assertion onto a user:
//
//  1. a user already linked to the provider id is returned unchanged
//  2. otherwise a user with the same email gets the provider id written to it
//  3. otherwise a new user is provisioned
//
// Steps run strictly in that order.  Only a NotFound moves on to the next
// step; any other failure is returned as is.
func (a *Authenticator) ResolveAssertion(ctx context.Context, provider Provider, as Assertion) (LinkResult, error) {
	user, err := a.FindByProvider(ctx, provider, as.ProviderID)
	if err == nil {
		return LinkResult{User: user, Outcome: OutcomeLoggedIn}, nil
	}
	if !IsNotFound(err) {
		return LinkResult{}, err
	}

	if as.Email != "" {
		user, err = a.FindByEmail(ctx, as.Email)
		if err == nil {
			if err := a.Store.Update(ctx, user.ID, ProviderPatch(provider, as.ProviderID)); err != nil {
				return LinkResult{}, storeWriteError(err, "failed to link provider")
			}
			a.Logger.Info("linked provider", "provider", string(provider), "user_id", user.ID)
			return LinkResult{User: user.WithProviderID(provider, as.ProviderID), Outcome: OutcomeLinked}, nil
		}
		if !IsNotFound(err) {
			return LinkResult{}, err
		}
	}

	user, err = a.provision(ctx, provider, as)
	if err != nil {
		return LinkResult{}, err
	}
	return LinkResult{User: user, Outcome: OutcomeProvisioned}, nil
}

// OAuthLogin resolves the assertion and returns the session identity.  It
// only fails on infrastructure or hashing errors.
func (a *Authenticator) OAuthLogin(ctx context.Context, provider Provider, as Assertion) (Projection, error) {
	res, err := a.ResolveAssertion(ctx, provider, as)
	if err != nil {
		a.Metrics.observeFlow(flowOAuth, err)
		return Projection{}, err
	}
	a.Metrics.observeLink(provider, res.Outcome)
	a.Metrics.observeFlow(flowOAuth, nil)
	return res.User.Projection(), nil
}

// LoginWithProvider verifies accessToken with the provider and logs the
// resulting assertion in.
func (a *Authenticator) LoginWithProvider(ctx context.Context, p AuthProvider, accessToken string) (Projection, error) {
	as, err := p.Authenticate(ctx, accessToken)
	if err != nil {
		a.Metrics.observeFlow(flowOAuth, err)
		return Projection{}, err
	}
	return a.OAuthLogin(ctx, p.Name(), as)
}
