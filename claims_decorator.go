package auth

import "context"

// ClaimsDecorator can mutate extension claims (name, picture) before a
// token is signed. Registered claims and the user id are restored after
// decoration.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, user AuthUser, claims *TokenClaims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, user AuthUser, claims *TokenClaims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, user AuthUser, claims *TokenClaims) error {
	if f == nil {
		return nil
	}
	return f(ctx, user, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, AuthUser, *TokenClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}

func decorateClaims(ctx context.Context, d ClaimsDecorator, user AuthUser, claims *TokenClaims) error {
	registered := claims.RegisteredClaims
	uid, email := claims.UID, claims.Email

	if err := d.Decorate(ctx, user, claims); err != nil {
		return err
	}

	claims.RegisteredClaims = registered
	claims.UID, claims.Email = uid, email
	return nil
}
