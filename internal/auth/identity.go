package auth

import "context"

// Identity is the authenticated caller.
type Identity struct {
	UserID   int
	Username string
	IsStaff  bool
}

// CanAccess reports whether the identity may act on the given user.
func (i Identity) CanAccess(userID int) bool {
	return i.IsStaff || i.UserID == userID
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
