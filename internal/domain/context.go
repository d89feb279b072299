package domain

import "context"

// User is the authenticated storefront customer of a request. Token is the
// bearer token forwarded to the upstream shop API on the user's behalf.
type User struct {
	ID    string
	Login string
	Token string
}

type ctxKey int

const userCtxKey ctxKey = 1

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userCtxKey, u)
}

// UserFromCtx returns the user stored by WithUser, if any.
func UserFromCtx(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userCtxKey).(User)
	return u, ok && u.ID != ""
}
