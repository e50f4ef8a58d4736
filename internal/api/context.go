package api

import (
	"context"

	"platformauth/internal/session"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

func SessionFromContext(ctx context.Context) *session.Session {
	v := ctx.Value(ctxKeySession)
	if v == nil {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}
