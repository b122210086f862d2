package ctxutil

import "context"

type requestDataKey struct{}

// RequestData is the verified identity attached by the auth middleware.
// UserID is the acting user and never comes from a request body.
type RequestData struct {
	TokenString string
	UserID      string
	SessionID   string
	IsAdmin     bool
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
