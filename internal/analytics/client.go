package analytics

import "context"

// Client is the request metadata attached to recorded events.
type Client struct {
	IP        string
	UserAgent string
	SessionID string
}

type clientContextKey struct{}

// WithClient stores request metadata in context.
func WithClient(ctx context.Context, c Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, clientContextKey{}, c)
}

// ClientFrom returns the request metadata stored in context.
func ClientFrom(ctx context.Context) Client {
	if ctx == nil {
		return Client{}
	}
	c, _ := ctx.Value(clientContextKey{}).(Client)
	return c
}
