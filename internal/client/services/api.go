package services

import (
	"context"

	"github.com/g1appdev/hubbits/internal/client/client"
)

// API is the transport the services need. *client.HTTPClient implements it.
type API interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
	GetJSON(ctx context.Context, path string, out any) error
	SendJSON(ctx context.Context, method, path string, in, out any) error
	SendMultipart(ctx context.Context, method, path string, body client.MultipartBody, out any) error
}

type attachmentKey struct{}

// WithAttachment attaches a local file to the next create or update sent
// with ctx. Resources with a file part upload it; others ignore it.
func WithAttachment(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, attachmentKey{}, path)
}

func attachment(ctx context.Context) string {
	p, _ := ctx.Value(attachmentKey{}).(string)
	return p
}
