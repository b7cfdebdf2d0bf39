package http

import (
	"context"
	"io"

	"adcpview/internal/catalog"
	"adcpview/internal/metadata"
	"adcpview/internal/services"
)

// ViewerService is the part of the viewer the handlers depend on.
type ViewerService interface {
	Catalog() *catalog.Catalog
	NewSession(ctx context.Context) *services.Session
	Session(id string) (*services.Session, error)
	CloseSession(ctx context.Context, id string) error
	Info(ctx context.Context, file string, persist bool) (*metadata.Record, error)
	Report(ctx context.Context, out io.Writer, file string) error
}

var _ ViewerService = (*services.ViewerService)(nil)
