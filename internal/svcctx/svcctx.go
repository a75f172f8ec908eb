// Package svcctx carries the server's long-lived services through
// request contexts so endpoint handlers can reach them without global
// state.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/quilldocs/quill/internal/auth"
	"github.com/quilldocs/quill/internal/config"
	"github.com/quilldocs/quill/internal/generate"
	"github.com/quilldocs/quill/internal/ingest"
	"github.com/quilldocs/quill/internal/store"
)

// Services holds the shared service instances handlers depend on.
type Services struct {
	Store       store.Store
	Assembler   *generate.Assembler
	Coordinator *generate.Coordinator
	Ingest      *ingest.Service
	Verifier    *auth.Verifier
	Config      *config.Manager
	Logger      *slog.Logger
}

type servicesKey struct{}

// WithServices returns a context carrying the given services.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the services from the context, or nil.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the document store from the context, or nil.
func StoreFrom(ctx context.Context) store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// AssemblerFrom extracts the document assembler from the context, or nil.
func AssemblerFrom(ctx context.Context) *generate.Assembler {
	if s := ServicesFrom(ctx); s != nil {
		return s.Assembler
	}
	return nil
}

// CoordinatorFrom extracts the regeneration coordinator from the context, or nil.
func CoordinatorFrom(ctx context.Context) *generate.Coordinator {
	if s := ServicesFrom(ctx); s != nil {
		return s.Coordinator
	}
	return nil
}

// IngestFrom extracts the upload service from the context, or nil.
func IngestFrom(ctx context.Context) *ingest.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingest
	}
	return nil
}

// LoggerFrom extracts the logger from the context, falling back to the
// default logger so callers never get nil.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
