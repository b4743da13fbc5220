// Package service implements the application operations that sit between the
// HTTP handlers and the stores: authentication, dataset ingestion and
// analysis, charts, administration and the AI proxy.
package service

import (
	"context"
	"errors"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

type ctxKey int

const clientIPKey ctxKey = iota

// WithClientIP stores the caller address recorded in activity entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the address stored by WithClientIP.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// storeErr classifies a store failure. missing is the NotFound message.
func storeErr(err error, missing string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.Missing(missing)
	case errors.Is(err, storage.ErrVersionMismatch):
		return apperr.Wrap(apperr.Conflict, "Dataset was modified by another request", err)
	case errors.Is(err, storage.ErrConflict):
		return apperr.Wrap(apperr.Conflict, "Record already exists", err)
	default:
		return apperr.Internalf("Server error", err)
	}
}
