package composables

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/arborhq/arbor/pkg/constants"
)

type Params struct {
	IP        string
	UserAgent string
	Request   *http.Request
	Writer    http.ResponseWriter
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseLogger returns the request-scoped logger. Falls back to a bare logger
// outside an HTTP request (CLI tools, tests).
func UseLogger(ctx context.Context) *logrus.Entry {
	logger := ctx.Value(constants.LoggerKey)
	if logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger.(*logrus.Entry)
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// WithUserID records the authenticated caller. Authentication itself happens
// upstream; the ordering engine only consumes the resulting identity for
// ownership checks.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, id)
}

func UseUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(constants.UserIDKey).(uuid.UUID)
	return id, ok
}
