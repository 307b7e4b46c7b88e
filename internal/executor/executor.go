package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sqlscope-backend/internal/target"
)

// ErrRejected is returned when the statement policy refuses a statement.
var ErrRejected = fmt.Errorf("%w: rejected by statement policy", target.ErrStatement)

// Executor runs statements verbatim against user endpoints.
type Executor struct {
	connector *target.Connector
	policy    *Policy
	log       *zap.Logger
}

// New creates an Executor. A nil policy allows every statement.
func New(connector *target.Connector, policy *Policy, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{connector: connector, policy: policy, log: log}
}

// Apply executes statement against endpoint and returns the result rows as
// indented JSON. No payload is returned on any failure.
func (e *Executor) Apply(ctx context.Context, endpoint, statement string) (string, error) {
	allowed, err := e.policy.Allow(statement)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if !allowed {
		e.log.Info("statement rejected", zap.String("verb", Verb(statement)))
		return "", ErrRejected
	}

	res, err := target.With(ctx, e.connector, endpoint, func(ctx context.Context, conn *target.Conn) (*target.Result, error) {
		return conn.Query(ctx, statement)
	})
	if err != nil {
		if errors.Is(err, target.ErrConnection) {
			e.log.Warn("apply failed", zap.String("endpoint", target.Redact(endpoint)), zap.Error(err))
		}
		return "", err
	}

	payload, err := encode(res)
	if err != nil {
		return "", fmt.Errorf("%w: encode result: %w", target.ErrStatement, err)
	}
	return payload, nil
}
