// Package logger builds zap loggers and carries per-invocation log fields
// through contexts.
package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	commandKey
)

// WithUserID tags ctx with the logged-in donor id.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// WithCommand tags ctx with the CLI command being run.
func WithCommand(ctx context.Context, command string) context.Context {
	if command == "" {
		return ctx
	}
	return context.WithValue(ctx, commandKey, command)
}

// GetUserID returns the donor id carried by ctx, or "".
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// GetCommand returns the command name carried by ctx, or "".
func GetCommand(ctx context.Context) string {
	command, _ := ctx.Value(commandKey).(string)
	return command
}

// Fields returns the user_id and command fields carried by ctx.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if userID := GetUserID(ctx); userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if command := GetCommand(ctx); command != "" {
		fields = append(fields, zap.String("command", command))
	}
	return fields
}

// For returns log enriched with the fields carried by ctx.
func For(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return log.With(fields...)
	}
	return log
}
