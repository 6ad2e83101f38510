package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a logger at the LOG_LEVEL environment level
func New() *Logger {
	return NewWithLevel(os.Getenv("LOG_LEVEL"))
}

// NewWithLevel creates a logger at the named level
func NewWithLevel(levelStr string) *Logger {
	level := getLogLevel(levelStr)

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// NewWithHandler wraps an existing slog handler
func NewWithHandler(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler)}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// Business logic logging methods

// LogCancellationRequested logs a new cancellation request and its quoted refund
func (l *Logger) LogCancellationRequested(ctx context.Context, requestID, bookingID, policyID string, finalRefund string, fallback bool) {
	l.Logger.InfoContext(ctx,
		"Cancellation Requested",
		slog.String("request_id", requestID),
		slog.String("booking_id", bookingID),
		slog.String("policy_id", policyID),
		slog.String("final_refund_amount", finalRefund),
		slog.Bool("fallback_rule_applied", fallback),
	)
}

// LogCancellationDecided logs an admin decision on a cancellation request
func (l *Logger) LogCancellationDecided(ctx context.Context, requestID, status, adminID string) {
	l.Logger.InfoContext(ctx,
		"Cancellation Decided",
		slog.String("request_id", requestID),
		slog.String("status", status),
		slog.String("admin_id", adminID),
	)
}

// LogRefundTransition logs a refund stage change
func (l *Logger) LogRefundTransition(ctx context.Context, refundID, from, to, actorID string) {
	l.Logger.InfoContext(ctx,
		"Refund Transition",
		slog.String("refund_id", refundID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("actor_id", actorID),
	)
}

// LogGatewayResult logs a payment gateway outcome for a refund
func (l *Logger) LogGatewayResult(ctx context.Context, refundID string, success bool, detail string) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	l.Logger.Log(ctx, level,
		"Gateway Result",
		slog.String("refund_id", refundID),
		slog.Bool("success", success),
		slog.String("detail", detail),
	)
}

// LogDisputeTransition logs a dispute status change
func (l *Logger) LogDisputeTransition(ctx context.Context, disputeID, from, to, actorID string) {
	l.Logger.InfoContext(ctx,
		"Dispute Transition",
		slog.String("dispute_id", disputeID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("actor_id", actorID),
	)
}

// Security logging methods

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Helper methods for common patterns

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
