package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

var _ auditstore.ContextualLogger = (*ContextualLoggerSpy)(nil)

// ContextualLoggerSpy records the calls of components logging through an auditstore.ContextualLogger.
type ContextualLoggerSpy struct {
	mu          sync.Mutex
	records     []SpyContextualLogRecord
	recordCalls bool
}

// SpyContextualLogRecord is one recorded call, Context is the context it was logged with.
type SpyContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

func NewContextualLoggerSpy(recordCalls bool) *ContextualLoggerSpy {
	return &ContextualLoggerSpy{recordCalls: recordCalls}
}

func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "debug", msg, args)
}

func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "info", msg, args)
}

func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "warn", msg, args)
}

func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "error", msg, args)
}

// HasInfoLog reports whether an info record with message was logged.
func (s *ContextualLoggerSpy) HasInfoLog(message string) bool {
	return s.has("info", message)
}

// HasErrorLog reports whether an error record with message was logged.
func (s *ContextualLoggerSpy) HasErrorLog(message string) bool {
	return s.has("error", message)
}

func (s *ContextualLoggerSpy) record(ctx context.Context, level string, msg string, args []any) {
	if !s.recordCalls {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyContextualLogRecord{Level: level, Message: msg, Args: args, Context: ctx})
}

func (s *ContextualLoggerSpy) has(level string, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.Level == level && r.Message == message {
			return true
		}
	}

	return false
}
