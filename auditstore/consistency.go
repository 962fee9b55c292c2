package auditstore

import "context"

// ConsistencyLevel defines the consistency requirements for snapshot reads.
type ConsistencyLevel int

const (
	// StrongConsistency requires reads from the primary database.
	// This is the default, so a commit followed by a query always sees its own snapshots.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica database.
	// Suitable for audit reports and history views that can tolerate slightly stale data.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "auditstore.consistency_level"

// WithStrongConsistency returns a context that signals repositories to read from the primary database.
//
// Example usage:
//
//	ctx = auditstore.WithStrongConsistency(ctx)
//	snapshots, err := runner.QueryForSnapshots(ctx, q)
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that signals repositories may read from a replica database.
//
// Example usage:
//
//	ctx = auditstore.WithEventualConsistency(ctx)
//	changes, err := runner.QueryForChanges(ctx, q)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
