// Package auditstore provides the core types of an object audit store:
// global ids, snapshots of object state, and the query params shared by all queries.
//
// Tracked objects are identified by a GlobalID:
//   - InstanceID: an Entity instance, e.g. "Person/1"
//   - ValueObjectID: a value object owned by an Entity, e.g. "Person/1#address"
//   - UnboundedValueObjectID: a value object committed without owner, e.g. "Address/"
//
// Every commit of an object produces a CdoSnapshot when its state changed.
// Snapshots are persisted by a storage engine (see memoryengine and postgresengine)
// and read through the query package, which also derives Changes from consecutive snapshots.
//
// Key types:
//   - GlobalID: Identifies a tracked object
//   - CdoSnapshot: The state of one object at one point in time
//   - QueryParams: Paging and filter options for querying snapshots and changes
//   - SnapshotRecord: Flat representation of a snapshot for storage engines and caches
//
// Common usage pattern:
//
//	q := query.ByInstanceID("Person", "1").
//		WithParams(auditstore.DefaultQueryParams().WithLimit(10))
//
//	snapshots, err := runner.QueryForSnapshots(ctx, q)
//	if err != nil {
//		// handle error
//	}
package auditstore
