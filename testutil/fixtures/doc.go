// Package fixtures contains a minimal domain model for audit store testing.
//
// The model covers all kinds of managed types:
//   - Person: an Entity, identified by its login
//   - Address, Geo: value objects, owned by a Person
//   - Team: a shallow reference, stored as id only
//
// This is testing infrastructure - not production domain code.
package fixtures
