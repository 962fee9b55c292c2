// Package query defines the Query model and the Runner that dispatches queries to a snapshot repository.
//
// A Query carries exactly one Filter and QueryParams:
//
//	query.AnyDomainObject()                         // all objects
//	query.ByInstanceID(Person{}, "frodo")           // one Entity by type and local id
//	query.ByValueObjectID(Person{}, "frodo", "address")
//	query.ByInstance(frodo)                         // one Entity by a live instance
//	query.ByClass(Person{}, Address{})              // all objects of the given types
//	query.ByValueObject(Person{}, "address")        // value objects at a path below all Persons
//
// The Runner resolves ids and types before calling the repository. Queries it can not run,
// e.g. a value object query whose owner type is not an Entity, fail with ErrMalformedQuery
// before any repository call. Errors of the repository, the identity factory, and the type
// resolver are returned unchanged.
//
// Usage:
//
//	runner, err := query.NewRunner(repo, identity.NewFactory(mapper), mapper, query.WithLogger(slog.Default()))
//	changes, err := runner.QueryForChanges(ctx, query.ByInstanceID(Person{}, "frodo"))
package query
