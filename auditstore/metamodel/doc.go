// Package metamodel resolves Go struct types to managed types: the structural descriptors used
// for snapshots, diffs and global ids.
//
// A managed type is one of:
//   - EntityType: has identity, instances are identified by their id property
//   - ValueObjectType: no identity, instances are identified by owner and path
//   - ShallowReferenceType: an Entity reduced to its identity, never traversed
//
// Types are defined explicitly on the TypeMapper:
//
//	mapper, err := metamodel.NewTypeMapper(
//		metamodel.WithEntity(Person{}, "id"),
//		metamodel.WithShallowReference(Team{}, "id"),
//		metamodel.WithTypeName(Person{}, "Person"),
//	)
//
//	managedType, err := mapper.Resolve(reflect.TypeOf(Person{}))
package metamodel
