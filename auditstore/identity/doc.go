// Package identity creates global ids from DTOs and live instances and tracks value object paths.
//
// Value objects have no identity of their own. They are identified by their owning Entity and
// the path below it, e.g. "Person/1#address". A path has to be touched with TouchValueObjectFromPath
// before ids of value objects below it can be resolved; CreateFromDTO does this implicitly.
package identity
