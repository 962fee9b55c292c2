package query

import (
	"fmt"
	"reflect"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/identity"
)

// Query describes which snapshots or changes to fetch: exactly one Filter plus QueryParams.
//
// Queries are built with the By... functions and are immutable;
// the With... methods return modified copies. The zero value has no filter and is malformed.
type Query struct {
	filter           Filter
	params           auditstore.QueryParams
	newObjectChanges bool
}

func newQuery(filter Filter) Query {
	return Query{filter: filter, params: auditstore.DefaultQueryParams()}
}

// AnyDomainObject queries all objects.
func AnyDomainObject() Query {
	return newQuery(AnyDomainObjectFilter{})
}

// ByID queries one object by an id DTO.
func ByID(dto identity.DTO) Query {
	return newQuery(IDFilter{DTO: dto})
}

// ByGlobalID queries one object by a known global id.
func ByGlobalID(id auditstore.GlobalID) Query {
	return ByID(identity.GlobalIDDTO{ID: id})
}

// ByInstanceID queries one Entity by type and local id, prototype is a value of the type, e.g. Person{}.
func ByInstanceID(prototype any, localID any) Query {
	return ByID(identity.InstanceIDOf(prototype, localID))
}

// ByValueObjectID queries one value object by its owner and path.
func ByValueObjectID(ownerPrototype any, ownerLocalID any, path string) Query {
	return ByID(identity.ValueObjectIDOf(ownerPrototype, ownerLocalID, path))
}

// ByInstance queries one Entity by a live instance.
func ByInstance(instance any) Query {
	return newQuery(InstanceFilter{Instance: instance})
}

// ByClass queries all objects of the types of the given prototypes; reflect.Type values are accepted as well.
func ByClass(prototypes ...any) Query {
	types := make([]reflect.Type, 0, len(prototypes))

	for _, prototype := range prototypes {
		if t, ok := prototype.(reflect.Type); ok {
			types = append(types, t)
			continue
		}

		types = append(types, reflect.TypeOf(prototype))
	}

	return newQuery(ClassFilter{Types: types})
}

// ByValueObject queries the value objects at path below all Entities of the owner type.
func ByValueObject(ownerPrototype any, path string) Query {
	return newQuery(ValueObjectOwnerFilter{OwnerType: reflect.TypeOf(ownerPrototype), Path: path})
}

// Filter returns the filter of the query, nil for the zero value.
func (q Query) Filter() Filter {
	return q.filter
}

// Kind returns the kind of the filter, KindUnknown if there is none.
func (q Query) Kind() Kind {
	if q.filter == nil {
		return KindUnknown
	}

	return q.filter.Kind()
}

func (q Query) Params() auditstore.QueryParams {
	return q.params
}

// WithParams replaces the query params.
func (q Query) WithParams(params auditstore.QueryParams) Query {
	q.params = params

	return q
}

// WithNewObjectChanges includes NewObject changes and the initial property values of created objects
// when querying changes of any domain object.
func (q Query) WithNewObjectChanges(include bool) Query {
	q.newObjectChanges = include

	return q
}

func (q Query) NewObjectChanges() bool {
	return q.newObjectChanges
}

func (q Query) String() string {
	filter := "<no filter>"
	if q.filter != nil {
		filter = q.filter.String()
	}

	return fmt.Sprintf("Query{%s, %s, newObjectChanges: %t}", filter, q.params, q.newObjectChanges)
}
