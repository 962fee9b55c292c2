package metamodel

import (
	"errors"
	"reflect"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNilPrototype          = errors.New("prototype must not be nil")
	ErrEmptyIDPropertyName   = errors.New("id property name must not be empty")
	ErrEmptyTypeName         = errors.New("type name must not be empty")
	ErrConflictingDefinition = errors.New("type is already defined")
	ErrPrototypeCycle        = errors.New("prototypes must not form a cycle")
	ErrDuplicateTypeName     = errors.New("type name is used by another type")
)

type definition struct {
	kind       TypeKind
	idProperty string
}

// Option defines a functional option for configuring the TypeMapper.
type Option func(*TypeMapper) error

// TypeMapper resolves Go types to ManagedTypes and caches the result for the lifetime of the process.
//
// Definitions are explicit, unregistered struct types are resolved as:
//   - Entity, if a field is tagged with `audit:"id"`
//   - ValueObject otherwise
//
// Resolve is safe for concurrent use, racing first resolutions of a type converge to one cached value.
type TypeMapper struct {
	definitions map[reflect.Type]definition
	typeNames   map[reflect.Type]string
	prototypes  map[reflect.Type]reflect.Type
	cache       sync.Map // reflect.Type -> ManagedType
	resolving   singleflight.Group
}

// NewTypeMapper creates a TypeMapper with the given definitions.
func NewTypeMapper(options ...Option) (*TypeMapper, error) {
	mapper := &TypeMapper{
		definitions: make(map[reflect.Type]definition),
		typeNames:   make(map[reflect.Type]string),
		prototypes:  make(map[reflect.Type]reflect.Type),
	}

	for _, option := range options {
		if err := option(mapper); err != nil {
			return nil, err
		}
	}

	if err := mapper.checkTypeNames(); err != nil {
		return nil, err
	}

	for derived := range mapper.prototypes {
		seen := map[reflect.Type]bool{derived: true}
		for next, ok := mapper.prototypes[derived]; ok; next, ok = mapper.prototypes[next] {
			if seen[next] {
				return nil, errors.Join(ErrPrototypeCycle, errors.New(derived.String()))
			}
			seen[next] = true
		}
	}

	return mapper, nil
}

// checkTypeNames rejects two configured types sharing a global id type name.
func (m *TypeMapper) checkTypeNames() error {
	owners := make(map[string]reflect.Type)

	claim := func(t reflect.Type) error {
		name := m.typeNames[t]
		if name == "" {
			name = t.Name()
		}

		if owner, taken := owners[name]; taken && owner != t {
			return errors.Join(ErrDuplicateTypeName, errors.New(name+": "+owner.String()+", "+t.String()))
		}
		owners[name] = t

		return nil
	}

	for t := range m.typeNames {
		if err := claim(t); err != nil {
			return err
		}
	}

	for t := range m.definitions {
		if err := claim(t); err != nil {
			return err
		}
	}

	for t := range m.prototypes {
		if err := claim(t); err != nil {
			return err
		}
	}

	return nil
}

// WithEntity defines the type of prototype as an Entity identified by the given property (name or field name).
func WithEntity(prototype any, idProperty string) Option {
	return withDefinition(prototype, definition{kind: EntityKind, idProperty: idProperty})
}

// WithShallowReference defines the type of prototype as a ShallowReference identified by the given property.
func WithShallowReference(prototype any, idProperty string) Option {
	return withDefinition(prototype, definition{kind: ShallowReferenceKind, idProperty: idProperty})
}

// WithValueObject defines the type of prototype as a ValueObject.
func WithValueObject(prototype any) Option {
	return withDefinition(prototype, definition{kind: ValueObjectKind})
}

// WithTypeName overrides the name used for the type of prototype in global ids.
func WithTypeName(prototype any, typeName string) Option {
	return func(m *TypeMapper) error {
		t, err := prototypeType(prototype)
		if err != nil {
			return err
		}

		if typeName == "" {
			return ErrEmptyTypeName
		}

		m.typeNames[t] = typeName

		return nil
	}
}

// WithPrototype resolves the type of derived by respawning the managed type of prototype over the derived class.
func WithPrototype(derived any, prototype any) Option {
	return func(m *TypeMapper) error {
		derivedType, err := prototypeType(derived)
		if err != nil {
			return err
		}

		baseType, err := prototypeType(prototype)
		if err != nil {
			return err
		}

		if derivedType == baseType {
			return errors.Join(ErrPrototypeCycle, errors.New(derivedType.String()))
		}

		m.prototypes[derivedType] = baseType

		return nil
	}
}

func withDefinition(prototype any, def definition) Option {
	return func(m *TypeMapper) error {
		t, err := prototypeType(prototype)
		if err != nil {
			return err
		}

		if def.kind != ValueObjectKind && def.idProperty == "" {
			return ErrEmptyIDPropertyName
		}

		if _, exists := m.definitions[t]; exists {
			return errors.Join(ErrConflictingDefinition, errors.New(t.String()))
		}

		m.definitions[t] = def

		return nil
	}
}

func prototypeType(prototype any) (reflect.Type, error) {
	if prototype == nil {
		return nil, ErrNilPrototype
	}

	t, ok := prototype.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(prototype)
	}

	t = Dereference(t)
	if t.Kind() != reflect.Struct {
		return nil, errors.Join(ErrNotManagedType, errors.New(t.String()))
	}

	return t, nil
}

// Resolve returns the ManagedType of a Go type, pointer types resolve to the type they point to.
func (m *TypeMapper) Resolve(t reflect.Type) (ManagedType, error) {
	t = Dereference(t)
	if t == nil {
		return nil, ErrNotManagedType
	}

	if cached, ok := m.cache.Load(t); ok {
		return cached.(ManagedType), nil //nolint:forcetypeassert
	}

	resolved, err, _ := m.resolving.Do(t.PkgPath()+"."+t.String(), func() (any, error) {
		return m.createAndStore(t)
	})
	if err != nil {
		return nil, err
	}

	managedType := resolved.(ManagedType) //nolint:forcetypeassert

	// distinct types declared in different function scopes share the same key
	if managedType.BaseType() != t {
		return m.createAndStore(t)
	}

	return managedType, nil
}

func (m *TypeMapper) createAndStore(t reflect.Type) (ManagedType, error) {
	managedType, err := m.create(t)
	if err != nil {
		return nil, err
	}

	actual, _ := m.cache.LoadOrStore(t, managedType)

	return actual.(ManagedType), nil //nolint:forcetypeassert
}

// ResolveInstance returns the ManagedType of the dynamic type of an instance.
func (m *TypeMapper) ResolveInstance(instance any) (ManagedType, error) {
	if instance == nil {
		return nil, ErrNotManagedType
	}

	return m.Resolve(reflect.TypeOf(instance))
}

func (m *TypeMapper) create(t reflect.Type) (ManagedType, error) {
	class, err := NewManagedClass(t)
	if err != nil {
		return nil, err
	}

	typeName := m.typeNames[t]

	if prototype, ok := m.prototypes[t]; ok {
		prototypeManagedType, resolveErr := m.Resolve(prototype)
		if resolveErr != nil {
			return nil, resolveErr
		}

		return prototypeManagedType.Spawn(class, typeName), nil
	}

	def, defined := m.definitions[t]
	if !defined {
		if idProperty, tagged := class.taggedIDProperty(); tagged {
			return NewEntityType(class, idProperty, typeName), nil
		}

		return NewValueObjectType(class, typeName), nil
	}

	switch def.kind {
	case EntityKind, ShallowReferenceKind:
		idProperty, found := class.FindProperty(def.idProperty)
		if !found {
			return nil, errors.Join(ErrIDPropertyNotFound, errors.New(def.idProperty+" in "+t.String()))
		}

		if def.kind == ShallowReferenceKind {
			return NewShallowReferenceType(class, idProperty, typeName), nil
		}

		return NewEntityType(class, idProperty, typeName), nil

	default:
		return NewValueObjectType(class, typeName), nil
	}
}
