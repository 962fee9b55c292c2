package identity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
)

var (
	ErrNilDTO                 = errors.New("dto must not be nil")
	ErrNilOwner               = errors.New("owner entity type must not be nil")
	ErrNotAnEntity            = errors.New("type is not an entity")
	ErrNotAValueObject        = errors.New("type is not a value object")
	ErrInvalidValueObjectPath = errors.New("value object path is not valid")
)

const pathSeparator = "/"

// TypeResolver resolves Go types to managed types, implemented by metamodel.TypeMapper.
type TypeResolver interface {
	Resolve(t reflect.Type) (metamodel.ManagedType, error)
}

// Factory creates global ids from DTOs and live instances.
//
// It keeps the set of touched value object paths, mapping "OwnerType#path" to the value object type name.
// The set is safe for concurrent use, racing registrations of the same path converge to one value.
type Factory struct {
	types TypeResolver
	paths sync.Map // string -> string
}

func NewFactory(types TypeResolver) *Factory {
	return &Factory{types: types}
}

// CreateFromDTO resolves the types of a DTO and builds the global id it describes.
func (f *Factory) CreateFromDTO(dto DTO) (auditstore.GlobalID, error) {
	switch d := dto.(type) {
	case GlobalIDDTO:
		if d.ID == nil {
			return nil, ErrNilDTO
		}

		return d.ID, nil

	case InstanceIDDTO:
		entity, err := f.entity(d.Type)
		if err != nil {
			return nil, err
		}

		return auditstore.NewInstanceID(entity.Name(), localIDString(d.LocalID)), nil

	case ValueObjectIDDTO:
		owner, err := f.entity(d.OwnerType)
		if err != nil {
			return nil, err
		}

		if err = f.TouchValueObjectFromPath(owner, d.Path); err != nil {
			return nil, err
		}

		valueObjectTypeName, _ := f.ValueObjectTypeName(owner.Name(), d.Path)

		return auditstore.NewValueObjectID(
			valueObjectTypeName,
			auditstore.NewInstanceID(owner.Name(), localIDString(d.OwnerLocalID)),
			d.Path,
		), nil

	case UnboundedValueObjectIDDTO:
		managedType, err := f.resolve(d.Type)
		if err != nil {
			return nil, err
		}

		if managedType.Kind() != metamodel.ValueObjectKind {
			return nil, errors.Join(ErrNotAValueObject, errors.New(managedType.Name()))
		}

		return auditstore.NewUnboundedValueObjectID(managedType.Name()), nil

	default:
		return nil, ErrNilDTO
	}
}

// CreateInstanceID derives the InstanceID of a live Entity instance from its current id property value.
func (f *Factory) CreateInstanceID(instance any) (auditstore.GlobalID, error) {
	if instance == nil {
		return nil, ErrNilDTO
	}

	entity, err := f.entity(reflect.TypeOf(instance))
	if err != nil {
		return nil, err
	}

	localID, err := entity.LocalID(instance)
	if err != nil {
		return nil, err
	}

	return auditstore.NewInstanceID(entity.Name(), localID), nil
}

// TouchValueObjectFromPath registers the value object type found at path below owner.
//
// Path segments name properties, a segment following a slice, array or map property is its index or key,
// e.g. "address", "addresses/0" or "addressByKind/home/geo".
// Touching an already registered path does nothing.
func (f *Factory) TouchValueObjectFromPath(owner *metamodel.EntityType, path string) error {
	if owner == nil {
		return ErrNilOwner
	}

	key := pathKey(owner.Name(), path)
	if _, touched := f.paths.Load(key); touched {
		return nil
	}

	valueObject, err := f.walk(owner, path)
	if err != nil {
		return err
	}

	f.paths.LoadOrStore(key, valueObject.Name())

	return nil
}

// ValueObjectTypeName returns the value object type registered for a path below an owner type.
func (f *Factory) ValueObjectTypeName(ownerTypeName string, path string) (string, bool) {
	typeName, ok := f.paths.Load(pathKey(ownerTypeName, path))
	if !ok {
		return "", false
	}

	return typeName.(string), true //nolint:forcetypeassert
}

func (f *Factory) walk(owner *metamodel.EntityType, path string) (metamodel.ManagedType, error) {
	if path == "" {
		return nil, errors.Join(ErrInvalidValueObjectPath, errors.New("empty path"))
	}

	segments := strings.Split(path, pathSeparator)

	var current metamodel.ManagedType = owner

	for i := 0; i < len(segments); i++ {
		property, found := current.FindProperty(segments[i])
		if !found {
			return nil, errors.Join(
				ErrInvalidValueObjectPath,
				fmt.Errorf("%s has no property %s in path %s", current.Name(), segments[i], path),
			)
		}

		t := metamodel.Dereference(property.Type())

		switch t.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			t = metamodel.Dereference(t.Elem())
			if i+1 < len(segments) {
				i++ // index or key
			}
		default:
		}

		managedType, err := f.types.Resolve(t)
		if err != nil {
			return nil, errors.Join(ErrInvalidValueObjectPath, err)
		}

		if managedType.Kind() != metamodel.ValueObjectKind {
			return nil, errors.Join(
				ErrInvalidValueObjectPath,
				fmt.Errorf("%s in path %s is a %s", managedType.Name(), path, managedType.Kind()),
			)
		}

		current = managedType
	}

	return current, nil
}

func (f *Factory) resolve(t reflect.Type) (metamodel.ManagedType, error) {
	if t == nil {
		return nil, ErrNilDTO
	}

	return f.types.Resolve(t)
}

func (f *Factory) entity(t reflect.Type) (*metamodel.EntityType, error) {
	managedType, err := f.resolve(t)
	if err != nil {
		return nil, err
	}

	entity, ok := metamodel.AsEntity(managedType)
	if !ok {
		return nil, errors.Join(ErrNotAnEntity, errors.New(managedType.Name()))
	}

	return entity, nil
}

func pathKey(ownerTypeName string, path string) string {
	return ownerTypeName + "#" + path
}

func localIDString(localID any) string {
	v := reflect.ValueOf(localID)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}

	if !v.IsValid() {
		return ""
	}

	return fmt.Sprint(v.Interface())
}
