package identity_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/identity"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
	"github.com/AntonStoeckl/auditstore-go/testutil/fixtures"
)

func newFactory(t *testing.T) (*identity.Factory, *metamodel.TypeMapper) {
	t.Helper()

	mapper, err := fixtures.NewTypeMapper()
	require.NoError(t, err)

	return identity.NewFactory(mapper), mapper
}

func personEntity(t *testing.T, mapper *metamodel.TypeMapper) *metamodel.EntityType {
	t.Helper()

	managedType, err := mapper.Resolve(reflect.TypeOf(fixtures.Person{}))
	require.NoError(t, err)

	entity, ok := metamodel.AsEntity(managedType)
	require.True(t, ok)

	return entity
}

//nolint:funlen
func Test_Factory_CreateFromDTO(t *testing.T) {
	factory, _ := newFactory(t)
	frodoID := auditstore.NewInstanceID(fixtures.PersonTypeName, "frodo")

	tests := []struct {
		name     string
		dto      identity.DTO
		expected auditstore.GlobalID
	}{
		{
			name:     "instance id",
			dto:      identity.InstanceIDOf(fixtures.Person{}, "frodo"),
			expected: frodoID,
		},
		{
			name:     "instance id of pointer prototype and numeric local id",
			dto:      identity.InstanceIDOf(&fixtures.Person{}, 42),
			expected: auditstore.NewInstanceID(fixtures.PersonTypeName, "42"),
		},
		{
			name:     "shallow reference instance id",
			dto:      identity.InstanceIDOf(fixtures.Team{}, "fellowship"),
			expected: auditstore.NewInstanceID(fixtures.TeamTypeName, "fellowship"),
		},
		{
			name:     "value object id",
			dto:      identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "address"),
			expected: auditstore.NewValueObjectID(fixtures.AddressTypeName, frodoID, "address"),
		},
		{
			name:     "nested value object id in a list",
			dto:      identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "addresses/0/geo"),
			expected: auditstore.NewValueObjectID(fixtures.GeoTypeName, frodoID, "addresses/0/geo"),
		},
		{
			name:     "value object id in a map",
			dto:      identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "addressByKind/holiday"),
			expected: auditstore.NewValueObjectID(fixtures.AddressTypeName, frodoID, "addressByKind/holiday"),
		},
		{
			name:     "unbounded value object id",
			dto:      identity.UnboundedValueObjectIDOf(fixtures.Address{}),
			expected: auditstore.NewUnboundedValueObjectID(fixtures.AddressTypeName),
		},
		{
			name:     "known global id",
			dto:      identity.GlobalIDDTO{ID: frodoID},
			expected: frodoID,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := factory.CreateFromDTO(tc.dto)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}
}

func Test_Factory_CreateFromDTO_Failures(t *testing.T) {
	factory, _ := newFactory(t)

	tests := []struct {
		name        string
		dto         identity.DTO
		expectedErr error
	}{
		{name: "nil dto", dto: nil, expectedErr: identity.ErrNilDTO},
		{name: "nil global id", dto: identity.GlobalIDDTO{}, expectedErr: identity.ErrNilDTO},
		{name: "nil type", dto: identity.InstanceIDDTO{LocalID: "1"}, expectedErr: identity.ErrNilDTO},
		{name: "value object as instance", dto: identity.InstanceIDOf(fixtures.Address{}, "1"), expectedErr: identity.ErrNotAnEntity},
		{name: "entity as unbounded value object", dto: identity.UnboundedValueObjectIDOf(fixtures.Person{}), expectedErr: identity.ErrNotAValueObject},
		{name: "unknown path", dto: identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "nowhere"), expectedErr: identity.ErrInvalidValueObjectPath},
		{name: "path to scalar", dto: identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "name"), expectedErr: identity.ErrInvalidValueObjectPath},
		{name: "path to entity", dto: identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "boss"), expectedErr: identity.ErrInvalidValueObjectPath},
		{name: "path to shallow reference", dto: identity.ValueObjectIDOf(fixtures.Person{}, "frodo", "team"), expectedErr: identity.ErrInvalidValueObjectPath},
		{name: "empty path", dto: identity.ValueObjectIDOf(fixtures.Person{}, "frodo", ""), expectedErr: identity.ErrInvalidValueObjectPath},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.CreateFromDTO(tc.dto)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func Test_Factory_CreateInstanceID_MatchesDTO(t *testing.T) {
	factory, _ := newFactory(t)
	frodo := fixtures.Frodo()

	fromInstance, err := factory.CreateInstanceID(frodo)
	require.NoError(t, err)

	fromPointer, err := factory.CreateInstanceID(&frodo)
	require.NoError(t, err)

	fromDTO, err := factory.CreateFromDTO(identity.InstanceIDOf(fixtures.Person{}, frodo.Login))
	require.NoError(t, err)

	assert.Equal(t, fromDTO, fromInstance)
	assert.Equal(t, fromDTO, fromPointer)

	_, err = factory.CreateInstanceID(fixtures.Address{})
	assert.ErrorIs(t, err, identity.ErrNotAnEntity)

	_, err = factory.CreateInstanceID(nil)
	assert.ErrorIs(t, err, identity.ErrNilDTO)
}

func Test_Factory_TouchValueObjectFromPath_IsIdempotent(t *testing.T) {
	factory, mapper := newFactory(t)
	owner := personEntity(t, mapper)

	_, known := factory.ValueObjectTypeName(fixtures.PersonTypeName, "address/geo")
	assert.False(t, known)

	require.NoError(t, factory.TouchValueObjectFromPath(owner, "address/geo"))
	require.NoError(t, factory.TouchValueObjectFromPath(owner, "address/geo"))

	typeName, known := factory.ValueObjectTypeName(fixtures.PersonTypeName, "address/geo")
	assert.True(t, known)
	assert.Equal(t, fixtures.GeoTypeName, typeName)

	assert.ErrorIs(t, factory.TouchValueObjectFromPath(nil, "address"), identity.ErrNilOwner)
}

func Test_Factory_TouchValueObjectFromPath_Concurrently(t *testing.T) {
	factory, mapper := newFactory(t)
	owner := personEntity(t, mapper)

	wg := sync.WaitGroup{}
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, factory.TouchValueObjectFromPath(owner, "addresses/1"))
		}()
	}
	wg.Wait()

	typeName, known := factory.ValueObjectTypeName(fixtures.PersonTypeName, "addresses/1")
	assert.True(t, known)
	assert.Equal(t, fixtures.AddressTypeName, typeName)
}
