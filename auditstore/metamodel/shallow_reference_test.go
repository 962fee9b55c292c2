package metamodel_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
)

type team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type renamedTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func teamClass(t *testing.T) (metamodel.ManagedClass, metamodel.Property) {
	t.Helper()

	class, err := metamodel.NewManagedClass(reflect.TypeOf(team{}))
	require.NoError(t, err)

	idProperty, found := class.FindProperty("id")
	require.True(t, found)

	return class, idProperty
}

func Test_NewShallowReferenceType_ReusesIDProperty_AndProjectsIdentityOnly(t *testing.T) {
	class, idProperty := teamClass(t)

	shallow := metamodel.NewShallowReferenceType(class, idProperty, "Team")

	assert.Equal(t, idProperty, shallow.IDProperty())
	assert.Equal(t, idProperty, shallow.Entity().IDProperty())
	assert.Equal(t, []metamodel.Property{idProperty}, shallow.Properties())
	assert.Equal(t, "Team", shallow.Name())
	assert.Equal(t, metamodel.ShallowReferenceKind, shallow.Kind())
	assert.Equal(t, reflect.TypeOf(team{}), shallow.BaseType())

	_, found := shallow.FindProperty("members")
	assert.False(t, found)

	assert.Len(t, class.Properties(), 3, "the backing class is not changed")
}

func Test_ShallowReferenceType_Equality(t *testing.T) {
	class, idProperty := teamClass(t)
	otherClass, otherIDProperty := teamClass(t)

	a := metamodel.NewShallowReferenceType(class, idProperty, "Team")
	b := metamodel.NewShallowReferenceType(otherClass, otherIDProperty, "Squad")

	assert.True(t, a.Equal(b), "structurally equal backing types yield equal shallow references")
	assert.True(t, b.Equal(a))

	entity := metamodel.NewEntityType(class.CreateShallowReference(idProperty), idProperty, "Team")
	assert.False(t, a.Equal(entity), "an EntityType is never equal to a ShallowReferenceType")

	renamedClass, err := metamodel.NewManagedClass(reflect.TypeOf(renamedTeam{}))
	require.NoError(t, err)
	renamedID, _ := renamedClass.FindProperty("id")

	assert.False(t, a.Equal(metamodel.NewShallowReferenceType(renamedClass, renamedID, "Team")))
}

func Test_ShallowReferenceType_Spawn_KeepsIDProperty(t *testing.T) {
	class, idProperty := teamClass(t)
	shallow := metamodel.NewShallowReferenceType(class, idProperty, "Team")

	renamedClass, err := metamodel.NewManagedClass(reflect.TypeOf(renamedTeam{}))
	require.NoError(t, err)

	spawned := shallow.Spawn(renamedClass, "RenamedTeam")

	spawnedShallow, ok := spawned.(*metamodel.ShallowReferenceType)
	require.True(t, ok)
	assert.Equal(t, idProperty, spawnedShallow.IDProperty())
	assert.Equal(t, "RenamedTeam", spawnedShallow.Name())
	assert.Equal(t, reflect.TypeOf(renamedTeam{}), spawnedShallow.BaseType())
	assert.Equal(t, "Team", shallow.Name(), "spawning does not change the original")
}

func Test_AsEntity(t *testing.T) {
	class, idProperty := teamClass(t)

	entity := metamodel.NewEntityType(class, idProperty, "")
	shallow := metamodel.NewShallowReferenceType(class, idProperty, "")
	valueObject := metamodel.NewValueObjectType(class, "")

	asEntity, ok := metamodel.AsEntity(entity)
	assert.True(t, ok)
	assert.Same(t, entity, asEntity)

	asEntity, ok = metamodel.AsEntity(shallow)
	assert.True(t, ok)
	assert.Same(t, shallow.Entity(), asEntity)

	_, ok = metamodel.AsEntity(valueObject)
	assert.False(t, ok)

	_, ok = metamodel.AsEntity(nil)
	assert.False(t, ok)
}

func Test_EntityType_LocalID(t *testing.T) {
	class, idProperty := teamClass(t)
	entity := metamodel.NewEntityType(class, idProperty, "")

	localID, err := entity.LocalID(team{ID: "fellowship"})
	require.NoError(t, err)
	assert.Equal(t, "fellowship", localID)

	localID, err = entity.LocalID(&team{ID: "rohan"})
	require.NoError(t, err)
	assert.Equal(t, "rohan", localID)

	_, err = entity.LocalID(renamedTeam{ID: "gondor"})
	assert.ErrorIs(t, err, metamodel.ErrNotAnInstanceOfClass)

	_, err = entity.LocalID("not a struct")
	assert.ErrorIs(t, err, metamodel.ErrNotAStruct)
}
