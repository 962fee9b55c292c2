package commit

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
)

var (
	ErrNilTypeResolver         = errors.New("type resolver must not be nil")
	ErrNilRepository           = errors.New("snapshot repository must not be nil")
	ErrNilClock                = errors.New("clock must not be nil")
	ErrNilEntity               = errors.New("entity must not be nil")
	ErrEmptyAuthor             = errors.New("commit author must not be empty")
	ErrNotAnEntity             = errors.New("committed object is not an Entity")
	ErrNothingToDelete         = errors.New("object has no snapshot to delete")
	ErrUnsupportedPropertyType = errors.New("property type can not be snapshotted")
	ErrObjectGraphTooDeep      = errors.New("value object graph is too deep")
)

const maxValueObjectDepth = 32

const (
	logMsgCommitted       = "auditstore: commit persisted"
	logMsgNothingChanged  = "auditstore: nothing changed, no commit persisted"
	logMsgShallowDeleted  = "auditstore: shallow delete persisted"
	logAttrCommitID       = "commit_id"
	logAttrAuthor         = "author"
	logAttrGlobalID       = "global_id"
	logAttrSnapshotCount  = "snapshot_count"
	logAttrDurationMS     = "duration_ms"
	pathSeparator         = "/"
	emptyState            = "{}"
	unsupportedKindFormat = "%s of kind %s"
)

// TypeResolver maps Go types to managed types.
type TypeResolver interface {
	Resolve(t reflect.Type) (metamodel.ManagedType, error)
}

// Commit is the result of a Committer operation, Snapshots is empty when nothing changed.
type Commit struct {
	Metadata  auditstore.CommitMetadata
	Snapshots []auditstore.CdoSnapshot
}

// Committer snapshots Entities together with the value objects reachable from them.
type Committer struct {
	types  TypeResolver
	repo   history.SnapshotRepository
	clock  func() time.Time
	logger auditstore.Logger
}

// Option defines a functional option for configuring the Committer.
type Option func(*Committer) error

// WithLogger sets the logger for the Committer.
func WithLogger(logger auditstore.Logger) Option {
	return func(c *Committer) error {
		c.logger = logger
		return nil
	}
}

// WithClock sets the source of commit dates, time.Now by default.
func WithClock(clock func() time.Time) Option {
	return func(c *Committer) error {
		if clock == nil {
			return ErrNilClock
		}

		c.clock = clock

		return nil
	}
}

// NewCommitter creates a Committer.
func NewCommitter(types TypeResolver, repo history.SnapshotRepository, options ...Option) (*Committer, error) {
	if types == nil {
		return nil, ErrNilTypeResolver
	}

	if repo == nil {
		return nil, ErrNilRepository
	}

	committer := &Committer{
		types: types,
		repo:  repo,
		clock: time.Now,
	}

	for _, option := range options {
		if err := option(committer); err != nil {
			return nil, err
		}
	}

	return committer, nil
}

// Commit snapshots the Entity and its value objects.
//
// Value objects get ValueObjectIDs owned by the Entity, their path is the property path,
// collection elements append the index or map key. References to other Entities and
// shallow references are stored as global id values and are not traversed.
// Objects whose state equals their latest snapshot are not snapshotted again.
func (c *Committer) Commit(ctx context.Context, author string, entity any, properties map[string]string) (Commit, error) {
	start := time.Now()

	root, rootID, err := c.rootOf(author, entity)
	if err != nil {
		return Commit{}, err
	}

	states := make([]objectState, 0, 1)
	collector := &stateCollector{types: c.types, rootID: rootID, states: &states}

	rootState, err := collector.stateOf(reflect.ValueOf(entity), root, "", 0)
	if err != nil {
		return Commit{}, err
	}

	states = append([]objectState{{id: rootID, state: rootState}}, states...)
	metadata := c.metadata(author, properties)

	snapshots, err := c.snapshotsOf(ctx, states, metadata)
	if err != nil {
		return Commit{}, err
	}

	if len(snapshots) == 0 {
		if c.logger != nil {
			c.logger.Info(logMsgNothingChanged, logAttrGlobalID, rootID.Value())
		}

		return Commit{Metadata: metadata}, nil
	}

	if err = c.repo.Persist(ctx, snapshots...); err != nil {
		return Commit{}, err
	}

	if c.logger != nil {
		c.logger.Info(
			logMsgCommitted,
			logAttrCommitID, metadata.ID.String(),
			logAttrAuthor, author,
			logAttrGlobalID, rootID.Value(),
			logAttrSnapshotCount, len(snapshots),
			logAttrDurationMS, toMilliseconds(time.Since(start)),
		)
	}

	return Commit{Metadata: metadata, Snapshots: snapshots}, nil
}

// CommitShallowDelete marks the Entity as removed with a TERMINAL snapshot, its value objects are left untouched.
func (c *Committer) CommitShallowDelete(
	ctx context.Context,
	author string,
	entity any,
	properties map[string]string,
) (Commit, error) {

	_, rootID, err := c.rootOf(author, entity)
	if err != nil {
		return Commit{}, err
	}

	latest, err := c.repo.GetLatest(ctx, rootID)
	if err != nil {
		return Commit{}, err
	}

	if latest == nil || latest.IsTerminal() {
		return Commit{}, errors.Join(ErrNothingToDelete, errors.New(rootID.Value()))
	}

	metadata := c.metadata(author, properties)

	terminal, err := auditstore.BuildCdoSnapshot(
		rootID,
		latest.Version+1,
		auditstore.TerminalSnapshot,
		json.RawMessage(emptyState),
		[]string{},
		metadata,
	)
	if err != nil {
		return Commit{}, err
	}

	if err = c.repo.Persist(ctx, terminal); err != nil {
		return Commit{}, err
	}

	if c.logger != nil {
		c.logger.Info(logMsgShallowDeleted, logAttrCommitID, metadata.ID.String(), logAttrGlobalID, rootID.Value())
	}

	return Commit{Metadata: metadata, Snapshots: []auditstore.CdoSnapshot{terminal}}, nil
}

func (c *Committer) rootOf(author string, entity any) (*metamodel.EntityType, auditstore.InstanceID, error) {
	if author == "" {
		return nil, auditstore.InstanceID{}, ErrEmptyAuthor
	}

	v := reflect.ValueOf(entity)
	if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		return nil, auditstore.InstanceID{}, ErrNilEntity
	}

	managedType, err := c.types.Resolve(v.Type())
	if err != nil {
		return nil, auditstore.InstanceID{}, err
	}

	root, ok := metamodel.AsEntity(managedType)
	if !ok {
		return nil, auditstore.InstanceID{}, errors.Join(ErrNotAnEntity, errors.New(managedType.Name()))
	}

	localID, err := root.LocalID(entity)
	if err != nil {
		return nil, auditstore.InstanceID{}, err
	}

	return root, auditstore.NewInstanceID(root.Name(), localID), nil
}

func (c *Committer) metadata(author string, properties map[string]string) auditstore.CommitMetadata {
	return auditstore.CommitMetadata{
		ID:         uuid.New(),
		Author:     author,
		CommitDate: c.clock().UTC(),
		Properties: maps.Clone(properties),
	}
}

// snapshotsOf compares each state with the latest snapshot of its object.
func (c *Committer) snapshotsOf(
	ctx context.Context,
	states []objectState,
	metadata auditstore.CommitMetadata,
) ([]auditstore.CdoSnapshot, error) {

	snapshots := make([]auditstore.CdoSnapshot, 0, len(states))

	for _, object := range states {
		latest, err := c.repo.GetLatest(ctx, object.id)
		if err != nil {
			return nil, err
		}

		state, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(object.state)
		if err != nil {
			return nil, errors.Join(ErrUnsupportedPropertyType, err)
		}

		version := auditstore.VersionUint(1)
		snapshotType := auditstore.InitialSnapshot
		var changed []string

		switch {
		case latest == nil:
			changed = initialProperties(object.state)

		case latest.IsTerminal():
			version = latest.Version + 1
			changed = initialProperties(object.state)

		default:
			previous, decodeErr := latest.PropertyValues()
			if decodeErr != nil {
				return nil, decodeErr
			}

			current, decodeErr := decoded(state)
			if decodeErr != nil {
				return nil, decodeErr
			}

			changed = changedProperties(previous, current)
			if len(changed) == 0 {
				continue
			}

			version = latest.Version + 1
			snapshotType = auditstore.UpdateSnapshot
		}

		snapshot, err := auditstore.BuildCdoSnapshot(object.id, version, snapshotType, state, changed, metadata)
		if err != nil {
			return nil, err
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

/***** State collection *****/

type objectState struct {
	id    auditstore.GlobalID
	state map[string]any
}

type stateCollector struct {
	types  TypeResolver
	rootID auditstore.InstanceID
	states *[]objectState
}

// stateOf renders the properties of a managed object, collecting nested value objects on the way.
func (sc *stateCollector) stateOf(
	v reflect.Value,
	managedType metamodel.ManagedType,
	path string,
	depth int,
) (map[string]any, error) {

	if depth > maxValueObjectDepth {
		return nil, errors.Join(ErrObjectGraphTooDeep, errors.New(path))
	}

	instance := v.Interface()
	state := make(map[string]any, len(managedType.Properties()))

	for _, property := range managedType.Properties() {
		value, err := property.Get(instance)
		if err != nil {
			return nil, err
		}

		rendered, err := sc.valueOf(reflect.ValueOf(value), join(path, property.Name()), depth)
		if err != nil {
			return nil, err
		}

		state[property.Name()] = rendered
	}

	return state, nil
}

func (sc *stateCollector) valueOf(v reflect.Value, path string, depth int) (any, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	if !v.IsValid() {
		return nil, nil
	}

	if isMarshaler(v) {
		return marshaled(v)
	}

	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), nil

	case reflect.Struct:
		return sc.structValueOf(v, path, depth)

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}

		elements := make([]any, 0, v.Len())
		for i := range v.Len() {
			element, err := sc.valueOf(v.Index(i), join(path, strconv.Itoa(i)), depth)
			if err != nil {
				return nil, err
			}
			elements = append(elements, element)
		}

		return elements, nil

	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}

		keys := make(map[string]reflect.Value, v.Len())
		for _, key := range v.MapKeys() {
			keys[fmt.Sprint(key.Interface())] = key
		}

		// sorted, so that value objects in maps are snapshotted in a stable order
		entries := make(map[string]any, v.Len())
		for _, key := range slices.Sorted(maps.Keys(keys)) {
			entry, err := sc.valueOf(v.MapIndex(keys[key]), join(path, key), depth)
			if err != nil {
				return nil, err
			}
			entries[key] = entry
		}

		return entries, nil

	default:
		return nil, errors.Join(ErrUnsupportedPropertyType, fmt.Errorf(unsupportedKindFormat, path, v.Kind()))
	}
}

// structValueOf renders a reference to another Entity as its global id, and a value object as its own id
// after collecting its state.
func (sc *stateCollector) structValueOf(v reflect.Value, path string, depth int) (any, error) {
	managedType, err := sc.types.Resolve(v.Type())
	if err != nil {
		return nil, err
	}

	if entity, ok := metamodel.AsEntity(managedType); ok {
		localID, idErr := entity.LocalID(v.Interface())
		if idErr != nil {
			return nil, idErr
		}

		return auditstore.NewInstanceID(entity.Name(), localID).Value(), nil
	}

	id := auditstore.NewValueObjectID(managedType.Name(), sc.rootID, path)

	state, err := sc.stateOf(v, managedType, path, depth+1)
	if err != nil {
		return nil, err
	}

	*sc.states = append(*sc.states, objectState{id: id, state: state})

	return id.Value(), nil
}

/***** Helpers *****/

func join(path string, segment string) string {
	if path == "" {
		return segment
	}

	return path + pathSeparator + segment
}

func isMarshaler(v reflect.Value) bool {
	if !v.CanInterface() {
		return false
	}

	switch v.Interface().(type) {
	case json.Marshaler, encoding.TextMarshaler:
		return true
	default:
		return false
	}
}

func marshaled(v reflect.Value) (any, error) {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v.Interface())
	if err != nil {
		return nil, errors.Join(ErrUnsupportedPropertyType, err)
	}

	var value any
	if err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &value); err != nil {
		return nil, errors.Join(ErrUnsupportedPropertyType, err)
	}

	return value, nil
}

func decoded(state []byte) (map[string]any, error) {
	values := make(map[string]any)

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(state, &values); err != nil {
		return nil, errors.Join(auditstore.ErrDecodingSnapshotStateFailed, err)
	}

	return values, nil
}

func initialProperties(state map[string]any) []string {
	changed := make([]string, 0, len(state))
	for property, value := range state {
		if value != nil {
			changed = append(changed, property)
		}
	}
	slices.Sort(changed)

	return changed
}

func changedProperties(previous map[string]any, current map[string]any) []string {
	changed := make([]string, 0)

	for property, value := range current {
		if !reflect.DeepEqual(previous[property], value) {
			changed = append(changed, property)
		}
	}

	for property := range previous {
		if _, inCurrent := current[property]; !inCurrent {
			changed = append(changed, property)
		}
	}

	slices.Sort(changed)

	return changed
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
