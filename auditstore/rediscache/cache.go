package rediscache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
	"github.com/AntonStoeckl/auditstore-go/auditstore/history"
)

const (
	defaultKeyPrefix  = "auditstore:"
	defaultTTL        = 10 * time.Minute
	keyKindLatest     = "latest:"
	keyKindVersion    = "version:"
	keyKindFence      = "fence:"
	logMsgCacheRead   = "auditstore cache: read failed, falling back to repository"
	logMsgCacheWrite  = "auditstore cache: write failed"
	logMsgCacheDelete = "auditstore cache: invalidation failed"
	logMsgCacheDecode = "auditstore cache: dropping undecodable entry"
	logAttrError      = "error"
	logAttrKey        = "key"
	logAttrGlobalID   = "global_id"
	labelOperation    = "operation"
	operationLatest   = "latest"
	operationVersion  = "snapshot"
	metricCacheHits   = "auditstore_cache_hits_total"
	metricCacheMisses = "auditstore_cache_misses_total"
)

var (
	ErrNilRepository  = errors.New("snapshot repository must not be nil")
	ErrNilRedisClient = errors.New("redis client must not be nil")
	ErrInvalidTTL     = errors.New("cache ttl must be greater than 0")
)

// errFenceMoved aborts a latest write that raced with a Persist of the same object.
var errFenceMoved = errors.New("fence moved")

var _ history.SnapshotRepository = (*SnapshotCache)(nil)

// SnapshotCache decorates a snapshot repository with a Redis cache for single-object lookups.
//
// Versioned snapshots never change once persisted, so GetSnapshot is always served from the cache.
// GetLatest is served from the cache only for reads marked with auditstore.WithEventualConsistency;
// strongly consistent reads go to the repository and refresh the cached entry.
// Persist invalidates the latest entries of all persisted objects and moves their fence,
// a per-object counter. A latest entry read from the repository is only written while the fence
// still has the value seen before that read, so a concurrent Persist can not be overwritten
// with the snapshot it replaced.
// List reads are passed through unchanged.
type SnapshotCache struct {
	repository       history.SnapshotRepository
	client           redis.UniversalClient
	keyPrefix        string
	ttl              time.Duration
	logger           auditstore.Logger
	metricsCollector auditstore.MetricsCollector
}

// Option defines a functional option for configuring the SnapshotCache.
type Option func(*SnapshotCache) error

// WithKeyPrefix sets the prefix of all keys written by the cache.
func WithKeyPrefix(prefix string) Option {
	return func(c *SnapshotCache) error {
		c.keyPrefix = prefix
		return nil
	}
}

// WithTTL sets the expiry of cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *SnapshotCache) error {
		if ttl <= 0 {
			return ErrInvalidTTL
		}

		c.ttl = ttl

		return nil
	}
}

// WithLogger sets the logger that receives cache failures at warn level.
func WithLogger(logger auditstore.Logger) Option {
	return func(c *SnapshotCache) error {
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector that counts cache hits and misses.
func WithMetrics(collector auditstore.MetricsCollector) Option {
	return func(c *SnapshotCache) error {
		c.metricsCollector = collector
		return nil
	}
}

// NewSnapshotCache wraps the repository with a cache backed by the Redis client.
func NewSnapshotCache(
	repository history.SnapshotRepository,
	client redis.UniversalClient,
	options ...Option,
) (*SnapshotCache, error) {

	if repository == nil {
		return nil, ErrNilRepository
	}

	if client == nil {
		return nil, ErrNilRedisClient
	}

	cache := &SnapshotCache{
		repository: repository,
		client:     client,
		keyPrefix:  defaultKeyPrefix,
		ttl:        defaultTTL,
	}

	for _, option := range options {
		if err := option(cache); err != nil {
			return nil, err
		}
	}

	return cache, nil
}

/***** Cached reads *****/

func (c *SnapshotCache) GetLatest(ctx context.Context, id auditstore.GlobalID) (*auditstore.CdoSnapshot, error) {
	key := c.latestKey(id)

	if auditstore.GetConsistencyLevel(ctx) == auditstore.EventualConsistency {
		if cached, hit := c.read(ctx, key, id); hit {
			c.count(ctx, metricCacheHits, operationLatest)
			return cached, nil
		}
	}

	c.count(ctx, metricCacheMisses, operationLatest)

	fence, fenceRead := c.readFence(ctx, id)

	latest, err := c.repository.GetLatest(ctx, id)
	if err != nil || latest == nil {
		return latest, err
	}

	if fenceRead {
		c.writeLatest(ctx, key, fence, *latest)
	}

	return latest, nil
}

func (c *SnapshotCache) GetSnapshot(
	ctx context.Context,
	id auditstore.GlobalID,
	version auditstore.VersionUint,
) (*auditstore.CdoSnapshot, error) {

	key := c.versionKey(id, version)

	if cached, hit := c.read(ctx, key, id); hit && cached.Version == version {
		c.count(ctx, metricCacheHits, operationVersion)
		return cached, nil
	}

	c.count(ctx, metricCacheMisses, operationVersion)

	snapshot, err := c.repository.GetSnapshot(ctx, id, version)
	if err != nil || snapshot == nil {
		return snapshot, err
	}

	c.write(ctx, key, *snapshot)

	return snapshot, nil
}

/***** Pass-through reads *****/

func (c *SnapshotCache) GetSnapshots(ctx context.Context, params auditstore.QueryParams) ([]auditstore.CdoSnapshot, error) {
	return c.repository.GetSnapshots(ctx, params)
}

func (c *SnapshotCache) GetStateHistory(
	ctx context.Context,
	id auditstore.GlobalID,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return c.repository.GetStateHistory(ctx, id, params)
}

func (c *SnapshotCache) GetStateHistoryForTypes(
	ctx context.Context,
	typeNames []string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return c.repository.GetStateHistoryForTypes(ctx, typeNames, params)
}

func (c *SnapshotCache) GetValueObjectStateHistory(
	ctx context.Context,
	ownerTypeName string,
	path string,
	params auditstore.QueryParams,
) ([]auditstore.CdoSnapshot, error) {

	return c.repository.GetValueObjectStateHistory(ctx, ownerTypeName, path, params)
}

/***** Writes *****/

// Persist stores the snapshots in the repository and then drops the cached latest snapshots of their objects.
// A failed invalidation is logged, the entries expire with their TTL.
func (c *SnapshotCache) Persist(ctx context.Context, snapshots ...auditstore.CdoSnapshot) error {
	if err := c.repository.Persist(ctx, snapshots...); err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	invalidated := make(map[string]struct{}, len(snapshots))

	for _, snapshot := range snapshots {
		id := snapshot.GlobalID.Value()
		if _, done := invalidated[id]; done {
			continue
		}
		invalidated[id] = struct{}{}

		fenceKey := c.fenceKey(snapshot.GlobalID)
		pipe.Incr(ctx, fenceKey)
		pipe.Expire(ctx, fenceKey, c.ttl)
		pipe.Del(ctx, c.latestKey(snapshot.GlobalID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.warn(logMsgCacheDelete, logAttrError, err.Error())
	}

	return nil
}

/***** Helpers *****/

// read returns the cached snapshot at key if it belongs to id.
// Hashed keys can collide, so an entry of another object counts as a miss.
func (c *SnapshotCache) read(ctx context.Context, key string, id auditstore.GlobalID) (*auditstore.CdoSnapshot, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(logMsgCacheRead, logAttrKey, key, logAttrError, err.Error())
		}

		return nil, false
	}

	snapshot, decodeErr := auditstore.UnmarshalSnapshot(data)
	if decodeErr != nil {
		c.warn(logMsgCacheDecode, logAttrKey, key, logAttrError, decodeErr.Error())
		_ = c.client.Del(ctx, key).Err()

		return nil, false
	}

	if snapshot.GlobalID.Value() != id.Value() {
		return nil, false
	}

	return &snapshot, true
}

func (c *SnapshotCache) write(ctx context.Context, key string, snapshot auditstore.CdoSnapshot) {
	data, err := auditstore.MarshalSnapshot(snapshot)
	if err != nil {
		c.warn(logMsgCacheWrite, logAttrGlobalID, snapshot.GlobalID.Value(), logAttrError, err.Error())
		return
	}

	if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
		c.warn(logMsgCacheWrite, logAttrKey, key, logAttrError, setErr.Error())
	}
}

// readFence returns the fence of id, "" if there is none yet; ok is false if redis failed.
func (c *SnapshotCache) readFence(ctx context.Context, id auditstore.GlobalID) (fence string, ok bool) {
	fence, err := c.client.Get(ctx, c.fenceKey(id)).Result()
	switch {
	case err == nil:
		return fence, true
	case errors.Is(err, redis.Nil):
		return "", true
	default:
		c.warn(logMsgCacheRead, logAttrKey, c.fenceKey(id), logAttrError, err.Error())
		return "", false
	}
}

// writeLatest stores the latest snapshot if the fence of its object still equals fence.
func (c *SnapshotCache) writeLatest(ctx context.Context, key string, fence string, snapshot auditstore.CdoSnapshot) {
	data, err := auditstore.MarshalSnapshot(snapshot)
	if err != nil {
		c.warn(logMsgCacheWrite, logAttrGlobalID, snapshot.GlobalID.Value(), logAttrError, err.Error())
		return
	}

	fenceKey := c.fenceKey(snapshot.GlobalID)

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, getErr := tx.Get(ctx, fenceKey).Result()
		if getErr != nil && !errors.Is(getErr, redis.Nil) {
			return getErr
		}

		if current != fence {
			return errFenceMoved
		}

		_, pipeErr := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, c.ttl)
			return nil
		})

		return pipeErr
	}, fenceKey)

	switch {
	case err == nil, errors.Is(err, errFenceMoved), errors.Is(err, redis.TxFailedErr):
	default:
		c.warn(logMsgCacheWrite, logAttrKey, key, logAttrError, err.Error())
	}
}

func (c *SnapshotCache) latestKey(id auditstore.GlobalID) string {
	return c.keyPrefix + keyKindLatest + hashGlobalID(id)
}

func (c *SnapshotCache) versionKey(id auditstore.GlobalID, version auditstore.VersionUint) string {
	return c.keyPrefix + keyKindVersion + hashGlobalID(id) + ":" + strconv.FormatUint(version, 10)
}

func (c *SnapshotCache) fenceKey(id auditstore.GlobalID) string {
	return c.keyPrefix + keyKindFence + hashGlobalID(id)
}

// hashGlobalID keeps keys short for deeply nested value object ids.
func hashGlobalID(id auditstore.GlobalID) string {
	return strconv.FormatUint(xxhash.Sum64String(id.Value()), 16)
}

func (c *SnapshotCache) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *SnapshotCache) count(ctx context.Context, metric string, operation string) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: operation}

	if contextualCollector, ok := c.metricsCollector.(auditstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metric, labels)
}
