package vtab

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// numCacheShards bounds contention on the per-table statement and
// level-range caches: each table name is hashed into one of a small fixed
// number of shards rather than growing a single map guarded by one mutex,
// mirroring how the reference codebase's index builder buckets keys by hash
// to spread lock contention across shards.
const numCacheShards = 8

func shardIndex(key string) int {
	return int(murmur3.Sum32([]byte(key)) % numCacheShards)
}

// rowidsStmtCacheShards is a fixed set of mutex-guarded maps, indexed by
// hashing the table name.
type rowidsStmtCacheShards struct {
	mu     [numCacheShards]sync.Mutex
	shards [numCacheShards]map[string]*rowidsStmtCache
}

func newRowidsStmtCacheShards() *rowidsStmtCacheShards {
	s := &rowidsStmtCacheShards{}
	for i := range s.shards {
		s.shards[i] = make(map[string]*rowidsStmtCache)
	}
	return s
}

func (s *rowidsStmtCacheShards) get(table string) *rowidsStmtCache {
	i := shardIndex(table)
	s.mu[i].Lock()
	defer s.mu[i].Unlock()
	return s.shards[i][table]
}

func (s *rowidsStmtCacheShards) set(table string, cache *rowidsStmtCache) {
	i := shardIndex(table)
	s.mu[i].Lock()
	defer s.mu[i].Unlock()
	s.shards[i][table] = cache
}

// levelsCacheShards is the analogous sharded cache for genomic_range_index_levels.
type levelsCacheShards struct {
	mu     [numCacheShards]sync.Mutex
	shards [numCacheShards]map[string]cachedLevels
}

func newLevelsCacheShards() *levelsCacheShards {
	s := &levelsCacheShards{}
	for i := range s.shards {
		s.shards[i] = make(map[string]cachedLevels)
	}
	return s
}

func (s *levelsCacheShards) get(table string) (cachedLevels, bool) {
	i := shardIndex(table)
	s.mu[i].Lock()
	defer s.mu[i].Unlock()
	v, ok := s.shards[i][table]
	return v, ok
}

func (s *levelsCacheShards) set(table string, v cachedLevels) {
	i := shardIndex(table)
	s.mu[i].Lock()
	defer s.mu[i].Unlock()
	s.shards[i][table] = v
}
