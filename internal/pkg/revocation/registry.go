package revocation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-kratos/kratos/v2/log"
)

const (
	shardCount = 32

	DefaultLookupTimeout    = 200 * time.Millisecond
	DefaultNegativeCacheTTL = 5 * time.Second
)

var ErrInvalidEntry = errors.New("revocation: jti and expires_at are required")

// Gauge 活跃撤销数量的上报目标，prometheus.Gauge 即满足
type Gauge interface {
	Set(float64)
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// Registry 撤销登记表。
// 本地分片表保存本进程已知的撤销记录，未命中时查询短期的“未撤销”缓存，
// 再回落到持久化后端。本地写入先于后端写入，之后的 IsRevoked 一定可见。
type Registry struct {
	shards [shardCount]*shard

	store       Store
	negative    *ristretto.Cache[string, struct{}]
	negativeTTL time.Duration
	policy      Policy
	timeout     time.Duration
	now         func() time.Time
	gauge       Gauge
	log         *log.Helper
}

type Option func(*Registry)

// WithStore 设置持久化后端，不设置时仅使用进程内存
func WithStore(s Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithGauge(g Gauge) Option {
	return func(r *Registry) {
		r.gauge = g
	}
}

func WithLookupTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithNegativeCacheTTL 为 0 时关闭“未撤销”缓存，每次本地未命中都查询后端
func WithNegativeCacheTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.negativeTTL = d
	}
}

func NewRegistry(policy Policy, logger log.Logger, opts ...Option) (*Registry, error) {
	if policy != FailClosed && policy != FailOpen {
		return nil, fmt.Errorf("revocation: failure policy must be set explicitly")
	}
	r := &Registry{
		policy:      policy,
		timeout:     DefaultLookupTimeout,
		negativeTTL: DefaultNegativeCacheTTL,
		now:         time.Now,
		log:         log.NewHelper(log.With(logger, "module", "revocation/registry")),
	}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*Entry)}
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.store != nil && r.negativeTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
			NumCounters: 1e6,
			MaxCost:     1 << 17,
			BufferItems: 64,
		})
		if err != nil {
			return nil, err
		}
		r.negative = cache
	}
	return r, nil
}

func (r *Registry) shardFor(jti string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jti))
	return r.shards[h.Sum32()%shardCount]
}

func (r *Registry) localGet(jti string) (*Entry, bool) {
	s := r.shardFor(jti)
	s.mu.RLock()
	e, ok := s.entries[jti]
	s.mu.RUnlock()
	return e, ok
}

// localPut 已存在时保留原记录并返回它
func (r *Registry) localPut(e *Entry) (*Entry, bool) {
	s := r.shardFor(e.JTI)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[e.JTI]; ok {
		return existing, false
	}
	s.entries[e.JTI] = e
	return e, true
}

func (r *Registry) localEvict(jti string, now time.Time) {
	s := r.shardFor(jti)
	s.mu.Lock()
	if e, ok := s.entries[jti]; ok && e.Expired(now) {
		delete(s.entries, jti)
	}
	s.mu.Unlock()
}

// Revoke 登记撤销。重复撤销同一个 jti 保留首次记录，并重新写入后端。
// 本地表立即生效；后端写入失败时返回 ErrUnavailable，本进程内依然拒绝该令牌。
func (r *Registry) Revoke(ctx context.Context, e Entry) error {
	_, err := r.TryRevoke(ctx, e)
	return err
}

// TryRevoke 与 Revoke 相同，并报告本次调用是否首次登记该 jti。
// 并发调用同一个 jti 时只有一个调用返回 true，可用于令牌轮换等只允许一次的操作。
func (r *Registry) TryRevoke(ctx context.Context, e Entry) (bool, error) {
	if e.JTI == "" || e.ExpiresAt.IsZero() {
		return false, ErrInvalidEntry
	}
	if e.RevokedAt.IsZero() {
		e.RevokedAt = r.now()
	}
	entry, inserted := r.localPut(&e)
	if !inserted {
		r.log.Debugf("token already revoked: jti=%s", e.JTI)
	}
	if r.negative != nil {
		r.negative.Del(e.JTI)
	}
	if r.store == nil {
		return inserted, nil
	}

	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.store.Set(sctx, entry); err != nil {
		r.log.Errorf("failed to persist revocation: jti=%s subject=%s err=%v", entry.JTI, entry.Subject, err)
		return inserted, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return inserted, nil
}

// IsRevoked 热路径上的成员检查。
// 后端不可用时：FailClosed 返回 (true, ErrUnavailable)，FailOpen 返回 (false, nil) 并记录日志。
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if e, ok := r.localGet(jti); ok {
		if now := r.now(); e.Expired(now) {
			r.localEvict(jti, now)
		}
		return true, nil
	}
	if r.store == nil {
		return false, nil
	}
	if r.negative != nil {
		if _, ok := r.negative.Get(jti); ok {
			return false, nil
		}
	}

	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	e, err := r.store.Get(sctx, jti)
	cancel()
	switch {
	case err == nil:
		r.localPut(e)
		return true, nil
	case errors.Is(err, ErrNotFound):
		if r.negative != nil {
			r.negative.SetWithTTL(jti, struct{}{}, 1, r.negativeTTL)
		}
		return false, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	}

	if r.policy == FailOpen {
		r.log.Warnf("revocation store unavailable, failing open: jti=%s err=%v", jti, err)
		return false, nil
	}
	r.log.Errorf("revocation store unavailable, failing closed: jti=%s err=%v", jti, err)
	return true, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Lookup 查询撤销详情，用于审计
func (r *Registry) Lookup(ctx context.Context, jti string) (*Entry, error) {
	if e, ok := r.localGet(jti); ok {
		cp := *e
		return &cp, nil
	}
	if r.store == nil {
		return nil, ErrNotFound
	}
	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	e, err := r.store.Get(sctx, jti)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return e, nil
}

// CleanupExpired 移除自然过期时间已过的记录。
// 逐个分片加锁，清理期间其他分片的读写不受影响。
func (r *Registry) CleanupExpired(ctx context.Context) (int64, error) {
	now := r.now()
	var removed int64
	for _, s := range r.shards {
		s.mu.Lock()
		for jti, e := range s.entries {
			if e.Expired(now) {
				delete(s.entries, jti)
				removed++
			}
		}
		s.mu.Unlock()
	}
	if r.store == nil {
		return removed, nil
	}
	n, err := r.store.DeleteExpired(ctx, now)
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n > removed {
		removed = n
	}
	return removed, nil
}

// Len 本地表中的记录数
func (r *Registry) Len() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

func (r *Registry) localCounts(now time.Time) map[Reason]int64 {
	counts := make(map[Reason]int64)
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			if !e.Expired(now) {
				counts[e.Reason]++
			}
		}
		s.mu.RUnlock()
	}
	return counts
}

// Stats 按原因统计未过期的撤销记录，后端不可用时回落到本地表
func (r *Registry) Stats(ctx context.Context) (map[Reason]int64, error) {
	now := r.now()
	if r.store == nil {
		return r.localCounts(now), nil
	}
	sctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	counts, err := r.store.CountActive(sctx, now)
	if err != nil {
		return r.localCounts(now), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return counts, nil
}

// ReportActiveCount 上报未过期记录总数，只读
func (r *Registry) ReportActiveCount(ctx context.Context) int64 {
	counts, err := r.Stats(ctx)
	if err != nil {
		r.log.Warnf("falling back to local revocation count: %v", err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	if r.gauge != nil {
		r.gauge.Set(float64(total))
	}
	return total
}

// Start 从持久化后端预热本地表，实现 transport.Server
func (r *Registry) Start(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	entries, err := r.store.ListActive(ctx, r.now())
	if err != nil {
		r.log.Errorf("failed to warm revocation registry, lookups fall back to the store: %v", err)
		return nil
	}
	for _, e := range entries {
		r.localPut(e)
	}
	r.log.Infof("revocation registry warmed with %d entries, failure policy: %s", len(entries), r.policy)
	return nil
}

func (r *Registry) Stop(ctx context.Context) error {
	if r.negative != nil {
		r.negative.Close()
	}
	return nil
}
