// Package cache は商品一覧のリードスルーキャッシュ。
//
// 鮮度はコレクション全体で1つのタイムスタンプで管理する（行ごとの期限は持たない）。
// スナップショットはatomicに差し替えるので、読み手が作りかけの一覧を見ることはない。
// 生成は起動時に1回、usecaseへ注入して使う。
package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 300 * time.Second

// ストア側の読み込み
type ProductLoader interface {
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
}

// 観測値の送り先（任意）
type Recorder interface {
	Hit()
	Miss()
	Reload(d time.Duration)
}

type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"` // 0〜1
}

type Option func(*ProductCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *ProductCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *ProductCache) { c.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(c *ProductCache) { c.rec = r }
}

type snapshot struct {
	loadedAt time.Time
	items    []model.Product
	byID     map[int64]model.Product
}

type ProductCache struct {
	loader ProductLoader
	ttl    time.Duration
	now    func() time.Time
	rec    Recorder

	snap atomic.Pointer[snapshot]

	// 書き込み（差し替え・破棄）だけ直列にする
	mu  sync.Mutex
	gen uint64

	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewProductCache(loader ProductLoader, opts ...Option) *ProductCache {
	c := &ProductCache{
		loader: loader,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// 期限内ならスナップショット、期限切れ・未読込ならnil
func (c *ProductCache) fresh() *snapshot {
	s := c.snap.Load()
	if s == nil || c.now().Sub(s.loadedAt) >= c.ttl {
		return nil
	}
	return s
}

// 全商品。期限内ならキャッシュから、そうでなければストアから全件読み直す
func (c *ProductCache) GetAll(ctx context.Context) ([]model.Product, error) {
	if s := c.fresh(); s != nil {
		c.hit()
		return cloneProducts(s.items), nil
	}
	c.miss()

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	// 同じ世代の読み込みは1回にまとめる。Invalidate後は別の世代になる
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		return c.reload(ctx, gen)
	})
	if err != nil {
		return nil, err
	}
	return cloneProducts(v.(*snapshot).items), nil
}

// 1件取得。期限内のキャッシュに無ければストアには行かずErrNotFound。
// 期限切れ・未読込のときは1件だけストアから読む（全件の読み直しはしない）
func (c *ProductCache) GetByID(ctx context.Context, id int64) (model.Product, error) {
	if s := c.fresh(); s != nil {
		c.hit()
		p, ok := s.byID[id]
		if !ok {
			return model.Product{}, repo.ErrNotFound
		}
		return p, nil
	}
	c.miss()
	return c.loader.FindByID(ctx, id)
}

// 無条件にスナップショットを捨てる。次の読み込みはストアへ行く
func (c *ProductCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.snap.Store(nil)
	c.mu.Unlock()
}

func (c *ProductCache) Stats() Stats {
	h, m := c.hits.Load(), c.misses.Load()
	st := Stats{Hits: h, Misses: m}
	if total := h + m; total > 0 {
		st.HitRate = float64(h) / float64(total)
	}
	return st
}

func (c *ProductCache) reload(ctx context.Context, gen uint64) (*snapshot, error) {
	start := c.now()
	items, err := c.loader.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	s := &snapshot{
		loadedAt: c.now(),
		items:    items,
		byID:     make(map[int64]model.Product, len(items)),
	}
	for _, p := range items {
		s.byID[p.ID] = p
	}

	c.mu.Lock()
	// 読み込み中にInvalidateされていたら古い結果なので入れない
	if c.gen == gen {
		c.snap.Store(s)
	}
	c.mu.Unlock()

	if c.rec != nil {
		c.rec.Reload(c.now().Sub(start))
	}
	return s, nil
}

func (c *ProductCache) hit() {
	c.hits.Add(1)
	if c.rec != nil {
		c.rec.Hit()
	}
}

func (c *ProductCache) miss() {
	c.misses.Add(1)
	if c.rec != nil {
		c.rec.Miss()
	}
}

func cloneProducts(in []model.Product) []model.Product {
	out := make([]model.Product, len(in))
	copy(out, in)
	return out
}
