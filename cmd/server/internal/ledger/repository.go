package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

// ErrUpstreamUnavailable 表示持久层协作方不可达。
// 读路径在缓存 TTL 内可降级为最近一次结果；写路径除全新记录的
// 创建外一律向调用方透出该错误。
var ErrUpstreamUnavailable = errors.New("UPSTREAM_UNAVAILABLE")

// ActivityRepository 抽象活动与证据的持久层协作方。
// 实现按活动 ID 及 (产品, 年度) 键提供读写，后续可对接数据库或远端服务。
type ActivityRepository interface {
	// Create 持久化新活动并返回分配的真实 ID。
	Create(ctx context.Context, activity *models.Activity) (int64, error)
	// Update 覆盖式更新已持久化的活动（含其证据）。
	Update(ctx context.Context, activity *models.Activity) error
	// Delete 删除已持久化的活动，证据级联删除。
	Delete(ctx context.Context, id int64) error
	// ListByProduct 返回产品名下的全部活动。
	ListByProduct(ctx context.Context, productCode string) ([]*models.Activity, error)
}

// memoryRepository ActivityRepository 的内存实现，
// 作为运行期默认后端与测试替身。
type memoryRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*models.Activity
}

// NewMemoryRepository 创建内存持久层实例
func NewMemoryRepository() ActivityRepository {
	return &memoryRepository{nextID: 1, items: make(map[int64]*models.Activity)}
}

func (r *memoryRepository) Create(ctx context.Context, activity *models.Activity) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++

	stored := activity.Clone()
	stored.ID = id
	r.items[id] = stored
	return id, nil
}

func (r *memoryRepository) Update(ctx context.Context, activity *models.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[activity.ID]; !ok {
		return ErrActivityNotFound
	}
	r.items[activity.ID] = activity.Clone()
	return nil
}

func (r *memoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrActivityNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepository) ListByProduct(ctx context.Context, productCode string) ([]*models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*models.Activity, 0)
	for _, a := range r.items {
		if a.ProductCode == productCode {
			list = append(list, a.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
