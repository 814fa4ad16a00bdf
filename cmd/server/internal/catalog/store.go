package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

// 错误定义
var (
	// ErrProductNotFound 表示目录中不存在该产品编码。
	ErrProductNotFound = errors.New("PRODUCT_NOT_FOUND")
	// ErrDuplicateProductCode 表示批量加载的目录存在重复编码。
	ErrDuplicateProductCode = errors.New("DUPLICATE_PRODUCT_CODE")
	// ErrInvalidTarget 表示产品携带负的年度目标或预算。
	ErrInvalidTarget = errors.New("INVALID_TARGET_VALUE")
	// ErrInvalidPlanYear 表示目标或预算落在计划年度区间之外。
	ErrInvalidPlanYear = errors.New("INVALID_PLAN_YEAR")
)

// Store 产品目录存储。目录整体按批次加载/替换，会话内产品记录不可变，
// 仅负责部门的指派可以修改。
type Store struct {
	mu       sync.RWMutex
	products map[string]*models.Product
}

// NewStore 创建空目录存储
func NewStore() *Store {
	return &Store{products: make(map[string]*models.Product)}
}

// Replace 以新批次整体替换目录。加载前校验编码唯一、
// 数值非负、年度在计划区间内；任一校验失败则目录保持原状。
func (s *Store) Replace(products []*models.Product) error {
	next := make(map[string]*models.Product, len(products))
	for _, p := range products {
		if p.Code == "" {
			return fmt.Errorf("replace catalog: product without code: %w", ErrProductNotFound)
		}
		if _, exists := next[p.Code]; exists {
			return fmt.Errorf("replace catalog: code %s: %w", p.Code, ErrDuplicateProductCode)
		}
		if err := validateAmounts(p.Code, p.TargetByYear); err != nil {
			return err
		}
		if err := validateAmounts(p.Code, p.BudgetByYear); err != nil {
			return err
		}
		next[p.Code] = p
	}

	s.mu.Lock()
	s.products = next
	s.mu.Unlock()
	return nil
}

// Get 按编码返回产品的副本。
// 调用方持有的指针不与存储共享，读取不受后续指派影响。
func (s *Store) Get(code string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[code]
	if !ok {
		return nil, fmt.Errorf("get product %s: %w", code, ErrProductNotFound)
	}
	return p.Clone(), nil
}

// List 返回全部产品的副本（按编码升序）
func (s *Store) List() []*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list
}

// Len 返回目录中的产品数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// AssignDepartment 指派产品的负责部门。
// 这是会话内唯一允许的产品字段修改。
func (s *Store) AssignDepartment(code string, departmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[code]
	if !ok {
		return fmt.Errorf("assign department: product %s: %w", code, ErrProductNotFound)
	}
	p.ResponsibleDepartmentID = &departmentID
	return nil
}

func validateAmounts(code string, amounts models.YearAmounts) error {
	for year, value := range amounts {
		if !models.IsPlanYear(year) {
			return fmt.Errorf("product %s year %d: %w", code, year, ErrInvalidPlanYear)
		}
		if value < 0 {
			return fmt.Errorf("product %s year %d: %w", code, year, ErrInvalidTarget)
		}
	}
	return nil
}
