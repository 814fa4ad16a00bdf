package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/directory"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
	"github.com/houzhh15/plantrack/pkg/metrics"
)

// AllYears 年度选择器的"全年度"哨兵值：
// 对规划目标非零的年度做跨年度混合。
const AllYears models.Year = 0

// AnalyticsFilter 分析范围选择器
type AnalyticsFilter struct {
	Year         models.Year // AllYears 表示跨年度混合
	DepartmentID *int64      // 可选的部门过滤
}

// cacheKey 生成 (范围, 年度选择器) 缓存键
func (f AnalyticsFilter) cacheKey() string {
	dept := "all"
	if f.DepartmentID != nil {
		dept = fmt.Sprintf("%d", *f.DepartmentID)
	}
	return fmt.Sprintf("year:%d|dept:%s", f.Year, dept)
}

// DimensionBucket 单个维度分桶的聚合结果
type DimensionBucket struct {
	Key            string         `json:"key"`   // 规整后的分桶键
	Label          string         `json:"label"` // 原始标签（首次出现形式）
	Count          int            `json:"count"`
	StatusCounts   map[string]int `json:"status_counts"`
	AveragePercent float64        `json:"average_percent"`
	TotalBudget    float64        `json:"total_budget"`
}

// AnalyticsSummary 范围内的全局汇总
type AnalyticsSummary struct {
	ProductCount         int            `json:"product_count"`
	AveragePercent       float64        `json:"average_percent"`
	TotalBudget          float64        `json:"total_budget"`
	ZeroActivityProducts int            `json:"zero_activity_products"`
	StatusCounts         map[string]int `json:"status_counts"`
}

// AnalyticsReport 按组织维度分组的完整分析报表
type AnalyticsReport struct {
	Year                 models.Year        `json:"year"` // 0 表示全年度
	DepartmentID         *int64             `json:"department_id,omitempty"`
	Summary              *AnalyticsSummary  `json:"summary"`
	BySector             []*DimensionBucket `json:"by_sector"`
	ByStrategicLine      []*DimensionBucket `json:"by_strategic_line"`
	BySustainabilityGoal []*DimensionBucket `json:"by_sustainability_goal"`
	ByDepartment         []*DimensionBucket `json:"by_department"`
	GeneratedAt          time.Time          `json:"generated_at"`
}

// AnalyticsService 分析聚合服务接口
type AnalyticsService interface {
	// Report 计算（或命中缓存返回）指定范围的分析报表。
	// 空产品集合退化为全零报表，所有均值分母受保护。
	Report(ctx context.Context, filter AnalyticsFilter) (*AnalyticsReport, error)

	// Refresh 显式刷新：清空结果缓存。
	Refresh()
}

// productRow 参与聚合的单产品行
type productRow struct {
	product       *models.Product
	percent       float64
	status        models.YearStatus
	budget        float64
	activityCount int
}

// analyticsService 分析聚合服务实现
type analyticsService struct {
	catalog   *catalog.Store
	resolver  ResolverService
	directory directory.Directory
	cache     *ResultCache
}

// NewAnalyticsService 创建分析聚合服务实例
func NewAnalyticsService(catalogStore *catalog.Store, resolver ResolverService, dir directory.Directory, cache *ResultCache) AnalyticsService {
	return &analyticsService{
		catalog:   catalogStore,
		resolver:  resolver,
		directory: dir,
		cache:     cache,
	}
}

// Report 计算分析报表
func (s *analyticsService) Report(ctx context.Context, filter AnalyticsFilter) (*AnalyticsReport, error) {
	key := filter.cacheKey()
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	start := time.Now()
	rows := s.collectRows(filter)

	report := &AnalyticsReport{
		Year:         filter.Year,
		DepartmentID: filter.DepartmentID,
		GeneratedAt:  time.Now(),
	}

	// 各维度分桶相互独立，并行计算
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Summary = summarize(rows)
		return nil
	})
	g.Go(func() error {
		report.BySector = bucketBy(rows, func(r *productRow) string { return r.product.Sector })
		return nil
	})
	g.Go(func() error {
		report.ByStrategicLine = bucketBy(rows, func(r *productRow) string { return r.product.StrategicLine })
		return nil
	})
	g.Go(func() error {
		report.BySustainabilityGoal = bucketBy(rows, func(r *productRow) string { return r.product.SustainabilityGoal })
		return nil
	})
	g.Go(func() error {
		report.ByDepartment = bucketBy(rows, func(r *productRow) string {
			return s.directory.Resolve(r.product.ResponsibleDepartmentID)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics report: %w", err)
	}

	scope := "year"
	if filter.Year == AllYears {
		scope = "all_years"
	}
	metrics.RecordAnalyticsRecompute(scope, time.Since(start).Seconds())

	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.product.Code)
	}
	s.cache.Put(key, codes, report)
	return report, nil
}

// Refresh 清空结果缓存
func (s *analyticsService) Refresh() {
	s.cache.InvalidateAll()
}

// collectRows 过滤产品并解析各行的进度/状态/预算。
// 年度选择器决定行值来源：单年度取该年度进度，
// 全年度取跨年度均值状态（不能以单年状态混充）。
func (s *analyticsService) collectRows(filter AnalyticsFilter) []*productRow {
	rows := make([]*productRow, 0)

	for _, product := range s.catalog.List() {
		if filter.DepartmentID != nil {
			if product.ResponsibleDepartmentID == nil || *product.ResponsibleDepartmentID != *filter.DepartmentID {
				continue
			}
		}

		if filter.Year != AllYears {
			if !product.AppliesTo(filter.Year) {
				continue
			}
			yp := s.resolver.YearProgress(product, filter.Year)
			rows = append(rows, &productRow{
				product:       product,
				percent:       yp.ProgressPercent,
				status:        yp.Status,
				budget:        product.BudgetFor(filter.Year),
				activityCount: yp.ActivityCount,
			})
			continue
		}

		pp := s.resolver.ProductProgress(product)
		if pp.ApplicableYears == 0 {
			continue
		}
		budget := 0.0
		activities := 0
		for _, year := range models.PlanYears() {
			budget += product.BudgetFor(year)
		}
		for _, yp := range pp.Years {
			activities += yp.ActivityCount
		}
		rows = append(rows, &productRow{
			product:       product,
			percent:       pp.AveragePercent,
			status:        pp.Status,
			budget:        budget,
			activityCount: activities,
		})
	}

	return rows
}

// summarize 全局汇总，空集合退化为全零
func summarize(rows []*productRow) *AnalyticsSummary {
	summary := &AnalyticsSummary{StatusCounts: make(map[string]int)}

	sum := 0.0
	for _, r := range rows {
		summary.ProductCount++
		summary.TotalBudget += r.budget
		summary.StatusCounts[string(r.status)]++
		if r.activityCount == 0 {
			summary.ZeroActivityProducts++
		}
		sum += r.percent
	}

	if summary.ProductCount > 0 {
		summary.AveragePercent = sum / float64(summary.ProductCount)
	}
	return summary
}

// bucketBy 按维度标签分桶。键经规整（去重音、大写化），
// 标签保留首次出现的原始形式。
func bucketBy(rows []*productRow, keyFn func(*productRow) string) []*DimensionBucket {
	buckets := make(map[string]*DimensionBucket)
	sums := make(map[string]float64)

	for _, r := range rows {
		label := keyFn(r)
		key := catalog.NormalizeLabel(label)

		bucket, ok := buckets[key]
		if !ok {
			bucket = &DimensionBucket{
				Key:          key,
				Label:        label,
				StatusCounts: make(map[string]int),
			}
			buckets[key] = bucket
		}

		bucket.Count++
		bucket.TotalBudget += r.budget
		bucket.StatusCounts[string(r.status)]++
		sums[key] += r.percent
	}

	list := make([]*DimensionBucket, 0, len(buckets))
	for key, bucket := range buckets {
		if bucket.Count > 0 {
			bucket.AveragePercent = sums[key] / float64(bucket.Count)
		}
		list = append(list, bucket)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}
