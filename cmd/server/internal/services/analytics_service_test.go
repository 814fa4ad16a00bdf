package services

import (
	"context"
	"testing"
	"time"

	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/directory"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

func deptID(id int64) *int64 { return &id }

func analyticsFixture(t *testing.T) (*catalog.Store, *ledger.Ledger, AnalyticsService, *ResultCache) {
	t.Helper()

	store := catalog.NewStore()
	err := store.Replace([]*models.Product{
		{
			Code:                    "P-A",
			Name:                    "Sedes educativas dotadas",
			Sector:                  "Educación",
			StrategicLine:           "Bienestar social",
			SustainabilityGoal:      "ODS 4",
			TargetByYear:            models.YearAmounts{2025: 100},
			BudgetByYear:            models.YearAmounts{2025: 1000},
			ResponsibleDepartmentID: deptID(1),
		},
		{
			Code:                    "P-B",
			Name:                    "Docentes formados",
			Sector:                  "EDUCACION", // 与 "Educación" 应折叠到同一分桶
			StrategicLine:           "Bienestar social",
			SustainabilityGoal:      "ODS 4",
			TargetByYear:            models.YearAmounts{2025: 50},
			BudgetByYear:            models.YearAmounts{2025: 500},
			ResponsibleDepartmentID: deptID(2),
		},
		{
			Code:               "P-C",
			Name:               "Centros de salud ampliados",
			Sector:             "Salud",
			StrategicLine:      "Vida digna",
			SustainabilityGoal: "ODS 3",
			TargetByYear:       models.YearAmounts{2026: 10},
			BudgetByYear:       models.YearAmounts{2026: 2000},
			// 未指派部门：应落入独立的"未指派"分桶
		},
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	l := ledger.NewLedger(store, ledger.NewMemoryRepository())
	resolver := NewResolverServiceAt(l, fixedClock)
	dir := directory.NewMemoryDirectory(map[int64]string{1: "Secretaría de Educación", 2: "Secretaría de Planeación"})
	cache := NewResultCache(30 * time.Second)
	l.OnMutate(cache.InvalidateProduct)

	svc := NewAnalyticsService(store, resolver, dir, cache)
	return store, l, svc, cache
}

func TestAnalytics_EmptyProductSetIsZeroSafe(t *testing.T) {
	store := catalog.NewStore()
	l := ledger.NewLedger(store, ledger.NewMemoryRepository())
	resolver := NewResolverServiceAt(l, fixedClock)
	cache := NewResultCache(time.Minute)
	svc := NewAnalyticsService(store, resolver, directory.NewMemoryDirectory(nil), cache)

	report, err := svc.Report(context.Background(), AnalyticsFilter{Year: 2025})
	if err != nil {
		t.Fatalf("empty catalog must not error: %v", err)
	}
	if report.Summary.ProductCount != 0 || report.Summary.AveragePercent != 0 {
		t.Fatalf("expected zero summary, got %+v", report.Summary)
	}
	if len(report.BySector) != 0 || len(report.ByDepartment) != 0 {
		t.Fatalf("expected no buckets for empty catalog")
	}
}

func TestAnalytics_YearReport(t *testing.T) {
	_, l, svc, _ := analyticsFixture(t)

	a := mustCreate(t, l, "P-A", 2025, 100)
	mustAttach(t, l, a.ID)

	report, err := svc.Report(context.Background(), AnalyticsFilter{Year: 2025})
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}

	// P-C 在 2025 无目标，不参与该年度报表
	if report.Summary.ProductCount != 2 {
		t.Fatalf("expected 2 products in scope, got %d", report.Summary.ProductCount)
	}
	if report.Summary.AveragePercent != 50 {
		t.Fatalf("expected average 50 (100 + 0)/2, got %f", report.Summary.AveragePercent)
	}
	if report.Summary.TotalBudget != 1500 {
		t.Fatalf("expected total budget 1500, got %f", report.Summary.TotalBudget)
	}
	if report.Summary.ZeroActivityProducts != 1 {
		t.Fatalf("expected 1 zero-activity product, got %d", report.Summary.ZeroActivityProducts)
	}
	if report.Summary.StatusCounts[string(models.YearStatusCompleted)] != 1 ||
		report.Summary.StatusCounts[string(models.YearStatusPending)] != 1 {
		t.Fatalf("unexpected status counts: %v", report.Summary.StatusCounts)
	}

	// "Educación" 与 "EDUCACION" 折叠进同一分桶
	if len(report.BySector) != 1 {
		t.Fatalf("expected 1 sector bucket, got %d", len(report.BySector))
	}
	sector := report.BySector[0]
	if sector.Key != "EDUCACION" || sector.Count != 2 {
		t.Fatalf("unexpected sector bucket: %+v", sector)
	}
	if sector.AveragePercent != 50 || sector.TotalBudget != 1500 {
		t.Fatalf("unexpected sector aggregates: %+v", sector)
	}

	if len(report.ByDepartment) != 2 {
		t.Fatalf("expected 2 department buckets, got %d", len(report.ByDepartment))
	}
}

func TestAnalytics_DepartmentFilter(t *testing.T) {
	_, l, svc, _ := analyticsFixture(t)

	a := mustCreate(t, l, "P-A", 2025, 100)
	mustAttach(t, l, a.ID)

	report, err := svc.Report(context.Background(), AnalyticsFilter{Year: 2025, DepartmentID: deptID(1)})
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if report.Summary.ProductCount != 1 {
		t.Fatalf("expected 1 product for department 1, got %d", report.Summary.ProductCount)
	}
	if report.Summary.AveragePercent != 100 {
		t.Fatalf("expected average 100, got %f", report.Summary.AveragePercent)
	}
}

// 全年度模式必须使用跨年度均值状态，不能以单年状态混充
func TestAnalytics_AllYearsUsesBlendedStatus(t *testing.T) {
	store := catalog.NewStore()
	err := store.Replace([]*models.Product{
		{
			Code:         "P-D",
			Name:         "Parques mantenidos",
			Sector:       "Ambiente",
			TargetByYear: models.YearAmounts{2025: 100, 2026: 50},
			BudgetByYear: models.YearAmounts{2025: 300, 2026: 200},
		},
	})
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	l := ledger.NewLedger(store, ledger.NewMemoryRepository())
	resolver := NewResolverServiceAt(l, fixedClock)
	cache := NewResultCache(time.Minute)
	l.OnMutate(cache.InvalidateProduct)
	svc := NewAnalyticsService(store, resolver, directory.NewMemoryDirectory(nil), cache)

	a := mustCreate(t, l, "P-D", 2025, 100)
	mustAttach(t, l, a.ID)

	// 单年度视角：2025 已完成
	yearReport, err := svc.Report(context.Background(), AnalyticsFilter{Year: 2025})
	if err != nil {
		t.Fatalf("year report: %v", err)
	}
	if yearReport.Summary.StatusCounts[string(models.YearStatusCompleted)] != 1 {
		t.Fatalf("expected COMPLETED in 2025 view: %v", yearReport.Summary.StatusCounts)
	}

	// 全年度视角：混合均值 50%，状态 IN_PROGRESS
	allReport, err := svc.Report(context.Background(), AnalyticsFilter{Year: AllYears})
	if err != nil {
		t.Fatalf("all-years report: %v", err)
	}
	if allReport.Summary.AveragePercent != 50 {
		t.Fatalf("expected blended average 50, got %f", allReport.Summary.AveragePercent)
	}
	if allReport.Summary.StatusCounts[string(models.YearStatusInProgress)] != 1 {
		t.Fatalf("expected blended IN_PROGRESS: %v", allReport.Summary.StatusCounts)
	}
	if allReport.Summary.TotalBudget != 500 {
		t.Fatalf("expected all-years budget 500, got %f", allReport.Summary.TotalBudget)
	}
}

func TestAnalytics_CacheHitAndInvalidation(t *testing.T) {
	_, l, svc, cache := analyticsFixture(t)
	ctx := context.Background()

	first, err := svc.Report(ctx, AnalyticsFilter{Year: 2025})
	if err != nil {
		t.Fatalf("first report: %v", err)
	}

	// 台账未变：命中缓存，返回同一实例
	second, err := svc.Report(ctx, AnalyticsFilter{Year: 2025})
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if first != second {
		t.Fatalf("expected cache hit to return cached report")
	}

	// 台账变更使缓存失效，重算结果反映新活动
	mustCreate(t, l, "P-B", 2025, 20)

	third, err := svc.Report(ctx, AnalyticsFilter{Year: 2025})
	if err != nil {
		t.Fatalf("third report: %v", err)
	}
	if third == first {
		t.Fatalf("mutation must invalidate cached report")
	}
	if third.Summary.ZeroActivityProducts != 1 {
		t.Fatalf("expected 1 zero-activity product after create, got %d", third.Summary.ZeroActivityProducts)
	}
	if cache.Len() == 0 {
		t.Fatalf("expected recomputed report cached")
	}
}
