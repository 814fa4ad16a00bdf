package services

import (
	"github.com/houzhh15/plantrack/cmd/server/internal/execution"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

// BudgetService 预算对账服务接口。
// 规划预算与外部实际执行台账的只读比较，不回写任何一侧。
type BudgetService interface {
	// Compare 单年度对账。台账缺失该产品年度时按全零呈现，不报错。
	Compare(product *models.Product, year models.Year) *models.BudgetComparison

	// CompareAllYears 全年度对账表及汇总。
	CompareAllYears(product *models.Product) *models.BudgetSummary
}

// budgetService 预算对账服务实现
type budgetService struct {
	source execution.Source
}

// NewBudgetService 创建预算对账服务实例
func NewBudgetService(source execution.Source) BudgetService {
	return &budgetService{source: source}
}

// Compare 单年度对账
func (s *budgetService) Compare(product *models.Product, year models.Year) *models.BudgetComparison {
	entry, _ := s.source.Lookup(product.Code, year)

	return &models.BudgetComparison{
		ProductCode:      product.Code,
		Year:             year,
		Programmed:       product.BudgetFor(year),
		DefinitiveBudget: entry.DefinitiveBudget,
		Paid:             entry.Paid,
		ExecutionPercent: executionPercent(entry.Paid, entry.DefinitiveBudget),
	}
}

// CompareAllYears 全年度对账
func (s *budgetService) CompareAllYears(product *models.Product) *models.BudgetSummary {
	summary := &models.BudgetSummary{ProductCode: product.Code}

	for _, year := range models.PlanYears() {
		row := s.Compare(product, year)
		summary.Rows = append(summary.Rows, row)
		summary.TotalProgrammed += row.Programmed
		summary.TotalDefinitive += row.DefinitiveBudget
		summary.TotalPaid += row.Paid
	}

	summary.ExecutionPercent = executionPercent(summary.TotalPaid, summary.TotalDefinitive)
	return summary
}

// executionPercent 执行率：最终预算为 0 时恒为 0，分母受保护
func executionPercent(paid, definitive float64) float64 {
	if definitive <= 0 {
		return 0
	}
	return 100 * paid / definitive
}
