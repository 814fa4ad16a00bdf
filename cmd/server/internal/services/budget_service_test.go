package services

import (
	"testing"

	"github.com/houzhh15/plantrack/cmd/server/internal/execution"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
)

func budgetProduct() *models.Product {
	return &models.Product{
		Code:         "P-300",
		Name:         "Acueducto veredal optimizado",
		Sector:       "Agua potable",
		BudgetByYear: models.YearAmounts{2024: 200000, 2025: 350000},
	}
}

// 场景 E：台账缺失条目按全零呈现，不报错
func TestBudget_MissingExecutionEntryIsZero(t *testing.T) {
	source := execution.NewMemorySource()
	svc := NewBudgetService(source)

	cmp := svc.Compare(budgetProduct(), 2025)
	if cmp.Programmed != 350000 {
		t.Fatalf("expected programmed 350000, got %f", cmp.Programmed)
	}
	if cmp.DefinitiveBudget != 0 || cmp.Paid != 0 || cmp.ExecutionPercent != 0 {
		t.Fatalf("missing entry must render as zeros: %+v", cmp)
	}
}

func TestBudget_CompareComputesExecutionPercent(t *testing.T) {
	source := execution.NewMemorySource()
	source.Put("P-300", 2025, models.ExecutionEntry{DefinitiveBudget: 400000, Paid: 100000})
	svc := NewBudgetService(source)

	cmp := svc.Compare(budgetProduct(), 2025)
	if cmp.ExecutionPercent != 25 {
		t.Fatalf("expected execution percent 25, got %f", cmp.ExecutionPercent)
	}
	if cmp.Programmed != 350000 || cmp.DefinitiveBudget != 400000 || cmp.Paid != 100000 {
		t.Fatalf("unexpected comparison row: %+v", cmp)
	}
}

func TestBudget_ZeroDefinitiveBudgetGuarded(t *testing.T) {
	source := execution.NewMemorySource()
	source.Put("P-300", 2024, models.ExecutionEntry{DefinitiveBudget: 0, Paid: 50000})
	svc := NewBudgetService(source)

	cmp := svc.Compare(budgetProduct(), 2024)
	if cmp.ExecutionPercent != 0 {
		t.Fatalf("zero definitive budget must yield 0 percent, got %f", cmp.ExecutionPercent)
	}
}

func TestBudget_CompareAllYears(t *testing.T) {
	source := execution.NewMemorySource()
	source.Put("P-300", 2024, models.ExecutionEntry{DefinitiveBudget: 250000, Paid: 250000})
	source.Put("P-300", 2025, models.ExecutionEntry{DefinitiveBudget: 250000, Paid: 125000})
	svc := NewBudgetService(source)

	summary := svc.CompareAllYears(budgetProduct())
	if len(summary.Rows) != len(models.PlanYears()) {
		t.Fatalf("expected one row per plan year, got %d", len(summary.Rows))
	}
	if summary.TotalProgrammed != 550000 {
		t.Fatalf("expected total programmed 550000, got %f", summary.TotalProgrammed)
	}
	if summary.TotalDefinitive != 500000 || summary.TotalPaid != 375000 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.ExecutionPercent != 75 {
		t.Fatalf("expected overall execution 75, got %f", summary.ExecutionPercent)
	}
}
