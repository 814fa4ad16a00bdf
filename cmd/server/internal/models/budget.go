package models

// ExecutionEntry 外部实际执行台账中的一条记录（按产品编码与年度索引）。
// 上游表中不存在的键按全零处理，不视为错误。
type ExecutionEntry struct {
	DefinitiveBudget float64 `json:"definitive_budget"`
	Paid             float64 `json:"paid"`
}

// BudgetComparison 规划预算与实际执行的只读对账结果（单年度）。
type BudgetComparison struct {
	ProductCode      string  `json:"product_code"`
	Year             Year    `json:"year"`
	Programmed       float64 `json:"programmed"`
	DefinitiveBudget float64 `json:"definitive_budget"`
	Paid             float64 `json:"paid"`
	ExecutionPercent float64 `json:"execution_percent"`
}

// BudgetSummary 产品全年度对账汇总
type BudgetSummary struct {
	ProductCode      string              `json:"product_code"`
	Rows             []*BudgetComparison `json:"rows"`
	TotalProgrammed  float64             `json:"total_programmed"`
	TotalDefinitive  float64             `json:"total_definitive"`
	TotalPaid        float64             `json:"total_paid"`
	ExecutionPercent float64             `json:"execution_percent"`
}
