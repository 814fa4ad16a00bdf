package models

// Year 计划年度
type Year = int

// PlanYearStart / PlanYearEnd 计划评估的固定年度区间（2024-2027）
const (
	PlanYearStart Year = 2024
	PlanYearEnd   Year = 2027
)

// PlanYears 返回计划覆盖的全部年度（升序）
func PlanYears() []Year {
	years := make([]Year, 0, PlanYearEnd-PlanYearStart+1)
	for y := PlanYearStart; y <= PlanYearEnd; y++ {
		years = append(years, y)
	}
	return years
}

// IsPlanYear 判断年度是否在计划区间内
func IsPlanYear(year Year) bool {
	return year >= PlanYearStart && year <= PlanYearEnd
}

// YearAmounts 按年度索引的数值表（目标值或预算值）
type YearAmounts map[Year]float64

// AccumulationType 表示产品目标的累计方式
type AccumulationType string

const (
	AccumulationIncremental AccumulationType = "INCREMENTAL" // 各年度目标独立累加
	AccumulationMaintenance AccumulationType = "MAINTENANCE" // 各年度维持同一存量目标
	AccumulationStock       AccumulationType = "STOCK"       // 目标为期末存量
)

// Product 计划产品（交付物），目录加载后在会话内不可变，
// 仅 ResponsibleDepartmentID 可通过显式指派操作修改。
type Product struct {
	Code                    string           `json:"code"`
	Name                    string           `json:"name"`
	Sector                  string           `json:"sector"`
	StrategicLine           string           `json:"strategic_line"`
	SustainabilityGoal      string           `json:"sustainability_goal"`
	AccumulationType        AccumulationType `json:"accumulation_type"`
	TargetByYear            YearAmounts      `json:"target_by_year"`
	BudgetByYear            YearAmounts      `json:"budget_by_year"`
	ResponsibleDepartmentID *int64           `json:"responsible_department_id,omitempty"`
}

// Clone 返回产品的深拷贝
func (p *Product) Clone() *Product {
	cp := *p
	if p.TargetByYear != nil {
		cp.TargetByYear = make(YearAmounts, len(p.TargetByYear))
		for year, value := range p.TargetByYear {
			cp.TargetByYear[year] = value
		}
	}
	if p.BudgetByYear != nil {
		cp.BudgetByYear = make(YearAmounts, len(p.BudgetByYear))
		for year, value := range p.BudgetByYear {
			cp.BudgetByYear[year] = value
		}
	}
	if p.ResponsibleDepartmentID != nil {
		id := *p.ResponsibleDepartmentID
		cp.ResponsibleDepartmentID = &id
	}
	return &cp
}

// TargetFor 返回指定年度的规划目标，未配置时为 0
func (p *Product) TargetFor(year Year) float64 {
	if p.TargetByYear == nil {
		return 0
	}
	return p.TargetByYear[year]
}

// BudgetFor 返回指定年度的规划预算，未配置时为 0
func (p *Product) BudgetFor(year Year) float64 {
	if p.BudgetByYear == nil {
		return 0
	}
	return p.BudgetByYear[year]
}

// AppliesTo 判断产品在指定年度是否参与进度计算。
// 目标为 0 的年度视为不适用，不计入任何进度统计。
func (p *Product) AppliesTo(year Year) bool {
	return p.TargetFor(year) > 0
}
