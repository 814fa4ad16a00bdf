package models

// YearStatus 产品在单个年度的四态分类。
// 未来年度恒为 UPCOMING；过去年度仅在进度精确等于 100 时为 COMPLETED。
type YearStatus string

const (
	YearStatusPending    YearStatus = "PENDING"
	YearStatusInProgress YearStatus = "IN_PROGRESS"
	YearStatusCompleted  YearStatus = "COMPLETED"
	YearStatusUpcoming   YearStatus = "UPCOMING"
)

// YearProgress 产品单年度的派生进度（按需计算，从不持久化）。
type YearProgress struct {
	ProductCode            string     `json:"product_code"`
	Year                   Year       `json:"year"`
	TargetProgrammed       float64    `json:"target_programmed"`
	TargetCommitted        float64    `json:"target_committed"`
	TargetExecuted         float64    `json:"target_executed"`
	TargetAvailable        float64    `json:"target_available"`
	ActivityCount          int        `json:"activity_count"`
	CompletedActivityCount int        `json:"completed_activity_count"`
	ProgressPercent        float64    `json:"progress_percent"`
	Status                 YearStatus `json:"status"`
}

// ProductProgress 产品跨年度的综合进度。
// AveragePercent 仅对规划目标大于 0 的年度取均值。
type ProductProgress struct {
	ProductCode     string          `json:"product_code"`
	Years           []*YearProgress `json:"years"`
	ApplicableYears int             `json:"applicable_years"`
	AveragePercent  float64         `json:"average_percent"`
	Status          YearStatus      `json:"status"`
}
