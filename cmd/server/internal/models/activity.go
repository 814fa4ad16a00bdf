package models

import "time"

// ActivityStatus 表示活动的执行状态。
type ActivityStatus string

const (
	StatusPending    ActivityStatus = "PENDING"
	StatusInProgress ActivityStatus = "IN_PROGRESS"
	StatusCompleted  ActivityStatus = "COMPLETED"
	StatusCancelled  ActivityStatus = "CANCELLED"
)

// IsTerminal 判断状态是否为终态（终态不再接受状态编辑）
func (s ActivityStatus) IsTerminal() bool {
	return s == StatusCancelled
}

// SyntheticIDThreshold 本地降级记录的合成 ID 下界。
// 合成 ID 取自 time.Now().UnixNano()（纳秒时间戳，量级 1e18），
// 持久层分配的真实 ID 远小于该值，两者按量级即可区分。
const SyntheticIDThreshold int64 = 1e15

// IsSyntheticID 判断活动 ID 是否为本地降级生成的合成 ID
func IsSyntheticID(id int64) bool {
	return id >= SyntheticIDThreshold
}

// Activity 表示承接产品年度目标的一项活动。
// 每个活动提交产品该年度目标的一部分，并拥有至多一条证据记录。
type Activity struct {
	ID                      int64          `json:"id"`
	ProductCode             string         `json:"product_code"`
	Year                    Year           `json:"year"`
	TargetCommitted         float64        `json:"target_committed"`
	ResponsibleDepartmentID *int64         `json:"responsible_department_id,omitempty"`
	Status                  ActivityStatus `json:"status"`
	StartDate               time.Time      `json:"start_date"`
	EndDate                 time.Time      `json:"end_date"`
	Evidence                *Evidence      `json:"evidence,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// HasEvidence 证据存在性的唯一判定入口。
// 完成度计算只信任该谓词，不读取任何附加布尔标记。
func (a *Activity) HasEvidence() bool {
	return a.Evidence != nil
}

// IsPersisted 判断活动是否已获得持久层分配的真实 ID
func (a *Activity) IsPersisted() bool {
	return a.ID > 0 && !IsSyntheticID(a.ID)
}

// Clone 返回活动的深拷贝，供只读视图使用
func (a *Activity) Clone() *Activity {
	cp := *a
	if a.Evidence != nil {
		cp.Evidence = a.Evidence.Clone()
	}
	if a.ResponsibleDepartmentID != nil {
		id := *a.ResponsibleDepartmentID
		cp.ResponsibleDepartmentID = &id
	}
	return &cp
}
