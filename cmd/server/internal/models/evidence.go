package models

import "time"

// 证据内容限制
const (
	MaxEvidenceImages     = 4               // 单条证据最多 4 张图片
	MaxEvidenceImageBytes = 2 * 1024 * 1024 // 单张图片原始大小上限 2MB
)

// EvidenceImage 证据图片（已编码内容）
type EvidenceImage struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64 编码内容
	SizeBytes   int64  `json:"size_bytes"`
}

// Evidence 活动的完成证据。证据由活动独占持有（一对一，可选），
// 不独立于活动存在；删除活动时级联删除。
// 不变式：ExternalURL 与 Images 至少存在其一，否则证据无效。
type Evidence struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	ExternalURL string          `json:"external_url,omitempty"`
	Images      []EvidenceImage `json:"images,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasContent 判断证据是否携带有效佐证内容
func (e *Evidence) HasContent() bool {
	return e.ExternalURL != "" || len(e.Images) > 0
}

// Clone 返回证据的深拷贝
func (e *Evidence) Clone() *Evidence {
	cp := *e
	if len(e.Images) > 0 {
		cp.Images = make([]EvidenceImage, len(e.Images))
		copy(cp.Images, e.Images)
	}
	return &cp
}
