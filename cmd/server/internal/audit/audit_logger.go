package audit

import (
	"encoding/json"
	"log"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Action 审计日志操作类型
type Action string

const (
	ActionCreateActivity   Action = "create_activity"
	ActionUpdateActivity   Action = "update_activity"
	ActionDeleteActivity   Action = "delete_activity"
	ActionAttachEvidence   Action = "attach_evidence"
	ActionAssignDepartment Action = "assign_department"
	ActionReloadData       Action = "reload_data"
	ActionRefreshAnalytics Action = "refresh_analytics"
)

// MutationLogger 记录台账与目录的全部变更尝试，JSONL 格式，
// 底层由 lumberjack 按大小/保留期轮转。
type MutationLogger struct {
	logger *log.Logger
}

// NewMutationLogger 创建带自动轮转的审计日志记录器
func NewMutationLogger(baseDir string) *MutationLogger {
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(baseDir, "mutations.log"),
		MaxSize:    100, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}

	return &MutationLogger{
		logger: log.New(writer, "", 0),
	}
}

// LogMutation 记录一次变更尝试（成功或失败）
func (m *MutationLogger) LogMutation(operator string, action Action, productCode string, activityID int64, err error) {
	record := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"operator":  operator,
		"action":    action,
		"result":    "success",
	}
	if productCode != "" {
		record["product_code"] = productCode
	}
	if activityID != 0 {
		record["activity_id"] = activityID
	}
	if err != nil {
		record["result"] = "failed"
		record["error_message"] = err.Error()
	}

	data, _ := json.Marshal(record)
	m.logger.Println(string(data))
}

// LogRejection 记录被请求校验拒绝的变更
func (m *MutationLogger) LogRejection(operator string, action Action, reason string) {
	record := map[string]interface{}{
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"operator":         operator,
		"action":           action,
		"result":           "rejected",
		"rejection_reason": reason,
	}

	data, _ := json.Marshal(record)
	m.logger.Println(string(data))
}
