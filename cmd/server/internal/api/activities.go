package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/plantrack/cmd/server/internal/audit"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
	"github.com/houzhh15/plantrack/pkg/logger"
)

// createActivityRequest 创建活动的请求体
type createActivityRequest struct {
	Year                    int     `json:"year" binding:"required"`
	TargetCommitted         float64 `json:"target_committed" binding:"required"`
	ResponsibleDepartmentID *int64  `json:"responsible_department_id"`
	StartDate               string  `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate                 string  `json:"end_date" binding:"required"`   // YYYY-MM-DD
}

// updateActivityRequest 编辑活动的请求体，缺省字段保持不变
type updateActivityRequest struct {
	TargetCommitted         *float64 `json:"target_committed"`
	ResponsibleDepartmentID *int64   `json:"responsible_department_id"`
	Status                  *string  `json:"status"`
	StartDate               *string  `json:"start_date"`
	EndDate                 *string  `json:"end_date"`
}

// evidenceRequest 证据登记/重登记的请求体
type evidenceRequest struct {
	Description string `json:"description"`
	ExternalURL string `json:"external_url"`
	Images      []struct {
		FileName    string `json:"file_name"`
		ContentType string `json:"content_type"`
		Data        string `json:"data"` // base64
		SizeBytes   int64  `json:"size_bytes"`
	} `json:"images"`
}

// HandleListActivities GET /api/v1/products/:code/activities?year=YYYY
func HandleListActivities(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, ok := parseYearQuery(c, 0)
		if !ok || year == 0 {
			badRequestResponse(c, "INVALID_YEAR", "year query parameter is required")
			return
		}

		successResponse(c, l.ActivitiesFor(c.Param("code"), year))
	}
}

// HandleGetActivity GET /api/v1/activities/:id
func HandleGetActivity(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			badRequestResponse(c, "INVALID_ACTIVITY_ID", "activity id must be an integer")
			return
		}

		activity, err := l.Get(id)
		if err != nil {
			engineErrorResponse(c, err)
			return
		}
		successResponse(c, activity)
	}
}

// HandleCreateActivity POST /api/v1/products/:code/activities
func HandleCreateActivity(l *ledger.Ledger, auditLog *audit.MutationLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createActivityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			auditLog.LogRejection(currentUser(c), audit.ActionCreateActivity, err.Error())
			badRequestResponse(c, "INVALID_INPUT", err.Error())
			return
		}

		start, err := parseDate(req.StartDate)
		if err != nil {
			badRequestResponse(c, "INVALID_DATE", "start_date must be YYYY-MM-DD")
			return
		}
		end, err := parseDate(req.EndDate)
		if err != nil {
			badRequestResponse(c, "INVALID_DATE", "end_date must be YYYY-MM-DD")
			return
		}

		code := c.Param("code")
		activity, err := l.Create(context.Background(), ledger.CreateActivityInput{
			ProductCode:             code,
			Year:                    req.Year,
			TargetCommitted:         req.TargetCommitted,
			ResponsibleDepartmentID: req.ResponsibleDepartmentID,
			StartDate:               start,
			EndDate:                 end,
		})
		auditLog.LogMutation(currentUser(c), audit.ActionCreateActivity, code, activityID(activity), err)
		if err != nil {
			logger.LogLedgerMutation(logger.L(), "create", code, req.Year, 0, errorCode(err))
			engineErrorResponse(c, err)
			return
		}

		logger.LogLedgerMutation(logger.L(), "create", code, req.Year, activity.ID, "")
		createdResponse(c, activity)
	}
}

// HandleUpdateActivity PUT /api/v1/activities/:id
func HandleUpdateActivity(l *ledger.Ledger, auditLog *audit.MutationLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			badRequestResponse(c, "INVALID_ACTIVITY_ID", "activity id must be an integer")
			return
		}

		var req updateActivityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			auditLog.LogRejection(currentUser(c), audit.ActionUpdateActivity, err.Error())
			badRequestResponse(c, "INVALID_INPUT", err.Error())
			return
		}

		input := ledger.UpdateActivityInput{
			TargetCommitted:         req.TargetCommitted,
			ResponsibleDepartmentID: req.ResponsibleDepartmentID,
		}
		if req.Status != nil {
			status := models.ActivityStatus(*req.Status)
			input.Status = &status
		}
		if req.StartDate != nil {
			start, err := parseDate(*req.StartDate)
			if err != nil {
				badRequestResponse(c, "INVALID_DATE", "start_date must be YYYY-MM-DD")
				return
			}
			input.StartDate = &start
		}
		if req.EndDate != nil {
			end, err := parseDate(*req.EndDate)
			if err != nil {
				badRequestResponse(c, "INVALID_DATE", "end_date must be YYYY-MM-DD")
				return
			}
			input.EndDate = &end
		}

		activity, err := l.Update(context.Background(), id, input)
		auditLog.LogMutation(currentUser(c), audit.ActionUpdateActivity, productCode(activity), id, err)
		if err != nil {
			logger.LogLedgerMutation(logger.L(), "update", productCode(activity), 0, id, errorCode(err))
			engineErrorResponse(c, err)
			return
		}

		logger.LogLedgerMutation(logger.L(), "update", activity.ProductCode, activity.Year, id, "")
		successResponse(c, activity)
	}
}

// HandleDeleteActivity DELETE /api/v1/activities/:id
func HandleDeleteActivity(l *ledger.Ledger, auditLog *audit.MutationLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			badRequestResponse(c, "INVALID_ACTIVITY_ID", "activity id must be an integer")
			return
		}

		// 删除前读取产品编码用于审计
		code := ""
		if current, getErr := l.Get(id); getErr == nil {
			code = current.ProductCode
		}

		err = l.Delete(context.Background(), id)
		auditLog.LogMutation(currentUser(c), audit.ActionDeleteActivity, code, id, err)
		if err != nil {
			logger.LogLedgerMutation(logger.L(), "delete", code, 0, id, errorCode(err))
			engineErrorResponse(c, err)
			return
		}

		logger.LogLedgerMutation(logger.L(), "delete", code, 0, id, "")
		successResponse(c, gin.H{"deleted": true, "id": id})
	}
}

// HandleAttachEvidence POST /api/v1/activities/:id/evidence
// 登记/重登记证据，成功即活动转为 COMPLETED
func HandleAttachEvidence(l *ledger.Ledger, auditLog *audit.MutationLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			badRequestResponse(c, "INVALID_ACTIVITY_ID", "activity id must be an integer")
			return
		}

		var req evidenceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			auditLog.LogRejection(currentUser(c), audit.ActionAttachEvidence, err.Error())
			badRequestResponse(c, "INVALID_INPUT", err.Error())
			return
		}

		input := ledger.EvidenceInput{
			Description: req.Description,
			ExternalURL: req.ExternalURL,
		}
		for _, img := range req.Images {
			input.Images = append(input.Images, models.EvidenceImage{
				FileName:    img.FileName,
				ContentType: img.ContentType,
				Data:        img.Data,
				SizeBytes:   img.SizeBytes,
			})
		}

		activity, err := l.AttachEvidence(context.Background(), id, input)
		auditLog.LogMutation(currentUser(c), audit.ActionAttachEvidence, productCode(activity), id, err)
		if err != nil {
			logger.LogLedgerMutation(logger.L(), "attach_evidence", productCode(activity), 0, id, errorCode(err))
			engineErrorResponse(c, err)
			return
		}

		logger.LogLedgerMutation(logger.L(), "attach_evidence", activity.ProductCode, activity.Year, id, "")
		successResponse(c, activity)
	}
}

func activityID(a *models.Activity) int64 {
	if a == nil {
		return 0
	}
	return a.ID
}

func productCode(a *models.Activity) string {
	if a == nil {
		return ""
	}
	return a.ProductCode
}
