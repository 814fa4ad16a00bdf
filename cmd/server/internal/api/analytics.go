package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/plantrack/cmd/server/internal/audit"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
	"github.com/houzhh15/plantrack/cmd/server/internal/services"
)

// HandleAnalyticsReport GET /api/v1/analytics/report?year=YYYY&department_id=N
// 缺省 year 表示跨年度混合报表
func HandleAnalyticsReport(svc services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, ok := parseYearQuery(c, int(services.AllYears))
		if !ok {
			badRequestResponse(c, "INVALID_YEAR", "year must be an integer")
			return
		}
		if year != int(services.AllYears) && !models.IsPlanYear(year) {
			engineErrorResponse(c, ledger.ErrYearOutOfPlan)
			return
		}

		filter := services.AnalyticsFilter{Year: year}
		if raw := c.Query("department_id"); raw != "" {
			deptID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				badRequestResponse(c, "INVALID_DEPARTMENT_ID", "department_id must be an integer")
				return
			}
			filter.DepartmentID = &deptID
		}

		report, err := svc.Report(c.Request.Context(), filter)
		if err != nil {
			engineErrorResponse(c, err)
			return
		}
		successResponse(c, report)
	}
}

// HandleRefreshAnalytics POST /api/v1/analytics/refresh
// 显式刷新：清空结果缓存，后续请求同步重算
func HandleRefreshAnalytics(svc services.AnalyticsService, auditLog *audit.MutationLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.Refresh()
		auditLog.LogMutation(currentUser(c), audit.ActionRefreshAnalytics, "", 0, nil)
		successResponse(c, gin.H{"refreshed": true})
	}
}
