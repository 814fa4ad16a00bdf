package api

import (
	"github.com/gin-gonic/gin"

	"github.com/houzhh15/plantrack/cmd/server/internal/audit"
	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
	"github.com/houzhh15/plantrack/cmd/server/internal/services"
)

// HandleListProducts GET /api/v1/products
// 返回目录中的全部产品
func HandleListProducts(store *catalog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		successResponse(c, store.List())
	}
}

// HandleGetProduct GET /api/v1/products/:code
func HandleGetProduct(store *catalog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := store.Get(c.Param("code"))
		if err != nil {
			engineErrorResponse(c, err)
			return
		}
		successResponse(c, product)
	}
}

// HandleAssignDepartment PUT /api/v1/products/:code/department
// 指派产品的负责部门（会话内唯一允许的产品字段修改）。
// 指派成功后失效该产品的分析缓存，部门分桶立即反映新归属。
func HandleAssignDepartment(store *catalog.Store, cache *services.ResultCache, auditLog *audit.MutationLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DepartmentID int64 `json:"department_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			auditLog.LogRejection(currentUser(c), audit.ActionAssignDepartment, err.Error())
			badRequestResponse(c, "INVALID_INPUT", err.Error())
			return
		}

		code := c.Param("code")
		err := store.AssignDepartment(code, req.DepartmentID)
		auditLog.LogMutation(currentUser(c), audit.ActionAssignDepartment, code, 0, err)
		if err != nil {
			engineErrorResponse(c, err)
			return
		}
		cache.InvalidateProduct(code)

		product, _ := store.Get(code)
		successResponse(c, product)
	}
}

// HandleGetProductProgress GET /api/v1/products/:code/progress?year=YYYY
// 指定 year 返回单年度进度，缺省返回跨年度综合进度
func HandleGetProductProgress(store *catalog.Store, resolver services.ResolverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := store.Get(c.Param("code"))
		if err != nil {
			engineErrorResponse(c, err)
			return
		}

		year, ok := parseYearQuery(c, 0)
		if !ok {
			badRequestResponse(c, "INVALID_YEAR", "year must be an integer")
			return
		}

		if year == 0 {
			successResponse(c, resolver.ProductProgress(product))
			return
		}
		if !models.IsPlanYear(year) {
			engineErrorResponse(c, ledger.ErrYearOutOfPlan)
			return
		}
		successResponse(c, resolver.YearProgress(product, year))
	}
}

// HandleGetProductBudget GET /api/v1/products/:code/budget?year=YYYY
// 指定 year 返回单年度预算对照，缺省返回全年度汇总
func HandleGetProductBudget(store *catalog.Store, budget services.BudgetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := store.Get(c.Param("code"))
		if err != nil {
			engineErrorResponse(c, err)
			return
		}

		year, ok := parseYearQuery(c, 0)
		if !ok {
			badRequestResponse(c, "INVALID_YEAR", "year must be an integer")
			return
		}

		if year == 0 {
			successResponse(c, budget.CompareAllYears(product))
			return
		}
		if !models.IsPlanYear(year) {
			engineErrorResponse(c, ledger.ErrYearOutOfPlan)
			return
		}
		successResponse(c, budget.Compare(product, year))
	}
}

// HandleValidateCommit POST /api/v1/products/:code/validate-commit
// 提交量预检：返回校验结果与剩余可分配目标，不改变台账
func HandleValidateCommit(store *catalog.Store, l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Year              int     `json:"year" binding:"required"`
			Amount            float64 `json:"amount"`
			ExcludeActivityID int64   `json:"exclude_activity_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestResponse(c, "INVALID_INPUT", err.Error())
			return
		}

		product, err := store.Get(c.Param("code"))
		if err != nil {
			engineErrorResponse(c, err)
			return
		}
		if !models.IsPlanYear(req.Year) {
			engineErrorResponse(c, ledger.ErrYearOutOfPlan)
			return
		}

		successResponse(c, l.ValidateCommit(product, req.Year, req.Amount, req.ExcludeActivityID))
	}
}
