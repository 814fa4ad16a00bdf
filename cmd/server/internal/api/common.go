package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
)

// currentUser 获取当前操作者标识
// 简化实现：若后续有鉴权中间件注入用户名，可在 context 中读取
func currentUser(c *gin.Context) string {
	if user, exists := c.Get("user"); exists {
		if username, ok := user.(string); ok && username != "" {
			return username
		}
	}

	if u := c.GetHeader("X-User"); u != "" {
		return u
	}

	// 默认返回 system (避免空字符串)
	return "system"
}

// successResponse 返回成功响应
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// createdResponse 返回 201 响应
func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

// badRequestResponse 返回 400 响应
func badRequestResponse(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// engineStatus 引擎哨兵错误到 HTTP 状态码的映射
var engineStatus = []struct {
	err    error
	status int
}{
	{catalog.ErrProductNotFound, http.StatusNotFound},
	{ledger.ErrActivityNotFound, http.StatusNotFound},
	{ledger.ErrInvalidCommit, http.StatusBadRequest},
	{ledger.ErrInvalidDateRange, http.StatusBadRequest},
	{ledger.ErrYearOutOfPlan, http.StatusBadRequest},
	{ledger.ErrEvidenceContentRequired, http.StatusBadRequest},
	{ledger.ErrEvidenceImageLimit, http.StatusBadRequest},
	{ledger.ErrEvidenceImageTooLarge, http.StatusBadRequest},
	{ledger.ErrTargetExceeded, http.StatusConflict},
	{ledger.ErrStatusTerminal, http.StatusConflict},
	{ledger.ErrNotPersisted, http.StatusConflict},
	{ledger.ErrEvidenceRequired, http.StatusConflict},
	{ledger.ErrUpstreamUnavailable, http.StatusBadGateway},
}

// errorCode 提取错误对应的稳定错误码
func errorCode(err error) string {
	for _, entry := range engineStatus {
		if errors.Is(err, entry.err) {
			return entry.err.Error()
		}
	}
	return "INTERNAL_ERROR"
}

// engineErrorResponse 将引擎错误映射为带错误码的 HTTP 响应
func engineErrorResponse(c *gin.Context, err error) {
	for _, entry := range engineStatus {
		if errors.Is(err, entry.err) {
			c.JSON(entry.status, gin.H{
				"success": false,
				"error": gin.H{
					"code":    entry.err.Error(),
					"message": err.Error(),
				},
			})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	})
}

// parseDate 解析 YYYY-MM-DD 格式的日期参数
func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

// parseYearQuery 解析可选的 year 查询参数，缺省返回 fallback
func parseYearQuery(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return fallback, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return year, true
}
