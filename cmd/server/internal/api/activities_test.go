package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/plantrack/cmd/server/internal/audit"
	"github.com/houzhh15/plantrack/cmd/server/internal/catalog"
	"github.com/houzhh15/plantrack/cmd/server/internal/directory"
	"github.com/houzhh15/plantrack/cmd/server/internal/ledger"
	"github.com/houzhh15/plantrack/cmd/server/internal/models"
	"github.com/houzhh15/plantrack/cmd/server/internal/services"
	"github.com/houzhh15/plantrack/pkg/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	_, err := logger.Init(logger.Config{Level: "error"})
	require.NoError(t, err)

	store := catalog.NewStore()
	require.NoError(t, store.Replace([]*models.Product{
		{
			Code:          "P-500",
			Name:          "Vías terciarias mejoradas",
			Sector:        "Infraestructura",
			StrategicLine: "Territorio conectado",
			TargetByYear:  models.YearAmounts{2025: 100},
			BudgetByYear:  models.YearAmounts{2025: 800000},
		},
	}))

	l := ledger.NewLedger(store, ledger.NewMemoryRepository())
	resolver := services.NewResolverService(l)
	cache := services.NewResultCache(time.Minute)
	l.OnMutate(cache.InvalidateProduct)
	dir := directory.NewMemoryDirectory(map[int64]string{7: "Secretaría de Infraestructura"})
	analytics := services.NewAnalyticsService(store, resolver, dir, cache)
	auditLog := audit.NewMutationLogger(t.TempDir())

	r := gin.New()
	r.GET("/api/v1/products/:code", HandleGetProduct(store))
	r.PUT("/api/v1/products/:code/department", HandleAssignDepartment(store, cache, auditLog))
	r.GET("/api/v1/products/:code/activities", HandleListActivities(l))
	r.POST("/api/v1/products/:code/activities", HandleCreateActivity(l, auditLog))
	r.POST("/api/v1/products/:code/validate-commit", HandleValidateCommit(store, l))
	r.GET("/api/v1/activities/:id", HandleGetActivity(l))
	r.PUT("/api/v1/activities/:id", HandleUpdateActivity(l, auditLog))
	r.DELETE("/api/v1/activities/:id", HandleDeleteActivity(l, auditLog))
	r.POST("/api/v1/activities/:id/evidence", HandleAttachEvidence(l, auditLog))
	r.GET("/api/v1/analytics/report", HandleAnalyticsReport(analytics))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func createTestActivity(t *testing.T, r *gin.Engine, amount float64) int64 {
	t.Helper()
	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/products/P-500/activities", gin.H{
		"year":             2025,
		"target_committed": amount,
		"start_date":       "2025-02-01",
		"end_date":         "2025-08-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := resp["data"].(map[string]interface{})
	return int64(data["id"].(float64))
}

func TestHandleCreateActivity(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/products/P-500/activities", gin.H{
		"year":             2025,
		"target_committed": 40.0,
		"start_date":       "2025-02-01",
		"end_date":         "2025-08-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "P-500", data["product_code"])
	assert.Equal(t, string(models.StatusPending), data["status"])
	assert.Greater(t, data["id"].(float64), 0.0)
}

func TestHandleCreateActivity_InvalidPayload(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/products/P-500/activities", gin.H{
		"year": 2025,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestHandleCreateActivity_TargetExceeded(t *testing.T) {
	r := newTestRouter(t)
	createTestActivity(t, r, 80)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/products/P-500/activities", gin.H{
		"year":             2025,
		"target_committed": 30.0,
		"start_date":       "2025-02-01",
		"end_date":         "2025-08-31",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, ledger.ErrTargetExceeded.Error(), errObj["code"])
}

func TestHandleCreateActivity_UnknownProduct(t *testing.T) {
	r := newTestRouter(t)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/products/NOPE/activities", gin.H{
		"year":             2025,
		"target_committed": 10.0,
		"start_date":       "2025-02-01",
		"end_date":         "2025-08-31",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, catalog.ErrProductNotFound.Error(), errObj["code"])
}

func TestHandleAttachEvidence(t *testing.T) {
	r := newTestRouter(t)
	id := createTestActivity(t, r, 50)

	// 无内容的证据被拒绝
	w, resp := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/activities/%d/evidence", id), gin.H{
		"description": "sin soporte",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, ledger.ErrEvidenceContentRequired.Error(), errObj["code"])

	// 带外部链接的证据使活动转为 COMPLETED
	w, resp = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/v1/activities/%d/evidence", id), gin.H{
		"description":  "acta de entrega",
		"external_url": "https://example.org/acta",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, string(models.StatusCompleted), data["status"])
	assert.NotNil(t, data["evidence"])
}

func TestHandleUpdateActivity_ExplicitCompleteWithoutEvidence(t *testing.T) {
	r := newTestRouter(t)
	id := createTestActivity(t, r, 50)

	w, resp := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/activities/%d", id), gin.H{
		"status": string(models.StatusCompleted),
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, ledger.ErrEvidenceRequired.Error(), errObj["code"])
}

func TestHandleDeleteActivity(t *testing.T) {
	r := newTestRouter(t)
	id := createTestActivity(t, r, 50)

	w, _ := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/activities/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/activities/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, ledger.ErrActivityNotFound.Error(), errObj["code"])
}

func TestHandleValidateCommit(t *testing.T) {
	r := newTestRouter(t)
	createTestActivity(t, r, 80)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/products/P-500/validate-commit", gin.H{
		"year":   2025,
		"amount": 30.0,
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, false, data["ok"])
	assert.Equal(t, 20.0, data["available"])
	assert.Equal(t, ledger.ReasonExceedsAvailable, data["reason"])
}

func TestHandleAnalyticsReport(t *testing.T) {
	r := newTestRouter(t)
	createTestActivity(t, r, 40)

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/analytics/report?year=2025", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := resp["data"].(map[string]interface{})
	summary := data["summary"].(map[string]interface{})
	assert.Equal(t, 1.0, summary["product_count"])

	// 年度越界被拒绝
	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/analytics/report?year=2030", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAssignDepartment_RefreshesDepartmentBuckets(t *testing.T) {
	r := newTestRouter(t)
	createTestActivity(t, r, 40)

	w, resp := doJSON(t, r, http.MethodGet, "/api/v1/analytics/report?year=2025", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	buckets := resp["data"].(map[string]interface{})["by_department"].([]interface{})
	require.Len(t, buckets, 1)
	assert.Equal(t, directory.UnassignedBucket, buckets[0].(map[string]interface{})["label"])

	w, resp = doJSON(t, r, http.MethodPut, "/api/v1/products/P-500/department", gin.H{
		"department_id": 7,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, 7.0, data["responsible_department_id"])

	// 缓存 TTL 未到也立即反映新归属
	w, resp = doJSON(t, r, http.MethodGet, "/api/v1/analytics/report?year=2025", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	buckets = resp["data"].(map[string]interface{})["by_department"].([]interface{})
	require.Len(t, buckets, 1)
	assert.Equal(t, "Secretaría de Infraestructura", buckets[0].(map[string]interface{})["label"])
}
