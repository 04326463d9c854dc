package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/repository"
	"github.com/noah-isme/campus-ledger/internal/service"
	"github.com/noah-isme/campus-ledger/internal/store/memory"
	"github.com/noah-isme/campus-ledger/pkg/idgen"
)

const testSecret = "router-secret"

type testServer struct {
	engine *gin.Engine
	audit  *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := memory.New()
	clock := func() time.Time { return time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) }
	validate := service.NewValidator()
	fees := service.NewFeeService(repository.NewFeeRepository(s), repository.NewPaymentRepository(s), validate, nil,
		service.FeeServiceConfig{Clock: clock, NewID: idgen.Sequence()})
	attendance := service.NewAttendanceService(repository.NewAttendanceRepository(s), validate, nil, clock, nil)
	metrics := service.NewMetricsService()

	core, logs := observer.New(zap.InfoLevel)
	engine := gin.New()
	Routes{
		Fees:       NewFeeHandler(fees),
		Attendance: NewAttendanceHandler(attendance),
		Reports:    NewReportHandler(fees, attendance, service.NewExportService(nil, clock, nil, nil, nil), validate),
		Metrics:    NewMetricsHandler(metrics),
		Tokens:     service.NewTokenVerifier(testSecret),
		Audit:      zap.New(core),
	}.Register(engine.Group("/api/v1"))
	return &testServer{engine: engine, audit: logs}
}

func bearer(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (s *testServer) do(method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/v1/fees", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/v1/fees", "Bearer nope", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/v1/fees", "Token abc", nil).Code)
}

func TestRoutesFeeLifecycle(t *testing.T) {
	srv := newTestServer(t)
	admin := bearer(t, "admin-1", models.RoleAdmin)

	w := srv.do(http.MethodPost, "/api/v1/fees", admin, map[string]interface{}{
		"studentId": "S1", "amount": "1200", "dueDate": "2025-02-01", "category": "tuition",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	feeID := decodeResult(t, w).ID
	require.Equal(t, "fee_1", feeID)

	w = srv.do(http.MethodPost, "/api/v1/fees/overdue-sweep", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":1`)

	w = srv.do(http.MethodPost, "/api/v1/fees/payments", admin, map[string]interface{}{
		"feeId": feeID, "paymentMethod": "online", "paymentRef": "TXN-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(http.MethodPost, "/api/v1/fees/payments", admin, map[string]interface{}{
		"feeId": feeID, "paymentMethod": "online",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = srv.do(http.MethodGet, "/api/v1/fees/"+feeID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"paid"`)
	assert.Contains(t, w.Body.String(), `"receivedBy":"admin-1"`)

	w = srv.do(http.MethodGet, "/api/v1/fees/"+feeID+"/payments", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"paymentRef":"TXN-1"`)

	w = srv.do(http.MethodGet, "/api/v1/fees/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"collectionPercentage":100`)

	actions := []string{}
	for _, entry := range srv.audit.All() {
		actions = append(actions, entry.ContextMap()["action"].(string))
	}
	assert.Equal(t, []string{"fee.create", "fee.overdue_sweep", "fee.payment"}, actions, "failed mutations are not audited")
}

func TestRoutesRoleChecks(t *testing.T) {
	srv := newTestServer(t)
	faculty := bearer(t, "teacher-1", models.RoleFaculty)
	student := bearer(t, "S1", models.RoleStudent)

	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/api/v1/fees", faculty, map[string]string{}).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, "/api/v1/fees", student, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, "/api/v1/reports/fees?from=2025-03-01&to=2025-03-31", faculty, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, "/api/v1/metrics/summary", faculty, nil).Code)

	w := srv.do(http.MethodPost, "/api/v1/attendance", faculty, map[string]interface{}{
		"classId": "10A", "date": "2025-03-03",
		"records": []map[string]string{{"studentId": "S1", "status": "late"}, {"studentId": "S2", "status": "present"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// students read their own records only
	w = srv.do(http.MethodGet, "/api/v1/attendance/students/S1/stats", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"attendancePercentage":50`)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodGet, "/api/v1/attendance/students/S2", student, nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/v1/students/S1/fees/stats", student, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/api/v1/attendance", student, map[string]string{}).Code)

	w = srv.do(http.MethodGet, "/api/v1/attendance/class/10A?date=2025-03-03", faculty, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"markedBy":"teacher-1"`)
	assert.Contains(t, w.Body.String(), `"total":2`)
}
