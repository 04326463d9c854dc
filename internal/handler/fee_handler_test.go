package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/middleware"
	"github.com/noah-isme/campus-ledger/internal/models"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
	"github.com/noah-isme/campus-ledger/pkg/response"
)

type feeServiceStub struct {
	createID  string
	createErr error
	created   dto.CreateFeeRequest

	bulkIDs []string
	bulkErr error

	fee    *models.Fee
	getErr error

	listed     string
	fees       []models.Fee
	updateErr  error
	deleteErr  error
	payment    dto.ProcessPaymentRequest
	paymentID  string
	paymentErr error
	swept      int
	sweepErr   error
	stats      models.FeeStats
}

func (s *feeServiceStub) CreateFee(ctx context.Context, req dto.CreateFeeRequest) (string, error) {
	s.created = req
	return s.createID, s.createErr
}

func (s *feeServiceStub) BulkCreateFees(ctx context.Context, reqs []dto.CreateFeeRequest) ([]string, error) {
	return s.bulkIDs, s.bulkErr
}

func (s *feeServiceStub) GetFee(ctx context.Context, id string) (*models.Fee, error) {
	return s.fee, s.getErr
}

func (s *feeServiceStub) GetAllFees(ctx context.Context) []models.Fee {
	s.listed = "all"
	return s.fees
}

func (s *feeServiceStub) GetStudentFees(ctx context.Context, studentID string) []models.Fee {
	s.listed = "student:" + studentID
	return s.fees
}

func (s *feeServiceStub) GetFeesByStatus(ctx context.Context, status models.FeeStatus) []models.Fee {
	s.listed = "status:" + string(status)
	return s.fees
}

func (s *feeServiceStub) GetFeesByCategory(ctx context.Context, category models.FeeCategory) []models.Fee {
	s.listed = "category:" + string(category)
	return s.fees
}

func (s *feeServiceStub) UpdateFee(ctx context.Context, id string, req dto.UpdateFeeRequest) error {
	return s.updateErr
}

func (s *feeServiceStub) DeleteFee(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *feeServiceStub) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (string, error) {
	s.payment = req
	return s.paymentID, s.paymentErr
}

func (s *feeServiceStub) GetFeePayments(ctx context.Context, feeID string) []models.Payment {
	return []models.Payment{{ID: "pay_1", FeeID: feeID}}
}

func (s *feeServiceStub) UpdateOverdueFees(ctx context.Context) (int, error) {
	return s.swept, s.sweepErr
}

func (s *feeServiceStub) GetFeeStats(ctx context.Context) models.FeeStats {
	return s.stats
}

func (s *feeServiceStub) GetStudentFeeStats(ctx context.Context, studentID string) models.StudentFeeStats {
	return models.StudentFeeStats{Fees: []models.Fee{}}
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asAdmin(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) response.Result {
	t.Helper()
	var result response.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestFeeHandlerCreate(t *testing.T) {
	svc := &feeServiceStub{createID: "fee_1"}
	h := NewFeeHandler(svc)

	body := []byte(`{"studentId":"S1","amount":"1500.50","dueDate":"2025-04-01","category":"tuition"}`)
	c, w := newGinContext(http.MethodPost, "/fees", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	result := decodeResult(t, w)
	assert.True(t, result.Success)
	assert.Equal(t, "fee_1", result.ID)
	assert.True(t, svc.created.Amount.Equal(decimal.RequireFromString("1500.50")))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestFeeHandlerCreateFailures(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{})
	c, w := newGinContext(http.MethodPost, "/fees", []byte(`{"amount":`))
	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	result := decodeResult(t, w)
	assert.False(t, result.Success)
	assert.Equal(t, "VALIDATION_ERROR", result.Error.Code)

	h = NewFeeHandler(&feeServiceStub{createErr: appErrors.Clone(appErrors.ErrStore, "failed to create fee")})
	c, w = newGinContext(http.MethodPost, "/fees", []byte(`{"studentId":"S1"}`))
	h.Create(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, decodeResult(t, w).Success)
}

func TestFeeHandlerBulkCreate(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{bulkIDs: []string{"fee_1", "fee_2"}})
	c, w := newGinContext(http.MethodPost, "/fees/bulk", []byte(`{"fees":[{"studentId":"S1"},{"studentId":"S2"}]}`))
	h.BulkCreate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			IDs []string `json:"ids"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, []string{"fee_1", "fee_2"}, body.Data.IDs)
}

func TestFeeHandlerListFilterPrecedence(t *testing.T) {
	cases := []struct {
		query string
		want  string
		code  int
	}{
		{"", "all", http.StatusOK},
		{"?studentId=S1&status=paid", "student:S1", http.StatusOK},
		{"?status=overdue&category=lab", "status:overdue", http.StatusOK},
		{"?category=lab", "category:lab", http.StatusOK},
		{"?status=settled", "", http.StatusBadRequest},
		{"?category=parking", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			svc := &feeServiceStub{fees: []models.Fee{{ID: "fee_1"}}}
			c, w := newGinContext(http.MethodGet, "/fees"+tc.query, nil)
			NewFeeHandler(svc).List(c)
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.want, svc.listed)
		})
	}
}

func TestFeeHandlerGet(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{fee: &models.Fee{ID: "fee_1", Status: models.FeeStatusPending}})
	c, w := newGinContext(http.MethodGet, "/fees/fee_1", nil)
	c.Params = gin.Params{{Key: "id", Value: "fee_1"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)

	h = NewFeeHandler(&feeServiceStub{getErr: appErrors.Clone(appErrors.ErrNotFound, "fee not found")})
	c, w = newGinContext(http.MethodGet, "/fees/missing", nil)
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeeHandlerProcessPaymentDefaultsReceiver(t *testing.T) {
	svc := &feeServiceStub{paymentID: "pay_9"}
	h := NewFeeHandler(svc)

	c, w := newGinContext(http.MethodPost, "/fees/payments", []byte(`{"feeId":"fee_1","paymentMethod":"cash"}`))
	asAdmin(c)
	h.ProcessPayment(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pay_9", decodeResult(t, w).ID)
	assert.Equal(t, "admin-1", svc.payment.ReceivedBy)

	c, _ = newGinContext(http.MethodPost, "/fees/payments", []byte(`{"feeId":"fee_1","paymentMethod":"cash","receivedBy":"bursar"}`))
	asAdmin(c)
	h.ProcessPayment(c)
	assert.Equal(t, "bursar", svc.payment.ReceivedBy)
}

func TestFeeHandlerProcessPaymentConflict(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{paymentErr: appErrors.Clone(appErrors.ErrConflict, "fee is already paid")})
	c, w := newGinContext(http.MethodPost, "/fees/payments", []byte(`{"feeId":"fee_1","paymentMethod":"cash"}`))
	asAdmin(c)
	h.ProcessPayment(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	result := decodeResult(t, w)
	assert.False(t, result.Success)
	assert.Equal(t, "CONFLICT", result.Error.Code)
}

func TestFeeHandlerOverdueSweep(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{swept: 4})
	c, w := newGinContext(http.MethodPost, "/fees/overdue-sweep", nil)
	h.OverdueSweep(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"updated":4}}`, w.Body.String())
}

func TestFeeHandlerUpdateAndDelete(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{})
	c, w := newGinContext(http.MethodPatch, "/fees/fee_1", []byte(`{"description":"Lab fee"}`))
	c.Params = gin.Params{{Key: "id", Value: "fee_1"}}
	h.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fee_1", decodeResult(t, w).ID)

	h = NewFeeHandler(&feeServiceStub{deleteErr: appErrors.Clone(appErrors.ErrStore, "failed to delete fee")})
	c, w = newGinContext(http.MethodDelete, "/fees/fee_1", nil)
	c.Params = gin.Params{{Key: "id", Value: "fee_1"}}
	h.Delete(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFeeHandlerStats(t *testing.T) {
	h := NewFeeHandler(&feeServiceStub{stats: models.FeeStats{TotalFees: 4, PaidFees: 1, CollectionPercentage: 25}})
	c, w := newGinContext(http.MethodGet, "/fees/stats", nil)
	h.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"collectionPercentage":25`)
}
