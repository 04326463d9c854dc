package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/models"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
	"github.com/noah-isme/campus-ledger/pkg/response"
)

type feeService interface {
	CreateFee(ctx context.Context, req dto.CreateFeeRequest) (string, error)
	BulkCreateFees(ctx context.Context, reqs []dto.CreateFeeRequest) ([]string, error)
	GetFee(ctx context.Context, id string) (*models.Fee, error)
	GetAllFees(ctx context.Context) []models.Fee
	GetStudentFees(ctx context.Context, studentID string) []models.Fee
	GetFeesByStatus(ctx context.Context, status models.FeeStatus) []models.Fee
	GetFeesByCategory(ctx context.Context, category models.FeeCategory) []models.Fee
	UpdateFee(ctx context.Context, id string, req dto.UpdateFeeRequest) error
	DeleteFee(ctx context.Context, id string) error
	ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (string, error)
	GetFeePayments(ctx context.Context, feeID string) []models.Payment
	UpdateOverdueFees(ctx context.Context) (int, error)
	GetFeeStats(ctx context.Context) models.FeeStats
	GetStudentFeeStats(ctx context.Context, studentID string) models.StudentFeeStats
}

// FeeHandler exposes the fee ledger.
type FeeHandler struct {
	service feeService
}

// NewFeeHandler constructs a fee handler.
func NewFeeHandler(svc feeService) *FeeHandler {
	return &FeeHandler{service: svc}
}

// Create godoc
// @Summary Create fee
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeeRequest true "Fee payload"
// @Success 201 {object} response.Result
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req dto.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	id, err := h.service.CreateFee(c.Request.Context(), req)
	if err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusCreated, id, nil)
}

// BulkCreate godoc
// @Summary Create fees in one batch
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.BulkCreateFeesRequest true "Fees"
// @Success 201 {object} response.Result
// @Router /fees/bulk [post]
func (h *FeeHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkCreateFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	ids, err := h.service.BulkCreateFees(c.Request.Context(), req.Fees)
	if err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "", gin.H{"ids": ids})
}

// List godoc
// @Summary List fees
// @Description Filters are exclusive, checked in order studentId, status, category.
// @Tags Fees
// @Produce json
// @Param studentId query string false "Student ID"
// @Param status query string false "pending|paid|overdue"
// @Param category query string false "Fee category"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var fees []models.Fee
	switch {
	case c.Query("studentId") != "":
		fees = h.service.GetStudentFees(ctx, c.Query("studentId"))
	case c.Query("status") != "":
		status := models.FeeStatus(c.Query("status"))
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status"))
			return
		}
		fees = h.service.GetFeesByStatus(ctx, status)
	case c.Query("category") != "":
		category := models.FeeCategory(c.Query("category"))
		if !category.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid category"))
			return
		}
		fees = h.service.GetFeesByCategory(ctx, category)
	default:
		fees = h.service.GetAllFees(ctx)
	}
	response.JSON(c, http.StatusOK, fees, map[string]interface{}{"total": len(fees)})
}

// Get godoc
// @Summary Get fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.service.GetFee(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee)
}

// Payments godoc
// @Summary List receipts recorded against a fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/payments [get]
func (h *FeeHandler) Payments(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.GetFeePayments(c.Request.Context(), c.Param("id")))
}

// Update godoc
// @Summary Update fee details
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body dto.UpdateFeeRequest true "Fields to change"
// @Success 200 {object} response.Result
// @Router /fees/{id} [patch]
func (h *FeeHandler) Update(c *gin.Context) {
	var req dto.UpdateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	if err := h.service.UpdateFee(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusOK, c.Param("id"), nil)
}

// Delete godoc
// @Summary Delete fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Result
// @Router /fees/{id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteFee(c.Request.Context(), c.Param("id")); err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusOK, c.Param("id"), nil)
}

// ProcessPayment godoc
// @Summary Record a payment against a fee
// @Description receivedBy defaults to the authenticated user.
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.ProcessPaymentRequest true "Payment"
// @Success 201 {object} response.Result
// @Router /fees/payments [post]
func (h *FeeHandler) ProcessPayment(c *gin.Context) {
	var req dto.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Failure(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	req.ReceivedBy = actorOr(c, req.ReceivedBy)
	paymentID, err := h.service.ProcessPayment(c.Request.Context(), req)
	if err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusCreated, paymentID, gin.H{"feeId": req.FeeID})
}

// OverdueSweep godoc
// @Summary Mark pending fees past their due date as overdue
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Result
// @Router /fees/overdue-sweep [post]
func (h *FeeHandler) OverdueSweep(c *gin.Context) {
	updated, err := h.service.UpdateOverdueFees(c.Request.Context())
	if err != nil {
		response.Failure(c, err)
		return
	}
	response.Success(c, http.StatusOK, "", gin.H{"updated": updated})
}

// Stats godoc
// @Summary Fee counts per status
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/stats [get]
func (h *FeeHandler) Stats(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.GetFeeStats(c.Request.Context()))
}

// StudentStats godoc
// @Summary Amounts owed and paid by one student
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/fees/stats [get]
func (h *FeeHandler) StudentStats(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.GetStudentFeeStats(c.Request.Context(), c.Param("id")))
}
