package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-ledger/internal/dto"
	"github.com/noah-isme/campus-ledger/internal/models"
	"github.com/noah-isme/campus-ledger/internal/reporting"
	"github.com/noah-isme/campus-ledger/internal/repository"
	"github.com/noah-isme/campus-ledger/internal/store"
	"github.com/noah-isme/campus-ledger/pkg/idgen"
	appErrors "github.com/noah-isme/campus-ledger/pkg/errors"
)

type feeRepository interface {
	Create(ctx context.Context, fee models.Fee) error
	Get(ctx context.Context, id string) (*models.Fee, error)
	ListAll(ctx context.Context) ([]models.Fee, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Fee, error)
	ListByStatus(ctx context.Context, status models.FeeStatus) ([]models.Fee, error)
	ListByCategory(ctx context.Context, category models.FeeCategory) ([]models.Fee, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time, category *models.FeeCategory) ([]models.Fee, error)
	ListPendingDueBefore(ctx context.Context, now time.Time) ([]models.Fee, error)
	Update(ctx context.Context, id string, patch repository.FeeUpdate) error
	Delete(ctx context.Context, id string) error
	Batch() store.Batch
	AddCreate(b store.Batch, fee models.Fee)
	AddSettle(b store.Batch, id string, settlement models.FeeSettlement, now time.Time)
	AddMarkOverdue(b store.Batch, id string, now time.Time)
}

type paymentRepository interface {
	AddCreate(b store.Batch, payment models.Payment)
	ListByFee(ctx context.Context, feeID string) ([]models.Payment, error)
}

// FeeServiceConfig tunes the fee ledger. Zero values fall back to defaults.
type FeeServiceConfig struct {
	Clock               Clock
	NewID               func(prefix string) string
	PaymentLock         PaymentLock
	Metrics             *MetricsService
	OverdueSweepRetries int
}

// FeeService owns fee lifecycle, payment settlement and fee statistics.
type FeeService struct {
	fees      feeRepository
	payments  paymentRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       Clock
	newID     func(prefix string) string
	lock      PaymentLock
	metrics   *MetricsService
	retries   int
}

// NewFeeService constructs the fee ledger.
func NewFeeService(fees feeRepository, payments paymentRepository, validate *validator.Validate, logger *zap.Logger, cfg FeeServiceConfig) *FeeService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock
	}
	if cfg.NewID == nil {
		cfg.NewID = idgen.New
	}
	if cfg.OverdueSweepRetries <= 0 {
		cfg.OverdueSweepRetries = 3
	}
	return &FeeService{
		fees:      fees,
		payments:  payments,
		validator: validate,
		logger:    logger,
		now:       cfg.Clock,
		newID:     cfg.NewID,
		lock:      cfg.PaymentLock,
		metrics:   cfg.Metrics,
		retries:   cfg.OverdueSweepRetries,
	}
}

func (s *FeeService) buildFee(req dto.CreateFeeRequest, now time.Time) (models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Fee{}, validationFailure(err, "invalid fee payload")
	}
	dueDate, err := ParseDueDate(req.DueDate)
	if err != nil {
		return models.Fee{}, err
	}
	return models.Fee{
		ID:           s.newID(idgen.PrefixFee),
		StudentID:    req.StudentID,
		Amount:       req.Amount,
		DueDate:      dueDate,
		Description:  req.Description,
		Category:     models.FeeCategory(req.Category),
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		Status:       models.FeeStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CreateFee raises a pending fee and returns its id. Invalid input is
// rejected before the store is touched.
func (s *FeeService) CreateFee(ctx context.Context, req dto.CreateFeeRequest) (string, error) {
	fee, err := s.buildFee(req, s.now())
	if err != nil {
		return "", err
	}
	err = s.fees.Create(ctx, fee)
	s.metrics.RecordMutation("create_fee", err)
	if err != nil {
		s.logger.Error("create fee failed", zap.String("student_id", fee.StudentID), zap.Error(err))
		return "", storeFailure(err, "failed to create fee")
	}
	s.logger.Info("fee created", zap.String("fee_id", fee.ID), zap.String("student_id", fee.StudentID))
	return fee.ID, nil
}

// BulkCreateFees writes every fee in one atomic batch. Nothing is persisted
// if any record is invalid or the commit fails.
func (s *FeeService) BulkCreateFees(ctx context.Context, reqs []dto.CreateFeeRequest) ([]string, error) {
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one fee is required")
	}
	now := s.now()
	batch := s.fees.Batch()
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		fee, err := s.buildFee(req, now)
		if err != nil {
			return nil, err
		}
		s.fees.AddCreate(batch, fee)
		ids = append(ids, fee.ID)
	}
	err := batch.Commit(ctx)
	s.metrics.RecordMutation("bulk_create_fees", err)
	if err != nil {
		s.logger.Error("bulk create fees failed", zap.Int("count", len(reqs)), zap.Error(err))
		return nil, storeFailure(err, "failed to create fees")
	}
	s.logger.Info("fees created", zap.Int("count", len(ids)))
	return ids, nil
}

// GetFee returns a single fee.
func (s *FeeService) GetFee(ctx context.Context, id string) (*models.Fee, error) {
	fee, err := s.fees.Get(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "fee not found")
	}
	return fee, nil
}

// GetAllFees lists every fee, newest first. Store failures yield an empty list.
func (s *FeeService) GetAllFees(ctx context.Context) []models.Fee {
	fees, err := s.fees.ListAll(ctx)
	return s.degrade(fees, err, "list fees failed")
}

// GetStudentFees lists a student's fees by due date.
func (s *FeeService) GetStudentFees(ctx context.Context, studentID string) []models.Fee {
	fees, err := s.fees.ListByStudent(ctx, studentID)
	return s.degrade(fees, err, "list student fees failed", zap.String("student_id", studentID))
}

// GetFeesByStatus lists fees in one status by due date.
func (s *FeeService) GetFeesByStatus(ctx context.Context, status models.FeeStatus) []models.Fee {
	fees, err := s.fees.ListByStatus(ctx, status)
	return s.degrade(fees, err, "list fees by status failed", zap.String("status", string(status)))
}

// GetFeesByCategory lists fees in one category, newest first.
func (s *FeeService) GetFeesByCategory(ctx context.Context, category models.FeeCategory) []models.Fee {
	fees, err := s.fees.ListByCategory(ctx, category)
	return s.degrade(fees, err, "list fees by category failed", zap.String("category", string(category)))
}

func (s *FeeService) degrade(fees []models.Fee, err error, msg string, fields ...zap.Field) []models.Fee {
	if err != nil {
		s.logger.Warn(msg, append(fields, zap.Error(err))...)
		return []models.Fee{}
	}
	if fees == nil {
		return []models.Fee{}
	}
	return fees
}

// UpdateFee patches descriptive fields. Status changes only happen through
// ProcessPayment and UpdateOverdueFees.
func (s *FeeService) UpdateFee(ctx context.Context, id string, req dto.UpdateFeeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationFailure(err, "invalid fee update")
	}
	if req.Empty() {
		return appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	patch := repository.FeeUpdate{
		Amount:       req.Amount,
		Description:  req.Description,
		Semester:     req.Semester,
		AcademicYear: req.AcademicYear,
		UpdatedAt:    s.now(),
	}
	if req.DueDate != nil {
		dueDate, err := ParseDueDate(*req.DueDate)
		if err != nil {
			return err
		}
		patch.DueDate = &dueDate
	}
	if req.Category != nil {
		category := models.FeeCategory(*req.Category)
		patch.Category = &category
	}

	err := s.fees.Update(ctx, id, patch)
	s.metrics.RecordMutation("update_fee", err)
	if err != nil {
		s.logger.Error("update fee failed", zap.String("fee_id", id), zap.Error(err))
		return storeFailure(err, "failed to update fee")
	}
	return nil
}

// DeleteFee hard deletes a fee. Deleting an unknown id succeeds.
func (s *FeeService) DeleteFee(ctx context.Context, id string) error {
	err := s.fees.Delete(ctx, id)
	s.metrics.RecordMutation("delete_fee", err)
	if err != nil {
		s.logger.Error("delete fee failed", zap.String("fee_id", id), zap.Error(err))
		return storeFailure(err, "failed to delete fee")
	}
	return nil
}

// ProcessPayment settles a fee and writes its receipt in one batch, returning
// the payment id. The fee flip is guarded on the fee still being unpaid, so
// two racing payments cannot both commit.
func (s *FeeService) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationFailure(err, "invalid payment payload")
	}

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, req.FeeID)
		if err != nil {
			s.metrics.RecordMutation("process_payment", err)
			return "", err
		}
		defer release()
	}

	id, err := s.settle(ctx, req)
	s.metrics.RecordMutation("process_payment", err)
	if err != nil {
		return "", err
	}
	s.metrics.RecordPayment(req.PaymentMethod)
	return id, nil
}

func (s *FeeService) settle(ctx context.Context, req dto.ProcessPaymentRequest) (string, error) {
	fee, err := s.fees.Get(ctx, req.FeeID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("load fee for payment failed", zap.String("fee_id", req.FeeID), zap.Error(err))
		}
		return "", storeFailure(err, "fee not found")
	}
	if fee.Status == models.FeeStatusPaid {
		return "", appErrors.Clone(appErrors.ErrConflict, "fee is already paid")
	}

	now := s.now()
	paidAmount := fee.Amount
	if req.PaidAmount != nil {
		paidAmount = *req.PaidAmount
	}
	method := models.PaymentMethod(req.PaymentMethod)

	settlement := models.FeeSettlement{
		PaidAmount:    paidAmount,
		PaymentMethod: method,
		PaymentRef:    req.PaymentRef,
		PaidAt:        now,
		ReceivedBy:    req.ReceivedBy,
		Remarks:       req.Remarks,
	}
	payment := models.Payment{
		ID:            s.newID(idgen.PrefixPayment),
		FeeID:         fee.ID,
		StudentID:     fee.StudentID,
		Amount:        paidAmount,
		PaymentMethod: method,
		PaymentRef:    req.PaymentRef,
		ReceivedBy:    req.ReceivedBy,
		Remarks:       req.Remarks,
		CreatedAt:     now,
	}

	batch := s.fees.Batch()
	s.fees.AddSettle(batch, fee.ID, settlement, now)
	s.payments.AddCreate(batch, payment)
	if err := batch.Commit(ctx); err != nil {
		if errors.Is(err, store.ErrPreconditionFailed) {
			s.logger.Warn("payment lost race", zap.String("fee_id", fee.ID))
			return "", appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "fee was settled concurrently")
		}
		s.logger.Error("process payment failed", zap.String("fee_id", fee.ID), zap.Error(err))
		return "", storeFailure(err, "failed to process payment")
	}

	s.logger.Info("payment recorded",
		zap.String("fee_id", fee.ID),
		zap.String("payment_id", payment.ID),
		zap.String("student_id", fee.StudentID),
		zap.String("method", string(method)),
	)
	return payment.ID, nil
}

// GetFeePayments lists the receipts recorded against a fee.
func (s *FeeService) GetFeePayments(ctx context.Context, feeID string) []models.Payment {
	payments, err := s.payments.ListByFee(ctx, feeID)
	if err != nil {
		s.logger.Warn("list payments failed", zap.String("fee_id", feeID), zap.Error(err))
		return []models.Payment{}
	}
	if payments == nil {
		return []models.Payment{}
	}
	return payments
}

// UpdateOverdueFees flips every pending fee past its due date to overdue in
// one batch and returns how many were flipped. A second run with no new
// overdue fees returns 0. When a fee changes underneath the sweep the whole
// sweep is retried.
func (s *FeeService) UpdateOverdueFees(ctx context.Context) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		now := s.now()
		due, err := s.fees.ListPendingDueBefore(ctx, now)
		if err != nil {
			s.logger.Error("overdue sweep query failed", zap.Error(err))
			s.metrics.RecordMutation("overdue_sweep", err)
			return 0, storeFailure(err, "failed to load pending fees")
		}
		if len(due) == 0 {
			s.metrics.RecordMutation("overdue_sweep", nil)
			return 0, nil
		}

		batch := s.fees.Batch()
		for _, fee := range due {
			s.fees.AddMarkOverdue(batch, fee.ID, now)
		}
		lastErr = batch.Commit(ctx)
		if lastErr == nil {
			s.metrics.RecordMutation("overdue_sweep", nil)
			s.metrics.RecordOverdueSweep(len(due))
			s.logger.Info("overdue sweep complete", zap.Int("updated", len(due)))
			return len(due), nil
		}
		if !errors.Is(lastErr, store.ErrPreconditionFailed) {
			s.logger.Error("overdue sweep commit failed", zap.Error(lastErr))
			s.metrics.RecordMutation("overdue_sweep", lastErr)
			return 0, storeFailure(lastErr, "failed to mark fees overdue")
		}
		s.logger.Warn("overdue sweep raced a concurrent write, retrying", zap.Int("attempt", attempt))
	}
	s.metrics.RecordMutation("overdue_sweep", lastErr)
	return 0, appErrors.Wrap(lastErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "overdue sweep kept conflicting with concurrent writes")
}

// GetFeeStats counts fees per status across the ledger.
func (s *FeeService) GetFeeStats(ctx context.Context) models.FeeStats {
	return reporting.BuildFeeStats(s.GetAllFees(ctx))
}

// GetStudentFeeStats sums one student's fees per status.
func (s *FeeService) GetStudentFeeStats(ctx context.Context, studentID string) models.StudentFeeStats {
	return reporting.BuildStudentFeeStats(s.GetStudentFees(ctx, studentID))
}

// GenerateFeeReport aggregates fees created within [from, to], optionally
// restricted to one category.
func (s *FeeService) GenerateFeeReport(ctx context.Context, from, to time.Time, category *models.FeeCategory) models.FeeReport {
	fees, err := s.fees.ListCreatedBetween(ctx, from, to, category)
	if err != nil {
		s.logger.Warn("fee report query failed", zap.Time("from", from), zap.Time("to", to), zap.Error(err))
		fees = nil
	}
	return reporting.BuildFeeReport(fees)
}
