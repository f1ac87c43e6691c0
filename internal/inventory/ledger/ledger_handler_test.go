package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	inventorylog "vaxsync/internal/inventory/inventory_log"
	"vaxsync/pkg/auditlog"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Deduct(ctx context.Context, key models.LotKey, quantity int) ([]models.LotDeduction, error) {
	args := m.Called(ctx, key, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LotDeduction), args.Error(1)
}

func (m *MockLedger) Restore(ctx context.Context, key models.LotKey, records []models.LotDeduction) error {
	args := m.Called(ctx, key, records)
	return args.Error(0)
}

func (m *MockLedger) RecalculateReserved(ctx context.Context, key models.LotKey) (*models.Reservation, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) PersistLog(ctx context.Context, auditLog models.AuditLog, data interface{}) error {
	args := m.Called(auditLog, data)
	return args.Error(0)
}

func setupLedgerRouter(l InventoryLedger, persister auditlog.LogPersister, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	logger := zap.NewNop()
	handler := NewLedgerHandler(l, inventorylog.NewInventoryLog(auditlog.NewAuditLog(persister, logger)), logger)

	group := router.Group("/", func(c *gin.Context) {
		c.Set("userID", "7")
		c.Set("role", role)
		c.Next()
	})
	handler.RegisterRoutes(group)

	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDeductHandler_Success(t *testing.T) {
	l := new(MockLedger)
	persister := new(MockPersister)
	key := models.LotKey{BarangayID: 2, VaccineDoseID: 5}
	records := []models.LotDeduction{{LotID: 11, Amount: 4}, {LotID: 12, Amount: 6}}

	l.On("Deduct", mock.Anything, key, 10).Return(records, nil)
	persister.On("PersistLog", mock.MatchedBy(func(a models.AuditLog) bool {
		return a.Action == "deduct" && a.UserID != nil && *a.UserID == 7
	}), mock.Anything).Return(nil).Times(3)

	router := setupLedgerRouter(l, persister, "health_worker")
	w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 10})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	deducted := data["deductedRecords"].([]interface{})
	require.Len(t, deducted, 2)
	assert.Equal(t, float64(11), deducted[0].(map[string]interface{})["lotId"])
	assert.Equal(t, float64(6), deducted[1].(map[string]interface{})["amount"])

	l.AssertExpectations(t)
	persister.AssertExpectations(t)
}

func TestDeductHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"invalid quantity", &custom_error.InvalidQuantityError{Quantity: -2}, http.StatusBadRequest, "Invalid quantity"},
		{"insufficient stock", &custom_error.InsufficientStockError{Requested: 10, Available: 5, Shortfall: 5}, http.StatusConflict, "Insufficient stock"},
		{"lot not found", &custom_error.LotNotFoundError{BarangayID: 2, VaccineDoseID: 5}, http.StatusNotFound, "Inventory lot not found"},
		{"write conflict", &custom_error.WriteConflictError{LotID: 11}, http.StatusConflict, "Inventory changed concurrently, please retry"},
		{"storage", &custom_error.StorageError{Op: "deduct", Err: errors.New("connection refused")}, http.StatusInternalServerError, "Inventory storage error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := new(MockLedger)
			persister := new(MockPersister)
			l.On("Deduct", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			router := setupLedgerRouter(l, persister, "coordinator")
			w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 10})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decode(t, w)["error"])
			persister.AssertNotCalled(t, "PersistLog", mock.Anything, mock.Anything)
		})
	}
}

func TestDeductHandler_InsufficientStockDetails(t *testing.T) {
	l := new(MockLedger)
	l.On("Deduct", mock.Anything, mock.Anything, 10).
		Return(nil, &custom_error.InsufficientStockError{Requested: 10, Available: 5, Shortfall: 5})

	router := setupLedgerRouter(l, new(MockPersister), "health_worker")
	w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 10})

	require.Equal(t, http.StatusConflict, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Equal(t, float64(10), details["requested"])
	assert.Equal(t, float64(5), details["available"])
	assert.Equal(t, float64(5), details["shortfall"])
}

func TestDeductHandler_RejectsMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body gin.H
	}{
		{"missing quantity", gin.H{"barangay_id": 2, "vaccine_id": 5}},
		{"missing barangay", gin.H{"vaccine_id": 5, "quantity": 3}},
		{"non numeric quantity", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": "three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := new(MockLedger)
			router := setupLedgerRouter(l, new(MockPersister), "health_worker")

			w := postJSON(router, "/inventory/deduct", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			l.AssertNotCalled(t, "Deduct", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDeductHandler_ZeroQuantityReachesLedger(t *testing.T) {
	l := new(MockLedger)
	l.On("Deduct", mock.Anything, mock.Anything, 0).Return(nil, &custom_error.InvalidQuantityError{Quantity: 0})

	router := setupLedgerRouter(l, new(MockPersister), "health_worker")
	w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 0})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	l.AssertExpectations(t)
}

func TestDeductHandler_UnknownOutcomeTriggersReconcile(t *testing.T) {
	l := new(MockLedger)
	key := models.LotKey{BarangayID: 2, VaccineDoseID: 5}
	reconciled := make(chan struct{})

	l.On("Deduct", mock.Anything, key, 3).
		Return(nil, &custom_error.StorageError{Op: "deduct", Err: context.DeadlineExceeded, OutcomeUnknown: true})
	l.On("RecalculateReserved", mock.Anything, key).
		Run(func(mock.Arguments) { close(reconciled) }).
		Return(&models.Reservation{Key: key, QuantityReserved: 9}, nil)

	router := setupLedgerRouter(l, new(MockPersister), "health_worker")
	w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 3})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	select {
	case <-reconciled:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciliation did not run")
	}
	l.AssertExpectations(t)
}

func TestDeductHandler_RequiresRole(t *testing.T) {
	l := new(MockLedger)
	router := setupLedgerRouter(l, new(MockPersister), "visitor")

	w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 3})

	assert.Equal(t, http.StatusForbidden, w.Code)
	l.AssertNotCalled(t, "Deduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecalculateReservedHandler_Success(t *testing.T) {
	l := new(MockLedger)
	persister := new(MockPersister)
	key := models.LotKey{BarangayID: 2, VaccineDoseID: 5}
	reservation := &models.Reservation{
		Key:              key,
		QuantityReserved: 20,
		Lots:             []models.LotReservation{{LotID: 11, QuantityReserved: 20}},
	}

	l.On("RecalculateReserved", mock.Anything, key).Return(reservation, nil)
	persister.On("PersistLog", mock.MatchedBy(func(a models.AuditLog) bool {
		return a.Action == "recalculate" && a.ResourceType == "reservation"
	}), mock.Anything).Return(nil).Once()

	router := setupLedgerRouter(l, persister, "health_worker")
	w := postJSON(router, "/inventory/recalculate-reserved", gin.H{"barangay_id": 2, "vaccine_id": 5})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(20), data["quantityReserved"])

	l.AssertExpectations(t)
	persister.AssertExpectations(t)
}

func TestRecalculateReservedHandler_NotFound(t *testing.T) {
	l := new(MockLedger)
	l.On("RecalculateReserved", mock.Anything, mock.Anything).
		Return(nil, &custom_error.LotNotFoundError{BarangayID: 2, VaccineDoseID: 5})

	router := setupLedgerRouter(l, new(MockPersister), "admin")
	w := postJSON(router, "/inventory/recalculate-reserved", gin.H{"barangay_id": 2, "vaccine_id": 5})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditFailureDoesNotFailDeduction(t *testing.T) {
	l := new(MockLedger)
	persister := new(MockPersister)
	l.On("Deduct", mock.Anything, mock.Anything, 1).Return([]models.LotDeduction{{LotID: 3, Amount: 1}}, nil)
	persister.On("PersistLog", mock.Anything, mock.Anything).Return(errors.New("audit table missing"))

	router := setupLedgerRouter(l, persister, "health_worker")
	w := postJSON(router, "/inventory/deduct", gin.H{"barangay_id": 2, "vaccine_id": 5, "quantity": 1})

	assert.Equal(t, http.StatusOK, w.Code)
}
