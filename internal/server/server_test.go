package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	bcudomain "github.com/railzwaylabs/biochar/internal/bcu/domain"
	calculationdomain "github.com/railzwaylabs/biochar/internal/calculation/domain"
	"github.com/railzwaylabs/biochar/internal/config"
	corcdomain "github.com/railzwaylabs/biochar/internal/corc/domain"
	"github.com/railzwaylabs/biochar/internal/lifecycle"
	"github.com/railzwaylabs/biochar/internal/methodology"
	perioddomain "github.com/railzwaylabs/biochar/internal/monitoringperiod/domain"
	"github.com/railzwaylabs/biochar/internal/observability"
	"github.com/railzwaylabs/biochar/internal/recalc"
	recalcdomain "github.com/railzwaylabs/biochar/internal/recalc/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCORCService struct {
	mock.Mock
}

func (m *mockCORCService) Create(ctx context.Context, req corcdomain.CreateRequest) (*corcdomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*corcdomain.Response)
	return resp, args.Error(1)
}

func (m *mockCORCService) Get(ctx context.Context, id string) (*corcdomain.Response, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*corcdomain.Response)
	return resp, args.Error(1)
}

func (m *mockCORCService) List(ctx context.Context, req corcdomain.ListRequest) ([]corcdomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).([]corcdomain.Response)
	return resp, args.Error(1)
}

func (m *mockCORCService) Update(ctx context.Context, id string, req corcdomain.UpdateRequest) (*corcdomain.Response, error) {
	args := m.Called(ctx, id, req)
	resp, _ := args.Get(0).(*corcdomain.Response)
	return resp, args.Error(1)
}

func (m *mockCORCService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCORCService) Issue(ctx context.Context, id string, req corcdomain.IssueRequest) (*corcdomain.Response, error) {
	args := m.Called(ctx, id, req)
	resp, _ := args.Get(0).(*corcdomain.Response)
	return resp, args.Error(1)
}

func (m *mockCORCService) Retire(ctx context.Context, id string, req corcdomain.RetireRequest) (*corcdomain.Response, error) {
	args := m.Called(ctx, id, req)
	resp, _ := args.Get(0).(*corcdomain.Response)
	return resp, args.Error(1)
}

func (m *mockCORCService) Certificate(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockBCUService struct {
	mock.Mock
}

func (m *mockBCUService) Create(ctx context.Context, req bcudomain.CreateRequest) (*bcudomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*bcudomain.Response)
	return resp, args.Error(1)
}

func (m *mockBCUService) Get(ctx context.Context, id string) (*bcudomain.Response, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*bcudomain.Response)
	return resp, args.Error(1)
}

func (m *mockBCUService) Transfer(ctx context.Context, id string, req bcudomain.TransferRequest) (*bcudomain.Response, error) {
	args := m.Called(ctx, id, req)
	resp, _ := args.Get(0).(*bcudomain.Response)
	return resp, args.Error(1)
}

func (m *mockBCUService) Retire(ctx context.Context, id string, req bcudomain.RetireRequest) (*bcudomain.Response, error) {
	args := m.Called(ctx, id, req)
	resp, _ := args.Get(0).(*bcudomain.Response)
	return resp, args.Error(1)
}

func (m *mockBCUService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCalculationService struct {
	mock.Mock
}

func (m *mockCalculationService) Calculate(ctx context.Context, req calculationdomain.CalculateRequest) (*calculationdomain.CalculateResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*calculationdomain.CalculateResponse)
	return resp, args.Error(1)
}

func (m *mockCalculationService) Recalculate(ctx context.Context, periodID int64) error {
	return m.Called(ctx, periodID).Error(0)
}

type mockPeriodService struct {
	mock.Mock
}

func (m *mockPeriodService) Create(ctx context.Context, req perioddomain.CreateRequest) (*perioddomain.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*perioddomain.Response)
	return resp, args.Error(1)
}

func (m *mockPeriodService) Get(ctx context.Context, id string) (*perioddomain.Response, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*perioddomain.Response)
	return resp, args.Error(1)
}

func (m *mockPeriodService) ListByFacility(ctx context.Context, facilityID string) ([]perioddomain.Response, error) {
	args := m.Called(ctx, facilityID)
	resp, _ := args.Get(0).([]perioddomain.Response)
	return resp, args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, job recalc.Job) (*recalc.Task, error) {
	args := m.Called(ctx, job)
	task, _ := args.Get(0).(*recalc.Task)
	return task, args.Error(1)
}

func (m *mockQueue) Get(ctx context.Context, id string) (*recalcdomain.TaskResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*recalcdomain.TaskResponse)
	return resp, args.Error(1)
}

type harness struct {
	server *Server
	corc   *mockCORCService
	bcu    *mockBCUService
	calc   *mockCalculationService
	period *mockPeriodService
	queue  *mockQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &harness{
		corc:   &mockCORCService{},
		bcu:    &mockBCUService{},
		calc:   &mockCalculationService{},
		period: &mockPeriodService{},
		queue:  &mockQueue{},
	}
	h.server = NewServer(Params{
		Config:         config.Config{Env: "test"},
		Log:            zap.NewNop(),
		Metrics:        observability.NewMetrics(),
		PeriodSvc:      h.period,
		CalculationSvc: h.calc,
		CORCSvc:        h.corc,
		BCUSvc:         h.bcu,
	})
	h.server.queue = h.queue
	RegisterRoutes(h.server)

	t.Cleanup(func() {
		h.corc.AssertExpectations(t)
		h.bcu.AssertExpectations(t)
		h.calc.AssertExpectations(t)
		h.period.AssertExpectations(t)
		h.queue.AssertExpectations(t)
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error
}

func TestIssueAcceptsPlainDates(t *testing.T) {
	h := newHarness(t)
	want := corcdomain.IssueRequest{
		IssuanceDate:   time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC),
		OwnerName:      "Acme Offsets",
		OwnerAccountID: "ACC-1",
	}
	h.corc.On("Issue", mock.Anything, "77", want).
		Return(&corcdomain.Response{ID: "77", Status: corcdomain.StatusIssued}, nil).Once()

	rec := h.do(t, http.MethodPost, "/api/corcs/77/issue",
		`{"issuance_date":"2024-09-01","owner_name":"Acme Offsets","owner_account_id":"ACC-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"issued"`)
}

func TestDateLikeTextFieldsAreKeptVerbatim(t *testing.T) {
	h := newHarness(t)
	notes := "2024-05-01"
	want := bcudomain.CreateRequest{
		SerialNumber:   "2024-05-01",
		QuantityTCO2e:  12.5,
		OwnerName:      "Acme Offsets",
		OwnerAccountID: "2024-05-02",
		IssuanceDate:   time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		Notes:          &notes,
	}
	h.bcu.On("Create", mock.Anything, want).
		Return(&bcudomain.Response{ID: "9", SerialNumber: "2024-05-01", Status: bcudomain.StatusIssued}, nil).Once()

	rec := h.do(t, http.MethodPost, "/api/bcus",
		`{"serial_number":"2024-05-01","quantity_tco2e":12.5,"owner_name":"Acme Offsets",`+
			`"owner_account_id":"2024-05-02","issuance_date":"2024-05-01","notes":"2024-05-01"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"serial_number":"2024-05-01"`)
}

func TestRetireCORCKeepsDateLikeNotes(t *testing.T) {
	h := newHarness(t)
	notes := "2025-01-31"
	want := corcdomain.RetireRequest{
		RetirementDate:        time.Date(2025, time.January, 31, 12, 30, 0, 0, time.UTC),
		RetirementBeneficiary: "City of Lund",
		Notes:                 &notes,
	}
	h.corc.On("Retire", mock.Anything, "77", want).
		Return(&corcdomain.Response{ID: "77", Status: corcdomain.StatusRetired}, nil).Once()

	rec := h.do(t, http.MethodPost, "/api/corcs/77/retire",
		`{"retirement_date":"2025-01-31T12:30:00Z","retirement_beneficiary":"City of Lund","notes":"2025-01-31"}`)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedDateIsBadRequest(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/corcs/77/issue",
		`{"issuance_date":"01/09/2024","owner_name":"Acme Offsets","owner_account_id":"ACC-1"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec)["code"])
}

func TestDateUnmarshal(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"plain date", `"2024-03-31"`, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), false},
		{"timestamp", `"2024-03-31T08:15:00Z"`, time.Date(2024, time.March, 31, 8, 15, 0, 0, time.UTC), false},
		{"null", `null`, time.Time{}, false},
		{"number", `20240331`, time.Time{}, true},
		{"garbage", `"tomorrow"`, time.Time{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var d Date
			err := json.Unmarshal([]byte(tc.input), &d)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(d.Time))
		})
	}
}

func TestTransitionConflictReportsCurrentStatus(t *testing.T) {
	h := newHarness(t)
	h.corc.On("Delete", mock.Anything, "77").Return(&lifecycle.StatusConflictError{
		Entity:  corcdomain.Entity,
		Action:  corcdomain.ActionDelete,
		Current: string(corcdomain.StatusRetired),
	}).Once()

	rec := h.do(t, http.MethodDelete, "/api/corcs/77", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "status_conflict", body["code"])
	assert.Equal(t, "retired", body["current_status"])
}

func TestCreateCORCRejectsMalformedBody(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/corcs", `{"monitoring_period_id":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec)["code"])
}

func TestCertificateServedAsPDF(t *testing.T) {
	h := newHarness(t)
	h.corc.On("Certificate", mock.Anything, "77").Return([]byte("%PDF-1.3 test"), nil).Once()

	rec := h.do(t, http.MethodGet, "/api/corcs/77/certificate", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestCalculateWithEmptyBodyPreviews(t *testing.T) {
	h := newHarness(t)
	h.calc.On("Calculate", mock.Anything, calculationdomain.CalculateRequest{MonitoringPeriodID: "42"}).
		Return(&calculationdomain.CalculateResponse{Validation: calculationdomain.Validation{
			IsValid:  true,
			Errors:   []calculationdomain.Issue{},
			Warnings: []methodology.Caveat{},
		}}, nil).Once()

	rec := h.do(t, http.MethodPost, "/api/monitoring-periods/42/calculate", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body.Data, "is_valid")
	assert.JSONEq(t, `{"is_valid":true,"errors":[],"warnings":[]}`, string(body.Data["validation"]))
}

func TestCalculateValidationFailure(t *testing.T) {
	h := newHarness(t)
	override := 18.5
	h.calc.On("Calculate", mock.Anything, calculationdomain.CalculateRequest{
		MonitoringPeriodID:   "42",
		SaveResult:           true,
		MeanSoilTempOverride: &override,
	}).Return(nil, &calculationdomain.ValidationError{Validation: calculationdomain.Validation{
		Errors: []calculationdomain.Issue{{Field: "organic_carbon_percent", Code: "out_of_range", Message: "organic carbon must be within 0-100"}},
	}}).Once()

	rec := h.do(t, http.MethodPost, "/api/monitoring-periods/42/calculate",
		`{"save_result":true,"mean_soil_temp_override":18.5}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_failed", body["code"])
	validation, ok := body["validation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, validation["is_valid"])
	assert.Equal(t, []any{}, validation["warnings"])
	issues, ok := validation["errors"].([]any)
	require.True(t, ok)
	require.Len(t, issues, 1)
	assert.Equal(t, "organic_carbon_percent", issues[0].(map[string]any)["field"])
}

func TestCalculateZeroMassIsUnprocessable(t *testing.T) {
	h := newHarness(t)
	h.calc.On("Calculate", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("calculate period 42: %w", calculationdomain.ErrZeroDryMass)).Once()

	rec := h.do(t, http.MethodPost, "/api/monitoring-periods/42/calculate", `{}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "zero_dry_mass", decodeError(t, rec)["code"])
}

func TestRecalculateQueuesSavedPeriod(t *testing.T) {
	h := newHarness(t)
	calculated := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	h.period.On("Get", mock.Anything, "1234").
		Return(&perioddomain.Response{ID: "1234", CalculatedAt: &calculated}, nil).Once()
	h.queue.On("Enqueue", mock.Anything, recalc.Job{MonitoringPeriodID: 1234, Reason: recalc.ReasonRequested}).
		Return(&recalc.Task{ID: "01J0000000000000000000TASK"}, nil).Once()
	h.queue.On("Get", mock.Anything, "01J0000000000000000000TASK").
		Return(&recalcdomain.TaskResponse{ID: "01J0000000000000000000TASK", Status: recalcdomain.TaskQueued}, nil).Once()

	rec := h.do(t, http.MethodPost, "/api/monitoring-periods/1234/recalculate", "")

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"queued"`)
}

func TestRecalculateRequiresSavedResult(t *testing.T) {
	h := newHarness(t)
	h.period.On("Get", mock.Anything, "1234").Return(&perioddomain.Response{ID: "1234"}, nil).Once()

	rec := h.do(t, http.MethodPost, "/api/monitoring-periods/1234/recalculate", "")

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "monitoring_period_not_saved", decodeError(t, rec)["code"])
}

func TestRecalculateQueueFull(t *testing.T) {
	h := newHarness(t)
	calculated := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	h.period.On("Get", mock.Anything, "1234").
		Return(&perioddomain.Response{ID: "1234", CalculatedAt: &calculated}, nil).Once()
	h.queue.On("Enqueue", mock.Anything, mock.Anything).Return(nil, recalcdomain.ErrQueueFull).Once()

	rec := h.do(t, http.MethodPost, "/api/monitoring-periods/1234/recalculate", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "recalculation_queue_full", decodeError(t, rec)["code"])
}

func TestRecalculationTaskNotFound(t *testing.T) {
	h := newHarness(t)
	h.queue.On("Get", mock.Anything, "missing").Return(nil, recalcdomain.ErrTaskNotFound).Once()

	rec := h.do(t, http.MethodGet, "/api/recalculation-tasks/missing", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "biochar_recalc_queue_depth")
}

func TestReadinessWithoutDatabase(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/ready", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":false`)
}
