package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Mock Service
// ============================================================================

type MockDetectionService struct {
	mock.Mock
}

func (m *MockDetectionService) Detect(ctx context.Context) (*Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Report), args.Error(1)
}

func (m *MockDetectionService) DetectBatch(ctx context.Context, records []CallRecord) (*Report, error) {
	args := m.Called(ctx, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Report), args.Error(1)
}

func (m *MockDetectionService) Cells(ctx context.Context, resolution int) ([]CellAggregate, error) {
	args := m.Called(ctx, resolution)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CellAggregate), args.Error(1)
}

func (m *MockDetectionService) Policy() Policy {
	return DefaultPolicy()
}

// ============================================================================
// Helpers
// ============================================================================

func setupRouter(svc DetectionService) *gin.Engine {
	r := gin.New()
	NewHandler(svc, 4).RegisterRoutes(r, 5*time.Second)
	return r
}

func serve(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

// ============================================================================
// GET /api/calls
// ============================================================================

func TestGetSuspiciousCalls_ReturnsBareArray(t *testing.T) {
	svc := new(MockDetectionService)
	svc.On("Detect", mock.Anything).Return(sampleReport(), nil)

	w := serve(setupRouter(svc), http.MethodGet, "/api/calls", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 4)

	keys := make([]string, 0, len(body[0]))
	for k := range body[0] {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"caller", "country", "frequency", "lat", "lon", "timestamp", "duration"}, keys)
	assert.Equal(t, "+25377000001", body[0]["caller"])
	assert.Equal(t, float64(60), body[0]["frequency"])
	assert.Equal(t, float64(125), body[0]["duration"])
	assert.True(t, strings.HasPrefix(w.Body.String(), `[{"caller":"+25377000001","country":"DJ","frequency":60,`))

	svc.AssertExpectations(t)
}

func TestGetSuspiciousCalls_EmptyBatch(t *testing.T) {
	svc := new(MockDetectionService)
	svc.On("Detect", mock.Anything).Return(&Report{Suspicious: []SuspiciousCaller{}}, nil)

	w := serve(setupRouter(svc), http.MethodGet, "/api/calls", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetSuspiciousCalls_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "source unavailable",
			err:        unavailable("open data/cdr.json", errors.New("no such file or directory")),
			wantStatus: http.StatusNotFound,
			wantError:  "call record source not found",
		},
		{
			name:       "data format",
			err:        &DataFormatError{Index: 7, Field: "lat", Reason: "is required"},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "invalid call record at index 7: lat is required",
		},
		{
			name:       "internal",
			err:        ErrInternal,
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
		{
			name:       "unexpected",
			err:        errors.New("pq: something odd"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDetectionService)
			svc.On("Detect", mock.Anything).Return(nil, tt.err)

			w := serve(setupRouter(svc), http.MethodGet, "/api/calls", nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, errorMessage(t, w))
		})
	}
}

// ============================================================================
// Derived views
// ============================================================================

func TestGetRankedCalls(t *testing.T) {
	svc := new(MockDetectionService)
	svc.On("Detect", mock.Anything).Return(sampleReport(), nil)

	w := serve(setupRouter(svc), http.MethodGet, "/api/calls/ranked", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ranked []RankedCaller
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranked))
	require.Len(t, ranked, 4)
	assert.Equal(t, RiskCritical, ranked[0].RiskLevel)
	assert.Equal(t, RiskHigh, ranked[1].RiskLevel)
	assert.Equal(t, "2:05", ranked[0].DurationDisplay)
}

func TestGetSummaryAndCountries(t *testing.T) {
	svc := new(MockDetectionService)
	svc.On("Detect", mock.Anything).Return(sampleReport(), nil)
	r := setupRouter(svc)

	w := serve(r, http.MethodGet, "/api/calls/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 4, summary.SuspiciousCallers)
	assert.Equal(t, 114, summary.TotalCalls)

	w = serve(r, http.MethodGet, "/api/calls/countries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var countries []CountryAggregate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &countries))
	require.Len(t, countries, 3)
	assert.Equal(t, "DJ", countries[0].Country)
}

func TestGetReport(t *testing.T) {
	svc := new(MockDetectionService)
	svc.On("Detect", mock.Anything).Return(sampleReport(), nil)

	w := serve(setupRouter(svc), http.MethodGet, "/api/calls/report", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "d1g3st", report.Digest)
	assert.Equal(t, 140, report.Records)
}

func TestGetCriticalAlerts(t *testing.T) {
	svc := new(MockDetectionService)
	svc.On("Detect", mock.Anything).Return(sampleReport(), nil)

	w := serve(setupRouter(svc), http.MethodGet, "/api/calls/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var alerts []RankedCaller
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "+25377000001", alerts[0].Caller)
}

func TestGetCells(t *testing.T) {
	cells := []CellAggregate{{Cell: "845a9d9ffffffff", Lat: 11.6, Lon: 43.1, Callers: 2, Calls: 72, Numbers: []string{"a", "b"}}}

	svc := new(MockDetectionService)
	svc.On("Cells", mock.Anything, 4).Return(cells, nil).Once()
	svc.On("Cells", mock.Anything, 9).Return(cells, nil).Once()
	r := setupRouter(svc)

	w := serve(r, http.MethodGet, "/api/calls/cells", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/api/calls/cells?resolution=9", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestGetCells_InvalidResolution(t *testing.T) {
	svc := new(MockDetectionService)
	r := setupRouter(svc)

	for _, q := range []string{"abc", "-1", "16"} {
		w := serve(r, http.MethodGet, "/api/calls/cells?resolution="+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	svc.AssertNotCalled(t, "Cells", mock.Anything, mock.Anything)
}

// ============================================================================
// POST /api/calls/detect
// ============================================================================

func TestDetectBatch(t *testing.T) {
	records := mixedBatch()
	body, err := json.Marshal(records)
	require.NoError(t, err)

	svc := new(MockDetectionService)
	svc.On("DetectBatch", mock.Anything, records).Return(sampleReport(), nil)

	w := serve(setupRouter(svc), http.MethodPost, "/api/calls/detect", body)

	require.Equal(t, http.StatusOK, w.Code)
	var suspicious []SuspiciousCaller
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suspicious))
	assert.Len(t, suspicious, 4)
	svc.AssertExpectations(t)
}

func TestDetectBatch_MalformedBody(t *testing.T) {
	svc := new(MockDetectionService)

	w := serve(setupRouter(svc), http.MethodPost, "/api/calls/detect",
		[]byte(`[{"caller":"+25377000001","called":"x","timestamp":"2026-10-19","duration":1,"country":"DJ","lon":1}]`))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid call record at index 0: lat is required", errorMessage(t, w))
	svc.AssertNotCalled(t, "DetectBatch", mock.Anything, mock.Anything)
}

func TestDetectBatch_WrongContentType(t *testing.T) {
	svc := new(MockDetectionService)

	req := httptest.NewRequest(http.MethodPost, "/api/calls/detect", strings.NewReader("[]"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
