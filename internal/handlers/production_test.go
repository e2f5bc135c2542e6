package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/db"
	"github.com/ukydev/factory-log/internal/efficiency"
	"github.com/ukydev/factory-log/internal/middleware"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockRecorder is a mock implementation of Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, req models.RecordingRequest, actor models.Actor) (models.ProductionEvent, error) {
	args := m.Called(ctx, req, actor)
	return args.Get(0).(models.ProductionEvent), args.Error(1)
}

// MockReconciler is a mock implementation of Reconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, eventID primitive.ObjectID) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

func (m *MockReconciler) ReconcileRange(ctx context.Context, from, to time.Time) (efficiency.RangeResult, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(efficiency.RangeResult), args.Error(1)
}

var leader = models.Actor{ID: "lead-1", Role: models.RoleLeader, Department: "Forming"}

func withActor(req *http.Request, actor models.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

const recordBody = `{
	"event": {"occurred_on": "2025-03-03", "shift": "Day", "machine_ref": "FM-01", "part_ref": "P-1001", "plan_qty": 120, "actual_qty": 100},
	"episodes": [{"reason_ref": "MC-01", "duration_minutes": 10}, {"reason_label": "Setup", "duration_minutes": 20}]
}`

func TestProductionHandler_Record(t *testing.T) {
	log, _ := test.NewNullLogger()

	t.Run("created", func(t *testing.T) {
		recorder := new(MockRecorder)
		recorder.On("Record", mock.Anything, mock.MatchedBy(func(req models.RecordingRequest) bool {
			return req.Event.OccurredOn.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)) &&
				req.Event.MachineRef == "FM-01" && len(req.Episodes) == 2 && req.Episodes[1].DurationMinutes == 20
		}), leader).Return(models.ProductionEvent{
			ID: primitive.NewObjectID(), ActualQty: 100, StdCycleTimeSec: 30, DowntimeMinutesTotal: 30,
		}, nil)
		h := NewProductionHandler(recorder, nil, db.NewMemoryStore(), log)

		req := withActor(httptest.NewRequest("POST", "/api/production", bytes.NewBufferString(recordBody)), leader)
		w := httptest.NewRecorder()
		h.Record(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var view ProductionView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, 62.5, view.EfficiencyPercent)
		assert.Equal(t, 30, view.Event.DowntimeMinutesTotal)
		recorder.AssertExpectations(t)
	})

	errorCases := []struct {
		name      string
		err       error
		wantCode  int
		wantField string
	}{
		{"invalid input", apperr.Invalid("actual_qty", "must not be negative"), http.StatusBadRequest, "actual_qty"},
		{"invalid reference", apperr.Reference("machine_ref", "FM-99"), http.StatusUnprocessableEntity, "machine_ref"},
		{"persistence", apperr.Persistence("record production", errors.New("no primary")), http.StatusInternalServerError, ""},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			recorder := new(MockRecorder)
			recorder.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(models.ProductionEvent{}, tt.err)
			h := NewProductionHandler(recorder, nil, db.NewMemoryStore(), log)

			w := httptest.NewRecorder()
			h.Record(w, withActor(httptest.NewRequest("POST", "/api/production", bytes.NewBufferString(recordBody)), leader))

			assert.Equal(t, tt.wantCode, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantField, resp.Field)
			assert.NotContains(t, resp.Error, "no primary")
		})
	}

	t.Run("bad body", func(t *testing.T) {
		h := NewProductionHandler(new(MockRecorder), nil, db.NewMemoryStore(), log)
		for _, body := range []string{"", "{", `{"event": {"occurred_on": "03/03/2025"}}`} {
			w := httptest.NewRecorder()
			h.Record(w, withActor(httptest.NewRequest("POST", "/api/production", bytes.NewBufferString(body)), leader))
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})

	t.Run("no actor", func(t *testing.T) {
		h := NewProductionHandler(new(MockRecorder), nil, db.NewMemoryStore(), log)
		w := httptest.NewRecorder()
		h.Record(w, httptest.NewRequest("POST", "/api/production", bytes.NewBufferString(recordBody)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestProductionHandler_Get(t *testing.T) {
	log, _ := test.NewNullLogger()
	h := NewProductionHandler(nil, nil, db.NewMemoryStore(), log)

	req := httptest.NewRequest("GET", "/api/production/xyz", nil)
	req.SetPathValue("id", "xyz")
	w := httptest.NewRecorder()
	h.Get(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := primitive.NewObjectID().Hex()
	req = httptest.NewRequest("GET", "/api/production/"+id, nil)
	req.SetPathValue("id", id)
	w = httptest.NewRecorder()
	h.Get(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductionHandler_Reconcile(t *testing.T) {
	log, _ := test.NewNullLogger()
	id := primitive.NewObjectID()
	reconciler := new(MockReconciler)
	reconciler.On("Reconcile", mock.Anything, id).Return(30, nil)
	reconciler.On("ReconcileRange", mock.Anything, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)).
		Return(efficiency.RangeResult{Checked: 4, Corrected: []primitive.ObjectID{id}}, nil)
	h := NewProductionHandler(nil, reconciler, db.NewMemoryStore(), log)

	req := httptest.NewRequest("POST", "/api/production/"+id.Hex()+"/reconcile", nil)
	req.SetPathValue("id", id.Hex())
	w := httptest.NewRecorder()
	h.Reconcile(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"downtime_minutes_total":30`)

	w = httptest.NewRecorder()
	h.ReconcileRange(w, httptest.NewRequest("POST", "/api/production/reconcile", bytes.NewBufferString(`{"from":"2025-03-01","to":"2025-03-31"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	var result efficiency.RangeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 4, result.Checked)
	assert.Equal(t, []primitive.ObjectID{id}, result.Corrected)
}
