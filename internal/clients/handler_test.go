package clients_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testClient = clients.Client{
	ID:              "1700000000000123",
	FullName:        "Jane Doe",
	Age:             28,
	Gender:          "Female",
	Email:           "jane@x.io",
	Phone:           "01234567890",
	Goal:            clients.GoalCardio,
	StartDate:       "2025-01-01",
	TrainingHistory: []clients.HistoryEntry{clients.NewTextEntry("2025-01-01: Push-up")},
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, target, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_HandleList(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().
		List(gomock.Any(), "jane").
		Return([]clients.Client{testClient})

	req, err := http.NewRequest("GET", "/clients?q=jane", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp clients.ClientsListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, testClient.ID, resp.Clients[0].ID)
	assert.Equal(t, []string{"2025-01-01: Push-up"}, resp.Clients[0].HistoryLines())
}

func TestHandler_HandleList_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().List(gomock.Any(), "").Return(nil)

	req, err := http.NewRequest("GET", "/clients", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.HandleList(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clients":[],"total":0}`, rec.Body.String())
}

func TestHandler_HandleFind(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().FindByName(gomock.Any(), "jane doe").Return(&testClient, nil)
	repoMock.EXPECT().FindByName(gomock.Any(), "nobody").Return(nil, clients.ErrClientNotFound)

	req, err := http.NewRequest("GET", "/clients/find?name=jane+doe", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.HandleFind(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fullname":"Jane Doe"`)

	req, err = http.NewRequest("GET", "/clients/find?name=nobody", nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.HandleFind(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, err = http.NewRequest("GET", "/clients/find", nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.HandleFind(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().Get(gomock.Any(), testClient.ID).Return(&testClient, nil)
	repoMock.EXPECT().Get(gomock.Any(), "x").Return(nil, clients.ErrClientNotFound)
	repoMock.EXPECT().Get(gomock.Any(), "y").Return(nil, errors.New("slot gone"))

	for _, tc := range []struct {
		id       string
		wantCode int
	}{
		{testClient.ID, http.StatusOK},
		{"x", http.StatusNotFound},
		{"y", http.StatusInternalServerError},
	} {
		req, err := http.NewRequest("GET", "/clients/"+tc.id, nil)
		require.NoError(t, err)
		req = mux.SetURLVars(req, map[string]string{"id": tc.id})
		rec := httptest.NewRecorder()
		h.HandleGet(rec, req)
		assert.Equal(t, tc.wantCode, rec.Code, tc.id)
	}
}

func TestHandler_HandleCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	form := clients.ClientForm{
		ID:        "should-be-ignored",
		FullName:  " Jane Doe ",
		Age:       "28",
		Gender:    "Female",
		Email:     "jane@x.io",
		Phone:     "01234567890",
		Goal:      clients.GoalCardio,
		StartDate: "2025-01-01",
	}

	repoMock.EXPECT().
		CreateOrUpdate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, c clients.Client) (*clients.Client, bool, error) {
			assert.Empty(t, c.ID)
			assert.Equal(t, "Jane Doe", c.FullName)
			assert.Equal(t, 28, c.Age)
			c.ID = "new-id"
			c.TrainingHistory = []clients.HistoryEntry{}
			return &c, true, nil
		}).Times(1)

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, jsonRequest(t, "POST", "/clients", form))

	require.Equal(t, http.StatusCreated, rec.Code)
	var created clients.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "new-id", created.ID)
	assert.Equal(t, "Jane Doe", created.FullName)
}

func TestHandler_HandleCreate_ContentTypeParams(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	form := clients.ClientForm{
		FullName:  "Jane Doe",
		Age:       "28",
		Gender:    "Female",
		Email:     "jane@x.io",
		Phone:     "01234567890",
		Goal:      clients.GoalCardio,
		StartDate: "2025-01-01",
	}
	repoMock.EXPECT().
		CreateOrUpdate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, c clients.Client) (*clients.Client, bool, error) {
			c.ID = "new-id"
			return &c, true, nil
		}).Times(1)

	req := jsonRequest(t, "POST", "/clients", form)
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	for _, contentType := range []string{"text/plain", "application/json; charset", "application/jsonx"} {
		req = jsonRequest(t, "POST", "/clients", form)
		req.Header.Set("Content-Type", contentType)
		rec = httptest.NewRecorder()
		h.HandleCreate(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, contentType)
	}
}

func TestHandler_HandleCreate_ValidationFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	m := metrics.NewTestManager()
	h := clients.NewHandler(repoMock, m)

	form := clients.ClientForm{
		FullName:  "Jane Doe",
		Age:       "28",
		Gender:    "Female",
		Email:     "jane@x.io",
		Phone:     "123",
		Goal:      clients.GoalCardio,
		StartDate: "2025-01-01",
	}

	rec := httptest.NewRecorder()
	h.HandleCreate(rec, jsonRequest(t, "POST", "/clients", form))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"field":"phone","rule":"phone_format","message":"Please enter a valid phone number (11 digits)."}`,
		rec.Body.String(),
	)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterValidationFailures.WithLabelValues(clients.RulePhoneFormat)))
}

func TestHandler_HandleCreate_BadRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	req, err := http.NewRequest("POST", "/clients", strings.NewReader(`{}`))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.HandleCreate(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, err = http.NewRequest("POST", "/clients", strings.NewReader(`{not json`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.HandleCreate(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, err = http.NewRequest("OPTIONS", "/clients", nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.HandleCreate(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
}

func TestHandler_HandleUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	form := clients.FormFromClient(&testClient)
	form.ID = ""
	form.Goal = clients.GoalOther
	form.GoalOther = "Marathon"

	repoMock.EXPECT().
		CreateOrUpdate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, c clients.Client) (*clients.Client, bool, error) {
			assert.Equal(t, testClient.ID, c.ID)
			assert.Equal(t, "Marathon", c.GoalOther)
			assert.Nil(t, c.TrainingHistory)
			c.TrainingHistory = testClient.TrainingHistory
			return &c, false, nil
		})
	repoMock.EXPECT().
		CreateOrUpdate(gomock.Any(), gomock.Any()).
		Return(nil, false, clients.ErrClientNotFound)

	req := mux.SetURLVars(jsonRequest(t, "PUT", "/clients/"+testClient.ID, form), map[string]string{"id": testClient.ID})
	rec := httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"goal_other":"Marathon"`)
	assert.Contains(t, rec.Body.String(), `"training_history":["2025-01-01: Push-up"]`)

	req = mux.SetURLVars(jsonRequest(t, "PUT", "/clients/gone", form), map[string]string{"id": "gone"})
	rec = httptest.NewRecorder()
	h.HandleUpdate(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_HandleDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	repoMock.EXPECT().Delete(gomock.Any(), "1").Return(true, nil)
	repoMock.EXPECT().Delete(gomock.Any(), "2").Return(false, nil)

	req, err := http.NewRequest("DELETE", "/clients/1", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.HandleDelete(rec, mux.SetURLVars(req, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deletedId":"1","deleted":true}`, rec.Body.String())

	req, err = http.NewRequest("DELETE", "/clients/2", nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.HandleDelete(rec, mux.SetURLVars(req, map[string]string{"id": "2"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deletedId":"2","deleted":false}`, rec.Body.String())
}

func TestHandler_HandleAddHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockclientsRepo(ctrl)
	h := clients.NewHandler(repoMock, metrics.NewTestManager())

	updated := testClient
	updated.TrainingHistory = append([]clients.HistoryEntry{clients.NewTextEntry("2025-07-01: Plank")}, testClient.TrainingHistory...)

	repoMock.EXPECT().AppendHistory(gomock.Any(), testClient.ID, "Plank").Return(&updated, nil)
	repoMock.EXPECT().AppendHistory(gomock.Any(), "x", "Plank").Return(nil, clients.ErrClientNotFound)

	req := mux.SetURLVars(
		jsonRequest(t, "POST", "/clients/"+testClient.ID+"/history", clients.AddHistoryRequest{Name: "Plank"}),
		map[string]string{"id": testClient.ID},
	)
	rec := httptest.NewRecorder()
	h.HandleAddHistory(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"training_history":["2025-07-01: Plank","2025-01-01: Push-up"]`)

	req = mux.SetURLVars(
		jsonRequest(t, "POST", "/clients/x/history", clients.AddHistoryRequest{Name: "Plank"}),
		map[string]string{"id": "x"},
	)
	rec = httptest.NewRecorder()
	h.HandleAddHistory(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
