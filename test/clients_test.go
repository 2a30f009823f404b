package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/2beens/fitcrm/internal/clients"
	"github.com/2beens/fitcrm/internal/exercises"
	pkgtesting "github.com/2beens/fitcrm/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) doJSON(ctx context.Context, method, path string, body any) (int, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) TestSeededRoster() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	status, respBytes := s.doJSON(ctx, "GET", "/clients", nil)
	require.Equal(t, http.StatusOK, status)

	var listResp clients.ClientsListResponse
	require.NoError(t, json.Unmarshal(respBytes, &listResp))
	assert.Equal(t, 10, listResp.Total)
	for _, c := range listResp.Clients {
		assert.Len(t, c.ID, 36, "uuid id scheme")
		assert.Empty(t, c.TrainingHistory)
	}
}

func (s *IntegrationTestSuite) TestClientLifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	form := clients.ClientForm{
		FullName:  "Nour Adel",
		Age:       "33",
		Gender:    "Female",
		Email:     "nour.adel@x.io",
		Phone:     "01098765432",
		Goal:      clients.GoalOther,
		GoalOther: "Marathon prep",
		StartDate: "2025-06-01",
	}
	status, respBytes := s.doJSON(ctx, "POST", "/clients", form)
	require.Equal(t, http.StatusCreated, status, string(respBytes))

	var created clients.Client
	require.NoError(t, json.Unmarshal(respBytes, &created))
	require.NotEmpty(t, created.ID)

	status, _ = s.doJSON(ctx, "POST", "/clients/"+created.ID+"/history", clients.AddHistoryRequest{Name: "Tempo Run"})
	require.Equal(t, http.StatusOK, status)

	// the whole roster is one row of the slot table
	var stored string
	require.NoError(t, s.DB.QueryRowContext(ctx, "SELECT value FROM kv_slot WHERE key = $1", storageKey).Scan(&stored))
	assert.Contains(t, stored, `"fullname":"Nour Adel"`)
	assert.Contains(t, stored, ": Tempo Run")
	assert.Contains(t, stored, `"goal_other":"Marathon prep"`)

	status, respBytes = s.doJSON(ctx, "GET", "/clients/find?name=NOUR%20ADEL", nil)
	require.Equal(t, http.StatusOK, status)
	var found clients.Client
	require.NoError(t, json.Unmarshal(respBytes, &found))
	assert.Equal(t, created.ID, found.ID)
	assert.Len(t, found.TrainingHistory, 1)

	status, respBytes = s.doJSON(ctx, "DELETE", "/clients/"+created.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var deleteResp clients.DeleteClientResponse
	require.NoError(t, json.Unmarshal(respBytes, &deleteResp))
	assert.True(t, deleteResp.Deleted)

	status, _ = s.doJSON(ctx, "GET", "/clients/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestSuggestionsRateLimited() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	for i := 0; i < rateLimit; i++ {
		status, respBytes := s.doJSON(ctx, "GET", "/exercises/suggestions?count=4", nil)
		require.Equal(t, http.StatusOK, status)

		var suggestionsResp exercises.SuggestionsResponse
		require.NoError(t, json.Unmarshal(respBytes, &suggestionsResp))
		assert.Equal(t, exercises.SourceRemote, suggestionsResp.Source)
		require.Len(t, suggestionsResp.Exercises, 4)
		for _, e := range suggestionsResp.Exercises {
			assert.NotContains(t, e.Description, "<")
		}
	}

	status, _ := s.doJSON(ctx, "GET", "/exercises/suggestions?count=4", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)

	rdb := pkgtesting.NewRedisClient(t, "localhost", s.redisPort, "")
	exists, err := rdb.Exists(ctx, "rate:suggestions").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func (s *IntegrationTestSuite) TestUIAndMetrics() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	status, page := s.doJSON(ctx, "GET", "/ui/clients?q=sarah", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(page), "Sarah Ali")

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("http://%s:%s/metrics", serverHost, metricsPort), nil)
	require.NoError(t, err)
	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	metricsText := string(metricsBytes)
	assert.True(t, strings.Contains(metricsText, "fitcrm_service_clients"), "clients gauge exported")
	assert.Contains(t, metricsText, "pgxpool_")
}
