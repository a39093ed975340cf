package bixi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const historyFixture = `{
	"data": {
		"member": {
			"rideHistory": {
				"hasMore": true,
				"rideHistoryList": [
					{
						"rideId": "abc-123",
						"startTimeMs": "1717243200000",
						"endTimeMs": "1717243800000",
						"startAddressStr": "Métro Mont-Royal",
						"endAddressStr": "Parc La Fontaine",
						"startAddress": {"lat": 45.5245, "lon": -73.5817},
						"endAddress": {"lat": 45.5225, "lon": -73.5696}
					},
					{
						"rideId": "def-456",
						"startTimeMs": "not-a-number",
						"endTimeMs": "1717240000000",
						"startAddressStr": "Broken",
						"endAddressStr": "Broken",
						"startAddress": {"lat": 0, "lon": 0},
						"endAddress": {"lat": 0, "lon": 0}
					}
				]
			}
		}
	}
}`

func TestFetchPage(t *testing.T) {
	var gotBody gqlRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(historyFixture))
	}))
	defer server.Close()

	client := NewClientWithEndpoint(server.URL, "session=test", time.Second)
	batch, err := client.FetchPage(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, "GetCurrentUserRides", gotBody.OperationName)
	assert.Equal(t, "20", gotBody.Variables["startTimeMs"])

	assert.True(t, batch.HasMore)
	require.Len(t, batch.Rides, 1, "ride with unparseable start time is skipped")

	ride := batch.Rides[0]
	assert.Equal(t, "abc-123", ride.RideID)
	assert.Equal(t, int64(1717243200000), ride.StartTimeMs)
	assert.Equal(t, int64(1717243800000), ride.EndTimeMs)
	assert.Equal(t, "Métro Mont-Royal", ride.StartAddressStr)
	assert.InDelta(t, 45.5245, ride.StartAddress.Lat, 1e-9)
	assert.InDelta(t, -73.5696, ride.EndAddress.Lon, 1e-9)
}

func TestFetchPageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithEndpoint(server.URL, "", time.Second)
	_, err := client.FetchPage(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code")
}
