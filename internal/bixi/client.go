package bixi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/monbixi/stats-backend-go/internal/models"
)

const (
	// DefaultEndpoint is the Bixi member-facing GraphQL endpoint.
	DefaultEndpoint = "https://secure.bixi.com/bikesharefe-gql"
	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second
	// PageSize is the fixed page size of the ride-history query.
	PageSize = 10
)

const rideHistoryQuery = `
	query GetCurrentUserRides($startTimeMs: String, $memberId: String) {
		member(id: $memberId) {
			rideHistory(startTimeMs: $startTimeMs) {
				hasMore
				rideHistoryList {
					rideId
					startTimeMs
					endTimeMs
					startAddressStr
					startAddress {
						lon: lat
						lat: lng
					}
					endAddressStr
					endAddress {
						lon: lat
						lat: lng
					}
				}
			}
		}
	}`

// RideSource is a paginated source of ride history, newest first.
type RideSource interface {
	FetchPage(ctx context.Context, offset int) (*models.RideBatch, error)
}

// Client fetches ride history from the Bixi GraphQL API. The member is
// identified by the session cookie forwarded with each request.
type Client struct {
	endpoint   string
	cookie     string
	httpClient *http.Client
}

// NewClient creates a client against the production endpoint.
func NewClient(cookie string) *Client {
	return NewClientWithEndpoint(DefaultEndpoint, cookie, DefaultTimeout)
}

// NewClientWithEndpoint creates a client with a custom endpoint and timeout.
func NewClientWithEndpoint(endpoint, cookie string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		cookie:   cookie,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type gqlRequest struct {
	OperationName string            `json:"operationName"`
	Variables     map[string]string `json:"variables"`
	Query         string            `json:"query"`
}

type wireLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type wireRide struct {
	RideID          string       `json:"rideId"`
	StartTimeMs     string       `json:"startTimeMs"`
	EndTimeMs       string       `json:"endTimeMs"`
	StartAddressStr string       `json:"startAddressStr"`
	EndAddressStr   string       `json:"endAddressStr"`
	StartAddress    wireLocation `json:"startAddress"`
	EndAddress      wireLocation `json:"endAddress"`
}

type gqlResponse struct {
	Data struct {
		Member struct {
			RideHistory struct {
				HasMore         bool       `json:"hasMore"`
				RideHistoryList []wireRide `json:"rideHistoryList"`
			} `json:"rideHistory"`
		} `json:"member"`
	} `json:"data"`
}

// FetchPage retrieves one page of ride history starting at the given offset.
func (c *Client) FetchPage(ctx context.Context, offset int) (*models.RideBatch, error) {
	body, err := json.Marshal(gqlRequest{
		OperationName: "GetCurrentUserRides",
		Variables:     map[string]string{"startTimeMs": strconv.Itoa(offset)},
		Query:         rideHistoryQuery,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://secure.bixi.com/")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rides at offset %d: %w", offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var decoded gqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	history := decoded.Data.Member.RideHistory
	batch := &models.RideBatch{HasMore: history.HasMore}
	for _, w := range history.RideHistoryList {
		startMs, err := strconv.ParseInt(w.StartTimeMs, 10, 64)
		if err != nil {
			log.Printf("Warning: skipping ride %q with bad start time %q", w.RideID, w.StartTimeMs)
			continue
		}
		// A bad end time is kept as zero; the stats pass drops the ride
		// as problematic without losing its station visits.
		endMs, err := strconv.ParseInt(w.EndTimeMs, 10, 64)
		if err != nil {
			endMs = 0
		}
		batch.Rides = append(batch.Rides, models.Ride{
			RideID:          w.RideID,
			StartTimeMs:     startMs,
			EndTimeMs:       endMs,
			StartAddressStr: w.StartAddressStr,
			EndAddressStr:   w.EndAddressStr,
			StartAddress:    models.Location{Lat: w.StartAddress.Lat, Lon: w.StartAddress.Lon},
			EndAddress:      models.Location{Lat: w.EndAddress.Lat, Lon: w.EndAddress.Lon},
		})
	}

	return batch, nil
}
