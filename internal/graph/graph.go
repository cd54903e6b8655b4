package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Degree is the coarse graph distance between two users, as computed by the
// external connection-graph service.
type Degree string

const (
	DegreeFirst  Degree = "first"
	DegreeSecond Degree = "second"
	DegreeThird  Degree = "third"
	DegreeNone   Degree = "none"
)

// WithinScope reports whether the degree satisfies a visibility scope
// expressed as the farthest allowed degree.
func (d Degree) WithinScope(scope Degree) bool {
	rank := map[Degree]int{DegreeFirst: 1, DegreeSecond: 2, DegreeThird: 3}
	dr, ok := rank[d]
	if !ok {
		return false
	}
	sr, ok := rank[scope]
	if !ok {
		return false
	}
	return dr <= sr
}

// ConnectionGraph answers graph-distance queries. The service never computes
// degrees itself; it trusts this collaborator.
type ConnectionGraph interface {
	DegreeBetween(ctx context.Context, userA, userB int64) (Degree, error)
}

// Client queries the connection-graph service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a graph client, or a permissive noop graph when no
// service address is configured.
func NewClient(baseURL string) ConnectionGraph {
	if baseURL == "" {
		log.Printf("connection graph disabled, using permissive noop")
		return noopGraph{}
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type degreeResponse struct {
	Degree Degree `json:"degree"`
}

// DegreeBetween asks the graph service for the distance between two users.
func (c *Client) DegreeBetween(ctx context.Context, userA, userB int64) (Degree, error) {
	if userA == userB {
		return DegreeFirst, nil
	}

	url := fmt.Sprintf("%s/internal/degree?user_a=%d&user_b=%d", c.baseURL, userA, userB)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return DegreeNone, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DegreeNone, fmt.Errorf("degree lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DegreeNone, fmt.Errorf("degree lookup: unexpected status %d", resp.StatusCode)
	}

	var body degreeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return DegreeNone, fmt.Errorf("degree lookup: %w", err)
	}
	return body.Degree, nil
}

// noopGraph treats every pair as directly connected. Used when the graph
// service is not configured, so visibility filtering never hides posts.
type noopGraph struct{}

func (noopGraph) DegreeBetween(ctx context.Context, userA, userB int64) (Degree, error) {
	return DegreeFirst, nil
}
