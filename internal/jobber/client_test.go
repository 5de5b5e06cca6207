package jobber

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"s2j/internal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func readRequest(t *testing.T, r *http.Request) gqlRequest {
	t.Helper()
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatal(err)
	}
	var req gqlRequest
	if err := json.Unmarshal(blob, &req); err != nil {
		t.Fatal(err)
	}
	return req
}

func respond(t *testing.T, data map[string]any) *http.Response {
	t.Helper()
	blob, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		t.Fatal(err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func testClient(rt roundTripFunc) *Client {
	return &Client{
		httpClient: &http.Client{Transport: rt},
		endpoint:   "https://example.test/graphql",
		apiVersion: "2025-01-20",
	}
}

func TestGetAllProductsAndServicesPagination(t *testing.T) {
	call := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("X-JOBBER-GRAPHQL-VERSION") != "2025-01-20" {
			t.Fatalf("version header = %q", r.Header.Get("X-JOBBER-GRAPHQL-VERSION"))
		}
		req := readRequest(t, r)
		call++
		switch call {
		case 1:
			if _, ok := req.Variables["cursor"]; ok {
				t.Fatalf("first page should carry no cursor: %v", req.Variables)
			}
			return respond(t, map[string]any{"productOrServices": map[string]any{
				"edges": []map[string]any{
					{"cursor": "c1", "node": map[string]any{"id": "p1", "name": "First"}},
					{"cursor": "c2", "node": map[string]any{"id": "p2", "name": "Second"}},
				},
				"pageInfo": map[string]any{"hasNextPage": true},
			}}), nil
		case 2:
			if req.Variables["cursor"] != "c2" {
				t.Fatalf("cursor = %v", req.Variables["cursor"])
			}
			return respond(t, map[string]any{"productOrServices": map[string]any{
				"edges": []map[string]any{
					{"cursor": "c3", "node": map[string]any{"id": "p3", "name": "Third"}},
				},
				"pageInfo": map[string]any{"hasNextPage": false},
			}}), nil
		default:
			t.Fatal("too many pages requested")
			return nil, nil
		}
	})

	items, err := client.GetAllProductsAndServices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 || items[0].ID != "p1" || items[2].Name != "Third" {
		t.Fatalf("items = %+v", items)
	}
}

func TestPostRetriesTransientStatus(t *testing.T) {
	attempt := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		attempt++
		if attempt == 1 {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader("slow down")),
				Header:     make(http.Header),
			}, nil
		}
		return respond(t, map[string]any{"quote": map[string]any{
			"id":        "q1",
			"lineItems": map[string]any{"nodes": []map[string]any{{"id": "li1", "name": "X", "quantity": 2.0}}},
		}}), nil
	})

	items, err := client.GetQuoteLineItems(context.Background(), "q1")
	if err != nil {
		t.Fatal(err)
	}
	if attempt != 2 {
		t.Fatalf("attempts = %d", attempt)
	}
	if len(items) != 1 || items[0].ID != "li1" || items[0].Quantity != 2.0 {
		t.Fatalf("items = %+v", items)
	}
}

func TestUserErrorsSurface(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return respond(t, map[string]any{"quoteCreateLineItems": map[string]any{
			"userErrors": []map[string]any{{"message": "quantity must be positive"}},
		}}), nil
	})

	err := client.AddQuoteLineItems(context.Background(), "q1", []internal.QuoteLine{{Name: "X"}})
	if err == nil || !strings.Contains(err.Error(), "quantity must be positive") {
		t.Fatalf("err = %v", err)
	}
}

func TestGraphQLErrorsSurface(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		blob, _ := json.Marshal(map[string]any{"errors": []map[string]any{{"message": "not authorized"}}})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(string(blob))),
			Header:     make(http.Header),
		}, nil
	})

	_, err := client.GetQuoteLineItems(context.Background(), "q1")
	if err == nil || !strings.Contains(err.Error(), "not authorized") {
		t.Fatalf("err = %v", err)
	}
}
