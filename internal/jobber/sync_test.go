package jobber

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"s2j/internal"
	"s2j/internal/util"
)

func TestSyncLineItemsQuote(t *testing.T) {
	var addedVars, updatedVars map[string]any

	client := testClient(func(r *http.Request) (*http.Response, error) {
		req := readRequest(t, r)
		switch {
		case strings.Contains(req.Query, "GetAllProducts"):
			return respond(t, map[string]any{"productOrServices": map[string]any{
				"edges": []map[string]any{
					{"cursor": "c1", "node": map[string]any{"id": "p9", "name": "Old name | S2J(abc123)"}},
				},
				"pageInfo": map[string]any{"hasNextPage": false},
			}}), nil
		case strings.Contains(req.Query, "GetQuoteDetails"):
			return respond(t, map[string]any{"quote": map[string]any{
				"id": "q1",
				"lineItems": map[string]any{"nodes": []map[string]any{
					{"id": "r1", "name": "Cabinet | S2J(111111)", "quantity": 5.0},
				}},
			}}), nil
		case strings.Contains(req.Query, "QuoteEditLineItems"):
			updatedVars = req.Variables
			return respond(t, map[string]any{"quoteEditLineItems": map[string]any{"userErrors": []any{}}}), nil
		case strings.Contains(req.Query, "QuoteCreateLineItems"):
			addedVars = req.Variables
			return respond(t, map[string]any{"quoteCreateLineItems": map[string]any{
				"userErrors":       []any{},
				"createdLineItems": []map[string]any{{"id": "new1"}},
			}}), nil
		default:
			t.Fatalf("unexpected query: %s", req.Query)
			return nil, nil
		}
	})

	desired := []internal.QuoteLine{
		{Name: "Cabinet | S2J(111111)", Quantity: 2, SaveToProductsAndServices: true},
		{Name: "Door | S2J(abc123)", Quantity: 1, SaveToProductsAndServices: true},
		{Name: "Door | S2J(abc123)", Quantity: 1, SaveToProductsAndServices: true},
	}

	res, err := client.SyncLineItems(context.Background(), desired, Target{ID: "q1", Type: TargetQuote})
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 1 || res.Updated != 1 || res.ProductsUpserted != 0 {
		t.Fatalf("result = %+v", res)
	}

	updates := updatedVars["lineItems"].([]any)
	if len(updates) != 1 {
		t.Fatalf("updates = %v", updates)
	}
	update := updates[0].(map[string]any)
	if update["lineItemId"] != "r1" || update["quantity"] != 2.0 {
		t.Fatalf("update = %v", update)
	}

	adds := addedVars["lineItems"].([]any)
	if len(adds) != 1 {
		t.Fatalf("adds = %v", adds)
	}
	add := adds[0].(map[string]any)
	if add["name"] != "Door | S2J(abc123)" || add["quantity"] != 2.0 {
		t.Fatalf("add = %v", add)
	}
	if add["productOrServiceId"] != "p9" {
		t.Fatalf("hash match should link to master entry: %v", add)
	}
	if add["saveToProductsAndServices"] != false {
		t.Fatalf("linked add must not re-save: %v", add)
	}
}

func TestSyncLineItemsJob(t *testing.T) {
	var createdProducts []map[string]any
	var addedVars map[string]any

	client := testClient(func(r *http.Request) (*http.Response, error) {
		req := readRequest(t, r)
		switch {
		case strings.Contains(req.Query, "GetAllProducts"):
			return respond(t, map[string]any{"productOrServices": map[string]any{
				"edges":    []any{},
				"pageInfo": map[string]any{"hasNextPage": false},
			}}), nil
		case strings.Contains(req.Query, "ProductsAndServicesCreate"):
			input := req.Variables["input"].(map[string]any)
			createdProducts = append(createdProducts, input)
			return respond(t, map[string]any{"productsAndServicesCreate": map[string]any{
				"userErrors":       []any{},
				"productOrService": map[string]any{"id": "p1", "name": input["name"]},
			}}), nil
		case strings.Contains(req.Query, "GetJobDetails"):
			return respond(t, map[string]any{"job": map[string]any{
				"id":        "j1",
				"lineItems": map[string]any{"nodes": []any{}},
			}}), nil
		case strings.Contains(req.Query, "JobCreateLineItems"):
			addedVars = req.Variables
			return respond(t, map[string]any{"jobCreateLineItems": map[string]any{
				"userErrors":       []any{},
				"createdLineItems": []map[string]any{{"id": "new1"}},
			}}), nil
		default:
			t.Fatalf("unexpected query: %s", req.Query)
			return nil, nil
		}
	})

	desired := []internal.QuoteLine{
		{Name: "Cabinet | S2J(111111)", Quantity: 2, UnitPrice: 15.5, UnitCost: util.FloatPtr(15.5), SaveToProductsAndServices: true},
	}

	res, err := client.SyncLineItems(context.Background(), desired, Target{ID: "j1", Type: TargetJob})
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 1 || res.ProductsUpserted != 1 {
		t.Fatalf("result = %+v", res)
	}

	if len(createdProducts) != 1 || createdProducts[0]["internalUnitCost"] != 15.5 {
		t.Fatalf("products = %v", createdProducts)
	}

	input := addedVars["input"].(map[string]any)
	adds := input["lineItems"].([]any)
	add := adds[0].(map[string]any)
	if add["unitPrice"] != 0.0 {
		t.Fatalf("job add must zero the unit price: %v", add)
	}
	if add["saveToProductsAndServices"] != false {
		t.Fatalf("product was just created, add must not re-save: %v", add)
	}
}

func TestSyncLineItemsUnknownTarget(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		req := readRequest(t, r)
		if strings.Contains(req.Query, "GetAllProducts") {
			return respond(t, map[string]any{"productOrServices": map[string]any{
				"edges":    []any{},
				"pageInfo": map[string]any{"hasNextPage": false},
			}}), nil
		}
		t.Fatalf("unexpected query: %s", req.Query)
		return nil, nil
	})

	_, err := client.SyncLineItems(context.Background(), nil, Target{ID: "x", Type: "Invoice"})
	if err == nil || !strings.Contains(err.Error(), "unsupported target type") {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteSyncedLineItems(t *testing.T) {
	var deleteVars map[string]any
	client := testClient(func(r *http.Request) (*http.Response, error) {
		req := readRequest(t, r)
		switch {
		case strings.Contains(req.Query, "GetQuoteDetails"):
			return respond(t, map[string]any{"quote": map[string]any{
				"id": "q1",
				"lineItems": map[string]any{"nodes": []map[string]any{
					{"id": "r1", "name": "Cabinet | S2J(111111)", "quantity": 1.0},
					{"id": "r2", "name": "Handwritten line", "quantity": 1.0},
				}},
			}}), nil
		case strings.Contains(req.Query, "QuoteDeleteLineItems"):
			deleteVars = req.Variables
			return respond(t, map[string]any{"quoteDeleteLineItems": map[string]any{"userErrors": []any{}}}), nil
		default:
			t.Fatalf("unexpected query: %s", req.Query)
			return nil, nil
		}
	})

	deleted, err := client.DeleteSyncedLineItems(context.Background(), Target{ID: "q1", Type: TargetQuote})
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d", deleted)
	}

	input := deleteVars["input"].(map[string]any)
	ids := input["lineItemIds"].([]any)
	if len(ids) != 1 || ids[0] != "r1" {
		t.Fatalf("ids = %v", ids)
	}
}
