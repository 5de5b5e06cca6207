package jobber

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"s2j/internal"
)

// syncMarker tags every line item this tool writes, so stale entries can
// be found and cleared on later runs.
const syncMarker = " | S2J("

const productsPageQuery = `
query GetAllProducts($cursor: String) {
  productOrServices(first: 250, after: $cursor) {
    edges {
      cursor
      node { id name }
    }
    pageInfo { hasNextPage }
  }
}`

// GetAllProductsAndServices pages through the whole products-and-services
// catalog and returns it flattened.
func (c *Client) GetAllProductsAndServices(ctx context.Context) ([]internal.MasterItem, error) {
	fmt.Println("INFO: fetching all products and services from Jobber")
	var items []internal.MasterItem
	var cursor string
	for {
		vars := map[string]any{}
		if cursor != "" {
			vars["cursor"] = cursor
		}
		data, err := c.post(ctx, "GetAllProducts", productsPageQuery, vars)
		if err != nil {
			return nil, err
		}
		var page struct {
			Edges []struct {
				Cursor string              `json:"cursor"`
				Node   internal.MasterItem `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
		}
		if err := json.Unmarshal(data["productOrServices"], &page); err != nil {
			return nil, fmt.Errorf("decoding productOrServices: %w", err)
		}
		for _, edge := range page.Edges {
			if edge.Node.ID != "" && edge.Node.Name != "" {
				items = append(items, edge.Node)
			}
		}
		if !page.PageInfo.HasNextPage || len(page.Edges) == 0 {
			break
		}
		cursor = page.Edges[len(page.Edges)-1].Cursor
	}
	fmt.Printf("INFO: retrieved %d products and services\n", len(items))
	return items, nil
}

const quoteLineItemsQuery = `
query GetQuoteDetails($quoteId: EncodedId!) {
  quote(id: $quoteId) {
    id
    lineItems {
      nodes { id name quantity }
    }
  }
}`

const jobLineItemsQuery = `
query GetJobDetails($jobId: EncodedId!) {
  job(id: $jobId) {
    id
    lineItems {
      nodes { id name quantity }
    }
  }
}`

type lineItemsEnvelope struct {
	ID        string `json:"id"`
	LineItems struct {
		Nodes []internal.RemoteLineItem `json:"nodes"`
	} `json:"lineItems"`
}

// GetQuoteLineItems returns the current line items of a quote.
func (c *Client) GetQuoteLineItems(ctx context.Context, quoteID string) ([]internal.RemoteLineItem, error) {
	return c.lineItems(ctx, "GetQuoteDetails", quoteLineItemsQuery, "quote", map[string]any{"quoteId": quoteID})
}

// GetJobLineItems returns the current line items of a job.
func (c *Client) GetJobLineItems(ctx context.Context, jobID string) ([]internal.RemoteLineItem, error) {
	return c.lineItems(ctx, "GetJobDetails", jobLineItemsQuery, "job", map[string]any{"jobId": jobID})
}

func (c *Client) lineItems(ctx context.Context, opName, query, field string, vars map[string]any) ([]internal.RemoteLineItem, error) {
	data, err := c.post(ctx, opName, query, vars)
	if err != nil {
		return nil, err
	}
	var envelope lineItemsEnvelope
	if err := json.Unmarshal(data[field], &envelope); err != nil {
		return nil, fmt.Errorf("decoding %s line items: %w", field, err)
	}
	if envelope.ID == "" {
		return nil, fmt.Errorf("%s not found", field)
	}
	return envelope.LineItems.Nodes, nil
}

const quoteCreateLineItemsMutation = `
mutation QuoteCreateLineItems($quoteId: EncodedId!, $lineItems: [QuoteCreateLineItemAttributes!]!) {
  quoteCreateLineItems(quoteId: $quoteId, lineItems: $lineItems) {
    userErrors { message path }
    createdLineItems { id }
  }
}`

// AddQuoteLineItems adds new line items to an existing quote.
func (c *Client) AddQuoteLineItems(ctx context.Context, quoteID string, lines []internal.QuoteLine) error {
	if len(lines) == 0 {
		return nil
	}
	fmt.Printf("INFO: adding %d line item(s) to quote %s\n", len(lines), quoteID)
	attrs := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		attrs = append(attrs, quoteLineAttributes(line))
	}
	data, err := c.post(ctx, "QuoteCreateLineItems", quoteCreateLineItemsMutation, map[string]any{
		"quoteId":   quoteID,
		"lineItems": attrs,
	})
	if err != nil {
		return err
	}
	return decodeUserErrors(data, "quoteCreateLineItems")
}

const quoteEditLineItemsMutation = `
mutation QuoteEditLineItems($quoteId: EncodedId!, $lineItems: [QuoteEditLineItemAttributes!]!) {
  quoteEditLineItems(quoteId: $quoteId, lineItems: $lineItems) {
    userErrors { message path }
  }
}`

// UpdateQuoteLineItems rewrites quantities on existing quote line items.
func (c *Client) UpdateQuoteLineItems(ctx context.Context, quoteID string, updates []internal.LineItemUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	fmt.Printf("INFO: updating %d line item(s) on quote %s\n", len(updates), quoteID)
	attrs := make([]map[string]any, 0, len(updates))
	for _, u := range updates {
		attrs = append(attrs, map[string]any{"lineItemId": u.LineItemID, "quantity": u.Quantity})
	}
	data, err := c.post(ctx, "QuoteEditLineItems", quoteEditLineItemsMutation, map[string]any{
		"quoteId":   quoteID,
		"lineItems": attrs,
	})
	if err != nil {
		return err
	}
	return decodeUserErrors(data, "quoteEditLineItems")
}

const jobCreateLineItemsMutation = `
mutation JobCreateLineItems($jobId: EncodedId!, $input: JobCreateLineItemsInput!) {
  jobCreateLineItems(jobId: $jobId, input: $input) {
    userErrors { message path }
    createdLineItems { id }
  }
}`

// AddJobLineItems adds new line items to an existing job.
func (c *Client) AddJobLineItems(ctx context.Context, jobID string, lines []internal.QuoteLine) error {
	if len(lines) == 0 {
		return nil
	}
	fmt.Printf("INFO: adding %d line item(s) to job %s\n", len(lines), jobID)
	attrs := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		attrs = append(attrs, quoteLineAttributes(line))
	}
	data, err := c.post(ctx, "JobCreateLineItems", jobCreateLineItemsMutation, map[string]any{
		"jobId": jobID,
		"input": map[string]any{"lineItems": attrs},
	})
	if err != nil {
		return err
	}
	return decodeUserErrors(data, "jobCreateLineItems")
}

const jobEditLineItemsMutation = `
mutation JobEditLineItems($jobId: EncodedId!, $input: JobEditLineItemsInput!) {
  jobEditLineItems(jobId: $jobId, input: $input) {
    userErrors { message path }
  }
}`

// UpdateJobLineItems rewrites quantities on existing job line items.
func (c *Client) UpdateJobLineItems(ctx context.Context, jobID string, updates []internal.LineItemUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	fmt.Printf("INFO: updating %d line item(s) on job %s\n", len(updates), jobID)
	attrs := make([]map[string]any, 0, len(updates))
	for _, u := range updates {
		attrs = append(attrs, map[string]any{"lineItemId": u.LineItemID, "quantity": u.Quantity})
	}
	data, err := c.post(ctx, "JobEditLineItems", jobEditLineItemsMutation, map[string]any{
		"jobId": jobID,
		"input": map[string]any{"lineItems": attrs},
	})
	if err != nil {
		return err
	}
	return decodeUserErrors(data, "jobEditLineItems")
}

const productEditMutation = `
mutation ProductsAndServicesEdit($productOrServiceId: EncodedId!, $input: ProductsAndServicesEditInput!) {
  productsAndServicesEdit(productOrServiceId: $productOrServiceId, input: $input) {
    userErrors { message path }
  }
}`

const productCreateMutation = `
mutation ProductsAndServicesCreate($input: ProductsAndServicesInput!) {
  productsAndServicesCreate(input: $input) {
    userErrors { message path }
    productOrService { id name }
  }
}`

// UpsertProduct creates or updates a master catalog entry carrying the
// internal unit cost and returns the catalog with any new entry appended.
func (c *Client) UpsertProduct(ctx context.Context, name string, unitCost float64, master []internal.MasterItem) ([]internal.MasterItem, error) {
	for _, item := range master {
		if item.Name != name {
			continue
		}
		data, err := c.post(ctx, "ProductsAndServicesEdit", productEditMutation, map[string]any{
			"productOrServiceId": item.ID,
			"input":              map[string]any{"internalUnitCost": unitCost},
		})
		if err != nil {
			return master, err
		}
		return master, decodeUserErrors(data, "productsAndServicesEdit")
	}

	data, err := c.post(ctx, "ProductsAndServicesCreate", productCreateMutation, map[string]any{
		"input": map[string]any{
			"name":             name,
			"category":         "PRODUCT",
			"internalUnitCost": unitCost,
			"defaultUnitCost":  0,
		},
	})
	if err != nil {
		return master, err
	}
	var payload struct {
		userErrorPayload
		ProductOrService *internal.MasterItem `json:"productOrService"`
	}
	if err := json.Unmarshal(data["productsAndServicesCreate"], &payload); err != nil {
		return master, fmt.Errorf("decoding productsAndServicesCreate: %w", err)
	}
	if err := payload.err("productsAndServicesCreate"); err != nil {
		return master, err
	}
	if payload.ProductOrService != nil {
		master = append(master, *payload.ProductOrService)
	}
	return master, nil
}

const quoteDeleteLineItemsMutation = `
mutation QuoteDeleteLineItems($quoteId: EncodedId!, $input: QuoteDeleteLineItemsInput!) {
  quoteDeleteLineItems(quoteId: $quoteId, input: $input) {
    userErrors { message path }
  }
}`

const jobDeleteLineItemsMutation = `
mutation JobDeleteLineItems($jobId: EncodedId!, $input: JobDeleteLineItemsInput!) {
  jobDeleteLineItems(jobId: $jobId, input: $input) {
    userErrors { message path }
  }
}`

// DeleteSyncedLineItems removes every line item this tool previously
// wrote to the target, identified by the hash marker in the name. It
// returns the number of items deleted.
func (c *Client) DeleteSyncedLineItems(ctx context.Context, target Target) (int, error) {
	existing, err := c.targetLineItems(ctx, target)
	if err != nil {
		return 0, err
	}
	var ids []string
	for _, item := range existing {
		if strings.Contains(item.Name, syncMarker) {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	fmt.Printf("INFO: clearing %d synced line item(s) from %s %s\n", len(ids), target.Type, target.ID)

	var data map[string]json.RawMessage
	var field string
	switch target.Type {
	case TargetQuote:
		field = "quoteDeleteLineItems"
		data, err = c.post(ctx, "QuoteDeleteLineItems", quoteDeleteLineItemsMutation, map[string]any{
			"quoteId": target.ID,
			"input":   map[string]any{"lineItemIds": ids},
		})
	case TargetJob:
		field = "jobDeleteLineItems"
		data, err = c.post(ctx, "JobDeleteLineItems", jobDeleteLineItemsMutation, map[string]any{
			"jobId": target.ID,
			"input": map[string]any{"lineItemIds": ids},
		})
	default:
		return 0, fmt.Errorf("unsupported target type %q", target.Type)
	}
	if err != nil {
		return 0, err
	}
	if err := decodeUserErrors(data, field); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func quoteLineAttributes(line internal.QuoteLine) map[string]any {
	attrs := map[string]any{
		"name":                      line.Name,
		"description":               line.Description,
		"quantity":                  line.Quantity,
		"unitPrice":                 line.UnitPrice,
		"taxable":                   line.Taxable,
		"saveToProductsAndServices": line.SaveToProductsAndServices,
	}
	if line.UnitCost != nil {
		attrs["unitCost"] = *line.UnitCost
	}
	if line.ProductOrServiceID != nil {
		attrs["productOrServiceId"] = *line.ProductOrServiceID
	}
	return attrs
}

func decodeUserErrors(data map[string]json.RawMessage, field string) error {
	raw, ok := data[field]
	if !ok {
		return fmt.Errorf("response missing %s payload", field)
	}
	var payload userErrorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decoding %s: %w", field, err)
	}
	return payload.err(field)
}
