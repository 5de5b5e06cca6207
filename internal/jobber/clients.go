package jobber

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"s2j/internal"
)

var companyKeywords = []string{
	" INC", " LLC", " CORP", " LTD", "COMPANY", "GROUP", "SERVICE", "SOLUTION",
}

const clientCreateMutation = `
mutation ClientCreate($input: ClientCreateInput!) {
  clientCreate(input: $input) {
    client { id name }
    userErrors { message path }
  }
}`

const propertyCreateMutation = `
mutation PropertyCreate($clientId: EncodedId!, $input: PropertyCreateInput!) {
  propertyCreate(clientId: $clientId, input: $input) {
    properties {
      id
      address { street city province postalCode }
    }
    userErrors { message path }
  }
}`

// CreateClientAndProperty creates a Jobber client for the order's customer
// and a property at its shipping address, returning both ids.
func (c *Client) CreateClientAndProperty(ctx context.Context, order internal.Order) (string, string, error) {
	fmt.Printf("INFO: creating Jobber client for %q\n", order.CustomerName)

	data, err := c.post(ctx, "ClientCreate", clientCreateMutation, map[string]any{
		"input": clientInput(order.CustomerName),
	})
	if err != nil {
		return "", "", err
	}
	var clientPayload struct {
		userErrorPayload
		Client *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"client"`
	}
	if err := json.Unmarshal(data["clientCreate"], &clientPayload); err != nil {
		return "", "", fmt.Errorf("decoding clientCreate: %w", err)
	}
	if err := clientPayload.err("clientCreate"); err != nil {
		return "", "", err
	}
	if clientPayload.Client == nil || clientPayload.Client.ID == "" {
		return "", "", fmt.Errorf("clientCreate returned no client id")
	}
	clientID := clientPayload.Client.ID

	data, err = c.post(ctx, "PropertyCreate", propertyCreateMutation, map[string]any{
		"clientId": clientID,
		"input": map[string]any{
			"properties": []map[string]any{{"address": addressInput(order.Shipping)}},
		},
	})
	if err != nil {
		return "", "", err
	}
	var propPayload struct {
		userErrorPayload
		Properties []struct {
			ID string `json:"id"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(data["propertyCreate"], &propPayload); err != nil {
		return "", "", fmt.Errorf("decoding propertyCreate: %w", err)
	}
	if err := propPayload.err("propertyCreate"); err != nil {
		return "", "", err
	}
	if len(propPayload.Properties) == 0 || propPayload.Properties[0].ID == "" {
		return "", "", fmt.Errorf("propertyCreate returned no property id")
	}

	return clientID, propPayload.Properties[0].ID, nil
}

const quoteCreateMutation = `
mutation QuoteCreate($attributes: QuoteCreateAttributes!) {
  quoteCreate(attributes: $attributes) {
    quote { id quoteNumber quoteStatus }
    userErrors { message path }
  }
}`

// CreateQuote creates a new quote carrying the given line items and returns
// the quote id.
func (c *Client) CreateQuote(ctx context.Context, clientID, propertyID, title string, lines []internal.QuoteLine) (string, error) {
	attrs := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		attrs = append(attrs, quoteLineAttributes(line))
	}

	data, err := c.post(ctx, "QuoteCreate", quoteCreateMutation, map[string]any{
		"attributes": map[string]any{
			"clientId":   clientID,
			"propertyId": propertyID,
			"title":      title,
			"lineItems":  attrs,
		},
	})
	if err != nil {
		return "", err
	}
	var payload struct {
		userErrorPayload
		Quote *struct {
			ID          string `json:"id"`
			QuoteNumber int    `json:"quoteNumber"`
			QuoteStatus string `json:"quoteStatus"`
		} `json:"quote"`
	}
	if err := json.Unmarshal(data["quoteCreate"], &payload); err != nil {
		return "", fmt.Errorf("decoding quoteCreate: %w", err)
	}
	if err := payload.err("quoteCreate"); err != nil {
		return "", err
	}
	if payload.Quote == nil || payload.Quote.ID == "" {
		return "", fmt.Errorf("quoteCreate returned no quote id")
	}
	fmt.Printf("INFO: created quote %s (#%d, %s)\n", payload.Quote.ID, payload.Quote.QuoteNumber, payload.Quote.QuoteStatus)
	return payload.Quote.ID, nil
}

// clientInput decides between a company and a person record. Multi-word
// names without a company keyword split into first/last name.
func clientInput(customerName string) map[string]any {
	name := strings.TrimSpace(customerName)
	upper := strings.ToUpper(name)
	for _, kw := range companyKeywords {
		if strings.Contains(upper, kw) {
			return map[string]any{"companyName": name, "isCompany": true}
		}
	}

	parts := strings.Fields(name)
	input := map[string]any{"isCompany": false}
	switch {
	case len(parts) >= 2:
		input["firstName"] = parts[0]
		input["lastName"] = strings.Join(parts[1:], " ")
	case len(parts) == 1:
		input["lastName"] = parts[0]
	default:
		input["firstName"] = "Client"
		input["lastName"] = "Unknown"
	}
	return input
}

func addressInput(addr internal.ShippingAddress) map[string]any {
	out := map[string]any{}
	set := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			out[key] = value
		}
	}
	set("street1", addr.Street1)
	set("street2", addr.Street2)
	set("city", addr.City)
	set("province", addr.Province)
	set("postalCode", addr.PostalCode)
	set("country", addr.Country)
	return out
}
