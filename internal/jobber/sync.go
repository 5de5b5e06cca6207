package jobber

import (
	"context"
	"fmt"

	"s2j/internal"
	"s2j/internal/pipeline"
)

// Target identifies the Jobber document receiving line items.
type Target struct {
	ID   string
	Type string
}

const (
	TargetQuote = "Quote"
	TargetJob   = "Job"
)

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	Added            int
	Updated          int
	ProductsUpserted int
}

func (c *Client) targetLineItems(ctx context.Context, target Target) ([]internal.RemoteLineItem, error) {
	switch target.Type {
	case TargetQuote:
		return c.GetQuoteLineItems(ctx, target.ID)
	case TargetJob:
		return c.GetJobLineItems(ctx, target.ID)
	default:
		return nil, fmt.Errorf("unsupported target type %q", target.Type)
	}
}

// SyncLineItems pushes the desired lines onto the target: duplicates are
// merged by name, lines already present remotely get a quantity update
// when it differs, and the rest are added. Job targets first reconcile
// the master product catalog so internal unit costs stay current.
func (c *Client) SyncLineItems(ctx context.Context, desired []internal.QuoteLine, target Target) (SyncResult, error) {
	var res SyncResult
	desired = pipeline.AggregateByName(desired)

	master, err := c.GetAllProductsAndServices(ctx)
	if err != nil {
		return res, fmt.Errorf("fetching existing products: %w", err)
	}

	if target.Type == TargetJob {
		for _, line := range desired {
			if line.UnitCost == nil {
				continue
			}
			master, err = c.UpsertProduct(ctx, line.Name, *line.UnitCost, master)
			if err != nil {
				return res, fmt.Errorf("reconciling product %q: %w", line.Name, err)
			}
			res.ProductsUpserted++
		}
	}

	existing, err := c.targetLineItems(ctx, target)
	if err != nil {
		return res, err
	}
	plan := pipeline.Diff(desired, existing)

	switch target.Type {
	case TargetQuote:
		if err := c.UpdateQuoteLineItems(ctx, target.ID, plan.ToUpdate); err != nil {
			return res, err
		}
		res.Updated = len(plan.ToUpdate)

		// Names whose hash already exists in the master catalog link to
		// the existing entry instead of minting a duplicate.
		idx := pipeline.BuildMasterIndex(master)
		adds := make([]internal.QuoteLine, 0, len(plan.ToAdd))
		for _, line := range plan.ToAdd {
			if link := idx.Resolve(line.Name); link.ProductOrServiceID != nil {
				line.ProductOrServiceID = link.ProductOrServiceID
				line.SaveToProductsAndServices = false
			}
			adds = append(adds, line)
		}
		if err := c.AddQuoteLineItems(ctx, target.ID, adds); err != nil {
			return res, err
		}
		res.Added = len(adds)
	case TargetJob:
		if err := c.UpdateJobLineItems(ctx, target.ID, plan.ToUpdate); err != nil {
			return res, err
		}
		res.Updated = len(plan.ToUpdate)

		known := make(map[string]bool, len(master))
		for _, item := range master {
			known[item.Name] = true
		}
		adds := make([]internal.QuoteLine, 0, len(plan.ToAdd))
		for _, line := range plan.ToAdd {
			// Jobs bill through the product catalog, so the line
			// itself carries no price.
			line.UnitPrice = 0
			line.SaveToProductsAndServices = !known[line.Name]
			adds = append(adds, line)
		}
		if err := c.AddJobLineItems(ctx, target.ID, adds); err != nil {
			return res, err
		}
		res.Added = len(adds)
	default:
		return res, fmt.Errorf("unsupported target type %q", target.Type)
	}

	fmt.Printf("INFO: sync to %s %s complete, added %d, updated %d\n", target.Type, target.ID, res.Added, res.Updated)
	return res, nil
}
