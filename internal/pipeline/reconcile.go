package pipeline

import "s2j/internal"

// AggregateByName merges desired lines sharing a name by summing their
// quantities, first-seen order preserved. A single remote line can represent
// many source contributions, so this must run before any diff.
func AggregateByName(desired []internal.QuoteLine) []internal.QuoteLine {
	index := map[string]int{}
	out := make([]internal.QuoteLine, 0, len(desired))
	for _, line := range desired {
		if at, ok := index[line.Name]; ok {
			out[at].Quantity += line.Quantity
			continue
		}
		index[line.Name] = len(out)
		out = append(out, line)
	}
	return out
}

// Diff partitions the desired lines against the remote state by exact name
// match: names absent remotely become adds, names present with a different
// quantity become updates, everything else is untouched. The returned sets
// are disjoint.
func Diff(desired []internal.QuoteLine, existing []internal.RemoteLineItem) internal.Plan {
	byName := make(map[string]internal.RemoteLineItem, len(existing))
	for _, item := range existing {
		byName[item.Name] = item
	}

	var plan internal.Plan
	for _, want := range AggregateByName(desired) {
		current, ok := byName[want.Name]
		if !ok {
			plan.ToAdd = append(plan.ToAdd, want)
			continue
		}
		if current.Quantity != want.Quantity {
			plan.ToUpdate = append(plan.ToUpdate, internal.LineItemUpdate{
				LineItemID: current.ID,
				Quantity:   want.Quantity,
			})
		}
	}
	return plan
}
