package pipeline

import (
	"testing"

	"s2j/internal"
)

func TestAggregateByName(t *testing.T) {
	desired := []internal.QuoteLine{
		{Name: "X", Quantity: 2},
		{Name: "Y", Quantity: 1},
		{Name: "X", Quantity: 3},
	}
	out := AggregateByName(desired)

	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Name != "X" || out[0].Quantity != 5 {
		t.Fatalf("first = %+v", out[0])
	}
	if out[1].Name != "Y" || out[1].Quantity != 1 {
		t.Fatalf("second = %+v", out[1])
	}
}

func TestDiffPartition(t *testing.T) {
	desired := []internal.QuoteLine{
		{Name: "A", Quantity: 2},
		{Name: "B", Quantity: 1},
		{Name: "C", Quantity: 4},
	}
	existing := []internal.RemoteLineItem{
		{ID: "a1", Name: "A", Quantity: 2},
		{ID: "b1", Name: "B", Quantity: 5},
	}

	plan := Diff(desired, existing)

	if len(plan.ToAdd) != 1 || plan.ToAdd[0].Name != "C" {
		t.Fatalf("toAdd = %+v", plan.ToAdd)
	}
	if len(plan.ToUpdate) != 1 || plan.ToUpdate[0].LineItemID != "b1" || plan.ToUpdate[0].Quantity != 1 {
		t.Fatalf("toUpdate = %+v", plan.ToUpdate)
	}
}

func TestDiffAggregatesFirst(t *testing.T) {
	desired := []internal.QuoteLine{
		{Name: "X", Quantity: 2},
		{Name: "X", Quantity: 3},
	}
	existing := []internal.RemoteLineItem{
		{ID: "x1", Name: "X", Quantity: 5},
	}

	plan := Diff(desired, existing)
	if len(plan.ToAdd) != 0 || len(plan.ToUpdate) != 0 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestMasterIndexResolve(t *testing.T) {
	idx := BuildMasterIndex([]internal.MasterItem{
		{ID: "p1", Name: "Acme | Door | S2J(abc123)"},
		{ID: "p2", Name: "Plain product"},
		{ID: "p3", Name: "Acme | Door | S2J(abc123)"},
	})

	got := idx.Resolve("Renamed | S2J(abc123)")
	if got.ProductOrServiceID == nil || *got.ProductOrServiceID != "p1" {
		t.Fatalf("got %+v, want link to first entry", got)
	}

	if got := idx.Resolve("Missing | S2J(ffffff)"); !got.CreateNew {
		t.Fatalf("unmatched hash should create new: %+v", got)
	}
	if got := idx.Resolve("No suffix at all"); !got.CreateNew {
		t.Fatalf("suffix-less name should create new: %+v", got)
	}
}

func TestLinkStabilityAcrossRuns(t *testing.T) {
	first := Synthesize(baseLine())
	second := Synthesize(baseLine())

	idx := BuildMasterIndex([]internal.MasterItem{{ID: "master-1", Name: first.Name}})
	got := idx.Resolve(second.Name)
	if got.ProductOrServiceID == nil || *got.ProductOrServiceID != "master-1" {
		t.Fatalf("second run did not link: %+v", got)
	}
}
