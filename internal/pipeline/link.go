package pipeline

import (
	"regexp"

	"s2j/internal"
	"s2j/internal/util"
)

// The S2J suffix is the cross-run identity of a synthesized product. Matching
// is exact on the embedded hash; cosmetic differences elsewhere in the name
// must not break the link.
var s2jSuffix = regexp.MustCompile(`S2J\(([0-9a-f]{6})\)`)

// MasterIndex maps S2J hashes to reusable product-or-service ids.
type MasterIndex map[string]string

// BuildMasterIndex scans the remote master catalog for S2J-suffixed names.
// The first id wins when two entries somehow carry the same hash.
func BuildMasterIndex(items []internal.MasterItem) MasterIndex {
	idx := MasterIndex{}
	for _, item := range items {
		m := s2jSuffix.FindStringSubmatch(item.Name)
		if m == nil {
			continue
		}
		if _, ok := idx[m[1]]; !ok {
			idx[m[1]] = item.ID
		}
	}
	return idx
}

// Resolve decides whether a desired name links to an existing master entry.
// Linked items must not be re-saved as new reusable products; unmatched or
// suffix-less names are saved as new entries.
func (idx MasterIndex) Resolve(desiredName string) internal.LinkResolution {
	m := s2jSuffix.FindStringSubmatch(desiredName)
	if m == nil {
		return internal.LinkResolution{CreateNew: true}
	}
	id, ok := idx[m[1]]
	if !ok {
		return internal.LinkResolution{CreateNew: true}
	}
	return internal.LinkResolution{ProductOrServiceID: util.StringPtr(id)}
}
