package queue

import (
	"sort"

	"github.com/plenumlabs/scribe/session"
)

// OrderForDispatch returns segments in dispatch order: index 0 first, then
// ascending. The input is not modified.
func OrderForDispatch(segments []session.SegmentDescriptor) []session.SegmentDescriptor {
	ordered := make([]session.SegmentDescriptor, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Index == 0 {
			return ordered[j].Index != 0
		}
		if ordered[j].Index == 0 {
			return false
		}
		return ordered[i].Index < ordered[j].Index
	})
	return ordered
}
