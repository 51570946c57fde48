package notification

import (
	"sort"

	"inventoryHub/internal/timestamp"
)

// Merge folds incoming views into existing. Unknown ids are prepended,
// known ids are replaced in place, and the result is ordered newest first.
// unreadDelta counts new unread items and read-state flips of known items,
// so merging the same batch twice yields a zero delta the second time.
func Merge(existing, incoming []View) ([]View, int) {
	merged := make([]View, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, v := range merged {
		index[v.ID] = i
	}

	delta := 0
	var fresh []View
	freshIndex := make(map[string]int)
	for _, v := range incoming {
		if v.ID == "" {
			continue
		}
		if i, ok := index[v.ID]; ok {
			delta += readFlip(merged[i], v)
			merged[i] = v
			continue
		}
		if j, ok := freshIndex[v.ID]; ok {
			delta += readFlip(fresh[j], v)
			fresh[j] = v
			continue
		}
		if !v.IsRead {
			delta++
		}
		freshIndex[v.ID] = len(fresh)
		fresh = append(fresh, v)
	}

	merged = append(fresh, merged...)
	SortNewestFirst(merged)
	return merged, delta
}

// SortNewestFirst orders views by created_at descending, then id for a
// deterministic order between equal timestamps. Views without a usable
// created_at all sort at the same instant, the time of the call.
func SortNewestFirst(views []View) {
	type keyed struct {
		ms   int64
		view View
	}

	fallback := timestamp.ToMillis(nil)
	items := make([]keyed, len(views))
	for i, v := range views {
		items[i] = keyed{ms: fallback, view: v}
		if t, ok := timestamp.Parse(v.CreatedAt); ok {
			items[i].ms = t.UnixMilli()
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ms != items[j].ms {
			return items[i].ms > items[j].ms
		}
		return items[i].view.ID > items[j].view.ID
	})
	for i := range items {
		views[i] = items[i].view
	}
}

func readFlip(prev, next View) int {
	switch {
	case prev.IsRead && !next.IsRead:
		return 1
	case !prev.IsRead && next.IsRead:
		return -1
	}
	return 0
}

func countUnread(views []View) int {
	n := 0
	for _, v := range views {
		if !v.IsRead {
			n++
		}
	}
	return n
}
