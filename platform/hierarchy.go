package platform

import (
	"cmp"
	"slices"
)

// ResolveHierarchy attaches every carrier in nodes to the nearest ancestor
// along parentOf that also owns a carrier. It runs once when platforms are
// created, not per step. The returned map holds the resolved child->ancestor
// keys. A parent chain that loops without reaching a carrier resolves to no
// ancestor, and links that would close a carrier cycle are refused.
func ResolveHierarchy[K comparable](nodes map[K]*Carrier, parentOf func(K) (K, bool)) map[K]K {
	links := make(map[K]K)
	for key, carrier := range nodes {
		if carrier == nil {
			continue
		}
		ancestor, ok := nearestCarrier(key, nodes, parentOf)
		if !ok {
			carrier.AttachTo(nil)
			continue
		}
		if carrier.AttachTo(nodes[ancestor]) {
			links[key] = ancestor
		}
	}
	return links
}

func nearestCarrier[K comparable](key K, nodes map[K]*Carrier, parentOf func(K) (K, bool)) (K, bool) {
	var zero K
	seen := map[K]struct{}{key: {}}
	cur := key
	for {
		parent, ok := parentOf(cur)
		if !ok {
			return zero, false
		}
		if _, loop := seen[parent]; loop {
			return zero, false
		}
		seen[parent] = struct{}{}
		if c := nodes[parent]; c != nil {
			return parent, true
		}
		cur = parent
	}
}

// RootFirst orders carriers so that every ancestor comes before its
// descendants.
func RootFirst(carriers []*Carrier) []*Carrier {
	out := append([]*Carrier(nil), carriers...)
	slices.SortStableFunc(out, func(a, b *Carrier) int {
		return cmp.Compare(a.Depth(), b.Depth())
	})
	return out
}
