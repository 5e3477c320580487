// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import "github.com/pdiddy/bibtools/pkg/types"

// basisOrder ranks merge bases; a group reports the weakest link it contains.
var basisOrder = map[types.MergeBasis]int{
	types.MergeSingle:   0,
	types.MergeHALID:    1,
	types.MergeDOI:      2,
	types.MergeMetadata: 3,
}

// unionFind groups record indices. Each root carries the group's merge
// basis and the lowest link confidence seen.
type unionFind struct {
	parent []int
	basis  []types.MergeBasis
	conf   []float64
}

func newUnionFind(records []types.CanonicalRecord) *unionFind {
	uf := &unionFind{
		parent: make([]int, len(records)),
		basis:  make([]types.MergeBasis, len(records)),
		conf:   make([]float64, len(records)),
	}
	for i, r := range records {
		uf.parent[i] = i
		uf.basis[i] = r.MergeBasis
		if uf.basis[i] == "" {
			uf.basis[i] = types.MergeSingle
		}
		uf.conf[i] = r.MergeConfidence
		if uf.conf[i] <= 0 {
			uf.conf[i] = 1
		}
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union joins the groups of a and b through a link of the given basis and
// confidence. The lower index becomes the root so groups keep input order.
func (uf *unionFind) union(a, b int, basis types.MergeBasis, conf float64) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra

	best := uf.basis[ra]
	for _, c := range []types.MergeBasis{uf.basis[rb], basis} {
		if basisOrder[c] > basisOrder[best] {
			best = c
		}
	}
	uf.basis[ra] = best
	uf.conf[ra] = min(uf.conf[ra], uf.conf[rb], conf)
}
