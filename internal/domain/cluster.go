package domain

import (
	"fmt"
	"math"
)

// KmPerDegree is the planar approximation of one degree of arc near the equator.
const KmPerDegree = 110.574

// DefaultThresholdKm is the default clustering radius.
const DefaultThresholdKm = 100.0

// KmToDegrees converts a distance in kilometers to degrees with the fixed
// equatorial approximation. It ignores latitude; see the package docs.
func KmToDegrees(km float64) float64 {
	return km / KmPerDegree
}

// Strategy selects how cluster ids are assigned from radius queries.
type Strategy string

const (
	// StrategyConnected assigns ids by connected components.
	StrategyConnected Strategy = "connected"
	// StrategyFirstTouch reproduces the legacy single-pass propagation.
	StrategyFirstTouch Strategy = "first-touch"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyConnected, StrategyFirstTouch:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown cluster strategy %q", s)
	}
}

// ClusterOptions configures the spatial clusterer.
type ClusterOptions struct {
	ThresholdKm float64
	Strategy    Strategy

	// ToDegrees converts ThresholdKm into the coordinate unit. Defaults to KmToDegrees.
	ToDegrees func(km float64) float64
}

// DefaultClusterOptions returns a 100 km connected-components configuration.
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		ThresholdKm: DefaultThresholdKm,
		Strategy:    StrategyConnected,
		ToDegrees:   KmToDegrees,
	}
}

// Assignment maps each record index to a cluster id.
type Assignment struct {
	IDs []int
	// Count is the number of ids issued. Every id has at least one member.
	Count int
}

// Groups returns the record indices of each cluster, indexed by cluster id,
// in input order within a cluster.
func (a Assignment) Groups() [][]int {
	groups := make([][]int, a.Count)
	for i, id := range a.IDs {
		groups[id] = append(groups[id], i)
	}
	return groups
}

// Cluster assigns a cluster id to every record. Two records are neighbors when
// their (lat, lon) distance in degrees is at most the converted threshold.
// Non-finite coordinates fail with a *ValidationError before any work is done.
func Cluster(records []Occurrence, opts ClusterOptions) (Assignment, error) {
	if math.IsNaN(opts.ThresholdKm) || math.IsInf(opts.ThresholdKm, 0) || opts.ThresholdKm <= 0 {
		return Assignment{}, ErrInvalidThreshold
	}
	for i, r := range records {
		if !finite(r.Lat) {
			return Assignment{}, &ValidationError{Row: i, Field: ColLat, Value: fmt.Sprint(r.Lat), Reason: "not finite"}
		}
		if !finite(r.Lon) {
			return Assignment{}, &ValidationError{Row: i, Field: ColLon, Value: fmt.Sprint(r.Lon), Reason: "not finite"}
		}
	}
	if len(records) == 0 {
		return Assignment{IDs: []int{}}, nil
	}

	toDegrees := opts.ToDegrees
	if toDegrees == nil {
		toDegrees = KmToDegrees
	}

	index := newPointIndex(records)
	radius := toDegrees(opts.ThresholdKm)

	switch opts.Strategy {
	case StrategyFirstTouch:
		return firstTouch(index, len(records), radius), nil
	case StrategyConnected, "":
		return connectedComponents(index, len(records), radius), nil
	default:
		return Assignment{}, fmt.Errorf("unknown cluster strategy %q", opts.Strategy)
	}
}

// firstTouch visits records in input order. A record without an id opens a new
// id and stamps it on every record of its radius query, including ones already
// stamped by an earlier record. Records that already have an id are skipped, so
// their neighbors are never expanded.
func firstTouch(index *pointIndex, n int, radius float64) Assignment {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = -1
	}

	next := 0
	for i := range n {
		if ids[i] != -1 {
			continue
		}
		for _, j := range index.within(i, radius) {
			ids[j] = next
		}
		next++
	}
	return Assignment{IDs: ids, Count: next}
}

// connectedComponents unions every record with each of its radius neighbors,
// then numbers the components in the order their first member appears.
func connectedComponents(index *pointIndex, n int, radius float64) Assignment {
	uf := newUnionFind(n)
	for i := range n {
		for _, j := range index.within(i, radius) {
			uf.union(i, j)
		}
	}

	ids := make([]int, n)
	byRoot := make(map[int]int)
	for i := range n {
		root := uf.find(i)
		id, ok := byRoot[root]
		if !ok {
			id = len(byRoot)
			byRoot[root] = id
		}
		ids[i] = id
	}
	return Assignment{IDs: ids, Count: len(byRoot)}
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
