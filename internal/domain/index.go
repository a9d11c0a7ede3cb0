package domain

import (
	"slices"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// point is a record location tagged with its input index. Distance is the
// squared planar distance in degrees, as the kdtree search expects.
type point struct {
	lat, lon float64
	idx      int
}

func (p point) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.lat
	}
	return p.lon
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(point).coord(d)
}

func (p point) Dims() int { return 2 }

func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	dlat, dlon := p.lat-q.lat, p.lon-q.lon
	return dlat*dlat + dlon*dlon
}

// points implements kdtree.Interface. kdtree.New reorders it in place, which
// is why each point carries its input index.
type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p points) Pivot(d kdtree.Dim) int {
	return plane{points: p, dim: d}.Pivot()
}

// plane sorts points along one dimension for median selection.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool { return p.points[i].coord(p.dim) < p.points[j].coord(p.dim) }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

// pointIndex answers radius queries over record locations.
type pointIndex struct {
	tree  *kdtree.Tree
	input []point
}

func newPointIndex(records []Occurrence) *pointIndex {
	input := make([]point, len(records))
	for i, r := range records {
		input[i] = point{lat: r.Lat, lon: r.Lon, idx: i}
	}
	return &pointIndex{
		tree:  kdtree.New(slices.Clone(points(input)), false),
		input: input,
	}
}

// within returns the input indices of every record at most radius degrees
// from record i, i included, in ascending order.
func (x *pointIndex) within(i int, radius float64) []int {
	maxSq := radius * radius
	keep := kdtree.NewDistKeeper(maxSq)
	x.tree.NearestSet(keep, x.input[i])

	out := make([]int, 0, len(keep.Heap))
	for _, c := range keep.Heap {
		// The keeper seeds its heap with a sentinel that has no Comparable.
		if c.Comparable == nil || c.Dist > maxSq {
			continue
		}
		out = append(out, c.Comparable.(point).idx)
	}
	slices.Sort(out)
	return out
}
