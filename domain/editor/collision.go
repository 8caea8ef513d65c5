package editor

import (
	"math"
	"sort"
)

type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetContainer
	TargetItem
	// TargetGap is the space before the container at Gap in the current order; Gap may equal the container count.
	TargetGap
)

// Target identifies a draggable or droppable element of the editor surface.
type Target struct {
	Kind      TargetKind
	Container ContainerKey
	Item      int64
	Gap       int
}

func ContainerTarget(key ContainerKey) Target {
	return Target{Kind: TargetContainer, Container: key}
}

func ItemTarget(id int64) Target {
	return Target{Kind: TargetItem, Item: id}
}

func GapTarget(index int) Target {
	return Target{Kind: TargetGap, Gap: index}
}

func (t Target) IsZero() bool {
	return t.Kind == TargetNone
}

type Point struct {
	X float64
	Y float64
}

type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }
func (r Rect) Area() float64   { return r.Width * r.Height }

func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// IntersectionRatio is the overlapping area divided by the area of the union.
func (r Rect) IntersectionRatio(o Rect) float64 {
	w := math.Min(r.Right(), o.Right()) - math.Max(r.Left, o.Left)
	h := math.Min(r.Bottom(), o.Bottom()) - math.Max(r.Top, o.Top)
	if w <= 0 || h <= 0 {
		return 0
	}
	overlap := w * h
	union := r.Area() + o.Area() - overlap
	if union <= 0 {
		return 0
	}
	return overlap / union
}

// Droppable is a measured drop target.
type Droppable struct {
	Target Target
	Rect   Rect
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PointerWithin returns the droppables containing the pointer, innermost (smallest) first.
func PointerWithin(pointer Point, droppables []Droppable) []Droppable {
	var r []Droppable
	for _, d := range droppables {
		if d.Rect.Contains(pointer) {
			r = append(r, d)
		}
	}
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Rect.Area() != r[j].Rect.Area() {
			return r[i].Rect.Area() < r[j].Rect.Area()
		}
		return distance(pointer, r[i].Rect.Center()) < distance(pointer, r[j].Rect.Center())
	})
	return r
}

// RectIntersection returns the droppables overlapping active, largest overlap first.
func RectIntersection(active Rect, droppables []Droppable) []Droppable {
	type scored struct {
		d     Droppable
		ratio float64
	}
	var candidates []scored
	for _, d := range droppables {
		if ratio := active.IntersectionRatio(d.Rect); ratio > 0 {
			candidates = append(candidates, scored{d: d, ratio: ratio})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ratio > candidates[j].ratio })
	r := make([]Droppable, 0, len(candidates))
	for _, c := range candidates {
		r = append(r, c.d)
	}
	return r
}

// ClosestCenter returns all droppables ordered by the distance between their center and the center of active.
func ClosestCenter(active Rect, droppables []Droppable) []Droppable {
	r := append([]Droppable(nil), droppables...)
	c := active.Center()
	sort.SliceStable(r, func(i, j int) bool {
		return distance(c, r[i].Rect.Center()) < distance(c, r[j].Rect.Center())
	})
	return r
}
