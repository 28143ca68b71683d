package detection

import (
	"sort"

	"github.com/ironsheep/stagepoint/internal/geometry"
)

// pixel is an integer pixel coordinate.
type pixel struct {
	X, Y int
}

// region is a set of pixels sharing one label.
type region struct {
	Label  int
	Pixels []pixel
}

// centroid returns the mean pixel position of the region.
func (r region) centroid() geometry.Point {
	var sx, sy float64
	for _, p := range r.Pixels {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	n := float64(len(r.Pixels))
	return geometry.Point{X: sx / n, Y: sy / n}
}

// connectedRegions labels the 8-connected foreground components of a mask.
// Components are numbered from 1 in raster order of their first pixel.
func connectedRegions(mask []bool, width, height int) []region {
	visited := make([]bool, len(mask))
	var regions []region

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !mask[i] || visited[i] {
				continue
			}
			r := region{Label: len(regions) + 1}
			fillComponent(mask, visited, x, y, width, height, &r.Pixels)
			regions = append(regions, r)
		}
	}

	return regions
}

// fillComponent performs an iterative 8-connected flood fill from a seed,
// marking visited pixels and appending them to out.
func fillComponent(mask, visited []bool, startX, startY, width, height int, out *[]pixel) {
	stack := []pixel{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if visited[i] || !mask[i] {
			continue
		}

		visited[i] = true
		*out = append(*out, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, pixel{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// labeledRegions groups the pixels of a label mask by value. Label 0 is
// background. Regions are returned in ascending label order.
func labeledRegions(labels []int, width int) []region {
	byLabel := make(map[int]*region)
	for i, l := range labels {
		if l <= 0 {
			continue
		}
		r, ok := byLabel[l]
		if !ok {
			r = &region{Label: l}
			byLabel[l] = r
		}
		r.Pixels = append(r.Pixels, pixel{X: i % width, Y: i / width})
	}

	out := make([]region, 0, len(byLabel))
	for _, r := range byLabel {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
