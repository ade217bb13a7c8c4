package images

// Mask is a boolean image marking pixels that belong to the tracked object.
type Mask struct {
	W, H int
	Pix  []bool
}

// NewMask returns an all-background w×h mask.
func NewMask(w, h int) Mask {
	return Mask{W: w, H: h, Pix: make([]bool, w*h)}
}

// At reports whether (x,y) is foreground.
func (m Mask) At(x, y int) bool { return m.Pix[y*m.W+x] }

// Set marks (x,y).
func (m *Mask) Set(x, y int, v bool) { m.Pix[y*m.W+x] = v }

// Clone returns a deep copy.
func (m Mask) Clone() Mask {
	c := Mask{W: m.W, H: m.H, Pix: make([]bool, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Count returns the number of foreground pixels.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Complement returns the inverted mask.
func (m Mask) Complement() Mask {
	c := NewMask(m.W, m.H)
	for i, v := range m.Pix {
		c.Pix[i] = !v
	}
	return c
}

// Components are 8-connected: diagonal neighbours belong to the same blob.
var neighbours8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Label assigns a positive component label to every foreground pixel
// (8-connectivity) and returns the label image alongside the component count.
// Background pixels get label 0.
func (m Mask) Label() ([]int32, int) {
	labels := make([]int32, len(m.Pix))
	next := int32(0)
	var stack []int

	for start, fg := range m.Pix {
		if !fg || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%m.W, idx/m.W
			for _, d := range neighbours8 {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
					continue
				}
				nidx := ny*m.W + nx
				if m.Pix[nidx] && labels[nidx] == 0 {
					labels[nidx] = next
					stack = append(stack, nidx)
				}
			}
		}
	}
	return labels, int(next)
}

// componentAreas returns the pixel count per label (index 0 unused).
func componentAreas(labels []int32, count int) []int {
	areas := make([]int, count+1)
	for _, l := range labels {
		if l > 0 {
			areas[l]++
		}
	}
	return areas
}

// RemoveSmall returns a copy with every component smaller than minArea pixels
// cleared.
func (m Mask) RemoveSmall(minArea int) Mask {
	labels, count := m.Label()
	if count == 0 {
		return m.Clone()
	}
	areas := componentAreas(labels, count)
	out := NewMask(m.W, m.H)
	for i, l := range labels {
		if l > 0 && areas[l] >= minArea {
			out.Pix[i] = true
		}
	}
	return out
}

// Largest keeps only the single largest component. It reports false when the
// mask has no component at all or the mask is entirely foreground, both of
// which are tracking failures.
func (m Mask) Largest() (Mask, bool) {
	labels, count := m.Label()
	if count == 0 {
		return Mask{}, false
	}
	areas := componentAreas(labels, count)
	best := int32(1)
	for l := int32(2); l <= int32(count); l++ {
		if areas[l] > areas[best] {
			best = l
		}
	}
	if areas[best] == len(m.Pix) {
		// Degenerate full-frame silhouette.
		return Mask{}, false
	}
	out := NewMask(m.W, m.H)
	for i, l := range labels {
		out.Pix[i] = l == best
	}
	return out, true
}

// KeepIntersecting clears every component that has no pixel inside the
// inclusion mask. The second result reports whether anything survived.
func (m Mask) KeepIntersecting(incl Mask) (Mask, bool) {
	labels, count := m.Label()
	if count == 0 {
		return m.Clone(), false
	}
	touches := make([]bool, count+1)
	for i, l := range labels {
		if l > 0 && incl.Pix[i] {
			touches[l] = true
		}
	}
	out := NewMask(m.W, m.H)
	any := false
	for i, l := range labels {
		if l > 0 && touches[l] {
			out.Pix[i] = true
			any = true
		}
	}
	return out, any
}
