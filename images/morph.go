package images

// diskOffsets returns the neighbourhood offsets of a disk structuring element
// of the given radius (dx²+dy² ≤ r²).
func diskOffsets(radius int) [][2]int {
	var offs [][2]int
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				offs = append(offs, [2]int{dx, dy})
			}
		}
	}
	return offs
}

// Dilate grows the mask by a disk of the given radius. Pixels outside the
// frame are treated as background.
func Dilate(m Mask, radius int) Mask {
	offs := diskOffsets(radius)
	out := NewMask(m.W, m.H)
	Parallel(m.H, func(start, end int) {
		for y := start; y < end; y++ {
		pixels:
			for x := 0; x < m.W; x++ {
				for _, d := range offs {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					if m.Pix[ny*m.W+nx] {
						out.Pix[y*m.W+x] = true
						continue pixels
					}
				}
			}
		}
	})
	return out
}

// Erode shrinks the mask by a disk of the given radius. Pixels outside the
// frame are treated as foreground so blobs touching the border are not eaten
// from the outside.
func Erode(m Mask, radius int) Mask {
	offs := diskOffsets(radius)
	out := NewMask(m.W, m.H)
	Parallel(m.H, func(start, end int) {
		for y := start; y < end; y++ {
		pixels:
			for x := 0; x < m.W; x++ {
				if !m.Pix[y*m.W+x] {
					continue
				}
				for _, d := range offs {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					if !m.Pix[ny*m.W+nx] {
						continue pixels
					}
				}
				out.Pix[y*m.W+x] = true
			}
		}
	})
	return out
}

// Open is erosion followed by dilation; it removes structures thinner than
// the disk.
func Open(m Mask, radius int) Mask {
	return Dilate(Erode(m, radius), radius)
}

// Close is dilation followed by erosion; it fills gaps narrower than the
// disk.
func Close(m Mask, radius int) Mask {
	return Erode(Dilate(m, radius), radius)
}
