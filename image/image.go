package image

import "sort"

// Segment is a run of bytes at consecutive addresses.
type Segment struct {
	// Address is the address of the first byte
	Address uint16

	// Data holds the bytes to be written
	Data []byte
}

// End returns the address one past the last byte of the segment.
func (s *Segment) End() int {
	return int(s.Address) + len(s.Data)
}

// Image is a burn image: the bytes to write to a memory device, grouped
// into segments. Later segments take precedence where they overlap.
type Image struct {
	Segments []*Segment
}

// FromBytes returns an image holding data at base.
//
// Example:
//
//	img := image.FromBytes(0x0000, []byte{0xDE, 0xAD, 0xBE, 0xEF})
func FromBytes(base uint16, data []byte) *Image {
	seg := &Segment{Address: base, Data: make([]byte, len(data))}
	copy(seg.Data, data)
	return &Image{Segments: []*Segment{seg}}
}

// Lookup returns the byte at addr and whether the image covers it.
func (img *Image) Lookup(addr uint16) (byte, bool) {
	for i := len(img.Segments) - 1; i >= 0; i-- {
		s := img.Segments[i]
		if int(addr) >= int(s.Address) && int(addr) < s.End() {
			return s.Data[int(addr)-int(s.Address)], true
		}
	}
	return 0, false
}

// Size returns the total number of bytes in all segments.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// Bounds returns the lowest and highest covered address. ok is false for an
// image without data.
func (img *Image) Bounds() (lo, hi uint16, ok bool) {
	first := true
	for _, s := range img.Segments {
		if len(s.Data) == 0 {
			continue
		}
		end := uint16(s.End() - 1)
		if first || s.Address < lo {
			lo = s.Address
		}
		if first || end > hi {
			hi = end
		}
		first = false
	}
	return lo, hi, !first
}

// Sorted returns the segments ordered by address.
func (img *Image) Sorted() []*Segment {
	out := make([]*Segment, len(img.Segments))
	copy(out, img.Segments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out
}
