package common

// Range is a half-open [Start, End) span of elements in a buffer.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of elements in the range.
func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range holds no elements.
func (r Range) Empty() bool {
	return r.Len() == 0
}

// Offset returns the range shifted by delta elements.
func (r Range) Offset(delta uint32) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}
