package workbook

import "fmt"

// MergedRegion is an inclusive rectangle of cells rendered as one. The cell
// at (FirstRow, FirstCol) is the anchor; every other coordinate is covered.
type MergedRegion struct {
	FirstRow, LastRow int
	FirstCol, LastCol int
}

func (m MergedRegion) valid() bool {
	return m.FirstRow >= 0 && m.FirstCol >= 0 && m.FirstRow <= m.LastRow && m.FirstCol <= m.LastCol
}

// Contains reports whether (row, col) lies inside m.
func (m MergedRegion) Contains(row, col int) bool {
	return row >= m.FirstRow && row <= m.LastRow && col >= m.FirstCol && col <= m.LastCol
}

// IsAnchor reports whether (row, col) is the top-left cell of m.
func (m MergedRegion) IsAnchor(row, col int) bool {
	return row == m.FirstRow && col == m.FirstCol
}

func (m MergedRegion) RowSpan() int { return m.LastRow - m.FirstRow + 1 }

func (m MergedRegion) ColSpan() int { return m.LastCol - m.FirstCol + 1 }

func (m MergedRegion) overlaps(o MergedRegion) bool {
	return m.FirstRow <= o.LastRow && o.FirstRow <= m.LastRow &&
		m.FirstCol <= o.LastCol && o.FirstCol <= m.LastCol
}

func (m MergedRegion) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", m.FirstRow, m.FirstCol, m.LastRow, m.LastCol)
}

// AddMergedRegion registers a region. Regions of one sheet never overlap.
func (s *Sheet) AddMergedRegion(m MergedRegion) error {
	if !m.valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRegion, m)
	}
	for _, existing := range s.merges {
		if existing.overlaps(m) {
			return fmt.Errorf("%w: %s and %s", ErrOverlappingRegion, m, existing)
		}
	}
	s.merges = append(s.merges, m)
	s.coverage = nil
	return nil
}

// MergedRegions returns the sheet's regions in insertion order.
func (s *Sheet) MergedRegions() []MergedRegion {
	return s.merges
}

// MergedRegionContaining returns the region covering (row, col), if any.
// Lookups are constant time through a coverage map built on first use.
func (s *Sheet) MergedRegionContaining(row, col int) (MergedRegion, bool) {
	if len(s.merges) == 0 {
		return MergedRegion{}, false
	}
	if s.coverage == nil {
		s.buildCoverage()
	}
	idx, ok := s.coverage[[2]int{row, col}]
	if !ok {
		return MergedRegion{}, false
	}
	return s.merges[idx], true
}

func (s *Sheet) buildCoverage() {
	size := 0
	for _, m := range s.merges {
		size += m.RowSpan() * m.ColSpan()
	}
	s.coverage = make(map[[2]int]int, size)
	for i, m := range s.merges {
		for r := m.FirstRow; r <= m.LastRow; r++ {
			for c := m.FirstCol; c <= m.LastCol; c++ {
				s.coverage[[2]int{r, c}] = i
			}
		}
	}
}
