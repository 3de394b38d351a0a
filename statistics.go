package bindless

import "math"

// Statistics describes the aggregate state of one or more descriptor index
// domains.
type Statistics struct {
	SegmentCount   int
	AllocatedCount int
	RemainingCount int
}

func (s *Statistics) Clear() {
	s.SegmentCount = 0
	s.AllocatedCount = 0
	s.RemainingCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.SegmentCount += other.SegmentCount
	s.AllocatedCount += other.AllocatedCount
	s.RemainingCount += other.RemainingCount
}

// DetailedStatistics extends Statistics with growth information and segment
// capacity extremes.
type DetailedStatistics struct {
	Statistics
	GrowthCount        int
	SegmentCapacityMin int
	SegmentCapacityMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.GrowthCount = 0
	s.SegmentCapacityMin = math.MaxInt
	s.SegmentCapacityMax = 0
}

// AddSegment folds a single segment's capacity and allocation count into the
// statistics.
func (s *DetailedStatistics) AddSegment(capacity, allocated int) {
	s.SegmentCount++
	s.AllocatedCount += allocated
	s.RemainingCount += capacity - allocated

	if capacity < s.SegmentCapacityMin {
		s.SegmentCapacityMin = capacity
	}

	if capacity > s.SegmentCapacityMax {
		s.SegmentCapacityMax = capacity
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.GrowthCount += other.GrowthCount

	if other.SegmentCapacityMin < s.SegmentCapacityMin {
		s.SegmentCapacityMin = other.SegmentCapacityMin
	}

	if other.SegmentCapacityMax > s.SegmentCapacityMax {
		s.SegmentCapacityMax = other.SegmentCapacityMax
	}
}
