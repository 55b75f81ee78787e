package outcomes

import "sort"

// SuccessRate aggregates logged outcomes. An empty improvementType
// aggregates across all types.
func (s *Store) SuccessRate(improvementType string) SuccessStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats SuccessStats
	for i := range s.outcomes {
		o := &s.outcomes[i]
		if improvementType != "" && o.ImprovementType != improvementType {
			continue
		}
		stats.Total++
		if o.Success {
			stats.Success++
		} else {
			stats.Failure++
		}
	}
	if stats.Total > 0 {
		stats.Rate = float64(stats.Success) / float64(stats.Total)
	}
	return stats
}

// CommonFailureModes groups failed outcomes by error message and returns the
// most frequent ones, up to limit.
func (s *Store) CommonFailureModes(limit int) []FailureMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for i := range s.outcomes {
		o := &s.outcomes[i]
		if o.Success || o.Error == "" {
			continue
		}
		counts[o.Error]++
	}

	modes := make([]FailureMode, 0, len(counts))
	for err, count := range counts {
		modes = append(modes, FailureMode{Error: err, Count: count})
	}
	sort.Slice(modes, func(i, j int) bool {
		if modes[i].Count != modes[j].Count {
			return modes[i].Count > modes[j].Count
		}
		return modes[i].Error < modes[j].Error
	})

	if limit > 0 && len(modes) > limit {
		modes = modes[:limit]
	}
	return modes
}

// BestPerformingTypes returns per-type success rates sorted best-first.
func (s *Store) BestPerformingTypes() []TypePerformance {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[string]*TypePerformance)
	for i := range s.outcomes {
		o := &s.outcomes[i]
		tp, ok := byType[o.ImprovementType]
		if !ok {
			tp = &TypePerformance{Type: o.ImprovementType}
			byType[o.ImprovementType] = tp
		}
		tp.Total++
		if o.Success {
			tp.Success++
		}
	}

	perf := make([]TypePerformance, 0, len(byType))
	for _, tp := range byType {
		if tp.Total > 0 {
			tp.Rate = float64(tp.Success) / float64(tp.Total)
		}
		perf = append(perf, *tp)
	}
	sort.Slice(perf, func(i, j int) bool {
		if perf[i].Rate != perf[j].Rate {
			return perf[i].Rate > perf[j].Rate
		}
		return perf[i].Type < perf[j].Type
	})
	return perf
}
