package ftl

import "fmt"

// WearStats summarizes how erases are distributed over the blocks.
type WearStats struct {
	Min int     `json:"min"`
	Max int     `json:"max"`
	Avg float64 `json:"avg"`
	Gap int     `json:"gap"`
}

func (s WearStats) String() string {
	return fmt.Sprintf("WearStats { min: %d, max: %d, avg: %.2f, gap: %d }",
		s.Min, s.Max, s.Avg, s.Gap)
}

// WearMetrics returns the minimum, maximum and average erase count over all
// the blocks of the device, and the gap between the extremes.
func (c *Comp) WearMetrics() WearStats {
	stats := WearStats{}
	total := 0

	for i, b := range c.blocks {
		count := b.EraseCount()
		total += count

		if i == 0 || count < stats.Min {
			stats.Min = count
		}

		if i == 0 || count > stats.Max {
			stats.Max = count
		}
	}

	stats.Avg = float64(total) / float64(len(c.blocks))
	stats.Gap = stats.Max - stats.Min

	return stats
}

// TotalErases returns the sum of the erase counts of all blocks.
func (c *Comp) TotalErases() int {
	total := 0
	for _, b := range c.blocks {
		total += b.EraseCount()
	}

	return total
}
