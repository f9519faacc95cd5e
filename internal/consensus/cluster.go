package consensus

import (
	"time"

	"serialscan/internal/textutil"
)

type cluster struct {
	members []entry
	counts  map[string]int
	first   time.Time
	last    time.Time
}

func (c *cluster) add(e entry) {
	c.members = append(c.members, e)
	c.counts[e.text]++
	if c.first.IsZero() || e.at.Before(c.first) {
		c.first = e.at
	}
	if e.at.After(c.last) {
		c.last = e.at
	}
}

func (c *cluster) size() int {
	return len(c.members)
}

// representative returns the most frequent exact text in the cluster; ties
// go to the most recently observed text.
func (c *cluster) representative() string {
	best := ""
	bestCount := -1
	for i := len(c.members) - 1; i >= 0; i-- {
		text := c.members[i].text
		count := c.counts[text]
		if count > bestCount {
			best = text
			bestCount = count
		}
	}
	return best
}

func (c *cluster) span() time.Duration {
	if c.first.IsZero() {
		return 0
	}
	return c.last.Sub(c.first)
}

// meanScore averages the composite scores of the cluster members.
func (c *cluster) meanScore() float64 {
	if len(c.members) == 0 {
		return 0
	}
	var sum float64
	for _, m := range c.members {
		sum += m.score
	}
	return sum / float64(len(c.members))
}

// buildClusters groups entries by similarity. Exact matches join first, then
// anything within maxDistance of a cluster's seed text. An entry farther
// than maxDistance from every existing cluster starts its own.
func buildClusters(entries []entry, maxDistance int) []*cluster {
	var clusters []*cluster
	seeds := make([]string, 0, len(entries))
	byExact := make(map[string]*cluster)

	for _, e := range entries {
		if c, ok := byExact[e.text]; ok {
			c.add(e)
			continue
		}
		var joined *cluster
		for i, seed := range seeds {
			if textutil.WithinDistance(e.text, seed, maxDistance) {
				joined = clusters[i]
				break
			}
		}
		if joined == nil {
			joined = &cluster{counts: make(map[string]int)}
			clusters = append(clusters, joined)
			seeds = append(seeds, e.text)
		}
		joined.add(e)
		byExact[e.text] = joined
	}
	return clusters
}

// largestCluster picks the consensus cluster: most members, ties broken by
// the most recent observation.
func largestCluster(clusters []*cluster) *cluster {
	var best *cluster
	for _, c := range clusters {
		if best == nil || c.size() > best.size() ||
			(c.size() == best.size() && c.last.After(best.last)) {
			best = c
		}
	}
	return best
}
