package dedup

import (
	"regexp"
	"strings"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

const nameSimilarityThreshold = 0.75

// Stats summarizes one deduplication pass.
type Stats struct {
	Original     int
	Deduplicated int
	Removed      int
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var multiSpace = regexp.MustCompile(`\s+`)

// Deduplicate merges near-duplicate events from multiple discovery channels.
// Two events are duplicates when their normalized source URLs match, or when
// their normalized names are at least 75% similar and their time windows
// overlap. The record with the richer data wins; ties keep the earlier one.
// O(n²) in event count, which is fine for the tens of events one run sees.
func Deduplicate(events []domain.Event) ([]domain.Event, Stats) {
	merged := make([]bool, len(events))
	result := make([]domain.Event, 0, len(events))

	for i := range events {
		if merged[i] {
			continue
		}
		keeper := events[i]
		for j := i + 1; j < len(events); j++ {
			if merged[j] {
				continue
			}
			if !isDuplicate(keeper, events[j]) {
				continue
			}
			merged[j] = true
			if richness(events[j]) > richness(keeper) {
				keeper = events[j]
			}
		}
		result = append(result, keeper)
	}

	return result, Stats{
		Original:     len(events),
		Deduplicated: len(result),
		Removed:      len(events) - len(result),
	}
}

func isDuplicate(a, b domain.Event) bool {
	if a.SourceURL != "" && b.SourceURL != "" &&
		normalizeURL(a.SourceURL) == normalizeURL(b.SourceURL) {
		return true
	}

	sim := similarity(normalizeName(a.Name), normalizeName(b.Name))
	return sim >= nameSimilarityThreshold && a.TimeSlot.Overlaps(b.TimeSlot)
}

// normalizeURL lowercases and strips the query string and any trailing slash.
func normalizeURL(url string) string {
	url = strings.ToLower(url)
	if idx := strings.Index(url, "?"); idx != -1 {
		url = url[:idx]
	}
	return strings.TrimSuffix(url, "/")
}

// normalizeName lowercases, removes non-alphanumeric-non-space characters and
// collapses whitespace.
func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = nonAlnum.ReplaceAllString(name, "")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// similarity is LCS length divided by the longer string's length. Symmetric.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(lcsLength(a, b)) / float64(longer)
}

func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// richness scores how much usable data a record carries so the merge keeps
// the more informative duplicate.
func richness(e domain.Event) int {
	score := 0
	if e.Price != nil {
		score += 2
	}
	if e.RatingKnown {
		score += 2
	}
	if e.ImageURL != "" {
		score++
	}
	if e.ReviewCount > 0 {
		score++
	}
	if len(e.Description) > 50 {
		score++
	}
	return score
}
