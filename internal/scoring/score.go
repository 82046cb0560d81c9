package scoring

import (
	"math"
	"strings"

	"interanxy-service/internal/domain"
)

// ComputeScore grades positional answers against the room's question list and
// returns a 0-100 percentage. An empty answer, or a position without a
// question, contributes nothing. A room with no questions scores zero.
func ComputeScore(answers []string, questions []domain.Question) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for i, ans := range answers {
		if i >= len(questions) {
			break
		}
		if ans == "" {
			continue
		}
		if Matches(ans, questions[i].Correct) {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(len(questions)) * 100))
}

// Matches implements the correctness predicate: case-insensitive,
// whitespace-trimmed exact comparison.
func Matches(submitted, key string) bool {
	return strings.TrimSpace(strings.ToLower(submitted)) == strings.TrimSpace(strings.ToLower(key))
}

// AggregateByGroup buckets a room's students by cohort label, accumulating
// score sums and member counts. Students of other rooms are ignored; a blank
// label falls back to the default cohort.
func AggregateByGroup(students []*domain.StudentData, roomID string) map[string]domain.GroupStat {
	stats := make(map[string]domain.GroupStat)
	for _, s := range students {
		if s.RoomID != roomID {
			continue
		}
		g := s.Group
		if g == "" {
			g = domain.DefaultGroup
		}
		stat := stats[g]
		stat.Sum += s.Score
		stat.Count++
		stats[g] = stat
	}
	return stats
}

// ClassifyTier returns the first tier, in configured order, whose inclusive
// [Min,Max] range contains avg. Overlapping or gapped ranges are the
// instructor's responsibility; an uncovered average yields TierUnset.
func ClassifyTier(avg int, tiers []domain.Tier) domain.Tier {
	for _, t := range tiers {
		if avg >= t.Min && avg <= t.Max {
			return t
		}
	}
	return domain.TierUnset
}
