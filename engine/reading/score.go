package reading

import (
	"context"
	"strings"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/pkg/fn"
)

// ScoreBreakdown is a diagnostic quality signal attached to feedback and
// logs, never surfaced to the querent.
type ScoreBreakdown struct {
	Reading          domain.Reading `json:"-"`
	ToneBalance      float64        `json:"tone_balance"`
	EvidenceCoverage float64        `json:"evidence_coverage"`
	AdviceDensity    float64        `json:"advice_density"`
	Total            float64        `json:"total"`
}

// ScorePipeline composes the scoring stages over a breakdown seeded with the
// reading. Each stage is pure and fills one component.
func ScorePipeline() fn.Stage[ScoreBreakdown, ScoreBreakdown] {
	return fn.Pipeline(
		fn.MapStage(scoreTone),
		fn.MapStage(scoreEvidence),
		fn.MapStage(scoreAdvice),
		fn.MapStage(scoreTotal),
	)
}

// Score runs the full pipeline for a reading.
func Score(ctx context.Context, r domain.Reading) ScoreBreakdown {
	res := ScorePipeline()(ctx, ScoreBreakdown{Reading: r})
	v, _ := res.Unwrap()
	return v
}

// cautionMarkers and assertionMarkers are crude tone probes. A balanced
// reading hedges some claims and commits to others.
var (
	cautionMarkers   = []string{"수 있", "있습니다", "지도 모", "may", "might", "could", "perhaps"}
	assertionMarkers = []string{"입니다", "하세요", "is ", "will ", "do ", "should "}
)

// scoreTone scores 1.0 when the overall message mixes hedged and assertive
// phrasing, 0.5 when only one register appears, 0 when neither does.
func scoreTone(b ScoreBreakdown) ScoreBreakdown {
	text := strings.ToLower(b.Reading.OverallMessage)
	caution := containsAny(text, cautionMarkers)
	assert := containsAny(text, assertionMarkers)
	switch {
	case caution && assert:
		b.ToneBalance = 1.0
	case caution || assert:
		b.ToneBalance = 0.5
	}
	return b
}

// scoreEvidence is the fraction of evidence entries with a compliant
// two-or-three sentence body.
func scoreEvidence(b ScoreBreakdown) ScoreBreakdown {
	if len(b.Reading.CardEvidence) == 0 {
		return b
	}
	ok := 0
	for _, ev := range b.Reading.CardEvidence {
		if n := CountSentences(ev.Evidence); n >= minEvidenceSentences && n <= maxEvidenceSentences {
			ok++
		}
	}
	b.EvidenceCoverage = float64(ok) / float64(len(b.Reading.CardEvidence))
	return b
}

// scoreAdvice rewards two or three concrete advice items, tapering outside
// that band.
func scoreAdvice(b ScoreBreakdown) ScoreBreakdown {
	switch n := len(b.Reading.Advice); {
	case n >= 2 && n <= 3:
		b.AdviceDensity = 1.0
	case n == 1 || n == 4:
		b.AdviceDensity = 0.5
	}
	return b
}

func scoreTotal(b ScoreBreakdown) ScoreBreakdown {
	b.Total = (b.ToneBalance + b.EvidenceCoverage + b.AdviceDensity) / 3
	return b
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
