// Package reading turns retrieved context and validated draws into a
// structured, evidence-checked tarot reading via an LLM chat model.
package reading

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ArcanaLabs/arcana-engine/engine/domain"
	"github.com/ArcanaLabs/arcana-engine/pkg/metrics"
)

var (
	// ErrLLMMalformed means the model reply stayed unparseable after the
	// repair pass.
	ErrLLMMalformed = errors.New("llm reply malformed")
	// ErrLLMUnavailable means the chat backend failed or timed out.
	ErrLLMUnavailable = errors.New("llm unavailable")
)

const (
	// MaxOverallChars caps the overall message length in runes.
	MaxOverallChars = 9000
	// llmTimeout bounds a single chat round trip.
	llmTimeout = 25 * time.Second

	minEvidenceSentences = 2
	maxEvidenceSentences = 3
)

// ChatClient is the single-turn chat surface the generator needs.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Request carries everything the generator needs for one reading.
type Request struct {
	Question string
	Draws    []domain.Draw
	Spread   domain.Spread
	Context  string
	Locale   string
	UserID   string
	Degraded bool
}

// Generator produces readings and enforces the per-draw evidence contract.
type Generator struct {
	chat    ChatClient
	log     *slog.Logger
	reg     *metrics.Registry
	now     func() time.Time
	timeout time.Duration
}

// NewGenerator wires a generator. logger and reg may be nil.
func NewGenerator(chat ChatClient, logger *slog.Logger, reg *metrics.Registry) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{chat: chat, log: logger, reg: reg, now: time.Now, timeout: llmTimeout}
}

// WithTimeout overrides the per-call chat timeout. Zero keeps the default.
func (g *Generator) WithTimeout(d time.Duration) *Generator {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// genState tracks where a generation attempt is in its lifecycle.
type genState int

const (
	stateAwaiting genState = iota
	stateRetrying
	stateDone
	stateFailed
)

// Generate runs the chat call, verifies the evidence contract, retries once
// with an explicit correction instruction on a contract miss, and assembles
// the final Reading. An unparseable reply fails immediately; the retry is
// reserved for evidence misses. The retried reply replaces the first attempt
// wholesale, even when it still violates the contract.
func (g *Generator) Generate(ctx context.Context, req Request) (domain.Reading, error) {
	system := systemPrompt(req.Locale)
	user := userPrompt(req)

	state := stateAwaiting
	var accepted llmReply
	var fallback *llmReply // first parseable reply, kept for retry transport failures
	degraded := req.Degraded

	for state == stateAwaiting || state == stateRetrying {
		prompt := user
		if state == stateRetrying {
			prompt = user + "\n\n" + retryInstruction
		}

		raw, err := g.chatOnce(ctx, system, prompt)
		if err != nil {
			if state == stateRetrying && fallback != nil {
				accepted = *fallback
				degraded = true
				state = stateDone
				break
			}
			return domain.Reading{}, err
		}

		reply, perr := parseReply(raw)
		if perr != nil {
			g.log.Warn("llm reply unparseable", "state", int(state), "err", perr)
			if state == stateRetrying && fallback != nil {
				accepted = *fallback
				degraded = true
				state = stateDone
				break
			}
			state = stateFailed
			break
		}

		if evErr := checkEvidence(reply, req.Draws); evErr != nil {
			g.log.Warn("evidence contract violated", "state", int(state), "reason", evErr)
			if state == stateAwaiting {
				fallback = &reply
				state = stateRetrying
				continue
			}
			// The retried reply replaces the first attempt outright; no
			// field-level merge with the fallback.
			g.count("arcana_evidence_retry_failed_total")
			accepted = reply
			degraded = true
			state = stateDone
			break
		}

		accepted = reply
		state = stateDone
	}

	if state == stateFailed {
		return domain.Reading{}, ErrLLMMalformed
	}

	return g.assemble(accepted, req, degraded), nil
}

// chatOnce runs a single chat call under the generation timeout.
func (g *Generator) chatOnce(ctx context.Context, system, user string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.chat.Chat(cctx, system, user)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	return raw, nil
}

// checkEvidence verifies the per-draw evidence contract: the evidence tuples
// form exactly the draw multiset, and each evidence text holds two or three
// sentences.
func checkEvidence(reply llmReply, draws []domain.Draw) error {
	tuples := make([]domain.Draw, 0, len(reply.CardEvidence))
	for _, ev := range reply.CardEvidence {
		tuples = append(tuples, ev.Tuple())
	}
	if !domain.SameDrawMultiset(tuples, draws) {
		return fmt.Errorf("evidence tuples do not match draws: got %d entries for %d draws", len(tuples), len(draws))
	}
	for i, ev := range reply.CardEvidence {
		n := CountSentences(ev.Evidence)
		if n < minEvidenceSentences || n > maxEvidenceSentences {
			return fmt.Errorf("evidence[%d] for %s has %d sentences", i, ev.CardID, n)
		}
	}
	return nil
}

// assemble builds the final Reading from an accepted reply: safety clause,
// evidence summary section, follow-ups, record id, length cap.
func (g *Generator) assemble(reply llmReply, req Request, degraded bool) domain.Reading {
	overall := reply.Overall

	if kind := ClassifySafety(req.Question); kind != SafetyNone {
		var injected bool
		overall, injected = ensureClause(overall, kind, req.Locale)
		if injected {
			g.count("arcana_safety_clause_injected_total")
		}
	}

	if sec := evidenceSection(reply.CardEvidence); sec != "" {
		overall += "\n\n" + sec
	}

	if r := []rune(overall); len(r) > MaxOverallChars {
		overall = string(r[:MaxOverallChars])
	}

	return domain.Reading{
		OverallMessage: overall,
		CardInsights:   reply.Cards,
		CardEvidence:   reply.CardEvidence,
		Advice:         reply.Advice,
		Followups:      followups(req.Spread.Theme),
		RecordID:       g.recordID(req),
		Degraded:       degraded,
	}
}

// evidenceSection renders a compact per-card summary from the first sentence
// of each evidence entry.
func evidenceSection(evidence []domain.CardEvidence) string {
	if len(evidence) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Card Evidence:\n")
	for _, ev := range evidence {
		fmt.Fprintf(&b, "- %s: %s\n", ev.CardID, FirstSentence(ev.Evidence))
	}
	return strings.TrimRight(b.String(), "\n")
}

// recordID derives a short stable id for feedback correlation.
func (g *Generator) recordID(req Request) string {
	ts := g.now().UTC().Format(time.RFC3339)
	sum := sha1.Sum([]byte(req.UserID + "|" + ts + "|" + req.Question))
	return hex.EncodeToString(sum[:])[:12]
}

func (g *Generator) count(name string) {
	if g.reg != nil {
		g.reg.Counter(name, "").Inc()
	}
}
