// Package intent maps normalized questions onto the closed intent vocabulary.
package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/llm"
)

// Intent is one of the closed set of question categories the system recognizes.
type Intent string

const (
	SystemName        Intent = "system_name"
	SystemInfo        Intent = "system_info"
	CooperativesTotal Intent = "cooperatives_total"
	MembersTotal      Intent = "members_total"
	FemaleMembers     Intent = "female_members"
	MaleMembers       Intent = "male_members"
	MembersByState    Intent = "members_by_state"
	DirectorsTotal    Intent = "directors_total"
	Visualize         Intent = "visualize"
	Unknown           Intent = "unknown"
)

// aliasEntry pairs a canonical intent with the phrases that canonicalize to
// it. Declaration order is the tie-break: when several alias sets share
// tokens, the first declared intent wins, so entries are a slice, not a map.
type aliasEntry struct {
	canonical Intent
	aliases   []string
}

var aliasTable = []aliasEntry{
	{SystemName, []string{"system_name", "system name", "name of system", "what is the system called"}},
	{SystemInfo, []string{"system_info", "system information", "about system", "info", "tell me more"}},
	{CooperativesTotal, []string{"cooperatives_total", "number of cooperatives", "cooperatives registered"}},
	{MembersByState, []string{"members_by_state", "members per state", "members by state"}},
	{FemaleMembers, []string{"female_members"}},
	{MaleMembers, []string{"male_members"}},
	{MembersTotal, []string{"members_total", "total members", "members", "female members", "male members"}},
	{DirectorsTotal, []string{"directors_total", "number of directors", "directors"}},
	{Visualize, []string{"visualize", "chart", "graph", "plot"}},
}

// Vocabulary returns the canonical intents in declaration order, with
// "unknown" appended; used to build the classification prompt.
func Vocabulary() []Intent {
	out := make([]Intent, 0, len(aliasTable)+1)
	for _, e := range aliasTable {
		out = append(out, e.canonical)
	}
	return append(out, Unknown)
}

// Canonicalize maps a raw classification response onto a canonical intent
// using substring matching. The matching is deliberately tolerant of
// verbose or lightly-formatted model output; the cost is possible false
// positives between alias sets that share tokens, resolved by declaration
// order.
func Canonicalize(raw string) Intent {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, e := range aliasTable {
		for _, alias := range e.aliases {
			if strings.Contains(raw, strings.ToLower(alias)) {
				return e.canonical
			}
		}
	}
	return Unknown
}

// Classifier maps a normalized question to a canonical intent with one
// generation call plus substring canonicalization.
type Classifier struct {
	client      llm.LLMClient
	temperature float64
	logger      *zap.Logger
}

// NewClassifier creates an intent classifier backed by the given generator.
func NewClassifier(client llm.LLMClient, temperature float64, logger *zap.Logger) *Classifier {
	return &Classifier{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("intent"),
	}
}

// Classify returns the canonical intent for a question, or Unknown when the
// response matches no alias. Classification failures are never fatal; a
// generation error also resolves to Unknown.
func (c *Classifier) Classify(ctx context.Context, question string) Intent {
	var b strings.Builder
	b.WriteString("Classify the intent into one of:\n")
	for _, it := range Vocabulary() {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	fmt.Fprintf(&b, "\nQuestion: %s", question)

	raw, err := c.client.GenerateResponse(ctx, b.String(),
		"You classify questions about a cooperative registry. Answer with a single intent label.",
		c.temperature)
	if err != nil {
		c.logger.Warn("intent classification call failed", zap.Error(err))
		return Unknown
	}

	result := Canonicalize(raw)
	c.logger.Debug("classified intent",
		zap.String("intent", string(result)),
		zap.Int("raw_len", len(raw)))

	return result
}
