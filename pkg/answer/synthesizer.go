// Package answer turns acquired data into the short user-facing reply.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/database"
	"github.com/coopregistry/coopassist/pkg/llm"
	"github.com/coopregistry/coopassist/pkg/metrics"
)

// Fallback is the fixed reply used when no data applies to a question.
const Fallback = "I can only provide general public information available in this system"

// DefaultMaxChars caps synthesized answers when no ceiling is configured.
const DefaultMaxChars = 280

// maxPromptRows bounds how much of a result set reaches the prompt.
const maxPromptRows = 50

const systemMessage = "You write short public-facing summaries of cooperative registry data. " +
	"Never mention SQL, queries, databases, or how the data was retrieved."

// Synthesizer generates the final natural-language sentence for a request.
type Synthesizer struct {
	client      llm.LLMClient
	maxChars    int
	temperature float64
	logger      *zap.Logger
}

// NewSynthesizer creates a synthesizer. maxChars values below 1 fall back
// to DefaultMaxChars.
func NewSynthesizer(client llm.LLMClient, maxChars int, temperature float64, logger *zap.Logger) *Synthesizer {
	if maxChars < 1 {
		maxChars = DefaultMaxChars
	}
	return &Synthesizer{
		client:      client,
		maxChars:    maxChars,
		temperature: temperature,
		logger:      logger.Named("answer"),
	}
}

// Summarize produces a sentence for an executed result set. Empty results
// get a short explanation of why there may be no data instead of a bare
// "no data found".
func (s *Synthesizer) Summarize(ctx context.Context, question string, result *database.QueryResult) (string, error) {
	var prompt string
	if result == nil || result.Empty() {
		prompt = fmt.Sprintf("The question %q returned no matching records. "+
			"In one or two sentences, explain to the user why there might be no data for this question. "+
			"Do not mention how the data was looked up.", question)
	} else {
		prompt = fmt.Sprintf("Question: %s\n\nData (JSON rows):\n%s\n\n"+
			"Answer the question in a single concise sentence of at most 30 words. "+
			"Include every number from the data that answers the question. "+
			"Do not mention how the data was retrieved.", question, encodeRows(result))
	}

	start := time.Now()
	text, err := s.client.GenerateResponse(ctx, prompt, systemMessage, s.temperature)
	metrics.GenerationDurationSeconds.WithLabelValues("answer").Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("answer generation failed", zap.Error(err))
		return "", fmt.Errorf("answer generation: %w", err)
	}

	text = strings.TrimSpace(text)
	if len(text) > s.maxChars {
		s.logger.Debug("answer truncated",
			zap.Int("length", len(text)),
			zap.Int("ceiling", s.maxChars))
		text = TruncateAtSentence(text, s.maxChars)
	}
	return text, nil
}

// Compose assembles the final reply from the primary answer and an optional
// chart reference. A chart reference replaces the fallback text entirely and
// is appended to any real answer as a trailer.
func Compose(primary, chartRef string) string {
	primary = strings.TrimSpace(primary)

	if chartRef == "" {
		if primary == "" {
			return Fallback
		}
		return primary
	}

	trailer := fmt.Sprintf("A chart of the requested data is available at %s", chartRef)
	if primary == "" || primary == Fallback {
		return trailer
	}
	return primary + " " + trailer
}

// TruncateAtSentence cuts text to at most max bytes, preferring the last
// sentence boundary under the limit and falling back to a word boundary.
func TruncateAtSentence(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := text[:max]

	boundary := -1
	for _, mark := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(cut, mark); i > boundary {
			boundary = i
		}
	}
	if boundary >= 0 {
		return strings.TrimSpace(cut[:boundary+1])
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		return strings.TrimSpace(cut[:i])
	}
	return cut
}

func encodeRows(result *database.QueryResult) string {
	rows := result.Rows
	if len(rows) > maxPromptRows {
		rows = rows[:maxPromptRows]
	}
	encoded, err := json.Marshal(rows)
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(encoded)
}
