// Package language normalizes incoming questions to the working language.
package language

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/llm"
)

// Lang identifies a detected source language.
type Lang string

const (
	LangEnglish Lang = "en"
	LangArabic  Lang = "ar"
)

// arabicPattern matches any character in the Arabic Unicode block.
var arabicPattern = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)

// Detect classifies text as Arabic if it contains any Arabic-block
// character, English otherwise. This is a binary classifier; no other
// scripts are recognized.
func Detect(text string) Lang {
	if arabicPattern.MatchString(text) {
		return LangArabic
	}
	return LangEnglish
}

// name returns the prompt-facing name for a detected language.
func name(l Lang) string {
	if l == LangArabic {
		return "Arabic"
	}
	return "English"
}

// opposite returns the translation target implied by a detected source.
func opposite(l Lang) string {
	if l == LangArabic {
		return "English"
	}
	return "Arabic"
}

// Normalizer detects the question's script and translates non-English
// input to English before any downstream reasoning.
type Normalizer struct {
	client      llm.LLMClient
	temperature float64
	logger      *zap.Logger
}

// NewNormalizer creates a Normalizer backed by the given text generator.
func NewNormalizer(client llm.LLMClient, temperature float64, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		client:      client,
		temperature: temperature,
		logger:      logger.Named("language"),
	}
}

// Normalize returns the working-language question and the detected source
// language. English input passes through untouched; Arabic input is
// translated to English.
func (n *Normalizer) Normalize(ctx context.Context, question string) (string, Lang, error) {
	lang := Detect(question)
	if lang == LangEnglish {
		return question, LangEnglish, nil
	}

	translated, _, err := n.Translate(ctx, question, "English")
	if err != nil {
		return question, lang, fmt.Errorf("translate question: %w", err)
	}

	n.logger.Debug("translated question",
		zap.String("source_language", string(lang)),
		zap.Int("translated_len", len(translated)))

	return translated, lang, nil
}

// Translate converts text into the target language. If target is empty it
// is inferred as the opposite of the detected source. When the detected
// source already matches the target (case-insensitively), the input is
// returned unchanged without a generation call, avoiding paraphrasing
// drift on already-correct text.
func (n *Normalizer) Translate(ctx context.Context, text string, target string) (string, Lang, error) {
	lang := Detect(text)

	if target == "" {
		target = opposite(lang)
	}

	if strings.EqualFold(target, name(lang)) {
		return text, lang, nil
	}

	prompt := fmt.Sprintf(
		"Translate the following text to %s. Return ONLY the translation.\n\nText:\n%s",
		target, text)

	translated, err := n.client.GenerateResponse(ctx, prompt,
		"You are a precise translator between English and Arabic.", n.temperature)
	if err != nil {
		return "", lang, fmt.Errorf("translation call: %w", err)
	}

	return strings.TrimSpace(translated), lang, nil
}
