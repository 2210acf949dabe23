package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/language"
)

type fakeTranslator struct {
	translation string
	source      language.Lang
	err         error
	targets     []string
}

func (f *fakeTranslator) Translate(_ context.Context, _ string, target string) (string, language.Lang, error) {
	f.targets = append(f.targets, target)
	if f.err != nil {
		return "", f.source, f.err
	}
	return f.translation, f.source, nil
}

func TestTranslateReturnsTranslation(t *testing.T) {
	tr := &fakeTranslator{translation: "ما هو اسم النظام؟", source: language.LangEnglish}
	h := NewTranslateHandler(tr, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"text":"What is the system name?","target":"Arabic"}`))
	rec := httptest.NewRecorder()
	h.Translate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TranslateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ما هو اسم النظام؟", resp.Translation)
	assert.Equal(t, "en", resp.SourceLanguage)
	assert.Equal(t, []string{"Arabic"}, tr.targets)
}

func TestTranslateRejectsEmptyText(t *testing.T) {
	h := NewTranslateHandler(&fakeTranslator{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"text":""}`))
	rec := httptest.NewRecorder()
	h.Translate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateUpstreamFailure(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("model offline"), source: language.LangArabic}
	h := NewTranslateHandler(tr, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"text":"مرحبا"}`))
	rec := httptest.NewRecorder()
	h.Translate(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "model offline")
}
