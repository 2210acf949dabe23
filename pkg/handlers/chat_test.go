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

	"github.com/coopregistry/coopassist/pkg/pipeline"
)

type fakeAsker struct {
	result *pipeline.Result
	err    error
	asked  []string
}

func (f *fakeAsker) Ask(_ context.Context, question string) (*pipeline.Result, error) {
	f.asked = append(f.asked, question)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestChatReturnsReplyAndChart(t *testing.T) {
	asker := &fakeAsker{result: &pipeline.Result{
		Answer:   "There are 412 cooperatives.",
		ChartURL: "/static/graphs/abc.svg",
	}}
	h := NewChatHandler(asker, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"how many cooperatives"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "There are 412 cooperatives.", resp.Reply)
	assert.Equal(t, "/static/graphs/abc.svg", resp.ChartURL)
	assert.Equal(t, []string{"how many cooperatives"}, asker.asked)
}

func TestChatOmitsEmptyChartURL(t *testing.T) {
	asker := &fakeAsker{result: &pipeline.Result{Answer: "ok"}}
	h := NewChatHandler(asker, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "chart_url")
}

func TestChatRejectsInvalidBody(t *testing.T) {
	h := NewChatHandler(&fakeAsker{}, zap.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{not json"},
		{"missing message", `{}`},
		{"empty message", `{"message":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Chat(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestChatPipelineError(t *testing.T) {
	asker := &fakeAsker{err: errors.New("boom")}
	h := NewChatHandler(asker, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
