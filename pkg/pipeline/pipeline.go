// Package pipeline sequences a question through normalization, intent
// classification, data acquisition, optional visualization, and answer
// synthesis.
package pipeline

import (
	"context"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/answer"
	"github.com/coopregistry/coopassist/pkg/database"
	"github.com/coopregistry/coopassist/pkg/intent"
	"github.com/coopregistry/coopassist/pkg/knowledge"
	"github.com/coopregistry/coopassist/pkg/language"
	"github.com/coopregistry/coopassist/pkg/metrics"
	"github.com/coopregistry/coopassist/pkg/planner"
	"github.com/coopregistry/coopassist/pkg/viz"
)

const systemNameText = "This system is the Cooperative Registry Assistant."

const systemInfoText = "The Cooperative Registry Assistant answers questions about registered " +
	"cooperatives, their members, and their directors, using public registry information."

// Request is the unit of work flowing through the pipeline. Each stage
// fills its own fields and never rewrites fields owned by an earlier stage.
type Request struct {
	Question string
	Working  string
	Language language.Lang
	Intent   intent.Intent

	// Data holds fixed informational text; Result holds an executed result
	// set. At most one is set; both empty means no data was acquired.
	Data   string
	Result *database.QueryResult

	ChartPath string
	ChartURL  string
	Answer    string
}

// Result is what callers of the pipeline receive.
type Result struct {
	Answer   string
	ChartURL string
	Intent   intent.Intent
	Language language.Lang
}

// visualizedIntents is the fixed set of intents routed through the chart
// branch. Other intents never visualize, even when their data is chartable.
var visualizedIntents = map[intent.Intent]bool{
	intent.Visualize:      true,
	intent.MembersByState: true,
}

// Controller wires the pipeline stages together.
type Controller struct {
	normalizer  *language.Normalizer
	classifier  *intent.Classifier
	planner     *planner.Planner
	synthesizer *answer.Synthesizer
	charts      *viz.Engine
	kb          *knowledge.Base

	chartsDir string
	urlPrefix string
	logger    *zap.Logger
}

// NewController creates a pipeline controller. The knowledge base may be
// empty but not nil.
func NewController(
	normalizer *language.Normalizer,
	classifier *intent.Classifier,
	p *planner.Planner,
	synthesizer *answer.Synthesizer,
	charts *viz.Engine,
	kb *knowledge.Base,
	chartsDir, urlPrefix string,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		normalizer:  normalizer,
		classifier:  classifier,
		planner:     p,
		synthesizer: synthesizer,
		charts:      charts,
		kb:          kb,
		chartsDir:   chartsDir,
		urlPrefix:   urlPrefix,
		logger:      logger.Named("pipeline"),
	}
}

// Ask runs the full stage sequence for one question. Stage failures degrade
// to the general fallback answer; Ask itself never returns an error for a
// well-formed question.
func (c *Controller) Ask(ctx context.Context, question string) (*Result, error) {
	req := &Request{Question: question}

	c.normalize(ctx, req)
	c.classify(ctx, req)
	c.selectData(ctx, req)
	if visualizedIntents[req.Intent] {
		c.visualize(ctx, req)
	}
	c.synthesize(ctx, req)

	outcome := "answered"
	if req.Answer == answer.Fallback {
		outcome = "fallback"
	}
	metrics.PipelineRequestsTotal.WithLabelValues(string(req.Intent), outcome).Inc()

	c.logger.Info("question answered",
		zap.String("intent", string(req.Intent)),
		zap.String("language", string(req.Language)),
		zap.String("outcome", outcome),
		zap.Bool("chart", req.ChartURL != ""))

	return &Result{
		Answer:   req.Answer,
		ChartURL: req.ChartURL,
		Intent:   req.Intent,
		Language: req.Language,
	}, nil
}

func (c *Controller) normalize(ctx context.Context, req *Request) {
	working, lang, err := c.normalizer.Normalize(ctx, req.Question)
	if err != nil {
		// Translation failures leave the question as-is; English-looking
		// text still classifies, Arabic text falls through to unknown.
		c.logger.Warn("normalization failed, using original question", zap.Error(err))
		req.Working = req.Question
		req.Language = language.Detect(req.Question)
		return
	}
	req.Working = working
	req.Language = lang
}

func (c *Controller) classify(ctx context.Context, req *Request) {
	req.Intent = c.classifier.Classify(ctx, req.Working)
}

func (c *Controller) selectData(ctx context.Context, req *Request) {
	switch req.Intent {
	case intent.SystemName:
		req.Data = systemNameText
	case intent.SystemInfo:
		if desc, ok := c.kb.Topic("system_description"); ok {
			if text, ok := desc.(string); ok && text != "" {
				req.Data = text
				return
			}
		}
		req.Data = systemInfoText
	case intent.Unknown, intent.Visualize:
		// No data; the answer is the fallback or the chart trailer.
	case intent.MembersByState:
		if counts, ok := c.kb.StateCounts("members_by_state"); ok {
			req.Result = countsResult(counts)
			return
		}
		c.plan(ctx, req)
	default:
		c.plan(ctx, req)
	}
}

func (c *Controller) plan(ctx context.Context, req *Request) {
	planned, err := c.planner.Plan(ctx, req.Working)
	if err != nil {
		// Planner exhaustion is recovered here, not surfaced to the caller.
		c.logger.Warn("data acquisition failed",
			zap.String("intent", string(req.Intent)),
			zap.Error(err))
		return
	}
	req.Result = planned.Result
}

func (c *Controller) visualize(ctx context.Context, req *Request) {
	source := c.chartSource(req)

	name := uuid.New().String() + ".svg"
	outputPath := filepath.Join(c.chartsDir, name)

	if _, err := c.charts.Render(ctx, source, "", chartTitle(req.Intent), outputPath); err != nil {
		c.logger.Warn("visualization skipped", zap.Error(err))
		return
	}
	req.ChartPath = outputPath
	req.ChartURL = path.Join(c.urlPrefix, name)
}

// chartSource picks the table behind the chart: the knowledge breakdown for
// members-by-state when present, an already-acquired result set, or the
// fixed demonstration table.
func (c *Controller) chartSource(req *Request) viz.DataSource {
	if req.Intent == intent.MembersByState {
		if counts, ok := c.kb.StateCounts("members_by_state"); ok {
			return &viz.MemorySource{Table: viz.FromCounts("state", "members", counts)}
		}
	}
	if req.Result != nil && !req.Result.Empty() {
		return &viz.MemorySource{Table: viz.FromQueryResult(req.Result)}
	}
	return &viz.MockSource{}
}

func (c *Controller) synthesize(ctx context.Context, req *Request) {
	primary := req.Data
	if primary == "" && req.Result != nil {
		text, err := c.synthesizer.Summarize(ctx, req.Working, req.Result)
		if err != nil {
			c.logger.Warn("answer synthesis failed", zap.Error(err))
		} else {
			primary = text
		}
	}
	req.Answer = answer.Compose(primary, req.ChartURL)
}

func chartTitle(i intent.Intent) string {
	if i == intent.MembersByState {
		return "Members by State"
	}
	return ""
}

func countsResult(counts map[string]float64) *database.QueryResult {
	result := &database.QueryResult{Columns: []string{"state", "members"}}
	table := viz.FromCounts("state", "members", counts)
	for _, row := range table.Rows {
		result.Rows = append(result.Rows, map[string]any{"state": row[0], "members": row[1]})
	}
	return result
}
