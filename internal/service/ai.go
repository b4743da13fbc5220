package service

import (
	"context"
	"errors"
	"strings"
	"text/template"
	"time"

	"github.com/goccy/go-json"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/auth"
	"github.com/dharsanguruparan/SheetDrop/internal/genai"
	"github.com/dharsanguruparan/SheetDrop/internal/logging"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
	"github.com/dharsanguruparan/SheetDrop/internal/storage"
)

const (
	chatSampleRows     = 5
	insightsSampleRows = 10
)

var chatPrompt = template.Must(template.New("chat").Parse(`You are an AI assistant for a spreadsheet analytics platform. Help users analyze their data and provide insights.
{{with .Data}}
Data Context:
- File Name: {{.FileName}}
- Total Rows: {{.TotalRows}}
- Columns: {{.ColumnList}}
- Sample Data: {{.Sample}}
{{end}}
User Question: {{.Message}}

Please provide a helpful, concise response focusing on data analysis and insights. If the user has data loaded, reference specific aspects of their data in your response.
`))

var insightsPrompt = template.Must(template.New("insights").Parse(`Analyze this spreadsheet data and provide key insights:

File: {{.FileName}}
Columns: {{.ColumnList}}
Data Structure: {{.Sample}}
Total Records: {{.TotalRows}}

Please provide:
1. Summary of the data
2. Key patterns or trends
3. Potential insights or recommendations
4. Any data quality observations

Keep the response concise but informative.
`))

// promptData is the dataset context rendered into prompts.
type promptData struct {
	FileName   string
	TotalRows  int
	ColumnList string
	Sample     string
}

type ChatInput struct {
	Message string `json:"message"`
	DataID  string `json:"dataId"`
}

type ChatReply struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type InsightsInput struct {
	DataID string `json:"dataId"`
}

type DataSummary struct {
	Filename     string   `json:"filename"`
	TotalRecords int      `json:"totalRecords"`
	Columns      []string `json:"columns"`
}

type InsightsReply struct {
	Success     bool        `json:"success"`
	Insights    string      `json:"insights"`
	DataSummary DataSummary `json:"dataSummary"`
	Timestamp   time.Time   `json:"timestamp"`
}

// AIService renders data-aware prompts and forwards them to the generator.
// Upstream failures are never retried.
type AIService struct {
	datasets storage.DatasetStore
	gen      genai.Generator
	now      func() time.Time
}

func NewAIService(datasets storage.DatasetStore, gen genai.Generator) *AIService {
	return &AIService{datasets: datasets, gen: gen, now: time.Now}
}

// Chat answers a free-form question, optionally about one dataset.
func (s *AIService) Chat(ctx context.Context, p *model.User, in ChatInput) (*ChatReply, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperr.Invalid("Message is required")
	}
	vars := struct {
		Message string
		Data    *promptData
	}{Message: in.Message}
	if in.DataID != "" {
		ds, err := s.datasets.Get(ctx, in.DataID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Unknown datasets are answered without context.
		case err != nil:
			return nil, storeErr(err, "Data not found")
		case !auth.CanAccess(p, ds.OwnerID):
			return nil, apperr.Denied("Not authorized")
		default:
			vars.Data = newPromptData(ds, chatSampleRows)
		}
	}
	prompt, err := render(chatPrompt, vars)
	if err != nil {
		return nil, apperr.Internalf("Failed to get AI response", err)
	}
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("ai chat failed")
		return nil, apperr.Internalf("Failed to get AI response", err)
	}
	return &ChatReply{Success: true, Message: text, Timestamp: s.now().UTC()}, nil
}

// Insights asks for an analysis of one dataset.
func (s *AIService) Insights(ctx context.Context, p *model.User, in InsightsInput) (*InsightsReply, error) {
	if in.DataID == "" {
		return nil, apperr.Invalid("Data ID is required")
	}
	ds, err := s.datasets.Get(ctx, in.DataID)
	if err != nil {
		return nil, storeErr(err, "Data not found")
	}
	if !auth.CanAccess(p, ds.OwnerID) {
		return nil, apperr.Denied("Not authorized")
	}
	data := newPromptData(ds, insightsSampleRows)
	prompt, err := render(insightsPrompt, data)
	if err != nil {
		return nil, apperr.Internalf("Failed to generate insights", err)
	}
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("dataset_id", ds.ID).Msg("ai insights failed")
		return nil, apperr.Internalf("Failed to generate insights", err)
	}
	return &InsightsReply{
		Success:  true,
		Insights: text,
		DataSummary: DataSummary{
			Filename:     ds.OriginalName,
			TotalRecords: data.TotalRows,
			Columns:      ds.Headers(),
		},
		Timestamp: s.now().UTC(),
	}, nil
}

// newPromptData describes ds with up to n data rows as indented JSON.
func newPromptData(ds *model.Dataset, n int) *promptData {
	var rows [][]model.Cell
	if len(ds.Grid) > 1 {
		end := len(ds.Grid)
		if end > n+1 {
			end = n + 1
		}
		rows = ds.Grid[1:end]
	}
	sample := "[]"
	if len(rows) > 0 {
		if b, err := json.MarshalIndent(rows, "", "  "); err == nil {
			sample = string(b)
		}
	}
	total := 0
	if ds.RowCount > 0 {
		total = ds.RowCount - 1
	}
	return &promptData{
		FileName:   ds.OriginalName,
		TotalRows:  total,
		ColumnList: strings.Join(ds.Headers(), ", "),
		Sample:     sample,
	}
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
