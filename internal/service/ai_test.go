package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dharsanguruparan/SheetDrop/internal/apperr"
	"github.com/dharsanguruparan/SheetDrop/internal/model"
)

type fakeGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestAIChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", model.RoleUser)
	other := env.user(t, "other", model.RoleUser)
	ds := seedContent(t, env, owner, 8)
	gen := &fakeGenerator{reply: "Revenue grows steadily."}
	svc := NewAIService(env.store.Datasets(), gen)

	_, err := svc.Chat(ctx, owner, ChatInput{Message: "  "})
	assertKind(t, err, apperr.InvalidInput)
	assertMessage(t, err, "Message is required")

	reply, err := svc.Chat(ctx, owner, ChatInput{Message: "What is the trend?", DataID: ds.ID})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reply.Success || reply.Message != "Revenue grows steadily." {
		t.Errorf("reply = %+v", reply)
	}
	prompt := gen.prompts[len(gen.prompts)-1]
	for _, want := range []string{"File Name: sales.csv", "Total Rows: 8", "Columns: Month, Revenue", "User Question: What is the trend?", `"M4"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, `"M5"`) {
		t.Error("chat prompt should carry five sample rows")
	}

	if _, err := svc.Chat(ctx, owner, ChatInput{Message: "hi", DataID: "missing"}); err != nil {
		t.Errorf("unknown dataset should be ignored: %v", err)
	}
	if strings.Contains(gen.prompts[len(gen.prompts)-1], "Data Context") {
		t.Error("unknown dataset must not add context")
	}

	_, err = svc.Chat(ctx, other, ChatInput{Message: "hi", DataID: ds.ID})
	assertKind(t, err, apperr.Forbidden)
}

func TestAIChatUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner", model.RoleUser)
	svc := NewAIService(env.store.Datasets(), &fakeGenerator{err: errors.New("quota exceeded")})

	_, err := svc.Chat(context.Background(), owner, ChatInput{Message: "hi"})
	assertKind(t, err, apperr.Internal)
	assertMessage(t, err, "Failed to get AI response")
}

func TestAIInsights(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", model.RoleUser)
	ds := seedContent(t, env, owner, 12)
	gen := &fakeGenerator{reply: "1. Summary"}
	svc := NewAIService(env.store.Datasets(), gen)

	_, err := svc.Insights(ctx, owner, InsightsInput{})
	assertKind(t, err, apperr.InvalidInput)
	assertMessage(t, err, "Data ID is required")

	_, err = svc.Insights(ctx, owner, InsightsInput{DataID: "missing"})
	assertKind(t, err, apperr.NotFound)
	assertMessage(t, err, "Data not found")

	reply, err := svc.Insights(ctx, owner, InsightsInput{DataID: ds.ID})
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if reply.Insights != "1. Summary" || reply.DataSummary.TotalRecords != 12 {
		t.Errorf("reply = %+v", reply)
	}
	if strings.Join(reply.DataSummary.Columns, ",") != "Month,Revenue" {
		t.Errorf("columns = %v", reply.DataSummary.Columns)
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, `"M9"`) || strings.Contains(prompt, `"M10"`) {
		t.Errorf("insights prompt should carry ten sample rows:\n%s", prompt)
	}

	svc = NewAIService(env.store.Datasets(), &fakeGenerator{err: errors.New("boom")})
	_, err = svc.Insights(ctx, owner, InsightsInput{DataID: ds.ID})
	assertKind(t, err, apperr.Internal)
	assertMessage(t, err, "Failed to generate insights")
}
