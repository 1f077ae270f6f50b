package llm

import (
	"strings"
	"testing"

	"github.com/Harshitk-cp/tenet/internal/domain"
	"github.com/google/uuid"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  bool
	}{
		{"openai with key", "openai", "sk-test", false},
		{"openai without key", "openai", "", true},
		{"anthropic with key", "anthropic", "sk-ant-test", false},
		{"anthropic without key", "anthropic", "", true},
		{"mock needs no key", "mock", "", false},
		{"unknown provider", "llama", "key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.apiKey, 1024)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if client == nil {
				t.Fatal("expected a client")
			}
		})
	}
}

func TestBuildGovernorContext(t *testing.T) {
	beliefs := []domain.BeliefNode{
		{
			ID:                uuid.New(),
			Title:             "open source wins",
			Summary:           "Open ecosystems outcompete closed ones over time.",
			CurrentConfidence: 0.72,
			Tags:              []string{"tech", "economics"},
		},
	}

	ctx := BuildGovernorContext("skeptic", beliefs, []string{"user asked about licensing"})

	for _, want := range []string{
		"Persona: skeptic",
		"open source wins",
		"confidence 0.72",
		"tags: tech, economics",
		"Open ecosystems outcompete closed ones over time.",
		"Recent interactions:",
		"user asked about licensing",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}

func TestBuildGovernorContext_NoHistory(t *testing.T) {
	ctx := BuildGovernorContext("skeptic", nil, nil)
	if strings.Contains(ctx, "Recent interactions") {
		t.Error("expected no interactions section without history")
	}
}
