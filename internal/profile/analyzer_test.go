package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai"
)

type stubCompleter struct {
	response string
	err      error
	prompt   string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, _ ai.Options) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestAnalyzeMergesAIFacts(t *testing.T) {
	stub := &stubCompleter{response: "```json\n{\"name\": \"\", \"experience_years\": \"9\", \"skills\": [\"Rust\"], \"current_title\": \"Staff Engineer\"}\n```"}
	base := ParseText(sampleCV)

	facts, err := NewAnalyzer(stub, ai.Options{}, nil).Analyze(context.Background(), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if facts.Name != "Jane Doe" {
		t.Fatalf("expected heuristic name to survive, got %q", facts.Name)
	}
	if facts.ExperienceYears != 9 || facts.CurrentTitle != "Staff Engineer" {
		t.Fatalf("unexpected merged facts %+v", facts)
	}
	if facts.Skills[0] != "Rust" || len(facts.Skills) != len(base.Skills)+1 {
		t.Fatalf("unexpected skills %v", facts.Skills)
	}
	if stub.prompt == "" || base.ExperienceYears != 7 {
		t.Fatalf("base facts must not be modified")
	}
}

func TestAnalyzeKeepsHeuristicsOnFailure(t *testing.T) {
	base := ParseText(sampleCV)
	for name, stub := range map[string]*stubCompleter{
		"ai error":  {err: ai.ErrUnavailable},
		"bad json":  {response: "I cannot help"},
		"bad types": {response: `{"experience_years": "many"}`},
	} {
		t.Run(name, func(t *testing.T) {
			facts, err := NewAnalyzer(stub, ai.Options{}, nil).Analyze(context.Background(), base)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if facts != base {
				t.Fatalf("expected heuristic facts back")
			}
		})
	}

	if _, err := NewAnalyzer(&stubCompleter{err: ai.ErrTimeout}, ai.Options{}, nil).Analyze(context.Background(), base); !errors.Is(err, ai.ErrTimeout) {
		t.Fatalf("expected wrapped timeout, got %v", err)
	}
}
