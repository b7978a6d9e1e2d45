package engine

import (
	"errors"
	"testing"

	"overseer/internal/types"
)

func TestCreateAgentValidatesSpec(t *testing.T) {
	e := NewGenAIEngine()

	tests := []struct {
		name string
		spec types.AgentSpec
	}{
		{"missing key", types.AgentSpec{Model: "gemini-2.5-pro"}},
		{"missing model", types.AgentSpec{APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.CreateAgent(tt.spec)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, types.ErrConfiguration) {
				t.Errorf("error %v is not a configuration error", err)
			}
		})
	}
}

func TestStartConversationRequiresChannel(t *testing.T) {
	e := NewGenAIEngine()
	agent, err := e.CreateAgent(types.AgentSpec{Model: "m", APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := agent.StartConversation(t.TempDir(), nil); err == nil {
		t.Error("expected error for nil event channel")
	}

	events := make(chan types.Event, 1)
	conv, err := agent.StartConversation(t.TempDir(), events)
	if err != nil {
		t.Fatal(err)
	}
	if err := conv.SendMessage("hello"); err != nil {
		t.Errorf("SendMessage before Run should queue: %v", err)
	}
}
