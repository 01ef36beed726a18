package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"scribe/engine"
	"scribe/finalize"
)

func update(m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(tuiModel), cmd
}

func TestTUIWaitingPanel(t *testing.T) {
	m := newTUIModel("[groq | whisper-large-v3]", nil)
	out := m.View()
	for _, want := range []string{"Waiting for Input", "Say something...", "whisper-large-v3"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestTUIRendersView(t *testing.T) {
	m := newTUIModel("", nil)
	m, _ = update(m, tea.WindowSizeMsg{Width: 100, Height: 20})
	m, _ = update(m, ViewMsg{View: finalize.View{
		{Text: "The sky is blue.", Style: finalize.StyleA},
		{Text: "She walked home.", Style: finalize.StyleB},
		{Text: "Because he...", Style: finalize.StylePending},
	}})

	out := m.View()
	if !strings.Contains(out, "Live Transcription") || strings.Contains(out, "Say something") {
		t.Errorf("expected live panel:\n%s", out)
	}
	for _, want := range []string{"The sky is blue.", "She walked home.", "Because he..."} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestTUIEmptyViewKeepsLivePanel(t *testing.T) {
	m := newTUIModel("", nil)
	m, _ = update(m, ViewMsg{View: finalize.View{{Text: "Hi", Style: finalize.StylePending}}})
	m, _ = update(m, ViewMsg{View: nil})
	if out := m.View(); !strings.Contains(out, "Live Transcription") {
		t.Errorf("expected live panel after first render:\n%s", out)
	}
}

func TestTUIQuit(t *testing.T) {
	m := newTUIModel("", nil)
	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestTUICopy(t *testing.T) {
	tests := []struct {
		name string
		n    int
		err  error
		want string
	}{
		{"ok", 42, nil, "copied 42 characters"},
		{"error", 0, errors.New("no clipboard"), "copy failed: no clipboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTUIModel("", func() (int, error) { return tt.n, tt.err })
			m, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlY})
			if cmd == nil {
				t.Fatal("ctrl+y returned no command")
			}
			m, _ = update(m, cmd())
			if !strings.Contains(m.View(), tt.want) {
				t.Errorf("view missing %q:\n%s", tt.want, m.View())
			}
		})
	}
}

func TestTUIStateAndLevel(t *testing.T) {
	m := newTUIModel("", nil)
	m, _ = update(m, LevelMsg{Level: 0.5})
	if m.level != 0 {
		t.Error("level tracked while not recording")
	}
	m, _ = update(m, StateMsg{State: engine.StateRecording})
	m, _ = update(m, LevelMsg{Level: 0.5})
	if m.level == 0 {
		t.Error("level ignored while recording")
	}
	if !strings.Contains(m.View(), "REC") {
		t.Errorf("recording state not shown:\n%s", m.View())
	}
	m, _ = update(m, StateMsg{State: engine.StateTranscribing})
	if m.level != 0 || !strings.Contains(m.View(), "transcribing") {
		t.Errorf("transcribing state not shown:\n%s", m.View())
	}
}
