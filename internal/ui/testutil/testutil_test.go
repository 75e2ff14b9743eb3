package testutil

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello world", "hello world"},
		{"color", "\x1b[31mred\x1b[0m text", "red text"},
		{"combined codes", "\x1b[1;32mbold green\x1b[0m", "bold green"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.input); got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFindLine(t *testing.T) {
	output := "first line\n\x1b[1msecond\x1b[0m line\nthird line"

	if got := FindLine(output, "second"); got != "second line" {
		t.Errorf("FindLine() = %q, want %q", got, "second line")
	}
	if got := FindLine(output, "missing"); got != "" {
		t.Errorf("FindLine() for missing = %q, want empty", got)
	}
}

type keyMsg string

type echoModel struct {
	last string
}

func (m echoModel) Init() tea.Cmd { return nil }

func (m echoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		m.last = k.String()
		return m, func() tea.Msg { return keyMsg(m.last) }
	}
	return m, nil
}

func (m echoModel) View() string { return "\x1b[1m" + m.last + "\x1b[0m" }

func TestHarness(t *testing.T) {
	h := NewHarness(echoModel{})

	if h.LastCommand() != nil {
		t.Fatal("fresh harness has a command")
	}
	h.SendKey("q")
	if got := h.View(); got != "q" {
		t.Errorf("View() = %q, want %q", got, "q")
	}
	if msg := ExecuteCmd(h.LastCommand()); msg != keyMsg("q") {
		t.Errorf("ExecuteCmd() = %v, want %q", msg, "q")
	}

	h.SendSpecialKey(tea.KeyCtrlC)
	if got := h.Model().(echoModel).last; got != "ctrl+c" {
		t.Errorf("last key = %q, want ctrl+c", got)
	}

	if cmd := h.Send(tea.WindowSizeMsg{}); cmd != nil {
		t.Error("unhandled message returned a command")
	}
}

func TestExecuteCmd_Batch(t *testing.T) {
	batch := tea.Batch(nil, func() tea.Msg { return keyMsg("x") })
	if msg := ExecuteCmd(batch); msg != keyMsg("x") {
		t.Errorf("ExecuteCmd(batch) = %v, want %q", msg, "x")
	}
	if ExecuteCmd(nil) != nil {
		t.Error("ExecuteCmd(nil) should be nil")
	}
}
