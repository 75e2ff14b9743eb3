// Package testutil provides helpers for testing bubbletea models.
package testutil

import (
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes ANSI color codes so rendered output can be compared.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// FindLine returns the first line of output containing substr, or "".
func FindLine(output, substr string) string {
	for line := range strings.SplitSeq(StripANSI(output), "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	return ""
}

// Harness drives a tea.Model the way a program would and records the
// commands it returns.
type Harness struct {
	model tea.Model
	cmds  []tea.Cmd
}

// NewHarness wraps m without calling Init.
func NewHarness(m tea.Model) *Harness {
	return &Harness{model: m}
}

// Model returns the current model for type assertion.
func (h *Harness) Model() tea.Model {
	return h.model
}

// Send passes msg to Update and returns the resulting command.
func (h *Harness) Send(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	h.model, cmd = h.model.Update(msg)
	if cmd != nil {
		h.cmds = append(h.cmds, cmd)
	}
	return cmd
}

// SendKey sends a rune key press such as "q".
func (h *Harness) SendKey(key string) tea.Cmd {
	return h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

// SendSpecialKey sends a non-rune key such as tea.KeyCtrlC.
func (h *Harness) SendSpecialKey(k tea.KeyType) tea.Cmd {
	return h.Send(tea.KeyMsg{Type: k})
}

// View returns the rendered view with ANSI codes removed.
func (h *Harness) View() string {
	return StripANSI(h.model.View())
}

// LastCommand returns the most recent non-nil command.
func (h *Harness) LastCommand() tea.Cmd {
	if len(h.cmds) == 0 {
		return nil
	}
	return h.cmds[len(h.cmds)-1]
}

// ExecuteCmd runs cmd and returns its message, flattening a batch to its
// first non-nil message.
func ExecuteCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if m := ExecuteCmd(c); m != nil {
				return m
			}
		}
		return nil
	}
	return msg
}
