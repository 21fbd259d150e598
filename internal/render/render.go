// Package render formats chat transcripts, thinking sections and resource
// readouts for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/telemetry"
)

var (
	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	contentStyle = lipgloss.NewStyle().
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Padding(0, 2)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	noticeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	resourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// thoughtColors maps thought types to the palette used for the thinking
// sidebar. Unknown types fall back to gray.
var thoughtColors = map[string]lipgloss.Color{
	"plan":        lipgloss.Color("39"),
	"decision":    lipgloss.Color("42"),
	"tool_call":   lipgloss.Color("220"),
	"tool_result": lipgloss.Color("135"),
	"think_more":  lipgloss.Color("212"),
	"answer":      lipgloss.Color("196"),
	"thinking":    lipgloss.Color("243"),
}

func thoughtStyle(thoughtType string) lipgloss.Style {
	color, ok := thoughtColors[thoughtType]
	if !ok {
		color = lipgloss.Color("245")
	}
	return lipgloss.NewStyle().Foreground(color)
}

// Message renders one transcript message with its speaker label.
func Message(msg domain.Message) string {
	label := assistantStyle.Render("assistant")
	if msg.IsUser {
		label = userStyle.Render("you")
	}
	return label + "\n" + contentStyle.Render(msg.Content)
}

// Thought renders a single thought line, details indented below when present.
func Thought(t domain.Thought) string {
	line := thoughtStyle(t.Type).Render(fmt.Sprintf("[%s] ", t.Type)) + t.Content
	if t.Details != "" {
		line += "\n" + detailStyle.Render("  "+t.Details)
	}
	return line
}

// Section renders a thinking section, one thought per line.
func Section(sec domain.ThinkingSection) string {
	if len(sec.Thoughts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(sec.Thoughts))
	for _, t := range sec.Thoughts {
		lines = append(lines, Thought(t))
	}
	return sectionStyle.Render(strings.Join(lines, "\n"))
}

// Transcript renders a whole session: each user message followed by its
// thinking section, with assistant replies interleaved in arrival order.
func Transcript(sess *domain.ChatSession) string {
	var b strings.Builder
	turn := 0
	for _, msg := range sess.Messages {
		b.WriteString(Message(msg))
		b.WriteString("\n")
		if msg.IsUser && turn < len(sess.ThinkingSections) {
			if sec := Section(sess.ThinkingSections[turn]); sec != "" {
				b.WriteString(sec)
				b.WriteString("\n")
			}
			turn++
		}
	}
	return b.String()
}

// Tabs renders the chat list, one entry per chat, marking the active one.
func Tabs(reg domain.Registry) string {
	entries := make([]string, 0, len(reg.Order))
	for i, id := range reg.Order {
		label := fmt.Sprintf("[%d] %s", i+1, id)
		if id == reg.ActiveID {
			entries = append(entries, activeTabStyle.Render(label+" *"))
		} else {
			entries = append(entries, tabStyle.Render(label))
		}
	}
	return strings.Join(entries, "  ")
}

// Resources renders the latest resource sample as a single status line.
func Resources(s telemetry.Sample) string {
	return resourceStyle.Render(fmt.Sprintf(
		"cpu %.0f%%  mem %.0f%%  disk r/w %.1f/%.1f MB/s  gpu %.0f%%  vram %.0f%%",
		s.CPULoad, s.MemoryUsage, s.DiskReadRate, s.DiskWriteRate, s.GPULoad, s.GPUMemory))
}

// Notice renders an error or warning banner.
func Notice(message string) string {
	return noticeStyle.Render(message)
}
