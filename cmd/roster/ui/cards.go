package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"roster/internal/notify"
	"roster/internal/view"
)

const (
	emptyRosterText = "No participants yet."
	loadFailedText  = "Failed to load activities. Please try again later."
	loadingText     = "Loading activities..."
)

// RenderTree renders the full view tree as a vertical stack of activity
// cards. selectedRow indexes the tree's flattened row list (-1 for no
// selection); the matching participant line is highlighted.
func RenderTree(tree view.Tree, s Styles, width int, selectedRow int) string {
	if tree.LoadFailed {
		return s.Error.Render(loadFailedText)
	}
	if len(tree.Cards) == 0 {
		return s.Muted.Render(loadingText)
	}

	cardWidth := width - 4
	if cardWidth < 24 {
		cardWidth = 24
	}

	rowIdx := 0
	blocks := make([]string, 0, len(tree.Cards))
	for i := range tree.Cards {
		block, consumed := renderCard(&tree.Cards[i], s, cardWidth, selectedRow-rowIdx)
		blocks = append(blocks, block)
		rowIdx += consumed
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// renderCard renders one card. localSelected is the selected row index
// relative to this card's first row; values outside [0, rows) select
// nothing. Returns the card text and the number of rows it holds.
func renderCard(card *view.Card, s Styles, width int, localSelected int) (string, int) {
	var b strings.Builder

	b.WriteString(s.CardTitle.Render(card.Name))
	b.WriteString("\n")
	if card.Description != "" {
		b.WriteString(s.Body.Render(card.Description))
		b.WriteString("\n")
	}
	if card.Schedule != "" {
		b.WriteString(s.Muted.Render("Schedule: " + card.Schedule))
		b.WriteString("\n")
	}
	b.WriteString(s.Availability.Render("Availability: " + card.Availability()))
	b.WriteString("\n\n")
	b.WriteString(s.Subtitle.Render("Participants"))
	b.WriteString("\n")

	consumed := 0
	if card.Participants.Empty {
		b.WriteString(s.EmptyRoster.Render(emptyRosterText))
	} else {
		lines := make([]string, 0, len(card.Participants.Rows))
		for i, row := range card.Participants.Rows {
			if i == localSelected {
				lines = append(lines, s.RowSelected.Render("▸ "+row.Email+"  ✖"))
			} else {
				lines = append(lines, s.Body.Render("  "+row.Email))
			}
		}
		b.WriteString(strings.Join(lines, "\n"))
		consumed = len(card.Participants.Rows)
	}

	style := s.Card
	if localSelected >= 0 && localSelected < consumed {
		style = s.CardSelected
	}
	return style.Width(width).Render(b.String()), consumed
}

// RenderNotification renders the transient status bar, or an empty
// string when nothing is visible.
func RenderNotification(msg notify.Message, visible bool, s Styles) string {
	if !visible || msg.Text == "" {
		return ""
	}
	switch msg.Kind {
	case notify.KindSuccess:
		return s.Success.Render(msg.Text)
	case notify.KindError:
		return s.Error.Render(msg.Text)
	default:
		return s.Info.Render(msg.Text)
	}
}

// RenderSelect renders the activity selection control: the placeholder
// first, then one option per activity in directory order.
func RenderSelect(names []string, selected int, s Styles) string {
	var b strings.Builder
	b.WriteString(s.Subtitle.Render("Activity:"))
	b.WriteString(" ")
	if selected < 0 || selected >= len(names) {
		b.WriteString(s.Muted.Render("-- Select an activity --"))
	} else {
		b.WriteString(s.Bold.Render(names[selected]))
	}
	b.WriteString(s.Muted.Render(fmt.Sprintf("  (%d/%d, ←/→ to change)", selected+1, len(names))))
	return b.String()
}
