// Package view projects directory state into a tree of view nodes: one
// card per activity, each with a participants subtree that is either an
// empty-state marker or an ordered list of rows. The tree is rebuilt
// wholesale by a sync pass and patched in place by confirmed mutations;
// both paths converge to the same shape for the same directory state.
package view

import (
	"fmt"

	"roster/internal/directory"
)

// Row is one participant line. It carries the (activity, email) pair its
// removal control is bound to.
type Row struct {
	Activity string
	Email    string
}

// ParticipantList is the participants subtree of a card: either the
// empty-state marker or an ordered list of rows, never both.
type ParticipantList struct {
	Empty bool
	Rows  []Row
}

// Card is the view node for one activity.
type Card struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	SpotsLeft       int
	Participants    ParticipantList
}

// Availability is the displayed spots-left line for the card.
func (c *Card) Availability() string {
	return fmt.Sprintf("%d spots left", c.SpotsLeft)
}

// Tree is the full rendered state: cards in directory order plus the
// ordered activity names that feed the selection control. LoadFailed
// marks the explicit first-load failure placeholder.
type Tree struct {
	Cards      []Card
	Names      []string
	LoadFailed bool
}

func (t *Tree) clone() Tree {
	c := Tree{
		Names:      append([]string(nil), t.Names...),
		LoadFailed: t.LoadFailed,
	}
	c.Cards = make([]Card, len(t.Cards))
	for i, card := range t.Cards {
		c.Cards[i] = card
		c.Cards[i].Participants.Rows = append([]Row(nil), card.Participants.Rows...)
	}
	return c
}

// card returns a pointer to the card with the given activity name, or nil.
func (t *Tree) card(name string) *Card {
	for i := range t.Cards {
		if t.Cards[i].Name == name {
			return &t.Cards[i]
		}
	}
	return nil
}

// Rows flattens every participant row in card order. The interactive UI
// uses this for row selection.
func (t *Tree) Rows() []Row {
	var rows []Row
	for i := range t.Cards {
		rows = append(rows, t.Cards[i].Participants.Rows...)
	}
	return rows
}

// project builds a fresh card from one activity.
func project(act directory.Activity) Card {
	card := Card{
		Name:            act.Name,
		Description:     act.Description,
		Schedule:        act.Schedule,
		MaxParticipants: act.MaxParticipants,
		SpotsLeft:       act.SpotsLeft(),
	}
	if len(act.Participants) == 0 {
		card.Participants = ParticipantList{Empty: true}
		return card
	}
	rows := make([]Row, 0, len(act.Participants))
	for _, email := range act.Participants {
		rows = append(rows, Row{Activity: act.Name, Email: email})
	}
	card.Participants = ParticipantList{Rows: rows}
	return card
}
