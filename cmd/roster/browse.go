// This file implements the interactive browse interface using bubbletea.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"roster/cmd/roster/config"
	"roster/cmd/roster/ui"
	"roster/internal/api"
	"roster/internal/coordinator"
	"roster/internal/directory"
	"roster/internal/notify"
	"roster/internal/syncer"
	"roster/internal/view"
)

// focusArea tracks which part of the screen receives key input.
type focusArea int

const (
	focusForm focusArea = iota
	focusRoster
)

// confirmState is a pending unregister awaiting the yes/no prompt.
type confirmState struct {
	Activity string
	Email    string
}

// Messages for tea updates
type (
	syncDoneMsg   struct{ err error }
	actionDoneMsg struct {
		outcome coordinator.Outcome
		signup  bool
	}
	reconciledMsg    struct{}
	notifyChangedMsg struct{}
)

// browseModel is the main model for the interactive roster interface.
type browseModel struct {
	// UI components
	emailInput textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	styles     ui.Styles

	// Shared state
	dir      *directory.Directory
	renderer *view.Renderer
	notes    *notify.Channel
	engine   *syncer.Syncer
	coord    *coordinator.Coordinator

	// Cached projection of the renderer's tree
	tree view.Tree

	// Interaction state
	focus            focusArea
	selectedActivity int // index into tree.Names, -1 = placeholder
	selectedRow      int // index into tree.Rows(), -1 = none
	confirming       *confirmState
	isLoading        bool
	syncing          bool
	ready            bool
	width            int
	height           int

	timeout time.Duration
}

// newBrowseModel wires the core components behind the interactive UI.
func newBrowseModel(cfg config.Config, client *api.Client, styles ui.Styles) browseModel {
	ti := textinput.New()
	ti.Placeholder = "your-email@example.com"
	ti.Focus()
	ti.Prompt = "Email: "
	ti.CharLimit = 254
	ti.Width = 40
	ti.PromptStyle = styles.Prompt
	ti.TextStyle = styles.UserInput

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	dir := directory.New()
	renderer := view.NewRenderer()
	notes := notify.NewChannel()
	engine := syncer.New(client, dir, renderer)
	coord := coordinator.New(client, dir, renderer, notes, engine)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return browseModel{
		emailInput:       ti,
		viewport:         vp,
		spinner:          sp,
		styles:           styles,
		dir:              dir,
		renderer:         renderer,
		notes:            notes,
		engine:           engine,
		coord:            coord,
		selectedActivity: -1,
		selectedRow:      -1,
		syncing:          true,
		timeout:          timeout,
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.refreshCmd(),
	)
}

// refreshCmd runs one sync pass off the update loop.
func (m browseModel) refreshCmd() tea.Cmd {
	engine := m.engine
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return syncDoneMsg{err: engine.Refresh(ctx)}
	}
}

// signupCmd submits the form. The coordinator applies the optimistic
// update and kicks off the background reconciliation itself.
func (m browseModel) signupCmd(activity, email string) tea.Cmd {
	coord := m.coord
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return actionDoneMsg{outcome: coord.Signup(ctx, activity, email), signup: true}
	}
}

func (m browseModel) unregisterCmd(activity, email string) tea.Cmd {
	coord := m.coord
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return actionDoneMsg{outcome: coord.Unregister(ctx, activity, email)}
	}
}

// awaitReconcileCmd re-renders once the signup's background refresh has
// landed.
func (m browseModel) awaitReconcileCmd() tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		coord.Wait()
		return reconciledMsg{}
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The confirmation prompt is modal: nothing else reacts until
		// the user answers.
		if m.confirming != nil {
			return m.handleConfirmKey(msg)
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.notes.Close()
			return m, tea.Quit

		case tea.KeyTab:
			if m.focus == focusForm {
				m.focus = focusRoster
				m.emailInput.Blur()
				if m.selectedRow < 0 && len(m.tree.Rows()) > 0 {
					m.selectedRow = 0
				}
			} else {
				m.focus = focusForm
				m.emailInput.Focus()
			}
			m.syncViewport()
			return m, nil

		case tea.KeyEnter:
			if m.focus == focusForm && !m.isLoading {
				return m.handleSubmit()
			}

		case tea.KeyLeft:
			if m.focus == focusForm {
				m.cycleActivity(-1)
				return m, nil
			}

		case tea.KeyRight:
			if m.focus == focusForm {
				m.cycleActivity(1)
				return m, nil
			}

		case tea.KeyUp:
			if m.focus == focusRoster {
				m.moveRow(-1)
				return m, nil
			}

		case tea.KeyDown:
			if m.focus == focusRoster {
				m.moveRow(1)
				return m, nil
			}
		}

		switch msg.String() {
		case "r":
			if m.focus == focusRoster && !m.syncing {
				m.syncing = true
				return m, tea.Batch(m.spinner.Tick, m.refreshCmd())
			}
		case "x", "delete":
			if m.focus == focusRoster && !m.isLoading {
				return m.beginConfirm()
			}
		case "q":
			if m.focus == focusRoster {
				m.notes.Close()
				return m, tea.Quit
			}
		}

		if m.focus == focusForm && !m.isLoading {
			m.emailInput, tiCmd = m.emailInput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		formHeight := 3
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-headerHeight-formHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - headerHeight - formHeight - footerHeight
		}
		m.emailInput.Width = msg.Width - 20
		m.syncViewport()

	case spinner.TickMsg:
		if m.isLoading || m.syncing {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case syncDoneMsg:
		m.syncing = false
		m.refreshTree()

	case actionDoneMsg:
		m.isLoading = false
		m.refreshTree()
		if msg.outcome.OK && msg.signup {
			// Reset the form the way a successful submit clears it.
			m.emailInput.Reset()
			m.selectedActivity = -1
			return m, m.awaitReconcileCmd()
		}

	case reconciledMsg:
		m.refreshTree()

	case notifyChangedMsg:
		// Visibility changed; nothing to recompute, just re-render.
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

// handleSubmit validates the form and fires the signup.
func (m browseModel) handleSubmit() (tea.Model, tea.Cmd) {
	email := strings.TrimSpace(m.emailInput.Value())
	if email == "" || m.selectedActivity < 0 || m.selectedActivity >= len(m.tree.Names) {
		m.notes.Post("Select an activity and enter your email first.", notify.KindError)
		return m, nil
	}
	m.isLoading = true
	activity := m.tree.Names[m.selectedActivity]
	return m, tea.Batch(m.spinner.Tick, m.signupCmd(activity, email))
}

// beginConfirm opens the modal unregister prompt for the selected row.
func (m browseModel) beginConfirm() (tea.Model, tea.Cmd) {
	rows := m.tree.Rows()
	if m.selectedRow < 0 || m.selectedRow >= len(rows) {
		return m, nil
	}
	row := rows[m.selectedRow]
	m.confirming = &confirmState{Activity: row.Activity, Email: row.Email}
	return m, nil
}

// handleConfirmKey resolves the modal prompt. Declining leaves all
// state untouched; ctrl+c still quits the program.
func (m browseModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.notes.Close()
		return m, tea.Quit
	}
	switch msg.String() {
	case "y", "Y":
		c := *m.confirming
		m.confirming = nil
		m.isLoading = true
		return m, tea.Batch(m.spinner.Tick, m.unregisterCmd(c.Activity, c.Email))
	case "n", "N", "esc":
		m.confirming = nil
		return m, nil
	}
	return m, nil
}

func (m *browseModel) cycleActivity(delta int) {
	n := len(m.tree.Names)
	if n == 0 {
		m.selectedActivity = -1
		return
	}
	// The placeholder (-1) sits before the first option.
	next := m.selectedActivity + delta
	if next < -1 {
		next = n - 1
	}
	if next >= n {
		next = -1
	}
	m.selectedActivity = next
}

func (m *browseModel) moveRow(delta int) {
	rows := m.tree.Rows()
	if len(rows) == 0 {
		m.selectedRow = -1
		return
	}
	next := m.selectedRow + delta
	if next < 0 {
		next = 0
	}
	if next >= len(rows) {
		next = len(rows) - 1
	}
	m.selectedRow = next
	m.syncViewport()
}

// refreshTree pulls a fresh snapshot and clamps selection state that a
// reconciliation may have invalidated.
func (m *browseModel) refreshTree() {
	m.tree = m.renderer.Snapshot()

	if m.selectedActivity >= len(m.tree.Names) {
		m.selectedActivity = -1
	}
	if rows := m.tree.Rows(); m.selectedRow >= len(rows) {
		m.selectedRow = len(rows) - 1
	}
	m.syncViewport()
}

func (m *browseModel) syncViewport() {
	selected := -1
	if m.focus == focusRoster {
		selected = m.selectedRow
	}
	m.viewport.SetContent(ui.RenderTree(m.tree, m.styles, m.viewport.Width, selected))
}

func (m browseModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Header.Render("Roster — Activity Signup"))
	b.WriteString("\n")

	msg, visible := m.notes.Current()
	if note := ui.RenderNotification(msg, visible, m.styles); note != "" {
		b.WriteString(note)
	}
	b.WriteString("\n")

	form := lipgloss.JoinVertical(lipgloss.Left,
		ui.RenderSelect(m.tree.Names, m.selectedActivity, m.styles),
		m.emailInput.View(),
	)
	b.WriteString(form)
	b.WriteString("\n")

	if m.isLoading || m.syncing {
		b.WriteString(m.spinner.View())
		b.WriteString(m.styles.Muted.Render(" working..."))
		b.WriteString("\n")
	}

	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m browseModel) footer() string {
	if m.confirming != nil {
		return m.styles.Warning.Render(
			fmt.Sprintf("Unregister %s from %s? (y/n)", m.confirming.Email, m.confirming.Activity))
	}
	if m.focus == focusForm {
		return m.styles.Footer.Render("←/→ pick activity • enter sign up • tab roster • esc quit")
	}
	return m.styles.Footer.Render("↑/↓ select participant • x unregister • r refresh • tab form • q quit")
}

// stylesForTheme honors an explicit theme choice and falls back to
// terminal detection when the config leaves it unset.
func stylesForTheme(theme string) ui.Styles {
	switch theme {
	case "dark":
		return ui.NewStyles(ui.DarkTheme())
	case "light":
		return ui.NewStyles(ui.LightTheme())
	default:
		return ui.DefaultStyles()
	}
}

// runBrowse launches the interactive interface.
func runBrowse(cfg config.Config) error {
	client := api.New(cfg.ServerURL)

	styles := stylesForTheme(cfg.Theme)

	m := newBrowseModel(cfg, client, styles)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Expiry of the 5s notification timer must repaint the screen.
	m.notes.SetOnChange(func() { p.Send(notifyChangedMsg{}) })

	_, err := p.Run()
	m.coord.Wait()
	m.notes.Close()
	if err != nil {
		return fmt.Errorf("interactive interface failed: %w", err)
	}
	return nil
}
