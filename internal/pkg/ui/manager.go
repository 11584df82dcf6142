// Package ui provides interactive terminal UI components for pgbranch.
package ui

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// BranchItem is one row in the branch selector and branch listing.
type BranchItem struct {
	Branch   string
	Database string
	Current  bool
	IsMain   bool
}

// Spinner provides loading animation functionality.
type Spinner interface {
	Start()
	Stop()
	UpdateText(text string)
}

// Manager defines the interface for UI operations.
type Manager interface {
	SelectBranch(items []BranchItem) (string, error)
	PromptConfirm(message string) (bool, error)
	PromptPassword(user string) (string, error)
	ShowBranchList(items []BranchItem)
	ShowSpinner(text string) Spinner
	ShowError(err error)
	ShowSuccess(message string)
	ShowInfo(message string)
}

// DefaultManager implements the Manager interface using charmbracelet libraries.
type DefaultManager struct {
	colorEnabled bool
	styles       *styles
}

// styles holds the lipgloss styles for UI rendering.
type styles struct {
	title      lipgloss.Style
	current    lipgloss.Style
	branch     lipgloss.Style
	database   lipgloss.Style
	success    lipgloss.Style
	errorStyle lipgloss.Style
	info       lipgloss.Style
}

// NewDefaultManager creates a new DefaultManager.
func NewDefaultManager(colorEnabled bool) *DefaultManager {
	m := &DefaultManager{colorEnabled: colorEnabled}
	m.initStyles()
	return m
}

func (m *DefaultManager) initStyles() {
	if !m.colorEnabled {
		m.styles = &styles{
			title:      lipgloss.NewStyle(),
			current:    lipgloss.NewStyle(),
			branch:     lipgloss.NewStyle(),
			database:   lipgloss.NewStyle(),
			success:    lipgloss.NewStyle(),
			errorStyle: lipgloss.NewStyle(),
			info:       lipgloss.NewStyle(),
		}
		return
	}

	m.styles = &styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")),
		current: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		branch: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		database: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		errorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
	}
}

// branchLabel renders the selector label for an item. The main entry shows
// the template database with a "(main)" marker, and the active branch
// carries a star.
func branchLabel(item BranchItem) string {
	label := item.Branch
	if item.IsMain {
		label = fmt.Sprintf("%s (main)", item.Database)
	}
	if item.Current {
		label = "★ " + label
	}
	return label
}

// SelectBranch prompts the user to pick a branch from the list and returns
// the chosen branch name.
func (m *DefaultManager) SelectBranch(items []BranchItem) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("no branches available")
	}

	options := make([]huh.Option[string], 0, len(items))
	for _, item := range items {
		options = append(options, huh.NewOption(branchLabel(item), item.Branch))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Switch database branch").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

// PromptConfirm prompts the user for a yes/no confirmation.
func (m *DefaultManager) PromptConfirm(message string) (bool, error) {
	confirmed := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(message).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return confirmed, nil
}

// PromptPassword asks for the database password without echoing it.
func (m *DefaultManager) PromptPassword(user string) (string, error) {
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s", user)).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return password, nil
}

// ShowBranchList prints the branch databases, marking the active one.
func (m *DefaultManager) ShowBranchList(items []BranchItem) {
	fmt.Println(m.styles.title.Render("Database branches"))
	for _, item := range items {
		marker := "  "
		branchStyle := m.styles.branch
		if item.Current {
			marker = "★ "
			branchStyle = m.styles.current
		}
		name := item.Branch
		if item.IsMain {
			name = item.Database + " (main)"
		}
		line := fmt.Sprintf("%s%s", marker, branchStyle.Render(name))
		if !item.IsMain {
			line += m.styles.database.Render("  → " + item.Database)
		}
		fmt.Println(line)
	}
}

// ShowError displays an error message to the user.
func (m *DefaultManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, m.styles.errorStyle.Render("Error: "+err.Error()))
}

// ShowSuccess displays a success message to the user.
func (m *DefaultManager) ShowSuccess(message string) {
	fmt.Println(m.styles.success.Render("[OK] " + message))
}

// ShowInfo displays an informational message.
func (m *DefaultManager) ShowInfo(message string) {
	fmt.Println(m.styles.info.Render(message))
}

// ShowSpinner creates and returns a spinner for loading states.
func (m *DefaultManager) ShowSpinner(text string) Spinner {
	return newBubbleSpinner(text)
}

// bubbleSpinner implements Spinner using Bubble Tea.
type bubbleSpinner struct {
	text    string
	program *tea.Program
	model   *spinnerModel
	mu      sync.Mutex
}

type spinnerModel struct {
	spinner  spinner.Model
	text     string
	quitting bool
}

type spinnerTextMsg struct {
	text string
}

type spinnerQuitMsg struct{}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerTextMsg:
		m.text = msg.text
		return m, nil
	case spinnerQuitMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.text)
}

func newBubbleSpinner(text string) *bubbleSpinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &bubbleSpinner{
		text:  text,
		model: &spinnerModel{spinner: s, text: text},
	}
}

func (s *bubbleSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.program = tea.NewProgram(s.model)
	go func() {
		_, _ = s.program.Run()
	}()
}

func (s *bubbleSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		s.program.Send(spinnerQuitMsg{})
		time.Sleep(50 * time.Millisecond)
	}
}

func (s *bubbleSpinner) UpdateText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.text = text
	if s.program != nil {
		s.program.Send(spinnerTextMsg{text: text})
	}
}

// NonInteractiveManager implements Manager for non-interactive contexts
// such as git hooks, where no terminal is attached.
type NonInteractiveManager struct{}

// NewNonInteractiveManager creates a new NonInteractiveManager.
func NewNonInteractiveManager() *NonInteractiveManager {
	return &NonInteractiveManager{}
}

// SelectBranch cannot prompt and returns an error.
func (m *NonInteractiveManager) SelectBranch(items []BranchItem) (string, error) {
	return "", fmt.Errorf("branch selection requires an interactive terminal")
}

// PromptConfirm always returns true in non-interactive mode.
func (m *NonInteractiveManager) PromptConfirm(message string) (bool, error) {
	return true, nil
}

// PromptPassword cannot prompt and returns an empty password.
func (m *NonInteractiveManager) PromptPassword(user string) (string, error) {
	return "", fmt.Errorf("password prompt requires an interactive terminal")
}

// ShowBranchList prints a plain listing.
func (m *NonInteractiveManager) ShowBranchList(items []BranchItem) {
	for _, item := range items {
		marker := "  "
		if item.Current {
			marker = "* "
		}
		if item.IsMain {
			fmt.Printf("%s%s (main)\n", marker, item.Database)
			continue
		}
		fmt.Printf("%s%s -> %s\n", marker, item.Branch, item.Database)
	}
}

// ShowSpinner returns a no-op spinner in non-interactive mode.
func (m *NonInteractiveManager) ShowSpinner(text string) Spinner {
	return &noopSpinner{}
}

// ShowError displays an error message.
func (m *NonInteractiveManager) ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
}

// ShowSuccess displays a success message.
func (m *NonInteractiveManager) ShowSuccess(message string) {
	fmt.Println(message)
}

// ShowInfo displays an informational message.
func (m *NonInteractiveManager) ShowInfo(message string) {
	fmt.Println(message)
}

// noopSpinner is a no-op implementation of Spinner.
type noopSpinner struct{}

func (s *noopSpinner) Start()            {}
func (s *noopSpinner) Stop()             {}
func (s *noopSpinner) UpdateText(string) {}
