// # cmd/recompile/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"recompile/internal/app"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	rebuildStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	planStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	update     app.Update
	lastUpdate time.Time
}

type updateMsg struct {
	update app.Update
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.update = msg.update
		m.lastUpdate = time.Now()

		items := []list.Item{}
		if m.update.Plan.FullRebuild {
			items = append(items, item{
				title: "Full Rebuild",
				desc:  "a changed class has unbounded impact",
			})
		} else {
			for _, class := range m.update.Plan.Classes {
				items = append(items, item{
					title: class,
					desc:  "needs recompilation",
				})
			}
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last pass: %v | %d files | %d classes | %d edges",
		m.lastUpdate.Format("15:04:05"), m.update.FileCount, m.update.ClassCount, m.update.EdgeCount))

	var summary string
	switch {
	case m.update.Plan.FullRebuild:
		summary = rebuildStyle.Render("⚠️  Full Rebuild Required")
	case len(m.update.Plan.Classes) > 0:
		summary = planStyle.Render(fmt.Sprintf("🔨 %d Classes To Recompile", len(m.update.Plan.Classes)))
	default:
		summary = successStyle.Render("✅ Up To Date")
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Recompilation Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Recompilation Plan"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

func runUI(a *app.App) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	a.SetUpdateHandler(func(u app.Update) {
		p.Send(updateMsg{update: u})
	})

	_, err := p.Run()
	return err
}
