// # cmd/sparrow/ui.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sparrow/internal/core/app"
	"sparrow/internal/core/ports"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
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
	report     ports.StatusReport
	lastUpdate time.Time
}

type updateMsg struct {
	report ports.StatusReport
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
		m.report = msg.report
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, v := range m.report.Views {
			items = append(items, item{
				title: fmt.Sprintf("View %s", v.Name),
				desc:  fmt.Sprintf("%d nodes, %d relationships", v.Nodes, v.Relationships),
			})
		}
		for _, lc := range m.report.Summary.Labels {
			items = append(items, item{
				title: fmt.Sprintf("Label %s", lc.Label),
				desc:  fmt.Sprintf("%d nodes", lc.Count),
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	s := m.report.Summary
	status := statusStyle.Render(fmt.Sprintf("Last build: %v | %d nodes | %d relationships | build #%d",
		m.lastUpdate.Format("15:04:05"), s.Nodes, s.Relationships, m.report.Rebuilds))

	var summary string
	if s.Nodes == 0 {
		summary = emptyStyle.Render("⚠️  Empty Graph")
	} else {
		summary = successStyle.Render(fmt.Sprintf("✅ degree mean=%.2f p90=%.1f max=%d",
			s.MeanDegree, s.P90Degree, s.MaxDegree))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Sparrow Graph Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Labels & Views"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

func runUI(ctx context.Context, application *app.App) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	application.SetUpdateHandler(func(report ports.StatusReport) {
		p.Send(updateMsg{report: report})
	})

	// Seed the UI with the completed initial build.
	go func() {
		report, err := application.EngineService().Status(ctx)
		if err == nil {
			p.Send(updateMsg{report: report})
		}
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
