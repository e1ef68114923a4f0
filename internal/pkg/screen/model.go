package screen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/credentials"
	"github.com/jbetancur/kubeimport/internal/pkg/importer"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
	"k8s.io/apimachinery/pkg/util/duration"
	"k8s.io/apimachinery/pkg/util/validation"
)

// ViewType represents the current view being displayed
type ViewType int

const (
	ImportView ViewType = iota
	ClusterListView
)

// Config holds what the screen needs to run an import
type Config struct {
	Credentials credentials.Store
	Enumerator  providers.Enumerator
	Registry    cluster.Registry
	Options     importer.Options
	Region      string
}

// Model represents the application state
type Model struct {
	ctx         context.Context
	session     *importer.Session
	navigator   *pathRecorder
	registry    cluster.Registry
	currentView ViewType

	candidateTable table.Model
	clusterTable   table.Model
	spinner        spinner.Model
	regionInput    textinput.Model
	help           help.Model
	keys           KeyMap

	snapshot      importer.Snapshot
	initialRegion string
	editingRegion bool
	committing    bool
	showHelp      bool
	loadStarted   time.Time
	listPath      string
	width         int
	height        int
	statusMessage string
	errorMessage  string
}

// New creates the import screen for cfg.Region. An empty region starts idle.
func New(ctx context.Context, cfg Config) Model {
	navigator := &pathRecorder{}
	session := importer.NewSession(cfg.Credentials, cfg.Enumerator, cfg.Registry, navigator, cfg.Options)

	candidateTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "", Width: 3},
			{Title: "Name", Width: 40},
			{Title: "API URL", Width: 60},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	candidateTable.SetStyles(table.Styles{
		Selected: selectedRowStyle,
	})

	clusterTable := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 40},
			{Title: "API URL", Width: 60},
			{Title: "Auth", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	clusterTable.SetStyles(table.Styles{
		Selected: selectedRowStyle,
	})

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	input := textinput.New()
	input.Placeholder = "us-east-1"
	input.Prompt = "Region: "
	input.CharLimit = validation.DNS1123LabelMaxLength

	m := Model{
		ctx:            ctx,
		session:        session,
		navigator:      navigator,
		registry:       cfg.Registry,
		currentView:    ImportView,
		candidateTable: candidateTable,
		clusterTable:   clusterTable,
		spinner:        s,
		regionInput:    input,
		help:           help.New(),
		keys:           defaultKeys(),
	}
	m.initialRegion = cfg.Region
	if cfg.Region == "" {
		m.editingRegion = true
		m.regionInput.Focus()
	}
	m.sync()

	return m
}

// Session exposes the import session behind the screen
func (m Model) Session() *importer.Session {
	return m.session
}

func (m Model) Init() tea.Cmd {
	if m.initialRegion == "" {
		return textinput.Blink
	}
	region := m.initialRegion
	return func() tea.Msg {
		return regionMsg{region: region}
	}
}

// startLoad switches the session to region and schedules the enumeration
func (m Model) startLoad(region string) (Model, tea.Cmd) {
	load := m.session.SetRegion(region)
	m.errorMessage = ""
	m.statusMessage = ""
	m.sync()
	m.candidateTable.SetCursor(0)

	if load == nil {
		return m, nil
	}

	m.loadStarted = time.Now()
	return m, tea.Batch(m.spinner.Tick, fetchClusters(m.ctx, m.session, load))
}

// sync copies the session state into the tables and key bindings
func (m *Model) sync() {
	m.snapshot = m.session.Snapshot()

	rows := make([]table.Row, 0, len(m.snapshot.Candidates))
	for _, c := range m.snapshot.Candidates {
		mark := "[ ]"
		if m.snapshot.IsSelected(c.ID) {
			mark = "[x]"
		}
		rows = append(rows, table.Row{mark, c.Name, c.URL})
	}
	m.candidateTable.SetRows(rows)
	// the table clamps the cursor to -1 while empty
	if m.candidateTable.Cursor() < 0 && len(rows) > 0 {
		m.candidateTable.SetCursor(0)
	}

	m.keys.Add.SetEnabled(m.snapshot.CanCommit && !m.snapshot.Loading && !m.committing)
	m.keys.Toggle.SetEnabled(len(rows) > 0)
	m.keys.Apply.SetEnabled(m.editingRegion)
	m.keys.Back.SetEnabled(m.editingRegion)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 6 // Title + status + padding
		footerHeight := 3 // Help view + padding
		tableHeight := max(m.height-headerHeight-footerHeight, 3)

		m.candidateTable.SetHeight(tableHeight)
		m.clusterTable.SetHeight(tableHeight)
		m.help.Width = m.width
		return m, nil

	case regionMsg:
		return m.startLoad(msg.region)

	case spinner.TickMsg:
		if !m.snapshot.Loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		// results of superseded region changes are dropped by the session
		if m.session.Apply(msg.outcome) {
			m.sync()
			if !m.snapshot.Loading && m.snapshot.State == importer.StateLoaded {
				m.statusMessage = fmt.Sprintf("Loaded %d clusters", len(m.snapshot.Candidates))
			}
		}
		return m, nil

	case navigateMsg:
		m.committing = false
		m.sync()
		m.currentView = ClusterListView
		m.listPath = msg.path
		m.errorMessage = ""
		m.statusMessage = fmt.Sprintf("Added %d clusters", len(m.snapshot.Selected))
		return m, loadClusters(m.ctx, m.registry)

	case clustersLoadedMsg:
		m.clusterTable.SetRows(msg.rows)
		m.statusMessage = fmt.Sprintf("Loaded %d clusters", len(msg.rows))
		return m, nil

	case errorMsg:
		m.committing = false
		m.sync()
		m.errorMessage = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if m.editingRegion {
			return m.updateRegionInput(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil
		}

		if m.currentView == ClusterListView {
			if key.Matches(msg, m.keys.Reload) {
				return m, loadClusters(m.ctx, m.registry)
			}
			m.clusterTable, cmd = m.clusterTable.Update(msg)
			return m, cmd
		}

		return m.updateImportView(msg)
	}

	return m, nil
}

func (m Model) updateImportView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Toggle):
		row := m.candidateTable.Cursor()
		if row < 0 || row >= len(m.snapshot.Candidates) {
			return m, nil
		}
		candidate := m.snapshot.Candidates[row]
		m.session.SetSelected(candidate, !m.session.IsSelected(candidate.ID))
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.Add):
		if m.snapshot.State == importer.StateFailed || m.snapshot.Loading || m.committing {
			return m, nil
		}
		m.committing = true
		m.statusMessage = "Adding clusters..."
		m.sync()
		return m, commitSelection(m.ctx, m.session, m.navigator)

	case key.Matches(msg, m.keys.Reload):
		if m.snapshot.Region == "" {
			return m, nil
		}
		return m.startLoad(m.snapshot.Region)

	case key.Matches(msg, m.keys.Region):
		m.editingRegion = true
		m.regionInput.SetValue(m.snapshot.Region)
		m.regionInput.CursorEnd()
		m.sync()
		cmd = m.regionInput.Focus()
		return m, cmd
	}

	m.candidateTable, cmd = m.candidateTable.Update(msg)
	return m, cmd
}

func (m Model) updateRegionInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.editingRegion = false
		m.regionInput.Blur()
		m.sync()
		return m, nil

	case tea.KeyEnter:
		region := strings.TrimSpace(m.regionInput.Value())
		if errs := validation.IsDNS1123Label(region); region != "" && len(errs) > 0 {
			m.errorMessage = fmt.Sprintf("invalid region %q: %s", region, strings.Join(errs, ", "))
			return m, nil
		}
		m.editingRegion = false
		m.regionInput.Blur()
		return m.startLoad(region)
	}

	m.regionInput, cmd = m.regionInput.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.showHelp {
		return "\n" + m.help.View(m.keys)
	}

	var title, content string

	switch m.currentView {
	case ClusterListView:
		title = "Clusters"
		if m.listPath != "" {
			title += " (" + m.listPath + ")"
		}
		content = m.clusterTable.View()

	default:
		title = "Import AWS Clusters"
		if m.snapshot.Region != "" {
			title += " - Region: " + m.snapshot.Region
		}
		content = m.importContent()
	}

	status := " "
	if m.errorMessage != "" {
		status = errorMessageStyle.Render("Error: " + m.errorMessage)
	} else if m.statusMessage != "" {
		status = statusMessageStyle.Render(m.statusMessage)
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		titleStyle.Render(title),
		"\n",
		content,
		"\n",
		status,
		m.help.View(m.keys),
	)
}

func (m Model) importContent() string {
	var parts []string

	if m.editingRegion {
		parts = append(parts, inputStyle.Render(m.regionInput.View()))
	}

	switch m.snapshot.State {
	case importer.StateIdle:
		if !m.editingRegion {
			parts = append(parts, "Press / to choose a region")
		}
	case importer.StateLoading:
		elapsed := duration.HumanDuration(time.Since(m.loadStarted))
		parts = append(parts, fmt.Sprintf("%s Loading clusters... (%s)", m.spinner.View(), elapsed))
	case importer.StateFailed:
		parts = append(parts, errorMessageStyle.Render("Could not load AWS clusters: "+m.snapshot.Error))
	default:
		if len(m.snapshot.Candidates) == 0 {
			parts = append(parts, "No clusters found in "+m.snapshot.Region)
		} else {
			parts = append(parts, m.candidateTable.View())
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
