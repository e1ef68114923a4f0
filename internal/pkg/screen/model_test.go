package screen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/credentials"
	"github.com/jbetancur/kubeimport/internal/pkg/importer"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDescriptors = map[string][]providers.Descriptor{
	"us-east-1": {
		{Name: "dev", Endpoint: "https://dev.example.com", CertificateAuthorityData: "ZGV2"},
		{Name: "prod", Endpoint: "https://prod.example.com", CertificateAuthorityData: "cHJvZA=="},
	},
	"eu-west-1": {
		{Name: "eu", Endpoint: "https://eu.example.com"},
	},
}

// flakyRegistry fails the first failures additions
type flakyRegistry struct {
	*cluster.Manager
	failures int
}

func (r *flakyRegistry) AddClusters(ctx context.Context, clusters []cluster.Config) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection refused")
	}
	return r.Manager.AddClusters(ctx, clusters)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T, region string, enumerator providers.Enumerator) (Model, *cluster.Manager) {
	t.Helper()

	registry := cluster.NewManager(discardLogger())
	return newTestModelWithRegistry(t, region, enumerator, registry), registry
}

func newTestModelWithRegistry(t *testing.T, region string, enumerator providers.Enumerator, registry cluster.Registry) Model {
	t.Helper()

	if enumerator == nil {
		enumerator = providers.EnumeratorFunc(func(_ context.Context, _, _, region string) ([]providers.Descriptor, error) {
			return testDescriptors[region], nil
		})
	}

	return New(context.Background(), Config{
		Credentials: credentials.NewMemory(map[string]credentials.Entry{
			"us-east-1": {AccessKeyID: "AKIA...", SecretKey: "secret"},
			"eu-west-1": {AccessKeyID: "AKIB...", SecretKey: "other"},
		}),
		Enumerator: enumerator,
		Registry:   registry,
		Options:    importer.Options{Logger: discardLogger()},
		Region:     region,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()

	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

// runCmd executes cmd and every command of a batch it returns
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}

	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func findMsg[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()

	for _, msg := range msgs {
		if found, ok := msg.(T); ok {
			return found
		}
	}
	var zero T
	require.Failf(t, "message not found", "%T not in %v", zero, msgs)
	return zero
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadRegion feeds the region change and its enumeration result through Update
func loadRegion(t *testing.T, m Model, region string) Model {
	t.Helper()

	m, cmd := update(t, m, regionMsg{region: region})
	loaded := findMsg[loadedMsg](t, runCmd(cmd))
	m, _ = update(t, m, loaded)
	return m
}

func TestInitLoadsInitialRegion(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)

	msgs := runCmd(m.Init())
	assert.Equal(t, regionMsg{region: "us-east-1"}, findMsg[regionMsg](t, msgs))
	assert.False(t, m.editingRegion)
}

func TestInitWithoutRegionEditsRegion(t *testing.T) {
	m, _ := newTestModel(t, "", nil)

	assert.True(t, m.editingRegion)
	assert.Equal(t, importer.StateIdle, m.snapshot.State)
}

func TestLoadShowsCandidates(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)

	m, cmd := update(t, m, regionMsg{region: "us-east-1"})
	assert.True(t, m.snapshot.Loading)
	assert.Contains(t, m.View(), "Loading clusters...")

	m, _ = update(t, m, findMsg[loadedMsg](t, runCmd(cmd)))
	assert.Equal(t, importer.StateLoaded, m.snapshot.State)
	require.Len(t, m.candidateTable.Rows(), 2)
	assert.Equal(t, "[ ]", m.candidateTable.Rows()[0][0])
	assert.Equal(t, "aws_us-east-1_dev", m.candidateTable.Rows()[0][1])
	assert.Equal(t, "Loaded 2 clusters", m.statusMessage)

	view := m.View()
	assert.Contains(t, view, "Region: us-east-1")
	assert.Contains(t, view, "aws_us-east-1_prod")
	assert.Contains(t, view, "add clusters")
}

func TestToggleSelection(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)
	m = loadRegion(t, m, "us-east-1")
	assert.Equal(t, 0, m.candidateTable.Cursor())

	m, _ = update(t, m, keyMsg(" "))
	assert.True(t, m.session.IsSelected("aws_us-east-1_dev"))
	assert.Equal(t, "[x]", m.candidateTable.Rows()[0][0])

	m, _ = update(t, m, keyMsg(" "))
	assert.False(t, m.session.IsSelected("aws_us-east-1_dev"))
	assert.Equal(t, "[ ]", m.candidateTable.Rows()[0][0])
}

func TestAddNavigatesToClusterList(t *testing.T) {
	m, registry := newTestModel(t, "us-east-1", nil)
	m = loadRegion(t, m, "us-east-1")

	m, _ = update(t, m, keyMsg("j"))
	m, _ = update(t, m, keyMsg(" "))
	m, cmd := update(t, m, keyMsg("a"))
	require.NotNil(t, cmd)

	nav := findMsg[navigateMsg](t, runCmd(cmd))
	assert.Equal(t, "/settings/clusters", nav.path)

	m, cmd = update(t, m, nav)
	assert.Equal(t, ClusterListView, m.currentView)
	assert.Equal(t, "Added 1 clusters", m.statusMessage)

	m, _ = update(t, m, findMsg[clustersLoadedMsg](t, runCmd(cmd)))
	require.Len(t, m.clusterTable.Rows(), 1)
	assert.Equal(t, "aws_us-east-1_prod", m.clusterTable.Rows()[0][0])
	assert.Contains(t, m.View(), "/settings/clusters")

	clusters, err := registry.ListClusters(context.Background())
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "https://prod.example.com", clusters[0].URL)
}

func TestCursorStartsAtFirstRowAfterReload(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)
	m = loadRegion(t, m, "us-east-1")

	m, _ = update(t, m, keyMsg("j"))
	assert.Equal(t, 1, m.candidateTable.Cursor())

	m, cmd := update(t, m, keyMsg("r"))
	m, _ = update(t, m, findMsg[loadedMsg](t, runCmd(cmd)))
	assert.Equal(t, 0, m.candidateTable.Cursor())

	m, _ = update(t, m, keyMsg(" "))
	assert.True(t, m.session.IsSelected("aws_us-east-1_dev"))
	assert.False(t, m.session.IsSelected("aws_us-east-1_prod"))
}

func TestAddIgnoredWhileCommitting(t *testing.T) {
	m, registry := newTestModel(t, "us-east-1", nil)
	m = loadRegion(t, m, "us-east-1")
	m, _ = update(t, m, keyMsg(" "))

	m, commit := update(t, m, keyMsg("a"))
	require.NotNil(t, commit)
	assert.True(t, m.committing)
	assert.NotContains(t, m.View(), "add clusters")

	m, cmd := update(t, m, keyMsg("a"))
	assert.Nil(t, cmd)

	m, _ = update(t, m, findMsg[navigateMsg](t, runCmd(commit)))
	assert.False(t, m.committing)
	assert.Empty(t, m.errorMessage)
	assert.Equal(t, ClusterListView, m.currentView)

	clusters, err := registry.ListClusters(context.Background())
	require.NoError(t, err)
	assert.Len(t, clusters, 1)
}

func TestAddAvailableAgainAfterRegistryFailure(t *testing.T) {
	registry := &flakyRegistry{Manager: cluster.NewManager(discardLogger()), failures: 1}
	m := newTestModelWithRegistry(t, "us-east-1", nil, registry)
	m = loadRegion(t, m, "us-east-1")
	m, _ = update(t, m, keyMsg(" "))

	m, cmd := update(t, m, keyMsg("a"))
	errMsg := findMsg[errorMsg](t, runCmd(cmd))
	m, _ = update(t, m, errMsg)
	assert.False(t, m.committing)
	assert.Equal(t, ImportView, m.currentView)
	assert.Contains(t, m.View(), "Error: failed to add clusters: connection refused")

	m, cmd = update(t, m, keyMsg("a"))
	require.NotNil(t, cmd)
	assert.Equal(t, "/settings/clusters", findMsg[navigateMsg](t, runCmd(cmd)).path)

	clusters, err := registry.ListClusters(context.Background())
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "aws_us-east-1_dev", clusters[0].ID)
}

func TestFailedLoadHidesAdd(t *testing.T) {
	m, _ := newTestModel(t, "ap-south-1", nil)
	m = loadRegion(t, m, "ap-south-1")

	assert.Equal(t, importer.StateFailed, m.snapshot.State)
	view := m.View()
	assert.Contains(t, view, "Could not load AWS clusters: could not find AWS credentials")
	assert.NotContains(t, view, "add clusters")

	_, cmd := update(t, m, keyMsg("a"))
	assert.Nil(t, cmd)
}

func TestEnumerationErrorShownVerbatim(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", providers.EnumeratorFunc(func(context.Context, string, string, string) ([]providers.Descriptor, error) {
		return nil, errors.New("AccessDeniedException: not authorized")
	}))
	m = loadRegion(t, m, "us-east-1")

	assert.False(t, m.snapshot.Loading)
	assert.Contains(t, m.View(), "Could not load AWS clusters: AccessDeniedException: not authorized")
}

func TestStaleLoadIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)

	m, first := update(t, m, regionMsg{region: "us-east-1"})
	m, second := update(t, m, regionMsg{region: "eu-west-1"})

	m, _ = update(t, m, findMsg[loadedMsg](t, runCmd(second)))
	m, _ = update(t, m, findMsg[loadedMsg](t, runCmd(first)))

	assert.Equal(t, "eu-west-1", m.snapshot.Region)
	require.Len(t, m.candidateTable.Rows(), 1)
	assert.Equal(t, "aws_eu-west-1_eu", m.candidateTable.Rows()[0][1])
}

func TestReloadRunsPipelineAgain(t *testing.T) {
	calls := 0
	m, _ := newTestModel(t, "us-east-1", providers.EnumeratorFunc(func(_ context.Context, _, _, region string) ([]providers.Descriptor, error) {
		calls++
		return testDescriptors[region], nil
	}))
	m = loadRegion(t, m, "us-east-1")
	m, _ = update(t, m, keyMsg(" "))

	m, cmd := update(t, m, keyMsg("r"))
	assert.Empty(t, m.snapshot.Selected)
	m, _ = update(t, m, findMsg[loadedMsg](t, runCmd(cmd)))

	assert.Equal(t, 2, calls)
	assert.Len(t, m.candidateTable.Rows(), 2)
}

func TestEditRegion(t *testing.T) {
	m, _ := newTestModel(t, "", nil)

	m, _ = update(t, m, keyMsg("eu-west-1"))
	m, cmd := update(t, m, keyMsg("enter"))
	assert.False(t, m.editingRegion)
	assert.True(t, m.snapshot.Loading)

	m, _ = update(t, m, findMsg[loadedMsg](t, runCmd(cmd)))
	assert.Equal(t, "eu-west-1", m.snapshot.Region)
	assert.Len(t, m.candidateTable.Rows(), 1)
}

func TestEditRegionRejectsInvalidName(t *testing.T) {
	m, _ := newTestModel(t, "", nil)

	m, _ = update(t, m, keyMsg("US_EAST"))
	m, cmd := update(t, m, keyMsg("enter"))

	assert.Nil(t, cmd)
	assert.True(t, m.editingRegion)
	assert.Contains(t, m.errorMessage, `invalid region "US_EAST"`)
	assert.Equal(t, importer.StateIdle, m.snapshot.State)
}

func TestEditRegionCancel(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)
	m = loadRegion(t, m, "us-east-1")

	m, _ = update(t, m, keyMsg("/"))
	assert.True(t, m.editingRegion)
	assert.Equal(t, "us-east-1", m.regionInput.Value())

	// q is typed into the input, not treated as quit
	m, _ = update(t, m, keyMsg("q"))
	assert.Equal(t, "us-east-1q", m.regionInput.Value())

	m, _ = update(t, m, keyMsg("esc"))
	assert.False(t, m.editingRegion)
	assert.Equal(t, "us-east-1", m.snapshot.Region)
	assert.Len(t, m.candidateTable.Rows(), 2)
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)
	m = loadRegion(t, m, "us-east-1")

	_, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	m, _ := newTestModel(t, "us-east-1", nil)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 120, m.help.Width)
}
