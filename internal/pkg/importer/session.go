package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/credentials"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
)

const (
	// DefaultProvider is the provider tag used when Options.Provider is empty
	DefaultProvider = "aws"

	// DefaultClusterListPath is where a successful commit navigates to
	DefaultClusterListPath = "/settings/clusters"
)

// State is the lifecycle state of an import screen
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(text []byte) error {
	for _, state := range []State{StateIdle, StateLoading, StateLoaded, StateFailed} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state: %s", text)
}

// Navigator moves the user to another screen
type Navigator interface {
	NavigateTo(path string)
}

// NavigatorFunc adapts a function to a Navigator
type NavigatorFunc func(path string)

// NavigateTo calls f
func (f NavigatorFunc) NavigateTo(path string) {
	f(path)
}

// Options tunes a Session
type Options struct {
	Provider         string
	ClusterListPath  string
	EnumerateTimeout time.Duration // zero waits forever
	Logger           *slog.Logger
}

// Load is a pending enumeration for one region change
type Load struct {
	Region     string
	generation uint64
}

// Outcome is the result of a Load
type Outcome struct {
	Region     string
	Candidates []cluster.Config
	Err        error
	generation uint64
}

// Snapshot is a point-in-time copy of the session state for presentation
type Snapshot struct {
	Region     string           `json:"region"`
	State      State            `json:"state"`
	Loading    bool             `json:"loading"`
	Candidates []cluster.Config `json:"candidates"`
	Selected   []string         `json:"selected"`
	Error      string           `json:"error,omitempty"`
	CanCommit  bool             `json:"canCommit"`
	Committed  bool             `json:"committed"`
}

// IsSelected reports whether id was selected when the snapshot was taken
func (s Snapshot) IsSelected(id string) bool {
	for _, selected := range s.Selected {
		if selected == id {
			return true
		}
	}
	return false
}

// Session is the state of one import screen: the current region, its
// candidates, the user's selection and the load/commit lifecycle.
type Session struct {
	credentials credentials.Store
	enumerator  providers.Enumerator
	registry    cluster.Registry
	navigator   Navigator
	opts        Options
	logger      *slog.Logger

	mu         sync.Mutex
	region     string
	generation uint64
	state      State
	candidates []cluster.Config
	err        error
	selection  *Selection
	committing bool
	committed  bool
	observers  []func(Snapshot)
}

// NewSession creates an idle session
func NewSession(store credentials.Store, enumerator providers.Enumerator, registry cluster.Registry, navigator Navigator, opts Options) *Session {
	if opts.Provider == "" {
		opts.Provider = DefaultProvider
	}
	if opts.ClusterListPath == "" {
		opts.ClusterListPath = DefaultClusterListPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		credentials: store,
		enumerator:  enumerator,
		registry:    registry,
		navigator:   navigator,
		opts:        opts,
		logger:      logger,
		selection:   NewSelection(),
	}
}

// OnChange registers fn to receive a snapshot after every state change
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observers = append(s.observers, fn)
}

// SetRegion makes region the current target and clears candidates, error and
// selection. It returns the Load to run, or nil when region is empty.
func (s *Session) SetRegion(region string) *Load {
	s.mu.Lock()
	s.generation++
	s.region = region
	s.candidates = nil
	s.err = nil
	s.selection.Reset()

	var load *Load
	if region == "" {
		s.state = StateIdle
	} else {
		s.state = StateLoading
		load = &Load{Region: region, generation: s.generation}
	}
	generation := s.generation
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("Region changed", "region", region, "generation", generation)
	s.notify(snap)

	return load
}

// Fetch looks up credentials and enumerates clusters for load. It does not
// touch session state; pass the result to Apply.
func (s *Session) Fetch(ctx context.Context, load *Load) (out Outcome) {
	if load == nil {
		return Outcome{}
	}
	out = Outcome{Region: load.Region, generation: load.generation}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Cluster enumeration panicked", "region", load.Region, "panic", r)
			out.Candidates = nil
			out.Err = &EnumerationError{Err: fmt.Errorf("%v", r)}
		}
	}()

	entry, ok := s.credentials.Lookup(load.Region)
	if !ok {
		out.Err = ErrCredentialsNotFound
		return out
	}

	if s.opts.EnumerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.EnumerateTimeout)
		defer cancel()
	}

	descriptors, err := s.enumerator.EnumerateClusters(ctx, entry.AccessKeyID, entry.SecretKey, load.Region)
	if err != nil {
		out.Err = &EnumerationError{Err: err}
		return out
	}

	out.Candidates = NormalizeAll(s.opts.Provider, load.Region, descriptors)
	return out
}

// Apply stores out if it belongs to the current region change and reports
// whether it did. Outcomes of superseded loads are dropped.
func (s *Session) Apply(out Outcome) bool {
	s.mu.Lock()
	if out.generation != s.generation || out.Region != s.region || s.state != StateLoading {
		s.mu.Unlock()
		s.logger.Debug("Discarding stale cluster list", "region", out.Region)
		return false
	}

	if out.Err != nil {
		s.state = StateFailed
		s.err = out.Err
		s.candidates = nil
	} else {
		s.state = StateLoaded
		s.candidates = out.Candidates
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if out.Err != nil {
		s.logger.Warn("Could not load clusters", "region", out.Region, "error", out.Err)
	} else {
		s.logger.Info("Loaded clusters", "region", out.Region, "count", len(out.Candidates))
	}
	s.notify(snap)

	return true
}

// Load runs the whole pipeline for region synchronously and returns its error, if any
func (s *Session) Load(ctx context.Context, region string) error {
	load := s.SetRegion(region)
	if load == nil {
		return nil
	}

	out := s.Fetch(ctx, load)
	s.Apply(out)

	return out.Err
}

// SetSelected adds record to or removes it from the selection
func (s *Session) SetSelected(record cluster.Config, included bool) {
	s.mu.Lock()
	s.selection.SetSelected(record, included)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// SelectByID selects or deselects the candidate with id
func (s *Session) SelectByID(id string, included bool) error {
	s.mu.Lock()
	var record *cluster.Config
	for i := range s.candidates {
		if s.candidates[i].ID == id {
			record = &s.candidates[i]
			break
		}
	}
	if record == nil {
		s.mu.Unlock()
		return fmt.Errorf("cluster %s is not a candidate", id)
	}

	s.selection.SetSelected(*record, included)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// IsSelected reports whether a record with id is selected
func (s *Session) IsSelected(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selection.IsSelected(id)
}

// Commit hands the selection to the registry and navigates to the cluster list.
// A session commits at most once.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.committed || s.committing {
		s.mu.Unlock()
		return ErrAlreadyCommitted
	}
	if s.state == StateFailed {
		s.mu.Unlock()
		return ErrCommitUnavailable
	}
	records := s.selection.Records()
	s.committing = true
	s.mu.Unlock()

	err := s.registry.AddClusters(ctx, records)

	s.mu.Lock()
	s.committing = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to add clusters: %w", err)
	}
	s.committed = true
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("Added clusters", "count", len(records), "region", snap.Region)
	s.notify(snap)
	s.navigator.NavigateTo(s.opts.ClusterListPath)

	return nil
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	candidates := make([]cluster.Config, len(s.candidates))
	copy(candidates, s.candidates)

	snap := Snapshot{
		Region:     s.region,
		State:      s.state,
		Loading:    s.state == StateLoading,
		Candidates: candidates,
		Selected:   s.selection.IDs(),
		CanCommit:  s.state != StateFailed && !s.committed && !s.committing,
		Committed:  s.committed,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}

	return snap
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	observers := make([]func(Snapshot), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
