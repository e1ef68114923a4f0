package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/credentials"
	"github.com/jbetancur/kubeimport/internal/pkg/importer"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
	"k8s.io/apimachinery/pkg/util/validation"
)

// LoadFailureText is the headline of every failed cluster load
const LoadFailureText = "Could not load AWS clusters"

// Client frame actions
const (
	ActionRegion = "region"
	ActionSelect = "select"
	ActionCommit = "commit"
)

// Server frame types
const (
	FrameState    = "state"
	FrameNavigate = "navigate"
	FrameError    = "error"
)

// ClientFrame is a message from an import screen client
type ClientFrame struct {
	Action   string `json:"action"`
	Region   string `json:"region,omitempty"`
	ID       string `json:"id,omitempty"`
	Included bool   `json:"included,omitempty"`
}

// ServerFrame is a message to an import screen client
type ServerFrame struct {
	Type  string             `json:"type"`
	State *importer.Snapshot `json:"state,omitempty"`
	Path  string             `json:"path,omitempty"`
	Error string             `json:"error,omitempty"`
}

type ImportService struct {
	BaseService
	credentials credentials.Store
	enumerator  providers.Enumerator
	registry    cluster.Registry
	opts        importer.Options
}

func NewImportService(store credentials.Store, enumerator providers.Enumerator, registry cluster.Registry, opts importer.Options, logger *slog.Logger) *ImportService {
	opts.Logger = logger
	return &ImportService{
		BaseService: BaseService{Logger: logger},
		credentials: store,
		enumerator:  enumerator,
		registry:    registry,
		opts:        opts,
	}
}

func (s *ImportService) newSession(navigator importer.Navigator) *importer.Session {
	return importer.NewSession(s.credentials, s.enumerator, s.registry, navigator, s.opts)
}

// ListCandidates runs one load for the region in the path and returns its candidates
func (s *ImportService) ListCandidates(c *fiber.Ctx) error {
	region := c.Params("region")
	if msg := invalidRegion(region); msg != "" {
		return s.BadRequest(c, msg)
	}

	s.Logger.Info("Listing candidate clusters", "region", region)

	session := s.newSession(importer.NavigatorFunc(func(string) {}))
	if err := session.Load(c.Context(), region); err != nil {
		if errors.Is(err, importer.ErrCredentialsNotFound) {
			return s.LoadFailure(c, fiber.StatusNotFound, LoadFailureText, err)
		}
		return s.LoadFailure(c, fiber.StatusBadGateway, LoadFailureText, err)
	}

	return c.JSON(session.Snapshot().Candidates)
}

// ImportSession drives one import screen over a websocket. The optional
// region query parameter starts a load right away.
func (s *ImportService) ImportSession(c *websocket.Conn) {
	var (
		writeMu sync.Mutex
		loads   sync.WaitGroup
	)
	defer loads.Wait()

	// cancelled before the wait above so pending loads return
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := func(frame ServerFrame) {
		writeMu.Lock()
		defer writeMu.Unlock()

		if err := c.WriteJSON(frame); err != nil {
			s.Logger.Debug("Failed to write frame", "type", frame.Type, "error", err)
		}
	}
	sendError := func(err error) {
		send(ServerFrame{Type: FrameError, Error: err.Error()})
	}

	session := s.newSession(importer.NavigatorFunc(func(path string) {
		send(ServerFrame{Type: FrameNavigate, Path: path})
	}))
	session.OnChange(func(snap importer.Snapshot) {
		send(ServerFrame{Type: FrameState, State: &snap})
	})

	changeRegion := func(region string) {
		if msg := invalidRegion(region); region != "" && msg != "" {
			sendError(errors.New(msg))
			return
		}

		load := session.SetRegion(region)
		if load == nil {
			return
		}

		loads.Add(1)
		go func() {
			defer loads.Done()
			session.Apply(session.Fetch(ctx, load))
		}()
	}

	initial := session.Snapshot()
	send(ServerFrame{Type: FrameState, State: &initial})

	if region := c.Query("region"); region != "" {
		changeRegion(region)
	}

	for {
		var frame ClientFrame
		if err := c.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.Logger.Warn("Import session closed", "error", err)
			}
			return
		}

		switch frame.Action {
		case ActionRegion:
			changeRegion(strings.TrimSpace(frame.Region))
		case ActionSelect:
			if err := session.SelectByID(frame.ID, frame.Included); err != nil {
				sendError(err)
			}
		case ActionCommit:
			if err := session.Commit(ctx); err != nil {
				sendError(err)
			}
		default:
			sendError(errors.New("unknown action: " + frame.Action))
		}
	}
}

func invalidRegion(region string) string {
	if region == "" {
		return "missing region"
	}
	if errs := validation.IsDNS1123Label(region); len(errs) > 0 {
		return "invalid region " + region + ": " + strings.Join(errs, ", ")
	}
	return ""
}
