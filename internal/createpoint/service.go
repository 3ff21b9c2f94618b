// Package createpoint serves the page that registers a collection point.
package createpoint

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/giovannicarmo/ecoleta-ui/internal/form"
	"github.com/giovannicarmo/ecoleta-ui/internal/model"
	"github.com/giovannicarmo/ecoleta-ui/internal/resilience"
	"github.com/giovannicarmo/ecoleta-ui/internal/session"
	"github.com/giovannicarmo/ecoleta-ui/pkg/ecoleta"
)

// CreatedNotice is shown on the home page after a point was created.
const CreatedNotice = "Ponto de Coleta criado!"

// ErrSessionNotFound is returned when the session cookie does not match a
// live session.
var ErrSessionNotFound = errors.New("createpoint: session not found")

// Regions lists UF codes and the city names of a UF.
type Regions interface {
	States(ctx context.Context) ([]string, error)
	Cities(ctx context.Context, uf string) ([]string, error)
}

// Journal records submission attempts.
type Journal interface {
	CreateSubmission(ctx context.Context, p model.PointPayload) (*model.Submission, error)
	CompleteSubmission(ctx context.Context, id string, status model.SubmissionStatus, errMsg string) error
}

// Service drives the create-point form of every session.
type Service struct {
	backend  ecoleta.Client
	regions  Regions
	journal  Journal
	sessions *session.Registry
	center   model.Coordinate
}

// NewService creates a Service. journal may be nil to disable the
// submission journal.
func NewService(backend ecoleta.Client, regions Regions, journal Journal, sessions *session.Registry, center model.Coordinate) *Service {
	return &Service{
		backend:  backend,
		regions:  regions,
		journal:  journal,
		sessions: sessions,
		center:   center,
	}
}

// Mount creates a fresh session and loads the item categories and the UF
// codes concurrently. A failed load leaves its list empty and queues a
// notice on the session.
func (s *Service) Mount(ctx context.Context) *session.Session {
	sess := s.sessions.Create(s.center)

	var (
		items    []model.Category
		ufs      []string
		itemsErr error
		ufsErr   error
	)

	// Each load reports its own failure; neither cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		items, itemsErr = s.backend.ListItems(ctx)
		return nil
	})
	g.Go(func() error {
		ufs, ufsErr = s.regions.States(ctx)
		return nil
	})
	_ = g.Wait()

	if itemsErr != nil {
		zap.L().Warn("createpoint: load items failed", zap.String("session", sess.ID), zap.Error(itemsErr))
		sess.AddNotice(resilience.UserMessage("carregar os itens de coleta", itemsErr))
		items = nil
	}
	if ufsErr != nil {
		zap.L().Warn("createpoint: load states failed", zap.String("session", sess.ID), zap.Error(ufsErr))
		sess.AddNotice(resilience.UserMessage("carregar os estados", ufsErr))
		ufs = nil
	}

	sess.SetCatalog(items, ufs)

	zap.L().Debug("createpoint: mounted",
		zap.String("session", sess.ID),
		zap.Int("items", len(items)),
		zap.Int("ufs", len(ufs)),
	)
	return sess
}

// Session returns the live session with the given id.
func (s *Service) Session(id string) (*session.Session, error) {
	sess := s.sessions.Get(id)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// SetField replaces the value of a named text input.
func (s *Service) SetField(id, name, value string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	f, err := form.ParseField(name)
	if err != nil {
		return err
	}
	return sess.Form.SetField(f, value)
}

// ApplyInputs writes the values the browser posted with the submit over
// the session's form, so field events that arrived out of order cannot win
// over what the inputs show. Keys are input names; unknown keys are ignored.
// A changed UF resets the city before the posted city is applied.
func (s *Service) ApplyInputs(id string, inputs map[string]string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}

	for _, name := range []string{"name", "email", "whatsapp"} {
		v, ok := inputs[name]
		if !ok {
			continue
		}
		f, err := form.ParseField(name)
		if err != nil {
			return err
		}
		if err := sess.Form.SetField(f, v); err != nil {
			return err
		}
	}

	if uf, ok := inputs["uf"]; ok && uf != sess.Form.Snapshot().UF {
		sess.Form.SelectUF(uf)
	}
	if city, ok := inputs["city"]; ok {
		sess.Form.SelectCity(city)
	}
	return nil
}

// SelectUF changes the selected UF and loads its cities. It returns the
// city list the form holds afterwards. When a newer selection superseded
// this one while the lookup was in flight, the newer list is kept.
func (s *Service) SelectUF(ctx context.Context, id, uf string) ([]string, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}

	req := sess.Form.SelectUF(uf)
	if !req.Fetch {
		return []string{}, nil
	}

	cities, err := s.regions.Cities(ctx, req.UF)
	if err != nil {
		zap.L().Warn("createpoint: load cities failed",
			zap.String("session", id),
			zap.String("uf", req.UF),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "createpoint: cities of %s", req.UF)
	}

	if !sess.Form.ApplyCities(req.Token, cities) {
		zap.L().Debug("createpoint: dropped stale city list",
			zap.String("session", id),
			zap.String("uf", req.UF),
		)
	}
	return citiesOrEmpty(sess.Form.Snapshot().Cities), nil
}

// SelectCity changes the selected city.
func (s *Service) SelectCity(id, city string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}
	sess.Form.SelectCity(city)
	return nil
}

// ToggleItem flips the selection of an item and returns the selected ids.
func (s *Service) ToggleItem(id string, item int) ([]int, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	sess.Form.ToggleItem(item)
	return sess.Form.Payload().Items, nil
}

// PickLocation records a map click and returns the marker feature.
func (s *Service) PickLocation(id string, c model.Coordinate) ([]byte, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	sess.Form.PickLocation(c)
	return s.Marker(id)
}

// Marker returns the GeoJSON feature of the session's map marker.
func (s *Service) Marker(id string) ([]byte, error) {
	sess, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	snap := sess.Form.Snapshot()
	return model.MarkerFeature(snap.Location, snap.Picked)
}

// Submit sends the session's form to the backend. On success the form is
// dropped. On failure the form returns to idle with the error message
// recorded for display.
func (s *Service) Submit(ctx context.Context, id string) error {
	sess, err := s.Session(id)
	if err != nil {
		return err
	}

	payload, err := sess.Form.BeginSubmit()
	if err != nil {
		return err
	}

	journalID := s.journalStart(ctx, payload)

	if err := s.backend.CreatePoint(ctx, payload); err != nil {
		zap.L().Error("createpoint: submit failed", zap.String("session", id), zap.Error(err))
		msg := resilience.UserMessage("cadastrar o ponto de coleta", err)
		sess.Form.FinishSubmit(err, msg)
		s.journalFinish(ctx, journalID, model.SubmissionStatusFailed, err.Error())
		return eris.Wrap(err, "createpoint: submit")
	}

	sess.Form.FinishSubmit(nil, "")
	s.journalFinish(ctx, journalID, model.SubmissionStatusCreated, "")
	s.sessions.Delete(id)

	zap.L().Info("createpoint: point created",
		zap.String("session", id),
		zap.String("uf", payload.UF),
		zap.String("city", payload.City),
		zap.Int("items", len(payload.Items)),
	)
	return nil
}

// Stats returns session registry statistics.
func (s *Service) Stats() session.Stats {
	return s.sessions.Stats()
}

func (s *Service) journalStart(ctx context.Context, p model.PointPayload) string {
	if s.journal == nil {
		return ""
	}
	sub, err := s.journal.CreateSubmission(ctx, p)
	if err != nil {
		zap.L().Warn("createpoint: journal submission failed", zap.Error(err))
		return ""
	}
	return sub.ID
}

func (s *Service) journalFinish(ctx context.Context, journalID string, status model.SubmissionStatus, errMsg string) {
	if s.journal == nil || journalID == "" {
		return
	}
	// The backend call may have consumed ctx; the outcome is still recorded.
	if err := s.journal.CompleteSubmission(context.WithoutCancel(ctx), journalID, status, errMsg); err != nil {
		zap.L().Warn("createpoint: journal outcome failed",
			zap.String("submission", journalID),
			zap.Error(err),
		)
	}
}

func citiesOrEmpty(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}
