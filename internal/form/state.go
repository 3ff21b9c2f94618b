// Package form holds the state of one create-point form and the rules that
// mutate it.
package form

import (
	"errors"
	"slices"
	"sync"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

// NoneSelected is the select value meaning no UF or city has been chosen.
const NoneSelected = "0"

// Field names a free-text input of the form.
type Field int

const (
	FieldName Field = iota + 1
	FieldEmail
	FieldWhatsapp
)

// String returns the input name used by the page for the field.
func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldEmail:
		return "email"
	case FieldWhatsapp:
		return "whatsapp"
	default:
		return "unknown"
	}
}

// ParseField maps an input name to its Field.
func ParseField(name string) (Field, error) {
	switch name {
	case "name":
		return FieldName, nil
	case "email":
		return FieldEmail, nil
	case "whatsapp":
		return FieldWhatsapp, nil
	default:
		return 0, ErrUnknownField
	}
}

// SubmitStatus is the position of the form in its submission lifecycle.
type SubmitStatus string

const (
	SubmitIdle      SubmitStatus = "idle"
	SubmitInFlight  SubmitStatus = "submitting"
	SubmitSubmitted SubmitStatus = "submitted"
)

var (
	ErrUnknownField     = errors.New("form: unknown field")
	ErrSubmitInFlight   = errors.New("form: submission already in progress")
	ErrAlreadySubmitted = errors.New("form: point already submitted")
)

// Snapshot is a read-only copy of the form state.
type Snapshot struct {
	Name      string
	Email     string
	Whatsapp  string
	UF        string
	City      string
	Cities    []string
	Location  model.Coordinate
	Picked    bool
	Items     []int
	Status    SubmitStatus
	LastError string
}

// State is the mutable state of a single form. It is safe for concurrent use.
type State struct {
	mu sync.Mutex

	name     string
	email    string
	whatsapp string

	uf     string
	city   string
	cities []string
	// cityToken identifies the latest city lookup; older responses are dropped.
	cityToken uint64

	location model.Coordinate
	picked   bool

	items []int

	status    SubmitStatus
	lastError string
}

// New creates an empty form whose marker starts at center.
func New(center model.Coordinate) *State {
	return &State{
		uf:       NoneSelected,
		city:     NoneSelected,
		location: center,
		status:   SubmitIdle,
	}
}

// SetField replaces the value of one text field.
func (s *State) SetField(f Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch f {
	case FieldName:
		s.name = value
	case FieldEmail:
		s.email = value
	case FieldWhatsapp:
		s.whatsapp = value
	default:
		return ErrUnknownField
	}
	return nil
}

// CityRequest describes a city lookup the caller must perform after a UF
// change. Fetch is false when the UF was reset to NoneSelected.
type CityRequest struct {
	UF    string
	Token uint64
	Fetch bool
}

// SelectUF changes the selected UF. The city selection and the city options
// are reset because they belong to the previous UF.
func (s *State) SelectUF(uf string) CityRequest {
	if uf == "" {
		uf = NoneSelected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.uf = uf
	s.city = NoneSelected
	s.cities = nil
	s.cityToken++

	return CityRequest{
		UF:    uf,
		Token: s.cityToken,
		Fetch: uf != NoneSelected,
	}
}

// ApplyCities stores the result of the lookup identified by token. It
// returns false and leaves the state untouched when a newer UF selection has
// superseded the request.
func (s *State) ApplyCities(token uint64, cities []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.cityToken {
		return false
	}
	s.cities = slices.Clone(cities)
	return true
}

// SelectCity changes the selected city.
func (s *State) SelectCity(city string) {
	if city == "" {
		city = NoneSelected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = city
}

// PickLocation records the last position clicked on the map.
func (s *State) PickLocation(c model.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = c
	s.picked = true
}

// ToggleItem removes id from the selection when present and adds it
// otherwise. It reports whether id is selected afterwards.
func (s *State) ToggleItem(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.items, id); i >= 0 {
		s.items = slices.Delete(slices.Clone(s.items), i, i+1)
		return false
	}
	s.items = append(slices.Clone(s.items), id)
	return true
}

// IsSelected reports whether the item id is currently selected.
func (s *State) IsSelected(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.items, id)
}

// Payload assembles the submission payload from the current state. No
// validation is applied: empty fields and sentinel regions are sent as-is.
func (s *State) Payload() model.PointPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadLocked()
}

func (s *State) payloadLocked() model.PointPayload {
	items := slices.Clone(s.items)
	if items == nil {
		items = []int{}
	}
	return model.PointPayload{
		Name:      s.name,
		Email:     s.email,
		Whatsapp:  s.whatsapp,
		UF:        s.uf,
		City:      s.city,
		Latitude:  s.location.Lat,
		Longitude: s.location.Lng,
		Items:     items,
	}
}

// BeginSubmit moves the form from idle to submitting and returns the payload
// to send. Only one submission may be in flight at a time.
func (s *State) BeginSubmit() (model.PointPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case SubmitInFlight:
		return model.PointPayload{}, ErrSubmitInFlight
	case SubmitSubmitted:
		return model.PointPayload{}, ErrAlreadySubmitted
	}

	s.status = SubmitInFlight
	s.lastError = ""
	return s.payloadLocked(), nil
}

// FinishSubmit records the outcome of the submission started by
// BeginSubmit. A failure returns the form to idle with the error kept for
// display; a success is terminal.
func (s *State) FinishSubmit(err error, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status = SubmitIdle
		s.lastError = message
		return
	}
	s.status = SubmitSubmitted
	s.lastError = ""
}

// Status returns the submission status.
func (s *State) Status() SubmitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the whole state for rendering.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Name:      s.name,
		Email:     s.email,
		Whatsapp:  s.whatsapp,
		UF:        s.uf,
		City:      s.city,
		Cities:    slices.Clone(s.cities),
		Location:  s.location,
		Picked:    s.picked,
		Items:     slices.Clone(s.items),
		Status:    s.status,
		LastError: s.lastError,
	}
}
