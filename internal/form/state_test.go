package form

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

var center = model.Coordinate{Lat: -21.7775479, Lng: -43.3597565}

func TestNew_Defaults(t *testing.T) {
	s := New(center)
	snap := s.Snapshot()

	assert.Equal(t, NoneSelected, snap.UF)
	assert.Equal(t, NoneSelected, snap.City)
	assert.Equal(t, center, snap.Location)
	assert.False(t, snap.Picked)
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Cities)
	assert.Equal(t, SubmitIdle, snap.Status)
}

func TestParseField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    Field
		wantErr bool
	}{
		{"name", FieldName, false},
		{"email", FieldEmail, false},
		{"whatsapp", FieldWhatsapp, false},
		{"uf", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseField(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}
}

func TestSetField_UpdatesOnlyThatField(t *testing.T) {
	s := New(center)

	require.NoError(t, s.SetField(FieldName, "Mercado Verde"))
	snap := s.Snapshot()
	assert.Equal(t, "Mercado Verde", snap.Name)
	assert.Empty(t, snap.Email)
	assert.Empty(t, snap.Whatsapp)

	require.NoError(t, s.SetField(FieldEmail, "a@b.com"))
	require.NoError(t, s.SetField(FieldWhatsapp, "3299"))
	require.NoError(t, s.SetField(FieldName, "Mercado Azul"))

	snap = s.Snapshot()
	assert.Equal(t, "Mercado Azul", snap.Name)
	assert.Equal(t, "a@b.com", snap.Email)
	assert.Equal(t, "3299", snap.Whatsapp)
}

func TestSetField_Unknown(t *testing.T) {
	s := New(center)
	assert.ErrorIs(t, s.SetField(Field(99), "x"), ErrUnknownField)
}

func TestToggleItem_DoubleToggleRestores(t *testing.T) {
	s := New(center)
	s.ToggleItem(3)
	before := s.Snapshot().Items

	assert.True(t, s.ToggleItem(1))
	assert.True(t, s.IsSelected(1))
	assert.False(t, s.ToggleItem(1))
	assert.False(t, s.IsSelected(1))

	assert.Equal(t, before, s.Snapshot().Items)
}

func TestToggleItem_NeverDuplicates(t *testing.T) {
	s := New(center)
	r := rand.New(rand.NewPCG(1, 2))

	want := map[int]bool{}
	for range 500 {
		id := r.IntN(6)
		s.ToggleItem(id)
		want[id] = !want[id]
	}

	items := s.Snapshot().Items
	seen := map[int]bool{}
	for _, id := range items {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	for id, on := range want {
		assert.Equal(t, on, seen[id], "id %d", id)
	}
}

func TestToggleItem_KeepsSelectionOrder(t *testing.T) {
	s := New(center)
	s.ToggleItem(4)
	s.ToggleItem(2)
	s.ToggleItem(9)
	s.ToggleItem(2)

	assert.Equal(t, []int{4, 9}, s.Payload().Items)
}

func TestSelectUF_ResetsCity(t *testing.T) {
	s := New(center)

	req := s.SelectUF("MG")
	require.True(t, req.Fetch)
	assert.Equal(t, "MG", req.UF)
	require.True(t, s.ApplyCities(req.Token, []string{"Juiz de Fora"}))
	s.SelectCity("Juiz de Fora")

	req = s.SelectUF("RJ")
	snap := s.Snapshot()
	assert.Equal(t, "RJ", snap.UF)
	assert.Equal(t, NoneSelected, snap.City)
	assert.Empty(t, snap.Cities)
	assert.True(t, req.Fetch)
}

func TestSelectUF_NoneSkipsFetch(t *testing.T) {
	s := New(center)

	req := s.SelectUF(NoneSelected)
	assert.False(t, req.Fetch)

	req = s.SelectUF("")
	assert.False(t, req.Fetch)
	assert.Equal(t, NoneSelected, s.Snapshot().UF)
}

func TestApplyCities_ReplacesList(t *testing.T) {
	s := New(center)

	req := s.SelectUF("MG")
	require.True(t, s.ApplyCities(req.Token, []string{"Juiz de Fora", "Ubá"}))
	assert.Equal(t, []string{"Juiz de Fora", "Ubá"}, s.Snapshot().Cities)

	req = s.SelectUF("SP")
	require.True(t, s.ApplyCities(req.Token, []string{"Campinas"}))
	assert.Equal(t, []string{"Campinas"}, s.Snapshot().Cities)
}

func TestApplyCities_DropsStaleResponse(t *testing.T) {
	s := New(center)

	slow := s.SelectUF("MG")
	fast := s.SelectUF("RJ")

	require.True(t, s.ApplyCities(fast.Token, []string{"Niterói"}))
	// The MG response arrives after the RJ one and must not win.
	assert.False(t, s.ApplyCities(slow.Token, []string{"Juiz de Fora"}))

	assert.Equal(t, []string{"Niterói"}, s.Snapshot().Cities)
}

func TestPickLocation(t *testing.T) {
	s := New(center)
	assert.Equal(t, center, s.Snapshot().Location)

	s.PickLocation(model.Coordinate{Lat: -21.0, Lng: -43.0})
	snap := s.Snapshot()
	assert.Equal(t, model.Coordinate{Lat: -21.0, Lng: -43.0}, snap.Location)
	assert.True(t, snap.Picked)
}

func TestPayload_SendsUnvalidatedState(t *testing.T) {
	s := New(center)
	p := s.Payload()

	assert.Equal(t, model.PointPayload{
		UF:        NoneSelected,
		City:      NoneSelected,
		Latitude:  center.Lat,
		Longitude: center.Lng,
		Items:     []int{},
	}, p)
}

func TestPayload_FullScenario(t *testing.T) {
	s := New(center)
	require.NoError(t, s.SetField(FieldName, "Mercado Verde"))
	require.NoError(t, s.SetField(FieldEmail, "contato@verde.com"))
	require.NoError(t, s.SetField(FieldWhatsapp, "32999990000"))
	req := s.SelectUF("MG")
	s.ApplyCities(req.Token, []string{"Juiz de Fora"})
	s.SelectCity("Juiz de Fora")
	s.PickLocation(model.Coordinate{Lat: -21.0, Lng: -43.0})
	s.ToggleItem(1)

	p, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, model.PointPayload{
		Name:      "Mercado Verde",
		Email:     "contato@verde.com",
		Whatsapp:  "32999990000",
		UF:        "MG",
		City:      "Juiz de Fora",
		Latitude:  -21.0,
		Longitude: -43.0,
		Items:     []int{1},
	}, p)
}

func TestSubmit_StateMachine(t *testing.T) {
	s := New(center)

	_, err := s.BeginSubmit()
	require.NoError(t, err)
	assert.Equal(t, SubmitInFlight, s.Status())

	_, err = s.BeginSubmit()
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	s.FinishSubmit(errors.New("boom"), "backend unavailable")
	snap := s.Snapshot()
	assert.Equal(t, SubmitIdle, snap.Status)
	assert.Equal(t, "backend unavailable", snap.LastError)

	_, err = s.BeginSubmit()
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().LastError)

	s.FinishSubmit(nil, "")
	assert.Equal(t, SubmitSubmitted, s.Status())

	_, err = s.BeginSubmit()
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestBeginSubmit_ConcurrentOnlyOneWins(t *testing.T) {
	s := New(center)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.BeginSubmit(); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
