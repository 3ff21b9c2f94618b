package createpoint

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/giovannicarmo/ecoleta-ui/internal/form"
	"github.com/giovannicarmo/ecoleta-ui/internal/model"
	"github.com/giovannicarmo/ecoleta-ui/internal/resilience"
	"github.com/giovannicarmo/ecoleta-ui/internal/session"
)

// CookieName names the signed cookie session of the browser. It carries
// the id of the last mounted form and the confirmation flash.
const CookieName = "ecoleta"

// formIDKey holds the last mounted form id in the cookie session.
const formIDKey = "form_id"

// formInputs are the inputs posted with the submit that override the
// session's form.
var formInputs = []string{"name", "email", "whatsapp", "uf", "city"}

//go:embed templates/*.html
var templateFS embed.FS

// MapView configures the map picker rendered on the page.
type MapView struct {
	Center      model.Coordinate
	Zoom        int
	TileURL     string
	Attribution string
}

// Handler renders the pages and serves the form events.
type Handler struct {
	svc     *Service
	tmpl    *template.Template
	view    MapView
	cookies sessions.Store
}

// NewHandler parses the embedded templates and creates a Handler. cookies
// stores the browser's cookie session.
func NewHandler(svc *Service, view MapView, cookies sessions.Store) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, eris.Wrap(err, "createpoint: parse templates")
	}
	return &Handler{svc: svc, tmpl: tmpl, view: view, cookies: cookies}, nil
}

type homeView struct {
	Notice string
}

type itemView struct {
	ID       int
	Title    string
	ImageURL string
	Selected bool
}

type pageView struct {
	SessionID string
	Notices   []string
	Error     string
	Form      form.Snapshot
	UFs       []string
	Items     []itemView
	Map       MapView
	None      string
}

// Home renders the landing page, with the confirmation of a point just
// created when there is one.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	var v homeView
	cs := h.cookieSession(r)
	if flashes := cs.Flashes(); len(flashes) > 0 {
		if msg, ok := flashes[0].(string); ok {
			v.Notice = msg
		}
		h.saveCookieSession(w, r, cs)
	}
	h.render(w, http.StatusOK, "home.html", v)
}

// Health reports liveness and session counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.svc.Stats(),
	})
}

// Page mounts a fresh form and renders it. Reloading always starts over;
// forms mounted in other tabs stay live until they expire.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	sess := h.svc.Mount(r.Context())

	cs := h.cookieSession(r)
	cs.Values[formIDKey] = sess.ID
	h.saveCookieSession(w, r, cs)

	h.renderPage(w, http.StatusOK, sess)
}

// SetField stores the value of one text input.
func (h *Handler) SetField(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetField(id, chi.URLParam(r, "field"), r.FormValue("value")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectUF changes the UF and responds with the city options.
func (h *Handler) SelectUF(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	cities, err := h.svc.SelectUF(r.Context(), id, r.FormValue("uf"))
	if errors.Is(err, ErrSessionNotFound) {
		h.writeError(w, err)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  resilience.UserMessage("carregar as cidades", err),
			"cities": []string{},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

// SelectCity changes the city.
func (h *Handler) SelectCity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SelectCity(id, r.FormValue("city")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleItem flips one item and responds with the selected ids.
func (h *Handler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	item, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item id"})
		return
	}
	items, err := h.svc.ToggleItem(id, item)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// PickLocation records a map click and responds with the marker.
func (h *Handler) PickLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	lat, errLat := strconv.ParseFloat(r.FormValue("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.FormValue("lng"), 64)
	if errLat != nil || errLng != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coordinate"})
		return
	}
	data, err := h.svc.PickLocation(id, model.Coordinate{Lat: lat, Lng: lng})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeGeoJSON(w, data)
}

// Marker responds with the current marker.
func (h *Handler) Marker(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	data, err := h.svc.Marker(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeGeoJSON(w, data)
}

// Submit sends the form to the backend and redirects home on success. The
// posted input values are applied first.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id := h.formID(r)
	if id == "" {
		http.Redirect(w, r, "/create-point", http.StatusSeeOther)
		return
	}

	err := h.svc.ApplyInputs(id, postedInputs(r))
	if err == nil {
		err = h.svc.Submit(r.Context(), id)
	}

	switch {
	case err == nil:
		cs := h.cookieSession(r)
		if cs.Values[formIDKey] == id {
			delete(cs.Values, formIDKey)
		}
		cs.AddFlash(CreatedNotice)
		h.saveCookieSession(w, r, cs)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, ErrSessionNotFound):
		http.Redirect(w, r, "/create-point", http.StatusSeeOther)
	case errors.Is(err, form.ErrSubmitInFlight), errors.Is(err, form.ErrAlreadySubmitted):
		h.writeError(w, err)
	default:
		sess, serr := h.svc.Session(id)
		if serr != nil {
			h.writeError(w, serr)
			return
		}
		h.renderPage(w, http.StatusBadGateway, sess)
	}
}

// postedInputs collects the form inputs present in the submit body.
func postedInputs(r *http.Request) map[string]string {
	inputs := make(map[string]string, len(formInputs))
	if err := r.ParseForm(); err != nil {
		return inputs
	}
	for _, name := range formInputs {
		if vals, ok := r.PostForm[name]; ok && len(vals) > 0 {
			inputs[name] = vals[0]
		}
	}
	return inputs
}

func (h *Handler) renderPage(w http.ResponseWriter, status int, sess *session.Session) {
	snap := sess.Form.Snapshot()
	cats := sess.Items()

	items := make([]itemView, 0, len(cats))
	for _, c := range cats {
		items = append(items, itemView{
			ID:       c.ID,
			Title:    c.Title,
			ImageURL: c.ImageURL,
			Selected: sess.Form.IsSelected(c.ID),
		})
	}

	h.render(w, status, "create_point.html", pageView{
		SessionID: sess.ID,
		Notices:   sess.TakeNotices(),
		Error:     snap.LastError,
		Form:      snap,
		UFs:       sess.UFs(),
		Items:     items,
		Map:       h.view,
		None:      form.NoneSelected,
	})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		zap.L().Error("createpoint: render template", zap.String("template", name), zap.Error(err))
	}
}

// formID returns the form the request addresses: the session id the page
// posts with every event, or the last form mounted by this browser.
func (h *Handler) formID(r *http.Request) string {
	if id := r.FormValue("session"); id != "" {
		return id
	}
	id, _ := h.cookieSession(r).Values[formIDKey].(string)
	return id
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := h.formID(r)
	if id == "" {
		h.writeError(w, ErrSessionNotFound)
		return "", false
	}
	return id, true
}

// cookieSession returns the browser's cookie session. A cookie that fails
// to decode yields a fresh session.
func (h *Handler) cookieSession(r *http.Request) *sessions.Session {
	cs, err := h.cookies.Get(r, CookieName)
	if err != nil {
		zap.L().Debug("createpoint: discarding cookie session", zap.Error(err))
	}
	return cs
}

func (h *Handler) saveCookieSession(w http.ResponseWriter, r *http.Request, cs *sessions.Session) {
	if err := cs.Save(r, w); err != nil {
		zap.L().Warn("createpoint: save cookie session", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, form.ErrUnknownField):
		status = http.StatusBadRequest
	case errors.Is(err, form.ErrSubmitInFlight), errors.Is(err, form.ErrAlreadySubmitted):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": errorText(err)})
}

func errorText(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "sessão expirada, recarregue a página"
	case errors.Is(err, form.ErrUnknownField):
		return "campo desconhecido"
	case errors.Is(err, form.ErrSubmitInFlight):
		return "cadastro em andamento"
	case errors.Is(err, form.ErrAlreadySubmitted):
		return "ponto já cadastrado"
	default:
		return "serviço indisponível"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("createpoint: encode response", zap.Error(err))
	}
}

func writeGeoJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
