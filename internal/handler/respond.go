package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/dukerupert/smartshop/internal/auth"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/listctl"
	"github.com/dukerupert/smartshop/internal/middleware"
	"github.com/dukerupert/smartshop/internal/session"
	ws "github.com/dukerupert/smartshop/internal/websocket"
)

// PageData is what the layout template expects.
type PageData struct {
	Title   string
	User    *auth.AuthContext
	Toasts  []ws.Toast
	ToastMS int
	Data    any
}

// pagerView feeds the shared "pager" partial.
type pagerView struct {
	Pager   listctl.Pager
	URL     string
	Target  string
	Include string
}

// flash holds toasts raised before a full page load, typically a redirect.
type flash struct {
	mu     sync.Mutex
	toasts []ws.Toast
}

func (f *flash) push(t ws.Toast) {
	f.mu.Lock()
	f.toasts = append(f.toasts, t)
	f.mu.Unlock()
}

func (f *flash) drain() []ws.Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.toasts
	f.toasts = nil
	return out
}

func (f *flash) Close() { f.drain() }

func flashOf(e *session.Entry) *flash {
	return session.Slot(e, "flash", func() *flash { return &flash{} })
}

// Responder is the shared output side of every handler: pages, partials,
// toasts and error answers.
type Responder struct {
	render *Renderer
	hub    *ws.Hub
	reg    *session.Registry
	logger *slog.Logger
}

func NewResponder(render *Renderer, hub *ws.Hub, reg *session.Registry, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{render: render, hub: hub, reg: reg, logger: logger}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// page renders a full page for the request's user, draining pending toasts.
func (rs *Responder) page(w http.ResponseWriter, r *http.Request, name string, status int, title string, data any) {
	pd := PageData{Title: title, ToastMS: ws.ToastLifetimeMS, Data: data}
	if ac, ok := auth.FromContext(r.Context()); ok {
		pd.User = &ac
		if ac.Entry != nil {
			pd.Toasts = flashOf(ac.Entry).drain()
		}
	}
	rs.render.Page(w, name, status, pd)
}

func (rs *Responder) partial(w http.ResponseWriter, name string, status int, data any) {
	rs.render.Partial(w, name, status, data)
}

// formStatus is 200 for HTMX swaps and 422 for plain form posts.
func formStatus(r *http.Request) int {
	if isHTMX(r) {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

// notify delivers t in-band on HTMX responses, as a flash on the next page
// otherwise, and to the session's other tabs over the websocket. The browser
// drops duplicates by toast id.
func (rs *Responder) notify(w http.ResponseWriter, r *http.Request, t ws.Toast) {
	ac, signedIn := auth.FromContext(r.Context())
	if isHTMX(r) {
		addTrigger(w, "toast", t)
	} else if signedIn && ac.Entry != nil {
		flashOf(ac.Entry).push(t)
	}
	if signedIn && ac.SessionID != 0 {
		rs.hub.Notify(ac.SessionID, t)
	}
}

// addTrigger merges one event into the HX-Trigger header.
func addTrigger(w http.ResponseWriter, event string, detail any) {
	events := map[string]any{}
	if cur := w.Header().Get("HX-Trigger"); cur != "" {
		if err := json.Unmarshal([]byte(cur), &events); err != nil {
			events = map[string]any{cur: true}
		}
	}
	events[event] = detail
	b, err := json.Marshal(events)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(b))
}

// redirect navigates the browser, through HX-Redirect for HTMX requests.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// superseded answers a request whose input was overtaken by a newer one.
// The newer request renders the fragment.
func superseded(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// userMessage is the pt-BR text shown for err.
func userMessage(err error) string {
	switch errors.CodeOf(err) {
	case errors.CodeNetwork:
		return "Não foi possível conectar ao servidor. Tente novamente."
	case errors.CodeUnauthorized:
		return "Sua sessão expirou. Faça login novamente."
	case errors.CodeForbidden:
		return "Você não tem permissão para esta ação."
	case errors.CodeNotFound:
		if msg := errors.Message(err); msg != "" && msg != errors.ErrNotFound.Message {
			return msg
		}
		return "Registro não encontrado."
	case errors.CodeValidation:
		return errors.Message(err)
	}
	return "Ocorreu um erro inesperado."
}

// fail is the single failure channel. An auth failure logs the browser out
// and sends it to the login page; anything else becomes an error toast on
// HTMX requests and the error page otherwise.
func (rs *Responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errors.ErrUnauthorized) {
		rs.expire(w, r)
		return
	}

	status := errors.CodeOf(err).HTTPStatus()
	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetRequestID(r.Context()), "error", err)
	} else {
		rs.logger.Info("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	msg := userMessage(err)
	if isHTMX(r) {
		w.Header().Set("HX-Reswap", "none")
		rs.notify(w, r, ws.Error("Erro", msg))
		w.WriteHeader(status)
		return
	}
	rs.page(w, r, "error.html", status, "Erro", errorView{Status: status, Message: msg})
}

type errorView struct {
	Status  int
	Message string
}

// expire drops a session the backend no longer accepts.
func (rs *Responder) expire(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.Entry != nil {
		ac.Entry.Store.Logout(r.Context())
		rs.hub.Disconnect(ac.SessionID)
	}
	if cookie := middleware.SessionCookie(r); cookie != "" {
		rs.reg.Drop(cookie)
	}
	middleware.ClearSessionCookie(w)
	redirect(w, r, "/login")
}

// entry returns the signed-in browser state. Routes behind RequireAuth
// always have one.
func entry(r *http.Request) *session.Entry {
	ac, _ := auth.FromContext(r.Context())
	return ac.Entry
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.NotFound("")
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
