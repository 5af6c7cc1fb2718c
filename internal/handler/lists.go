package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/forms"
	"github.com/dukerupert/smartshop/internal/listctl"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/session"
	"github.com/dukerupert/smartshop/internal/shopping"
	ws "github.com/dukerupert/smartshop/internal/websocket"
)

// ListHandler serves the client's list builder, list viewer and "My Lists".
type ListHandler struct {
	*Responder
	debounce time.Duration
	logger   *slog.Logger
}

func NewListHandler(rs *Responder, debounce time.Duration, logger *slog.Logger) *ListHandler {
	return &ListHandler{Responder: rs, debounce: debounce, logger: logger}
}

func (h *ListHandler) builder(e *session.Entry) *shopping.Builder {
	return session.Slot(e, "builder", func() *shopping.Builder {
		return shopping.NewBuilder(e.Store.Client(), h.debounce, h.logger)
	})
}

func (h *ListHandler) viewer(e *session.Entry) *shopping.Viewer {
	return session.Slot(e, "viewer", func() *shopping.Viewer {
		return shopping.NewViewer(e.Store.Client())
	})
}

type summariesView struct {
	Items []model.ListSummary
	Pager pagerView
	Err   string
}

func (h *ListHandler) MyLists(w http.ResponseWriter, r *http.Request) {
	page, paged := queryInt(r, "page")
	if page < 1 {
		page = 1
	}

	view := summariesView{}
	res, err := shopping.Summaries(r.Context(), entry(r).Store.Client(), page)
	switch {
	case errors.Is(err, errors.ErrUnauthorized):
		h.expire(w, r)
		return
	case err != nil:
		h.logger.Warn("load lists failed", "page", page, "error", err)
		view.Err = userMessage(err)
		h.notify(w, r, ws.Error("Erro ao carregar listas", view.Err))
	default:
		view.Items = res.Items
		view.Pager = pagerView{Pager: listctl.NewPager(res.Meta), URL: "/lists", Target: "#lists"}
	}

	if isHTMX(r) {
		if paged {
			addTrigger(w, "scrollTop", true)
		}
		h.partial(w, "list-summaries", http.StatusOK, view)
		return
	}
	h.page(w, r, "lists.html", http.StatusOK, "Minhas listas", view)
}

type builderView struct {
	Name    string
	Search  shopping.Search
	Pager   pagerView
	Entries []shopping.Entry
	Total   float64
	Count   int
	Unities []model.Unity
	Errors  forms.FieldErrors
}

func (h *ListHandler) builderView(r *http.Request, b *shopping.Builder, s shopping.Search, fe forms.FieldErrors) builderView {
	refs, err := refsOf(entry(r)).Get(r.Context(), refUnities)
	if err != nil {
		h.logger.Warn("load unities failed", "error", err)
	}
	if fe == nil {
		fe = forms.FieldErrors{}
	}
	return builderView{
		Name:    b.Name(),
		Search:  s,
		Pager:   pagerView{Pager: listctl.NewPager(s.Meta), URL: "/partials/products", Target: "#product-results"},
		Entries: b.Entries(),
		Total:   b.Total(),
		Count:   b.Count(),
		Unities: refs.Unities,
		Errors:  fe,
	}
}

// NewList opens the builder with a fresh catalogue page.
func (h *ListHandler) NewList(w http.ResponseWriter, r *http.Request) {
	b := h.builder(entry(r))
	s, _ := b.AwaitSearch(r.Context(), b.Refresh())
	if errors.Is(s.Err, errors.ErrUnauthorized) {
		h.expire(w, r)
		return
	}
	h.page(w, r, "list_new.html", http.StatusOK, "Nova lista", h.builderView(r, b, s, nil))
}

// ProductsPartial runs a debounced search, or jumps to a result page when
// page is given.
func (h *ListHandler) ProductsPartial(w http.ResponseWriter, r *http.Request) {
	b := h.builder(entry(r))

	var ticket uint64
	page, paged := queryInt(r, "page")
	if paged {
		t, ok := b.SearchPage(page)
		if !ok {
			superseded(w)
			return
		}
		ticket = t
	} else {
		ticket = b.SetSearch(r.URL.Query().Get("search"))
	}

	s, ok := b.AwaitSearch(r.Context(), ticket)
	if !ok {
		superseded(w)
		return
	}
	if errors.Is(s.Err, errors.ErrUnauthorized) {
		h.expire(w, r)
		return
	}
	if paged {
		addTrigger(w, "scrollTop", true)
	}
	h.partial(w, "product-results", http.StatusOK, h.builderView(r, b, s, nil))
}

func (h *ListHandler) renderCart(w http.ResponseWriter, r *http.Request, b *shopping.Builder, status int, fe forms.FieldErrors) {
	h.partial(w, "builder-cart", status, h.builderView(r, b, b.Search(), fe))
}

func (h *ListHandler) BuilderAdd(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b := h.builder(entry(r))
	if !b.AddByID(id) {
		h.fail(w, r, errors.NotFound("Produto não encontrado."))
		return
	}
	h.renderCart(w, r, b, http.StatusOK, nil)
}

func (h *ListHandler) BuilderRemove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b := h.builder(entry(r))
	b.Remove(id)
	h.renderCart(w, r, b, http.StatusOK, nil)
}

func (h *ListHandler) BuilderUnit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b := h.builder(entry(r))
	b.SetUnit(id, r.FormValue("unity"))
	h.renderCart(w, r, b, http.StatusOK, nil)
}

// SaveList persists the builder. Validation failures re-render the cart
// with inline errors and keep every selection.
func (h *ListHandler) SaveList(w http.ResponseWriter, r *http.Request) {
	e := entry(r)
	b := h.builder(e)
	b.SetName(r.FormValue("listName"))

	list, err := b.Save(r.Context())
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			h.renderCart(w, r, b, formStatus(r), forms.FromError(err))
			return
		}
		h.fail(w, r, err)
		return
	}

	flashOf(e).push(ws.Success("Lista criada com sucesso!"))
	// Backends that confirm with an empty body give no id to show.
	if list == nil || list.ID == 0 {
		h.logger.Info("list created", "session_id", e.Store.SessionID())
		redirect(w, r, "/lists")
		return
	}
	h.logger.Info("list created", "list_id", list.ID, "session_id", e.Store.SessionID())
	redirect(w, r, "/lists/"+strconv.FormatInt(list.ID, 10))
}

type listView struct {
	List     model.ShoppingList
	Sections []shopping.Group
	Progress shopping.Progress
}

func viewOf(v *shopping.Viewer) listView {
	l, _ := v.List()
	return listView{List: l, Sections: v.Sections(), Progress: v.Progress()}
}

// loaded returns the viewer holding list id, loading it when the viewer
// shows another list or none.
func (h *ListHandler) loaded(r *http.Request) (*shopping.Viewer, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	v := h.viewer(entry(r))
	if v.Loaded(id) {
		return v, nil
	}
	if err := v.Load(r.Context(), id); err != nil {
		return nil, err
	}
	return v, nil
}

func (h *ListHandler) ShowList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v := h.viewer(entry(r))
	if err := v.Load(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	view := viewOf(v)
	h.page(w, r, "list_show.html", http.StatusOK, view.List.Name, view)
}

func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.loaded(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := pathID(r, "item")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v.ToggleComplete(item)
	h.partial(w, "list-view", http.StatusOK, viewOf(v))
}

// listAction runs one persisted change on the loaded list and re-renders it.
func (h *ListHandler) listAction(w http.ResponseWriter, r *http.Request, run func(*shopping.Viewer) (string, error)) {
	v, err := h.loaded(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	msg, err := run(v)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.notify(w, r, ws.Success(msg))
	if !isHTMX(r) {
		l, _ := v.List()
		http.Redirect(w, r, "/lists/"+strconv.FormatInt(l.ID, 10), http.StatusSeeOther)
		return
	}
	h.partial(w, "list-view", http.StatusOK, viewOf(v))
}

// Optimize only flags the list; grouping by merchant happens on render.
func (h *ListHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	h.listAction(w, r, func(v *shopping.Viewer) (string, error) {
		return "Rota otimizada!", v.RequestOptimization(r.Context())
	})
}

func (h *ListHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.listAction(w, r, func(v *shopping.Viewer) (string, error) {
		return "Lista concluída!", v.MarkComplete(r.Context())
	})
}

func (h *ListHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	h.listAction(w, r, func(v *shopping.Viewer) (string, error) {
		if err := v.ToggleFavorite(r.Context()); err != nil {
			return "", err
		}
		if l, _ := v.List(); l.Favorite {
			return "Lista adicionada aos favoritos.", nil
		}
		return "Lista removida dos favoritos.", nil
	})
}

func (h *ListHandler) Export(w http.ResponseWriter, r *http.Request) {
	v, err := h.loaded(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name, data, err := v.Export(time.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	Download(w, name, "text/csv; charset=utf-8", data)
}
