package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/csvexport"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/format"
	"github.com/dukerupert/smartshop/internal/forms"
	"github.com/dukerupert/smartshop/internal/listctl"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/session"
	"github.com/dukerupert/smartshop/internal/validation"
	ws "github.com/dukerupert/smartshop/internal/websocket"
)

const adminPerPage = 15

// entityForm is an admin create/edit form.
type entityForm interface {
	Validate(v *validation.Validator) error
	Payload() api.Payload
}

type column struct {
	Field    string
	Label    string
	Sortable bool
}

type cell struct {
	Text  string
	Badge string
	Image string
}

type row struct {
	ID      int64
	Deleted bool
	Cells   []cell
}

type choice struct {
	Value string
	Label string
}

type filterSpec struct {
	Name    string
	Label   string
	Options []choice
}

type filterView struct {
	filterSpec
	Value string
}

type filtersView struct {
	Entity  string
	Search  string
	Filters []filterView
}

type tableView struct {
	Entity    string
	Loading   bool
	Err       string
	Rows      []row
	Columns   []column
	SortField string
	SortOrder string
	Pager     pagerView
}

type indexView struct {
	Title   string
	Filters filtersView
	Table   tableView
}

type companyPickerView struct {
	Query    string
	Options  []forms.Option
	Selected []int64
	Hidden   []int64
}

type formView struct {
	Entity     string
	Title      string
	Action     string
	ID         int64
	Form       any
	Errors     forms.FieldErrors
	Statuses   []string
	Plans      []string
	Roles      []model.Role
	Unities    []forms.Option
	Categories []forms.Option
	Companies  companyPickerView
}

// adminEntity is one managed collection under /admin/{entity}.
type adminEntity interface {
	index(w http.ResponseWriter, r *http.Request)
	table(w http.ResponseWriter, r *http.Request)
	toggleDelete(w http.ResponseWriter, r *http.Request)
	export(w http.ResponseWriter, r *http.Request)
	newForm(w http.ResponseWriter, r *http.Request)
	create(w http.ResponseWriter, r *http.Request)
	edit(w http.ResponseWriter, r *http.Request)
	update(w http.ResponseWriter, r *http.Request)
}

// AdminHandler serves the admin management tables and forms.
type AdminHandler struct {
	*Responder
	validate    *validation.Validator
	debounce    time.Duration
	assetOrigin string
	logger      *slog.Logger
	entities    map[string]adminEntity
}

func NewAdminHandler(rs *Responder, v *validation.Validator, debounce time.Duration, assetOrigin string, logger *slog.Logger) *AdminHandler {
	h := &AdminHandler{
		Responder:   rs,
		validate:    v,
		debounce:    debounce,
		assetOrigin: assetOrigin,
		logger:      logger,
	}
	h.entities = map[string]adminEntity{
		"companies": companiesEntity(h),
		"products":  productsEntity(h),
		"users":     usersEntity(h),
	}
	return h
}

func (h *AdminHandler) entity(w http.ResponseWriter, r *http.Request) (adminEntity, bool) {
	e, ok := h.entities[r.PathValue("entity")]
	if !ok {
		h.fail(w, r, errors.NotFound("Página não encontrada."))
	}
	return e, ok
}

func (h *AdminHandler) dispatch(run func(adminEntity, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if e, ok := h.entity(w, r); ok {
			run(e, w, r)
		}
	}
}

func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.index)(w, r)
}

func (h *AdminHandler) Table(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.table)(w, r)
}

func (h *AdminHandler) ToggleDelete(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.toggleDelete)(w, r)
}

func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.export)(w, r)
}

func (h *AdminHandler) New(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.newForm)(w, r)
}

func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.create)(w, r)
}

func (h *AdminHandler) Edit(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.edit)(w, r)
}

func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.dispatch(adminEntity.update)(w, r)
}

// entity is the generic table and form flow for one admin collection.
type entity[T model.SoftDeletable, F entityForm] struct {
	h        *AdminHandler
	name     string
	title    string
	singular string
	resource func(*api.Client) *api.Resource[T]

	columns    []column
	cells      func(T) []cell
	filters    []filterSpec
	descFields []string
	csv        *csvexport.Table[T]

	blank    func() F
	from     func(T) F
	decode   func(*http.Request) (F, error)
	statuses []string
	refs     []refKind
	// view adds entity-specific data to a form render.
	view func(*http.Request, *formView, F, references)
}

func (en *entity[T, F]) controller(e *session.Entry) *listctl.Controller[T] {
	return session.Slot(e, "admin:"+en.name, func() *listctl.Controller[T] {
		return listctl.New[T](en.resource(e.Store.Client()), listctl.Config[T]{
			Entity:     en.name,
			Debounce:   en.h.debounce,
			PerPage:    adminPerPage,
			DescFields: en.descFields,
			CSV:        en.csv,
			Logger:     en.h.logger,
		})
	})
}

func (en *entity[T, F]) tableView(st listctl.State[T]) tableView {
	tv := tableView{
		Entity:    en.name,
		Loading:   st.Loading,
		Columns:   en.columns,
		SortField: st.SortField,
		SortOrder: st.SortOrder,
		Pager: pagerView{
			Pager:   st.Pager(),
			URL:     "/partials/admin/" + en.name,
			Target:  "#admin-table",
			Include: "#admin-filters",
		},
	}
	if st.Err != nil {
		tv.Err = userMessage(st.Err)
	}
	for _, it := range st.Items {
		tv.Rows = append(tv.Rows, row{ID: it.EntityID(), Deleted: it.Deleted(), Cells: en.cells(it)})
	}
	return tv
}

func (en *entity[T, F]) filtersView(st listctl.State[T]) filtersView {
	fv := filtersView{Entity: en.name, Search: st.Search}
	for _, f := range en.filters {
		fv.Filters = append(fv.Filters, filterView{filterSpec: f, Value: st.Filters[f.Name]})
	}
	return fv
}

func (en *entity[T, F]) index(w http.ResponseWriter, r *http.Request) {
	st := en.controller(entry(r)).Mount(r.Context())
	if errors.Is(st.Err, errors.ErrUnauthorized) {
		en.h.expire(w, r)
		return
	}
	if st.Err != nil {
		en.h.notify(w, r, ws.Error("Erro ao carregar "+en.title, userMessage(st.Err)))
	}
	en.h.page(w, r, "admin_index.html", http.StatusOK, en.title, indexView{
		Title:   en.title,
		Filters: en.filtersView(st),
		Table:   en.tableView(st),
	})
}

// table applies one batch of listing input. A page change wins over a
// sort click, which wins over search and filter edits.
func (en *entity[T, F]) table(w http.ResponseWriter, r *http.Request) {
	c := en.controller(entry(r))
	q := r.URL.Query()

	var ticket uint64
	page, paged := queryInt(r, "page")
	switch {
	case paged:
		t, ok := c.ChangePage(page)
		if !ok {
			superseded(w)
			return
		}
		ticket = t
	case q.Get("sort") != "":
		ticket = c.ToggleSort(q.Get("sort"))
	default:
		cur := c.State()
		if q.Has("search") && q.Get("search") != cur.Search {
			ticket = c.SetSearch(q.Get("search"))
		}
		for _, f := range en.filters {
			if !q.Has(f.Name) {
				continue
			}
			v := q.Get(f.Name)
			if v == "all" {
				v = ""
			}
			if v != cur.Filters[f.Name] {
				ticket = c.SetFilter(f.Name, v)
			}
		}
	}

	st := c.State()
	if ticket != 0 {
		var ok bool
		if st, ok = c.Await(r.Context(), ticket); !ok {
			superseded(w)
			return
		}
	}
	if errors.Is(st.Err, errors.ErrUnauthorized) {
		en.h.expire(w, r)
		return
	}
	if paged {
		addTrigger(w, "scrollTop", true)
	}
	en.h.partial(w, "admin-table", http.StatusOK, en.tableView(st))
}

func (en *entity[T, F]) toggleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		en.h.fail(w, r, err)
		return
	}
	action, st, err := en.controller(entry(r)).ToggleDelete(r.Context(), id)
	if err != nil {
		en.h.fail(w, r, err)
		return
	}
	msg := "Registro excluído com sucesso."
	if action == listctl.Restored {
		msg = "Registro restaurado com sucesso."
	}
	en.h.logger.Info("admin toggle delete", "entity", en.name, "id", id, "action", action)
	en.h.notify(w, r, ws.Success(msg))
	en.h.partial(w, "admin-table", http.StatusOK, en.tableView(st))
}

func (en *entity[T, F]) export(w http.ResponseWriter, r *http.Request) {
	name, data, err := en.controller(entry(r)).Export(r.Context())
	if err != nil {
		en.h.fail(w, r, err)
		return
	}
	Download(w, name, "text/csv; charset=utf-8", data)
}

func (en *entity[T, F]) formView(r *http.Request, title, action string, id int64, f F, fe forms.FieldErrors) formView {
	if fe == nil {
		fe = forms.FieldErrors{}
	}
	fv := formView{
		Entity:   en.name,
		Title:    title,
		Action:   action,
		ID:       id,
		Form:     f,
		Errors:   fe,
		Statuses: en.statuses,
	}
	var refs references
	if len(en.refs) > 0 {
		var err error
		if refs, err = refsOf(entry(r)).Get(r.Context(), en.refs...); err != nil {
			en.h.logger.Warn("load form references failed", "entity", en.name, "error", err)
		}
	}
	if en.view != nil {
		en.view(r, &fv, f, refs)
	}
	return fv
}

func (en *entity[T, F]) renderForm(w http.ResponseWriter, r *http.Request, status int, fv formView) {
	if isHTMX(r) {
		en.h.partial(w, "entity-form", status, fv)
		return
	}
	en.h.page(w, r, "admin_form.html", status, fv.Title, fv)
}

func (en *entity[T, F]) newForm(w http.ResponseWriter, r *http.Request) {
	fv := en.formView(r, "Cadastrar "+en.singular, "/admin/"+en.name, 0, en.blank(), nil)
	en.renderForm(w, r, http.StatusOK, fv)
}

func (en *entity[T, F]) edit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		en.h.fail(w, r, err)
		return
	}
	item, err := en.resource(entry(r).Store.Client()).Show(r.Context(), id)
	if err != nil {
		en.h.fail(w, r, err)
		return
	}
	fv := en.formView(r, "Editar "+en.singular, en.itemPath(id), id, en.from(*item), nil)
	en.renderForm(w, r, http.StatusOK, fv)
}

func (en *entity[T, F]) itemPath(id int64) string {
	return "/admin/" + en.name + "/" + strconv.FormatInt(id, 10)
}

func (en *entity[T, F]) create(w http.ResponseWriter, r *http.Request) {
	en.submit(w, r, 0)
}

func (en *entity[T, F]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		en.h.fail(w, r, err)
		return
	}
	en.submit(w, r, id)
}

// submit validates locally, then stores or updates. Every failure with
// field detail re-renders the form with the input kept.
func (en *entity[T, F]) submit(w http.ResponseWriter, r *http.Request, id int64) {
	title, action := "Cadastrar "+en.singular, "/admin/"+en.name
	if id != 0 {
		title, action = "Editar "+en.singular, en.itemPath(id)
	}

	f, decodeErr := en.decode(r)
	if decodeErr != nil && !errors.Is(decodeErr, errors.ErrValidation) {
		en.h.fail(w, r, decodeErr)
		return
	}
	fe := forms.FromError(f.Validate(en.h.validate))
	for k, msgs := range errors.FieldErrors(decodeErr) {
		for _, m := range msgs {
			fe.Add(k, m)
		}
	}
	if !fe.Empty() {
		en.renderForm(w, r, formStatus(r), en.formView(r, title, action, id, f, fe))
		return
	}

	res := en.resource(entry(r).Store.Client())
	var err error
	if id == 0 {
		_, err = res.Store(r.Context(), f.Payload())
	} else {
		_, err = res.Update(r.Context(), id, f.Payload())
	}
	if err != nil {
		if errors.Is(err, errors.ErrValidation) {
			en.renderForm(w, r, formStatus(r), en.formView(r, title, action, id, f, forms.FromError(err)))
			return
		}
		en.h.fail(w, r, err)
		return
	}

	e := entry(r)
	msg := en.singular + " cadastrado(a) com sucesso."
	if id != 0 {
		msg = en.singular + " atualizado(a) com sucesso."
	}
	en.h.logger.Info("admin saved", "entity", en.name, "id", id)
	if en.name == "companies" {
		refsOf(e).Invalidate(refCompanies)
	}
	en.controller(e).Refresh()
	flashOf(e).push(ws.Success(msg))
	redirect(w, r, "/admin/"+en.name)
}

func statusChoices(statuses []string) []choice {
	out := make([]choice, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, choice{Value: s, Label: model.StatusLabel(s)})
	}
	return out
}

func statusCell(status string) cell {
	return cell{Text: model.StatusLabel(status), Badge: status}
}

func deletedLabel(deleted bool) string {
	if deleted {
		return "Excluído"
	}
	return ""
}

func companiesEntity(h *AdminHandler) adminEntity {
	plans := make([]choice, 0, len(forms.CompanyPlans))
	for _, p := range forms.CompanyPlans {
		plans = append(plans, choice{Value: p, Label: model.PlanLabel(p)})
	}
	return &entity[model.Company, forms.Company]{
		h:        h,
		name:     "companies",
		title:    "Empresas",
		singular: "Empresa",
		resource: api.AdminCompanies,
		columns: []column{
			{Field: "name", Label: "Nome", Sortable: true},
			{Field: "cnpj", Label: "CNPJ"},
			{Field: "email", Label: "E-mail", Sortable: true},
			{Field: "plan", Label: "Plano"},
			{Field: "status", Label: "Status", Sortable: true},
			{Field: "created_at", Label: "Criada em", Sortable: true},
		},
		cells: func(c model.Company) []cell {
			return []cell{
				{Text: c.Name, Image: format.FullImageURL(h.assetOrigin, c.Image)},
				{Text: format.CNPJ(c.CNPJ)},
				{Text: c.Email},
				{Text: model.PlanLabel(c.Plan)},
				statusCell(c.Status),
				{Text: format.Date(c.CreatedAt)},
			}
		},
		filters: []filterSpec{
			{Name: "status", Label: "Status", Options: statusChoices(forms.CompanyStatuses)},
			{Name: "plan", Label: "Plano", Options: plans},
		},
		descFields: []string{"created_at"},
		csv: &csvexport.Table[model.Company]{
			Columns: []string{"ID", "Nome", "CNPJ", "E-mail", "Telefone", "Plano", "Status", "Excluída"},
			Row: func(c model.Company) []string {
				return []string{
					strconv.FormatInt(c.ID, 10), c.Name, format.CNPJ(c.CNPJ), c.Email,
					format.Phone(c.Phone), model.PlanLabel(c.Plan), model.StatusLabel(c.Status), deletedLabel(c.Deleted()),
				}
			},
		},
		blank:    forms.NewCompany,
		from:     func(c model.Company) forms.Company { return forms.CompanyFrom(c, h.assetOrigin) },
		decode:   forms.DecodeCompany,
		statuses: forms.CompanyStatuses,
		view: func(_ *http.Request, fv *formView, _ forms.Company, _ references) {
			fv.Plans = forms.CompanyPlans
		},
	}
}

func productsEntity(h *AdminHandler) adminEntity {
	return &entity[model.AdminProduct, forms.Product]{
		h:        h,
		name:     "products",
		title:    "Produtos",
		singular: "Produto",
		resource: api.AdminProducts,
		columns: []column{
			{Field: "name", Label: "Nome", Sortable: true},
			{Field: "sku", Label: "SKU"},
			{Field: "category", Label: "Categoria", Sortable: true},
			{Field: "average_price", Label: "Preço médio", Sortable: true},
			{Field: "status", Label: "Status", Sortable: true},
		},
		cells: func(p model.AdminProduct) []cell {
			return []cell{
				{Text: p.Name, Image: format.FullImageURL(h.assetOrigin, p.Image)},
				{Text: p.SKU},
				{Text: p.Category},
				{Text: format.BRL(p.AveragePrice)},
				statusCell(p.Status),
			}
		},
		filters: []filterSpec{
			{Name: "status", Label: "Status", Options: statusChoices(forms.ProductStatuses)},
		},
		descFields: []string{"average_price", "created_at"},
		csv: &csvexport.Table[model.AdminProduct]{
			Columns: []string{"ID", "Nome", "Quantidade", "Unidade", "SKU", "Preço médio", "Categoria", "Status", "Excluído"},
			Row: func(p model.AdminProduct) []string {
				return []string{
					strconv.FormatInt(p.ID, 10), p.Name, p.Quantity, p.Unity, p.SKU,
					format.BRL(p.AveragePrice), p.Category, model.StatusLabel(p.Status), deletedLabel(p.Deleted()),
				}
			},
		},
		blank:    forms.NewProduct,
		from:     func(p model.AdminProduct) forms.Product { return forms.ProductFrom(p, h.assetOrigin) },
		decode:   forms.DecodeProduct,
		statuses: forms.ProductStatuses,
		refs:     []refKind{refUnities, refCategories},
		view: func(_ *http.Request, fv *formView, p forms.Product, refs references) {
			fv.Unities = forms.UnityPicker(refs.Unities).Filter(p.Unity)
			fv.Categories = forms.CategoryPicker(refs.Categories).Filter(p.Category)
		},
	}
}

func usersEntity(h *AdminHandler) adminEntity {
	roles := make([]choice, 0, len(model.Roles))
	for _, role := range model.Roles {
		roles = append(roles, choice{Value: string(role), Label: role.Label()})
	}
	return &entity[model.User, forms.User]{
		h:        h,
		name:     "users",
		title:    "Usuários",
		singular: "Usuário",
		resource: api.AdminUsers,
		columns: []column{
			{Field: "name", Label: "Nome", Sortable: true},
			{Field: "email", Label: "E-mail", Sortable: true},
			{Field: "type", Label: "Tipo", Sortable: true},
			{Field: "status", Label: "Status", Sortable: true},
			{Field: "created_at", Label: "Criado em", Sortable: true},
		},
		cells: func(u model.User) []cell {
			return []cell{
				{Text: u.Name},
				{Text: u.Email},
				{Text: u.Type.Label()},
				statusCell(u.Status),
				{Text: format.Date(u.CreatedAt)},
			}
		},
		filters: []filterSpec{
			{Name: "type", Label: "Tipo", Options: roles},
			{Name: "status", Label: "Status", Options: statusChoices(forms.UserStatuses)},
		},
		descFields: []string{"created_at"},
		csv: &csvexport.Table[model.User]{
			Columns: []string{"ID", "Nome", "E-mail", "CPF", "Tipo", "Status", "Excluído"},
			Row: func(u model.User) []string {
				return []string{
					strconv.FormatInt(u.ID, 10), u.Name, u.Email, format.CPF(u.CPF),
					u.Type.Label(), model.StatusLabel(u.Status), deletedLabel(u.Deleted()),
				}
			},
		},
		blank:    forms.NewUser,
		from:     forms.UserFrom,
		decode:   forms.DecodeUser,
		statuses: forms.UserStatuses,
		refs:     []refKind{refCompanies},
		view: func(r *http.Request, fv *formView, u forms.User, refs references) {
			fv.Roles = model.Roles
			fv.Companies = companyPicker(forms.CompanyPicker(refs.Companies), r.FormValue("company_q"), u.Companies)
		},
	}
}

// companyPicker shows the options matching query. Selections filtered out
// of view travel as hidden inputs so they survive the next submit.
func companyPicker(p *forms.Picker, query string, selected []int64) companyPickerView {
	v := companyPickerView{Query: query, Options: p.Filter(query), Selected: selected}
	shown := make(map[int64]bool, len(v.Options))
	for _, o := range v.Options {
		shown[o.ID] = true
	}
	for _, id := range selected {
		if !shown[id] {
			v.Hidden = append(v.Hidden, id)
		}
	}
	return v
}

// UserForm re-renders the user form when the account type changes, so the
// company picker appears or goes away.
func (h *AdminHandler) UserForm(w http.ResponseWriter, r *http.Request) {
	en := h.entities["users"].(*entity[model.User, forms.User])
	u, err := forms.DecodeUser(r)
	if err != nil {
		h.fail(w, r, errors.Validation("Formulário inválido.", nil).WithCause(err))
		return
	}
	title, action, id := "Cadastrar "+en.singular, "/admin/users", int64(0)
	if n, err := strconv.ParseInt(r.FormValue("id"), 10, 64); err == nil && n > 0 {
		id = n
		title, action = "Editar "+en.singular, en.itemPath(id)
	}
	h.partial(w, "entity-form", http.StatusOK, en.formView(r, title, action, id, u, nil))
}

// Picker filters a cached reference list as the user types.
func (h *AdminHandler) Picker(w http.ResponseWriter, r *http.Request) {
	refs := refsOf(entry(r))
	switch r.PathValue("ref") {
	case "unities":
		data, err := refs.Get(r.Context(), refUnities)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.partial(w, "picker-options", http.StatusOK, map[string]any{
			"ID":      "unity-options",
			"Options": forms.UnityPicker(data.Unities).Filter(r.FormValue("unity")),
		})
	case "categories":
		data, err := refs.Get(r.Context(), refCategories)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.partial(w, "picker-options", http.StatusOK, map[string]any{
			"ID":      "category-options",
			"Options": forms.CategoryPicker(data.Categories).Filter(r.FormValue("category")),
		})
	case "companies":
		data, err := refs.Get(r.Context(), refCompanies)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := r.ParseForm(); err != nil {
			h.fail(w, r, errors.Validation("Formulário inválido.", nil).WithCause(err))
			return
		}
		var selected []int64
		for _, s := range r.Form["companies"] {
			if id, err := strconv.ParseInt(s, 10, 64); err == nil {
				selected = append(selected, id)
			}
		}
		h.partial(w, "company-picker", http.StatusOK,
			companyPicker(forms.CompanyPicker(data.Companies), r.FormValue("company_q"), selected))
	default:
		h.fail(w, r, errors.NotFound("Página não encontrada."))
	}
}
