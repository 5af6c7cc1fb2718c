package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/auth"
	"github.com/dukerupert/smartshop/internal/dashboard"
	"github.com/dukerupert/smartshop/internal/errors"
	ws "github.com/dukerupert/smartshop/internal/websocket"
)

// maxImportSize caps a catalogue CSV upload.
const maxImportSize = 10 << 20

type DashboardHandler struct {
	*Responder
	logger *slog.Logger
}

func NewDashboardHandler(rs *Responder, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{Responder: rs, logger: logger}
}

// Home renders the signed-in role's dashboard. A failed load still renders
// the page, empty, with an error toast.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok || ac.Entry == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	d, err := dashboard.ForRole(ac.Role, ac.Entry.Store.Client())
	if err != nil {
		h.fail(w, r, errors.Forbidden(err.Error()))
		return
	}
	data, err := d.Load(r.Context())
	if err != nil {
		if errors.Is(err, errors.ErrUnauthorized) {
			h.expire(w, r)
			return
		}
		h.logger.Warn("dashboard load failed", "role", ac.Role, "error", err)
		h.notify(w, r, ws.Error("Erro ao carregar o painel", userMessage(err)))
		data = nil
	}
	h.page(w, r, d.Template(), http.StatusOK, "Início", data)
}

// ImportProducts forwards a company's catalogue CSV to the backend.
func (h *DashboardHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, errors.Validation("Selecione um arquivo CSV.", map[string][]string{"file": {"Selecione um arquivo CSV."}}))
		return
	}
	defer file.Close()

	if ext := filepath.Ext(header.Filename); ext != ".csv" {
		h.fail(w, r, errors.Validation("O arquivo deve ser CSV.", map[string][]string{"file": {"O arquivo deve ser CSV."}}))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, errors.Internal("falha ao ler arquivo").WithCause(err))
		return
	}

	res, err := entry(r).Store.Client().ImportProducts(r.Context(), api.File{
		Field:       "file",
		Name:        filepath.Base(header.Filename),
		ContentType: "text/csv",
		Data:        data,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	msg := "Produtos importados."
	if res != nil {
		msg = res.Message
		if msg == "" {
			msg = fmt.Sprintf("%d produtos importados.", res.Imported)
		}
	}
	h.notify(w, r, ws.Success(msg))
	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
