package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/auth"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/forms"
	"github.com/dukerupert/smartshop/internal/middleware"
	"github.com/dukerupert/smartshop/internal/session"
	"github.com/dukerupert/smartshop/internal/validation"
	ws "github.com/dukerupert/smartshop/internal/websocket"
)

type AuthHandler struct {
	*Responder
	validate      *validation.Validator
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(rs *Responder, v *validation.Validator, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{Responder: rs, validate: v, secureCookies: secureCookies, logger: logger}
}

type loginView struct {
	Form   forms.Login
	Errors forms.FieldErrors
}

type registerView struct {
	Form   forms.Register
	Errors forms.FieldErrors
}

type verifyView struct {
	Verified bool
	Message  string
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.page(w, r, "login.html", http.StatusOK, "Entrar", loginView{Form: forms.DecodeLogin(r), Errors: forms.FieldErrors{}})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	f := forms.DecodeLogin(r)
	if err := f.Validate(h.validate); err != nil {
		h.page(w, r, "login.html", formStatus(r), "Entrar", loginView{Form: f, Errors: forms.FromError(err)})
		return
	}

	e, old := h.browser(r)
	if err := e.Store.Login(r.Context(), f.Email, f.Password, f.Role); err != nil {
		h.logger.Info("login failed", "email", f.Email, "role", f.Role, "error", err)
		f.Password = ""
		h.page(w, r, "login.html", formStatus(r), "Entrar", loginView{Form: f, Errors: authErrors(err, "E-mail ou senha inválidos.")})
		return
	}

	h.signedIn(w, r, e, old, ws.Success("Login realizado com sucesso!"))
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.page(w, r, "register.html", http.StatusOK, "Criar conta", registerView{Form: forms.DecodeRegister(r), Errors: forms.FieldErrors{}})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	f := forms.DecodeRegister(r)
	if err := f.Validate(h.validate); err != nil {
		h.page(w, r, "register.html", formStatus(r), "Criar conta", registerView{Form: f, Errors: forms.FromError(err)})
		return
	}

	e, old := h.browser(r)
	if err := e.Store.Register(r.Context(), f.Registration()); err != nil {
		h.logger.Info("register failed", "email", f.Email, "error", err)
		h.page(w, r, "register.html", formStatus(r), "Criar conta", registerView{Form: f, Errors: authErrors(err, "Não foi possível criar a conta.")})
		return
	}

	h.signedIn(w, r, e, old, ws.NewToast(ws.LevelSuccess, "Conta criada!", "Enviamos um link de verificação para o seu e-mail."))
}

// browser returns the entry the credentials will be attached to and the
// cookie it was cached under, if any.
func (h *AuthHandler) browser(r *http.Request) (*session.Entry, string) {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.Entry != nil {
		return ac.Entry, ac.Entry.Store.CookieToken()
	}
	return h.reg.Get(r.Context(), ""), ""
}

// signedIn caches the entry under its new cookie and lands on the dashboard.
func (h *AuthHandler) signedIn(w http.ResponseWriter, r *http.Request, e *session.Entry, oldCookie string, t ws.Toast) {
	if oldCookie != "" && oldCookie != e.Store.CookieToken() {
		h.reg.Drop(oldCookie)
	}
	h.reg.Attach(e)
	middleware.SetSessionCookie(w, e.Store.CookieToken(), e.Store.ExpiresAt(), h.secureCookies)
	flashOf(e).push(t)
	redirect(w, r, "/")
}

// authErrors maps a login or registration failure to form errors. Backend
// field errors are shown inline; everything else is a general message.
func authErrors(err error, rejected string) forms.FieldErrors {
	if errors.Is(err, errors.ErrValidation) {
		return forms.FromError(err)
	}
	fe := forms.FieldErrors{}
	if errors.Is(err, errors.ErrUnauthorized) {
		msg := errors.Message(err)
		if msg == errors.ErrUnauthorized.Message {
			msg = rejected
		}
		fe.Add(forms.GeneralKey, msg)
		return fe
	}
	fe.Add(forms.GeneralKey, userMessage(err))
	return fe
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.Entry != nil {
		cookie := ac.Entry.Store.CookieToken()
		ac.Entry.Store.Logout(r.Context())
		h.reg.Drop(cookie)
		h.hub.Disconnect(ac.SessionID)
		h.logger.Info("signed out", "session_id", ac.SessionID)
	}
	middleware.ClearSessionCookie(w)
	redirect(w, r, "/login")
}

// client is the backend client for the request, anonymous when logged out.
func (h *AuthHandler) client(r *http.Request) *api.Client {
	if ac, ok := auth.FromContext(r.Context()); ok && ac.Entry != nil {
		return ac.Entry.Store.Client()
	}
	return h.reg.Get(r.Context(), "").Store.Client()
}

// VerifyEmail follows the signed link from the verification e-mail.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	signed := r.URL.Query().Get("signed_url")
	if signed == "" {
		h.page(w, r, "verify.html", http.StatusBadRequest, "Verificação de e-mail", verifyView{Message: "Link de verificação inválido."})
		return
	}
	if err := h.client(r).VerifyEmail(r.Context(), signed); err != nil {
		h.logger.Info("email verification failed", "error", err)
		msg := "O link de verificação é inválido ou expirou."
		if errors.Is(err, errors.ErrNetwork) {
			msg = userMessage(err)
		}
		h.page(w, r, "verify.html", http.StatusOK, "Verificação de e-mail", verifyView{Message: msg})
		return
	}
	if e := entry(r); e != nil {
		if err := e.Store.Refresh(r.Context()); err != nil {
			h.logger.Warn("refresh identity after verification", "error", err)
		}
	}
	h.page(w, r, "verify.html", http.StatusOK, "Verificação de e-mail", verifyView{Verified: true})
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := entry(r).Store.Client().ResendVerification(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.notify(w, r, ws.Success("E-mail de verificação reenviado."))
	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
