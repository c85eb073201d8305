package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/Unknumb/SneakerStoreMobile/internal/domain/order"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/session"
	"github.com/Unknumb/SneakerStoreMobile/internal/domain/user"
)

func encodeSession(e *jx.Encoder, st *session.State, pending int64) {
	e.ObjStart()
	e.FieldStart("loggedIn")
	e.Bool(st.LoggedIn())
	if st.LoggedIn() {
		e.FieldStart("username")
		e.Str(st.Username)
	}
	e.FieldStart("favorites")
	e.ArrStart()
	for _, id := range st.Favorites() {
		e.Int(id)
	}
	e.ArrEnd()
	e.FieldStart("pendingWrites")
	e.Int64(pending)
	e.ObjEnd()
}

func (h *Handler) writeSession(w http.ResponseWriter, status int) {
	st, pending := h.session.State(), h.session.Pending()
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeSession(e, st, pending)
	})
}

func (h *Handler) getSession(w http.ResponseWriter, _ *http.Request) {
	h.writeSession(w, http.StatusOK)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var username, password string
	if err := readFields(r, map[string]*string{
		"username": &username,
		"password": &password,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.session.Login(r.Context(), username, password); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSession(w, http.StatusOK)
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) {
	h.session.Logout()
	h.writeSession(w, http.StatusOK)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var reg user.Registration
	if err := readFields(r, map[string]*string{
		"username":         &reg.Username,
		"password":         &reg.Password,
		"confirm_password": &reg.ConfirmPassword,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.session.Register(r.Context(), reg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("username")
		e.Str(u.Username)
		e.ObjEnd()
	})
}

func (h *Handler) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	favorite, err := h.session.ToggleFavorite(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Int(id)
		e.FieldStart("favorite")
		e.Bool(favorite)
		e.ObjEnd()
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	st := h.session.State()
	if !st.LoggedIn() {
		writeError(w, r, user.ErrLoginRequired)
		return
	}
	orders := st.Orders()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		order.EncodeList(e, orders)
	})
}
