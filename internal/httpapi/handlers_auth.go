package httpapi

import (
	"errors"
	"net/http"

	"github.com/Omaralyxt/Lumi-Seller/internal/auth"
)

var errUnauthorized = errors.New("unauthorized")

type credentialsResponse struct {
	Token   string        `json:"token"`
	Profile *auth.Profile `json:"profile"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	profile, token, err := s.authSvc.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Every seller account owns a storefront from the moment it exists.
	if _, err := s.stores.Resolve(r.Context(), profile.ID, profile.FirstName); err != nil {
		s.logger.Error("provision default store", "seller_id", profile.ID, "err", err)
	}

	writeJSON(w, http.StatusCreated, credentialsResponse{Token: token, Profile: profile})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	profile, token, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.Error("login", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, credentialsResponse{Token: token, Profile: profile})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := s.authSvc.GetProfile(r.Context(), sellerID)
	if err != nil {
		if errors.Is(err, auth.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.logger.Error("get profile", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var upd auth.ProfileUpdate
	if !decodeBody(w, r, &upd) {
		return
	}

	profile, err := s.authSvc.UpdateProfile(r.Context(), sellerID, upd)
	if err != nil {
		if errors.Is(err, auth.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.logger.Error("update profile", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
