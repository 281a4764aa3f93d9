package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/Omaralyxt/Lumi-Seller/internal/storefront"
)

const maxUploadBytes = 10 << 20

func (s *Server) getStore(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (s *Server) updateStore(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var upd storefront.StoreUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	if upd.Name != nil && *upd.Name == "" {
		writeError(w, http.StatusBadRequest, "store name cannot be empty")
		return
	}

	updated, err := s.stores.Update(r.Context(), store.ID, upd)
	if err != nil {
		s.logger.Error("update store", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) uploadLogo(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	file, header, err := formFile(r, "logo")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	objectPath := fmt.Sprintf("logos/%s/%d%s", store.ID, time.Now().UnixMilli(), path.Ext(header.Filename))
	url, err := s.objects.Upload(r.Context(), objectPath, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.logger.Error("upload logo", "store_id", store.ID, "err", err)
		writeError(w, http.StatusBadGateway, "logo upload failed")
		return
	}

	updated, err := s.stores.Update(r.Context(), store.ID, storefront.StoreUpdate{LogoURL: &url})
	if err != nil {
		s.logger.Error("save logo url", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnauthorized) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.logger.Error("resolve store", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, errors.New("invalid multipart body")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("missing %q file field", field)
	}
	return file, header, nil
}
