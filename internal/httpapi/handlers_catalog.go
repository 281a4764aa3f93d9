package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Omaralyxt/Lumi-Seller/internal/catalog"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	products, err := s.catalogSvc.List(r.Context(), store.ID)
	if err != nil {
		s.logger.Error("list products", "store_id", store.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var in catalog.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}

	product, err := s.catalogSvc.Create(r.Context(), store.ID, in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	product, err := s.catalogSvc.Get(r.Context(), store.ID, chi.URLParam(r, "productID"))
	if err != nil {
		s.respondCatalogError(w, store.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var in catalog.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}

	product, err := s.catalogSvc.Update(r.Context(), store.ID, chi.URLParam(r, "productID"), in)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	if err := s.catalogSvc.Delete(r.Context(), store.ID, chi.URLParam(r, "productID")); err != nil {
		s.respondCatalogError(w, store.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) replaceVariants(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	var req struct {
		Variants []catalog.VariantInput `json:"variants"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	variants, err := s.catalogSvc.ReplaceVariants(r.Context(), store.ID, chi.URLParam(r, "productID"), req.Variants)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": variants})
}

func (s *Server) addProductImage(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	file, header, err := formFile(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	position, _ := strconv.Atoi(r.FormValue("position"))

	img, err := s.catalogSvc.AddImage(r.Context(), store.ID, chi.URLParam(r, "productID"),
		header.Filename, header.Header.Get("Content-Type"), file, position)
	if err != nil {
		s.respondCatalogError(w, store.ID, err)
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

func (s *Server) removeProductImage(w http.ResponseWriter, r *http.Request) {
	store, err := s.storeForRequest(r)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	err = s.catalogSvc.RemoveImage(r.Context(), store.ID, chi.URLParam(r, "productID"), chi.URLParam(r, "imageID"))
	if err != nil {
		s.respondCatalogError(w, store.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondCatalogError(w http.ResponseWriter, storeID string, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	s.logger.Error("catalog operation failed", "store_id", storeID, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
