package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atvirokodosprendimai/fundref/internal/application"
	"github.com/atvirokodosprendimai/fundref/internal/domain"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *application.ReferentialService
}

func NewRouter(service *application.ReferentialService) http.Handler {
	h := &Handler{service: service}
	r := chi.NewRouter()

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/funds", h.handleSearchFunds)
		api.Post("/funds", h.handleCreateFund)
		api.Get("/funds/code/{fund_code}", h.handleGetFundByCode)
		api.Get("/funds/{fund_id}", h.handleGetFund)
		api.Patch("/funds/{fund_id}", h.handleUpdateFund)
		api.Get("/funds/{fund_id}/hierarchy/children", h.handleFundChildren)

		api.Get("/hierarchy/{id}", h.handleFullHierarchy)
		api.Get("/hierarchy/{id}/parents", h.handleParents)

		api.Get("/management", h.handleSearchManagement)
		api.Post("/management", h.handleCreateManagement)
		api.Get("/management/{mgmt_id}", h.handleGetManagement)
		api.Patch("/management/{mgmt_id}", h.handleUpdateManagement)
		api.Get("/management/{mgmt_id}/funds", h.handleManagementFunds)

		api.Get("/legal-entities", h.handleSearchLegalEntities)
		api.Post("/legal-entities", h.handleCreateLegalEntity)
		api.Get("/legal-entities/{le_id}", h.handleGetLegalEntity)
		api.Patch("/legal-entities/{le_id}", h.handleUpdateLegalEntity)
		api.Delete("/legal-entities/{le_id}", h.handleDeleteLegalEntity)

		api.Get("/subfunds", h.handleSearchSubFunds)
		api.Post("/subfunds", h.handleCreateSubFund)
		api.Get("/subfunds/{subfund_id}", h.handleGetSubFund)
		api.Patch("/subfunds/{subfund_id}", h.handleUpdateSubFund)

		api.Get("/share-classes", h.handleSearchShareClasses)
		api.Post("/share-classes", h.handleCreateShareClass)
		api.Get("/share-classes/{sc_id}", h.handleGetShareClass)
		api.Patch("/share-classes/{sc_id}", h.handleUpdateShareClass)

		api.Get("/statistics/funds", h.handleFundStatistics)
		api.Get("/statistics/management", h.handleManagementStatistics)
		api.Get("/statistics/dashboard", h.handleDashboardStatistics)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Funds.

var fundQueryFilters = []string{"fund_id", "fund_code", "fund_name", "isin_master", "mgmt_id", "le_id", "fund_type", "status", "base_currency", "domicile"}

func (h *Handler) handleSearchFunds(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.SearchFunds(r.Context(), collectFilters(r.URL.Query(), fundQueryFilters), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetFund(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetFund(r.Context(), chi.URLParam(r, "fund_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleGetFundByCode(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetFundByCode(r.Context(), chi.URLParam(r, "fund_code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleCreateFund(w http.ResponseWriter, r *http.Request) {
	var req domain.Fund
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.CreateFund(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdateFund(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeAttrs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.UpdateFund(r.Context(), chi.URLParam(r, "fund_id"), attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Hierarchy.

func (h *Handler) handleFundChildren(w http.ResponseWriter, r *http.Request) {
	depth, err := depthParam(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.FundDescendants(r.Context(), chi.URLParam(r, "fund_id"), depth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleParents(w http.ResponseWriter, r *http.Request) {
	depth, err := depthParam(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.FundAncestors(r.Context(), chi.URLParam(r, "id"), depth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleFullHierarchy(w http.ResponseWriter, r *http.Request) {
	depth, err := depthParam(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.FundHierarchy(r.Context(), chi.URLParam(r, "id"), depth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Management entities.

var managementQueryFilters = []string{"mgmt_id", "le_id", "registration_no", "domicile", "entity_type", "status"}

func (h *Handler) handleSearchManagement(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.SearchManagementEntities(r.Context(), collectFilters(r.URL.Query(), managementQueryFilters), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetManagement(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetManagementEntity(r.Context(), chi.URLParam(r, "mgmt_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleCreateManagement(w http.ResponseWriter, r *http.Request) {
	var req domain.ManagementEntity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.CreateManagementEntity(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdateManagement(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeAttrs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.UpdateManagementEntity(r.Context(), chi.URLParam(r, "mgmt_id"), attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleManagementFunds(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.FundsByManagementEntity(r.Context(), chi.URLParam(r, "mgmt_id"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Legal entities.

var legalEntityQueryFilters = []string{"le_id", "lei", "legal_name", "jurisdiction", "entity_type"}

func (h *Handler) handleSearchLegalEntities(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.SearchLegalEntities(r.Context(), collectFilters(r.URL.Query(), legalEntityQueryFilters), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetLegalEntity(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetLegalEntity(r.Context(), chi.URLParam(r, "le_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleCreateLegalEntity(w http.ResponseWriter, r *http.Request) {
	var req domain.LegalEntity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.CreateLegalEntity(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdateLegalEntity(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeAttrs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.UpdateLegalEntity(r.Context(), chi.URLParam(r, "le_id"), attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDeleteLegalEntity(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLegalEntity(r.Context(), chi.URLParam(r, "le_id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Sub-funds.

var subFundQueryFilters = []string{"subfund_id", "parent_fund_id", "mgmt_id", "le_id", "isin_sub", "currency"}

func (h *Handler) handleSearchSubFunds(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.SearchSubFunds(r.Context(), collectFilters(r.URL.Query(), subFundQueryFilters), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetSubFund(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetSubFund(r.Context(), chi.URLParam(r, "subfund_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleCreateSubFund(w http.ResponseWriter, r *http.Request) {
	var req domain.SubFund
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.CreateSubFund(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdateSubFund(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeAttrs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.UpdateSubFund(r.Context(), chi.URLParam(r, "subfund_id"), attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Share classes.

var shareClassQueryFilters = []string{"sc_id", "owner_id", "isin_sc", "currency", "distribution", "status"}

func (h *Handler) handleSearchShareClasses(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.SearchShareClasses(r.Context(), collectFilters(r.URL.Query(), shareClassQueryFilters), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetShareClass(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetShareClass(r.Context(), chi.URLParam(r, "sc_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleCreateShareClass(w http.ResponseWriter, r *http.Request) {
	var req domain.ShareClass
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.CreateShareClass(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUpdateShareClass(w http.ResponseWriter, r *http.Request) {
	attrs, err := decodeAttrs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.UpdateShareClass(r.Context(), chi.URLParam(r, "sc_id"), attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Statistics.

func (h *Handler) handleFundStatistics(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.FundStatistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleManagementStatistics(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.ManagementStatistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDashboardStatistics(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.DashboardStatistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Helpers.

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrReferenceNotFound):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrStillReferenced), errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	}
}

func decodeAttrs(r *http.Request) (map[string]any, error) {
	attrs := make(map[string]any)
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	return attrs, nil
}

func collectFilters(query url.Values, names []string) domain.Filters {
	filters := make(domain.Filters)
	for _, name := range names {
		if v := strings.TrimSpace(query.Get(name)); v != "" {
			filters[name] = v
		}
	}
	return filters
}

func pageParams(query url.Values) (int, int, error) {
	page, err := intParam(query, "page")
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intParam(query, "page_size")
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func depthParam(query url.Values) (int, error) {
	return intParam(query, "depth")
}

func intParam(query url.Values, name string) (int, error) {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	return v, nil
}
