package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
	"github.com/vyrodovalexey/items-api/internal/store"
	"github.com/vyrodovalexey/items-api/internal/validation"
)

// Version is the application version.
const Version = "1.0.0"

// maxBodyBytes caps request bodies; the largest valid item is well below it.
const maxBodyBytes = 64 << 10

// msgNotFound is returned for ids that do not exist.
const msgNotFound = "Item not found"

// Publisher receives events for successful item mutations.
type Publisher interface {
	Publish(event model.ItemEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.ItemEvent) {}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	store     store.Store
	validator *validation.Validator
	events    Publisher
	logger    *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance. A nil publisher disables events.
func NewRESTHandler(
	s store.Store,
	v *validation.Validator,
	events Publisher,
	logger *zap.Logger,
) *RESTHandler {
	if events == nil {
		events = nopPublisher{}
	}
	return &RESTHandler{
		store:     s,
		validator: v,
		events:    events,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/list", h.ListItems).Methods(http.MethodGet)
	api.HandleFunc("/get/{id}", h.GetItem).Methods(http.MethodGet)
	api.HandleFunc("/create", h.CreateItem).Methods(http.MethodPost)
	api.HandleFunc("/update/{id}", h.UpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/delete/{id}", h.DeleteItem).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
	})
}

// ReadyCheck handles GET /ready requests.
func (h *RESTHandler) ReadyCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
}

// ListItems handles GET /api/list requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.store.List())
}

// GetItem handles GET /api/get/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	item, found := h.store.Get(id)
	if !found {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /api/create requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	candidate, err := h.validator.ValidateCreate(body)
	if err != nil {
		h.handleValidationError(w, err)
		return
	}

	item := h.store.Create(candidate)
	h.logger.Debug("item created", zap.Int64("id", item.ID))
	h.events.Publish(model.NewItemEvent(model.EventItemCreated, item))

	h.writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /api/update/{id} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	patch, err := h.validator.ValidateUpdate(body)
	if err != nil {
		h.handleValidationError(w, err)
		return
	}

	item, found := h.store.Update(id, patch)
	if !found {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	h.logger.Debug("item updated", zap.Int64("id", id))
	h.events.Publish(model.NewItemEvent(model.EventItemUpdated, item))

	h.writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/delete/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if !h.store.Delete(id) {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	h.logger.Debug("item deleted", zap.Int64("id", id))
	h.events.Publish(model.NewItemEvent(model.EventItemDeleted, model.Item{ID: id}))

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route variable, writing a 422 response on failure.
func (h *RESTHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := validation.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.handleValidationError(w, err)
		return 0, false
	}
	return id, true
}

// readBody reads a bounded request body.
func (h *RESTHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		h.logger.Warn("failed to read request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return body, true
}

// handleValidationError maps validation failures to 422 responses.
func (h *RESTHandler) handleValidationError(w http.ResponseWriter, err error) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		h.logger.Error("unexpected validation failure", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Debug("validation failed", zap.Error(err))
	h.writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{
		Code:    http.StatusUnprocessableEntity,
		Message: "validation failed",
		Errors:  verr.Fields,
	})
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data, h.logger)
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
