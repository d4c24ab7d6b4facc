package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/httputil"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/pagination"
	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/validator"
)

// Sender accepts notifications for delivery. The boolean reports acceptance:
// false means the send was refused by user policy (or an unknown template),
// not that a transport failed.
type Sender interface {
	SendFromTemplate(ctx context.Context, userID, templateID string, variables map[string]string, overrides *domain.SendOverrides) bool
	SendCustom(ctx context.Context, payload *domain.Payload) bool
}

// TemplateCatalog exposes the registered templates.
type TemplateCatalog interface {
	Lookup(id string) (*domain.Template, bool)
	List() []*domain.Template
}

// PreferenceStore reads and merges per-user preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) *domain.Preferences
	Update(ctx context.Context, userID string, update *domain.PreferenceUpdate) (*domain.Preferences, error)
}

// SubscriptionRegistry manages push endpoints.
type SubscriptionRegistry interface {
	Subscribe(ctx context.Context, sub *domain.PushSubscription) error
	Unsubscribe(ctx context.Context, userID, endpoint string) error
}

// HistoryReader serves the delivery log and engine stats.
type HistoryReader interface {
	Query(userID string, limit int) []domain.HistoryEntry
	MarkRead(ctx context.Context, id string, at time.Time) bool
	Stats() domain.Stats
}

// FeedStore serves the durable in-app notification feed.
type FeedStore interface {
	ListNotifications(ctx context.Context, userID string, offset, limit int) ([]domain.Notification, int, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// NotificationHandler handles HTTP requests for notification endpoints.
type NotificationHandler struct {
	sender    Sender
	templates TemplateCatalog
	prefs     PreferenceStore
	subs      SubscriptionRegistry
	history   HistoryReader
	feed      FeedStore
	logger    *slog.Logger
}

// NewNotificationHandler creates a new notification HTTP handler.
func NewNotificationHandler(
	sender Sender,
	templates TemplateCatalog,
	prefs PreferenceStore,
	subs SubscriptionRegistry,
	history HistoryReader,
	feed FeedStore,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		sender:    sender,
		templates: templates,
		prefs:     prefs,
		subs:      subs,
		history:   history,
		feed:      feed,
		logger:    logger,
	}
}

// --- Request DTOs ---

// SendRequest is the JSON request body for an ad hoc notification.
type SendRequest struct {
	UserID    string         `json:"user_id" validate:"required"`
	Title     string         `json:"title" validate:"required,max=200"`
	Body      string         `json:"body" validate:"required,max=2000"`
	Channels  []string       `json:"channels" validate:"required,min=1,dive,oneof=push sms email in_app"`
	Priority  string         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Data      map[string]any `json:"data"`
	ImageURL  string         `json:"image_url" validate:"omitempty,url"`
	ActionURL string         `json:"action_url" validate:"omitempty,url"`
}

// SendTemplateRequest is the JSON request body for a templated notification.
// Channels and Priority, when present, override the template defaults.
type SendTemplateRequest struct {
	UserID     string            `json:"user_id" validate:"required"`
	TemplateID string            `json:"template_id" validate:"required"`
	Variables  map[string]string `json:"variables"`
	Channels   []string          `json:"channels" validate:"omitempty,dive,oneof=push sms email in_app"`
	Priority   string            `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Data       map[string]any    `json:"data"`
	ImageURL   string            `json:"image_url" validate:"omitempty,url"`
	ActionURL  string            `json:"action_url" validate:"omitempty,url"`
}

// SubscribeRequest registers a push endpoint for a user.
type SubscribeRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	Endpoint  string `json:"endpoint" validate:"required,url"`
	P256dh    string `json:"p256dh" validate:"required"`
	Auth      string `json:"auth" validate:"required"`
	UserAgent string `json:"user_agent"`
}

// UnsubscribeRequest removes a push endpoint. The endpoint rides in the body
// because push endpoint URLs are not path-safe.
type UnsubscribeRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// SendResult reports whether a send was accepted for delivery.
type SendResult struct {
	Accepted bool `json:"accepted"`
}

// --- Handlers ---

// Send handles POST /api/v1/notifications/send
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1 MB to prevent abuse.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	payload := &domain.Payload{
		UserID:    req.UserID,
		Title:     req.Title,
		Body:      req.Body,
		Channels:  req.Channels,
		Priority:  req.Priority,
		Data:      req.Data,
		ImageURL:  req.ImageURL,
		ActionURL: req.ActionURL,
	}

	writeSendResult(w, h.sender.SendCustom(r.Context(), payload))
}

// SendTemplate handles POST /api/v1/notifications/send/template
func (h *NotificationHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SendTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Unknown templates are a caller error at this surface, distinct from a
	// policy refusal for a known one.
	if _, ok := h.templates.Lookup(req.TemplateID); !ok {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "NOT_FOUND", Message: "template " + req.TemplateID + " not found"},
		})
		return
	}

	var overrides *domain.SendOverrides
	if req.Channels != nil || req.Priority != "" || req.Data != nil || req.ImageURL != "" || req.ActionURL != "" {
		overrides = &domain.SendOverrides{
			Channels:  req.Channels,
			Priority:  req.Priority,
			Data:      req.Data,
			ImageURL:  req.ImageURL,
			ActionURL: req.ActionURL,
		}
	}

	writeSendResult(w, h.sender.SendFromTemplate(r.Context(), req.UserID, req.TemplateID, req.Variables, overrides))
}

// ListTemplates handles GET /api/v1/notifications/templates
func (h *NotificationHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.templates.List()})
}

// GetPreferences handles GET /api/v1/notifications/preferences/{userID}
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.prefs.Get(r.Context(), userID)})
}

// UpdatePreferences handles PUT /api/v1/notifications/preferences/{userID}
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var update domain.PreferenceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	prefs, err := h.prefs.Update(r.Context(), userID, &update)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: prefs})
}

// Subscribe handles POST /api/v1/notifications/subscriptions
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sub := &domain.PushSubscription{
		UserID:    req.UserID,
		Endpoint:  req.Endpoint,
		P256dh:    req.P256dh,
		Auth:      req.Auth,
		UserAgent: req.UserAgent,
	}
	if err := h.subs.Subscribe(r.Context(), sub); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: sub})
}

// Unsubscribe handles DELETE /api/v1/notifications/subscriptions
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.subs.Unsubscribe(r.Context(), req.UserID, req.Endpoint); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "unsubscribed"}})
}

// GetHistory handles GET /api/v1/notifications/history/{userID}
func (h *NotificationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be a valid integer between 1 and 200"},
			})
			return
		}
		limit = n
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.history.Query(userID, limit)})
}

// GetStats handles GET /api/v1/notifications/stats
func (h *NotificationHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.history.Stats()})
}

// ListUserNotifications handles GET /api/v1/notifications/user/{userID}
func (h *NotificationHandler) ListUserNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	params := pagination.FromRequest(r)

	notifications, total, err := h.feed.ListNotifications(r.Context(), userID, params.Offset, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.Notification](notifications, total, params.Page, params.PerPage))
}

// MarkAsRead handles PUT /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "X-User-ID header is required"},
		})
		return
	}

	if err := h.feed.MarkNotificationRead(r.Context(), userID, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// The delivery log may no longer hold the entry after a restart or trim;
	// the durable feed record above is the source of truth.
	h.history.MarkRead(r.Context(), id.String(), time.Now().UTC())

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "read"}})
}

// writeSendResult maps dispatcher acceptance onto the send endpoints'
// response contract: 202 when queued for delivery, 200 with accepted=false
// when user policy refused the send.
func writeSendResult(w http.ResponseWriter, accepted bool) {
	status := http.StatusAccepted
	if !accepted {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: SendResult{Accepted: accepted}})
}
