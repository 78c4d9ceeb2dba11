package paymentshttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"juristBack/internal/models"
	"juristBack/internal/payments/service"
	"juristBack/internal/payments/sign"
	"juristBack/internal/payments/ws"
)

// CustomerDirectory supplies the payer's stored contact details.
type CustomerDirectory interface {
	Customer(ctx context.Context, userID int64) (models.Customer, error)
}

// Options configures a Handler.
type Options struct {
	// NotifySecret authenticates notifications via the X-Signature header.
	NotifySecret string
	// RequireSignature rejects notifications without a valid signature.
	RequireSignature bool
	Customers        CustomerDirectory
	Logger           *slog.Logger
}

// Handler serves the payments HTTP surface.
type Handler struct {
	svc       *service.Service
	hub       *ws.StatusHub
	customers CustomerDirectory
	notify    *sign.Signer
	requireSn bool
	logger    *slog.Logger
}

// NewHandler builds a Handler. hub may be nil.
func NewHandler(svc *service.Service, hub *ws.StatusHub, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:       svc,
		hub:       hub,
		customers: opts.Customers,
		requireSn: opts.RequireSignature,
		logger:    logger,
	}
	if opts.NotifySecret != "" {
		h.notify = sign.NewSigner(opts.NotifySecret)
	}
	return h
}

type initiateRequest struct {
	PayableType   string            `json:"payable_type"`
	PayableID     int64             `json:"payable_id"`
	Channel       string            `json:"channel"`
	Customer      models.Customer   `json:"customer"`
	Description   string            `json:"description"`
	ReturnContext string            `json:"return_context"`
	Meta          map[string]string `json:"meta"`
}

// Initiate handles POST /payments/initiate.
func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		writeError(w, http.StatusInternalServerError, "payments not initialized")
		return
	}
	var req initiateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInboundBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	customer := req.Customer
	if userID, ok := UserID(ctx); ok && h.customers != nil {
		base, err := h.customers.Customer(ctx, userID)
		if err != nil {
			h.logger.Warn("load customer profile", "user_id", userID, "err", err)
		}
		customer = mergeCustomer(base, req.Customer)
	}
	meta := models.Meta{}
	for k, v := range req.Meta {
		meta[k] = v
	}
	if userID, ok := UserID(ctx); ok {
		meta["user_id"] = strconv.FormatInt(userID, 10)
	}

	res, err := h.svc.Initiate(ctx, service.InitiateInput{
		PayableType:   req.PayableType,
		PayableID:     req.PayableID,
		Channel:       req.Channel,
		Customer:      customer,
		Description:   req.Description,
		ReturnContext: req.ReturnContext,
		Meta:          meta,
	})
	if err != nil {
		h.writeInitiateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeInitiateError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	var gErr *service.GatewayError
	switch {
	case errors.As(err, &vErr):
		status := http.StatusUnprocessableEntity
		if vErr.Code == service.CodePayableNotFound {
			status = http.StatusNotFound
		}
		body := map[string]any{"error": vErr.Code}
		if len(vErr.Fields) > 0 {
			body["fields"] = vErr.Fields
		}
		writeJSON(w, status, body)
	case errors.As(err, &gErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     gErr.Code(),
			"reference": gErr.Reference,
			"code":      gErr.ResponseCode,
			"message":   gErr.Message,
		})
	case errors.Is(err, service.ErrInitiationInProgress), errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "init_in_progress")
	default:
		h.logger.Error("initiate payment", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Notify handles the server-to-server notification. It acknowledges everything
// except an amount mismatch so the processor does not retry forever.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	in, body, err := readInbound(r)
	if err != nil {
		h.logger.Warn("notify: unreadable payload", "err", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	if h.notify != nil {
		signature := strings.TrimSpace(r.Header.Get("X-Signature"))
		valid := signature != "" && h.notify.Verify(body, signature)
		if !valid && (h.requireSn || signature != "") {
			h.logger.Warn("notify: invalid signature", "reference", in.Reference, "remote", r.RemoteAddr)
			writeError(w, http.StatusUnauthorized, "invalid_signature")
			return
		}
	}

	msg := in.message()

	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	_, err = h.svc.Reconcile(ctx, service.ChannelNotify, msg)
	switch {
	case errors.Is(err, service.ErrAmountMismatch):
		writeError(w, http.StatusBadRequest, "amount_mismatch")
		return
	case errors.Is(err, service.ErrNotFound):
		h.logger.Warn("notify: unknown payment", "reference", msg.Reference, "session_id", msg.SessionID)
	case err != nil:
		h.logger.Error("notify: reconcile", "reference", msg.Reference, "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Redirect handles the browser return, GET or POST.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	in, _, err := readInbound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	msg := in.message()

	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	out, err := h.svc.Reconcile(ctx, service.ChannelRedirect, msg)
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "payment_not_found")
		return
	case errors.Is(err, service.ErrAmountMismatch):
		writeError(w, http.StatusBadRequest, "amount_mismatch")
		return
	case err != nil:
		h.logger.Error("redirect: reconcile", "reference", msg.Reference, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, summarize(out.Payment))
}

// Status handles GET /payments/status/:reference.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get(":reference"))
	if reference == "" {
		writeError(w, http.StatusBadRequest, "missing reference")
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	p, err := h.svc.Payment(ctx, reference)
	if errors.Is(err, service.ErrNotFound) {
		writeError(w, http.StatusNotFound, "payment_not_found")
		return
	}
	if err != nil {
		h.logger.Error("payment status", "reference", reference, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, summarize(*p))
}

// History handles GET /payments/payable/:type/:id.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64(r.URL.Query().Get(":id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid payable id")
		return
	}
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	list, err := h.svc.History(ctx, r.URL.Query().Get(":type"), id)
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusUnprocessableEntity, vErr.Code)
		return
	}
	if err != nil {
		h.logger.Error("payment history", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]Summary, 0, len(list))
	for _, p := range list {
		out = append(out, summarize(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// WS handles GET /payments/ws?reference=...
func (h *Handler) WS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusNotFound, "status stream disabled")
		return
	}
	h.hub.ServeWS(w, r)
}

// mergeCustomer lets non-empty request fields override the stored profile.
func mergeCustomer(base, override models.Customer) models.Customer {
	return models.Customer{
		Email:     first(override.Email, base.Email),
		FirstName: first(override.FirstName, base.FirstName),
		LastName:  first(override.LastName, base.LastName),
		Phone:     first(override.Phone, base.Phone),
	}
}
