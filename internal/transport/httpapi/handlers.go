package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"pushrelay/internal/dispatch"
	logx "pushrelay/pkg/logx"
)

const (
	serviceName = "E-Baladya Notification Service"
	docsName    = "E-Baladya Push Notification Service"
	docsVersion = "1.0.0"
)

// Dispatcher is the subset of *dispatch.Dispatcher the gateway needs.
type Dispatcher interface {
	ToUser(ctx context.Context, user dispatch.ID, req dispatch.Request) (dispatch.Result, error)
	ToUsers(ctx context.Context, users []dispatch.ID, req dispatch.Request) ([]dispatch.Result, error)
	ToTopic(ctx context.Context, topic string, req dispatch.Request) (dispatch.Result, error)
}

// ReadyFunc reports whether the push sender can deliver.
type ReadyFunc func() bool

// StateFunc reports the scheduler state ("running" or "stopped").
type StateFunc func() string

type handlers struct {
	d         Dispatcher
	validate  *validator.Validate
	log       logx.Logger
	now       func() time.Time
	ready     ReadyFunc
	scheduler StateFunc
}

type sendResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id"`
}

type fanoutResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Results []dispatch.Result `json:"results"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Sender    string `json:"sender"`
	Scheduler string `json:"scheduler"`
}

// bind decodes and validates a payload; it writes the 400 itself and reports false on failure.
func (h *handlers) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decode(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func (h *handlers) notifyUser(w http.ResponseWriter, r *http.Request) {
	var p userPayload
	if !h.bind(w, r, &p) {
		return
	}
	res, err := h.d.ToUser(r.Context(), p.UserID, p.request())
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}
	if !res.Success {
		writeError(w, http.StatusInternalServerError, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Success:   true,
		Message:   "Notification sent successfully",
		MessageID: res.MessageID,
	})
}

func (h *handlers) notifyUsers(w http.ResponseWriter, r *http.Request) {
	var p usersPayload
	if !h.bind(w, r, &p) {
		return
	}
	results, err := h.d.ToUsers(r.Context(), p.UserIDs, p.request())
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fanoutResponse{
		Success: true,
		Message: fmt.Sprintf("Sent notifications to %d users", len(p.UserIDs)),
		Results: results,
	})
}

func (h *handlers) notifyTopic(w http.ResponseWriter, r *http.Request) {
	var p topicPayload
	if !h.bind(w, r, &p) {
		return
	}
	res, err := h.d.ToTopic(r.Context(), p.Topic, p.request())
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}
	if !res.Success {
		writeError(w, http.StatusInternalServerError, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		Success:   true,
		Message:   "Notification sent to topic: " + p.Topic,
		MessageID: res.MessageID,
	})
}

func (h *handlers) writeDispatchError(w http.ResponseWriter, err error) {
	if errors.Is(err, dispatch.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("dispatch failed", logx.Err(err))
	writeError(w, http.StatusInternalServerError, msgInternal)
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	sender := "unavailable"
	if h.ready != nil && h.ready() {
		sender = "ready"
	}
	sched := "stopped"
	if h.scheduler != nil {
		sched = h.scheduler()
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: h.now().Format(dispatch.TimestampLayout),
		Service:   serviceName,
		Sender:    sender,
		Scheduler: sched,
	})
}

func (h *handlers) docs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog)
}
