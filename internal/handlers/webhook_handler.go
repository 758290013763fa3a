package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/models"
	"github.com/elentis/reconcile/internal/services"
)

type WebhookHandler struct {
	service Reconciler
	log     *logrus.Entry
}

func NewWebhookHandler(service Reconciler) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     logrus.WithField("component", "webhook"),
	}
}

// Receive accepts a rail notification
// @Summary Rail webhook
// @Description Authenticated by the rail's signature headers. Any outcome other than a storage failure is acknowledged with 200 so the rail stops redelivering.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param rail path string true "asset or card"
// @Success 200 {object} object{msg=string}
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /webhooks/{rail} [post]
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	rail := models.Rail(chi.URLParam(r, "rail"))
	if !rail.Valid() {
		services.SendErrorResponse(w, "Unknown rail", http.StatusNotFound, nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	ack, err := h.service.IngestWebhook(r.Context(), rail, body, r.Header)
	if err != nil {
		// not acknowledged; the rail redelivers
		services.SendErrorResponse(w, "Webhook processing failed", http.StatusInternalServerError, nil)
		return
	}

	h.log.WithFields(logrus.Fields{
		"rail":      rail,
		"type":      ack.EventType,
		"reference": ack.Reference,
		"outcome":   ack.Outcome,
	}).Debug("webhook acknowledged")
	services.WriteJSON(w, http.StatusOK, map[string]string{"msg": "success"})
}
