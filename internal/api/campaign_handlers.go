package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httputil"
	"github.com/machinesoul11/ss-website-sub000/internal/segmentation"
)

// SendCampaignRequest is the request body for a campaign send.
type SendCampaignRequest struct {
	TemplateID   string               `json:"template_id"`
	EmailType    string               `json:"email_type"`
	Subject      string               `json:"subject"`
	Filter       *segmentation.Filter `json:"filter,omitempty"`
	RecipientIDs []string             `json:"recipient_ids,omitempty"`
	TemplateData map[string]any       `json:"template_data,omitempty"`
}

// SendCampaign kicks off a synchronous campaign send and returns the
// per-recipient outcome.
func (h *Handlers) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var req SendCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}
	if req.TemplateID == "" {
		httputil.BadRequest(w, "template_id is required")
		return
	}
	if req.EmailType == "" {
		req.EmailType = "campaign"
	}

	var build campaign.DataBuilder
	if len(req.TemplateData) > 0 {
		build = func(u domain.User) map[string]any {
			data := make(map[string]any, len(req.TemplateData))
			for k, v := range req.TemplateData {
				data[k] = v
			}
			return data
		}
	}

	result, err := h.Campaigns.Send(r.Context(), campaign.SendRequest{
		TemplateID: req.TemplateID,
		EmailType:  req.EmailType,
		Subject:    req.Subject,
		Recipients: campaign.RecipientSource{IDs: req.RecipientIDs, Filter: req.Filter},
		Build:      build,
	})
	switch {
	case errors.Is(err, campaign.ErrNoRecipients):
		httputil.JSON(w, http.StatusUnprocessableEntity, result)
	case errors.Is(err, campaign.ErrInProgress):
		httputil.Error(w, http.StatusConflict, "a send for this campaign intent is already in progress")
	case err != nil:
		httputil.Error(w, http.StatusInternalServerError, err.Error())
	default:
		httputil.OK(w, result)
	}
}

// ListCampaigns returns recent campaigns, newest first.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	campaigns, err := h.Campaigns.List(r.Context(), limit)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}
	httputil.OK(w, campaigns)
}

// GetCampaign returns one campaign record.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.Campaigns.Get(r.Context(), chi.URLParam(r, "campaignID"))
	if errors.Is(err, campaign.ErrNotFound) {
		httputil.NotFound(w, "campaign not found")
		return
	}
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.OK(w, c)
}
