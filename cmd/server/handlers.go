package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	apierrors "github.com/vitaliisemenov/guardrail-engine/internal/api/errors"
	"github.com/vitaliisemenov/guardrail-engine/internal/api/middleware"
	"github.com/vitaliisemenov/guardrail-engine/internal/core"
	"github.com/vitaliisemenov/guardrail-engine/internal/pipeline"
	"github.com/vitaliisemenov/guardrail-engine/pkg/guardrail"
)

// checkRequest is the wire shape of POST /v1/check and the
// conversation-scoped check endpoints.
type checkRequest struct {
	Text     string              `json:"text" validate:"required"`
	Stage    string              `json:"stage" validate:"required,oneof=input output"`
	Metadata core.ContentMetadata `json:"metadata"`
}

// checkResponse mirrors pipeline.Result over the wire.
type checkResponse struct {
	Blocked    bool                    `json:"blocked"`
	Confidence float64                 `json:"confidence"`
	Reasons    []string                `json:"reasons,omitempty"`
	Results    []core.GuardrailResult  `json:"results"`
	Canceled   bool                    `json:"canceled,omitempty"`
}

func toCheckResponse(r pipeline.Result) checkResponse {
	return checkResponse{
		Blocked:    r.Blocked,
		Confidence: r.Confidence,
		Reasons:    r.Reasons,
		Results:    r.Results,
		Canceled:   r.Canceled,
	}
}

type checkHandler struct {
	pipeline *guardrail.Pipeline
}

// handleCheck runs POST /v1/check's body through CheckInput or
// CheckOutput depending on the declared stage, per SPEC_FULL.md §4.2's
// stage-gated dispatch.
func (h *checkHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("malformed request body: "+err.Error()))
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		requestID := middleware.GetRequestID(r.Context())
		apierrors.WriteError(w, apierrors.ValidationError("validation failed").
			WithDetails(middleware.FormatValidationErrors(err)).
			WithRequestID(requestID))
		return
	}

	var result pipeline.Result
	switch core.Stage(req.Stage) {
	case core.StageOutput:
		result = h.pipeline.CheckOutput(r.Context(), req.Text, req.Metadata)
	default:
		result = h.pipeline.CheckInput(r.Context(), req.Text, req.Metadata)
	}
	writeJSON(w, http.StatusOK, toCheckResponse(result))
}

type conversationHandler struct {
	pipeline *guardrail.Pipeline
}

// open starts a new conversation and returns its ID.
func (h *conversationHandler) open(w http.ResponseWriter, r *http.Request) {
	id := h.pipeline.OpenConversation()
	writeJSON(w, http.StatusCreated, map[string]string{"conversation_id": id})
}

// check runs a conversation-scoped input or output check, appending the
// turn to the conversation's history once the pipeline has a verdict.
func (h *conversationHandler) check(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	convo, ok := h.pipeline.Conversation(id)
	if !ok {
		apierrors.WriteError(w, apierrors.NotFoundError("conversation "+id))
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("malformed request body: "+err.Error()))
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		apierrors.WriteError(w, apierrors.ValidationError("validation failed").
			WithDetails(middleware.FormatValidationErrors(err)))
		return
	}

	stage := core.StageInput
	var result pipeline.Result
	if core.Stage(req.Stage) == core.StageOutput {
		stage = core.StageOutput
		result = h.pipeline.CheckOutputForConversation(r.Context(), id, req.Text, req.Metadata, convo)
	} else {
		result = h.pipeline.CheckInputForConversation(r.Context(), id, req.Text, req.Metadata, convo)
	}
	h.pipeline.AppendTurn(id, stage, req.Text, result.Results)

	writeJSON(w, http.StatusOK, toCheckResponse(result))
}

// history returns the turns recorded so far for a conversation.
func (h *conversationHandler) history(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	turns, err := h.pipeline.ConversationHistory(id)
	if err != nil {
		apierrors.WriteError(w, apierrors.NotFoundError("conversation "+id).WithDetails(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "turns": turns})
}

// close removes a conversation from the store.
func (h *conversationHandler) close(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.pipeline.CloseConversation(id)
	w.WriteHeader(http.StatusNoContent)
}
