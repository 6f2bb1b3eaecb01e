package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/service"
	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// Resident identity headers, injected by the fronting authenticated channel.
// Transport authentication itself is out of scope for this service.
const (
	headerResidentID = "X-Resident-ID"
	headerEstateID   = "X-Estate-ID"
)

type Dependencies struct {
	Logger      *log.Logger
	Addr        string
	Issuer      *service.IssueService
	Credentials *service.CredentialService
	Gate        *service.GateService
	Durations   *service.DurationOptions
	ChatWebhook http.Handler // nil disables the conversational surface
}

type Server struct {
	httpServer  *http.Server
	logger      *log.Logger
	mux         *http.ServeMux
	issuer      *service.IssueService
	credentials *service.CredentialService
	gate        *service.GateService
	durations   *service.DurationOptions
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:      d.Logger,
		mux:         mux,
		issuer:      d.Issuer,
		credentials: d.Credentials,
		gate:        d.Gate,
		durations:   d.Durations,
	}

	mux.HandleFunc("POST /v1/codes", s.handleIssue)
	mux.HandleFunc("GET /v1/codes", s.handleListCodes)
	mux.HandleFunc("POST /v1/codes/revoke", s.handleRevoke)
	mux.HandleFunc("GET /v1/codes/duration-options", s.handleDurationOptions)
	mux.HandleFunc("POST /v1/gate/validate", s.handleGateValidate)
	if d.ChatWebhook != nil {
		mux.Handle("POST /v1/chat/webhook", d.ChatWebhook)
	}

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	residentID := r.Header.Get(headerResidentID)
	estateID := r.Header.Get(headerEstateID)

	var req types.IssueRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	c, err := s.issuer.Issue(r.Context(), residentID, estateID, req)
	if err != nil {
		var quota *service.QuotaExceededError
		switch {
		case errors.As(err, &quota):
			writeQuotaExceeded(w, quota.Error(), quota.Limit)
		case errors.Is(err, service.ErrInvalidResidentID),
			errors.Is(err, service.ErrInvalidEstateID):
			writeError(w, http.StatusBadRequest, "invalid_identity", err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "estate not found")
		case errors.Is(err, service.ErrGenerationFailed):
			s.logger.Printf("issue error: %v", err)
			writeError(w, http.StatusServiceUnavailable, "generation_failed", "could not mint a code, try again")
		default:
			s.logger.Printf("issue error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, issueResponse(c))
}

func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	residentID := r.Header.Get(headerResidentID)
	estateID := r.Header.Get(headerEstateID)

	active, err := s.credentials.ListActive(r.Context(), residentID, estateID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResidentID),
			errors.Is(err, service.ErrInvalidEstateID):
			writeError(w, http.StatusBadRequest, "invalid_identity", err.Error())
		default:
			s.logger.Printf("list codes error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	out := make([]types.IssueResponse, 0, len(active))
	for _, c := range active {
		out = append(out, issueResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": out})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	residentID := r.Header.Get(headerResidentID)

	var req types.RevokeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.credentials.Revoke(r.Context(), residentID, req.CredentialID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Covers both absent and not-owned.
			writeError(w, http.StatusNotFound, "not_found", "no such code")
		case errors.Is(err, service.ErrInvalidResidentID):
			writeError(w, http.StatusBadRequest, "invalid_identity", err.Error())
		default:
			s.logger.Printf("revoke error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	if !resp.Revoked {
		resp.Detail = "already used or expired"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDurationOptions(w http.ResponseWriter, r *http.Request) {
	estateID := r.Header.Get(headerEstateID)

	options, err := s.durations.Options(r.Context(), estateID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "estate not found")
		default:
			s.logger.Printf("duration options error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"options": options})
}

func (s *Server) handleGateValidate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.gate.Validate(r.Context(), req.EstateID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEstateID):
			writeError(w, http.StatusBadRequest, "invalid_estate_id", err.Error())
		case errors.Is(err, service.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "invalid_code", err.Error())
		default:
			s.logger.Printf("gate validate error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func issueResponse(c types.Credential) types.IssueResponse {
	resp := types.IssueResponse{
		CredentialID: c.ID,
		Code:         c.Code,
		Kind:         c.Kind,
		VisitorLabel: c.VisitorLabel,
		State:        c.State,
		IssuedAt:     types.FormatTime(c.IssuedAt),
		ExpiresAt:    types.FormatTimePtr(c.ExpiresAt),
	}
	if c.ExpiresAt != nil {
		resp.GrantedMinutes = int(c.ExpiresAt.Sub(c.IssuedAt) / time.Minute)
	}
	return resp
}
