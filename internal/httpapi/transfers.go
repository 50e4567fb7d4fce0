package httpapi

import (
	"net/http"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

type transferRequest struct {
	Actor      string `json:"actor"`
	Reason     string `json:"reason"`
	NewOwnerID int64  `json:"new_owner_id"`
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) error {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	mp, err := s.svc.TransferDomain(r.Context(), domainmap.TransferInput{
		MappingID:  urlParam(r, "id"),
		NewOwnerID: req.NewOwnerID,
		Actor:      req.Actor,
		Reason:     req.Reason,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mp)
	return nil
}

func (s *Server) transferHistory(w http.ResponseWriter, r *http.Request) error {
	logs, err := s.svc.TransferHistory(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []*domainmap.TransferLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": logs})
	return nil
}

type requestTransferRequest struct {
	Reason      string `json:"reason"`
	RequesterID int64  `json:"requester_id"`
}

func (s *Server) requestTransfer(w http.ResponseWriter, r *http.Request) error {
	var req requestTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	tr, err := s.svc.RequestTransfer(r.Context(), domainmap.RequestTransferInput{
		MappingID:   urlParam(r, "id"),
		RequesterID: req.RequesterID,
		Reason:      req.Reason,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, tr)
	return nil
}

func (s *Server) listTransferRequests(w http.ResponseWriter, r *http.Request) error {
	reqs, err := s.svc.ListTransferRequests(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	if reqs == nil {
		reqs = []*domainmap.TransferRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
	return nil
}

type decideTransferRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (s *Server) approveTransferRequest(w http.ResponseWriter, r *http.Request) error {
	var req decideTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	mp, err := s.svc.ApproveTransferRequest(r.Context(), urlParam(r, "id"), req.Actor)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mp)
	return nil
}

func (s *Server) rejectTransferRequest(w http.ResponseWriter, r *http.Request) error {
	var req decideTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	tr, err := s.svc.RejectTransferRequest(r.Context(), urlParam(r, "id"), req.Actor, req.Reason)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, tr)
	return nil
}
