package httpapi

import (
	"net/http"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

type setupCertificateRequest struct {
	// Empty lets the provisioner choose.
	Provider domainmap.Provider `json:"provider"`
}

func (s *Server) setupCertificate(w http.ResponseWriter, r *http.Request) error {
	var req setupCertificateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	var (
		res *domainmap.CertificateResult
		err error
	)
	id := urlParam(r, "id")
	if req.Provider == "" {
		res, err = s.svc.AutoProvision(r.Context(), id)
	} else {
		res, err = s.svc.SetupCertificate(r.Context(), id, req.Provider)
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) inspectCertificate(w http.ResponseWriter, r *http.Request) error {
	res, err := s.svc.InspectCertificate(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) syncCertificate(w http.ResponseWriter, r *http.Request) error {
	res, err := s.svc.SyncCertificate(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) managedCertificate(w http.ResponseWriter, r *http.Request) error {
	status, err := s.svc.ManagedCertificateStatus(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, status)
	return nil
}
