package httpapi

import (
	"net/http"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

type addMappingRequest struct {
	Domain  string `json:"domain"`
	OwnerID int64  `json:"owner_id"`
}

type listResponse struct {
	Mappings []*domainmap.Mapping `json:"mappings"`
	Page     int                  `json:"page"`
	PerPage  int                  `json:"per_page"`
}

func (s *Server) addMapping(w http.ResponseWriter, r *http.Request) error {
	var req addMappingRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	ctx := logger.WithOwnerID(r.Context(), req.OwnerID)
	res, err := s.svc.AddDomain(ctx, req.OwnerID, req.Domain)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, res)
	return nil
}

func (s *Server) listMappings(w http.ResponseWriter, r *http.Request) error {
	owner, err := queryNumber[int64](r, "owner_id", 0)
	if err != nil {
		return err
	}
	page, err := queryNumber[int](r, "page", 1)
	if err != nil {
		return err
	}
	perPage, err := queryNumber[int](r, "per_page", 0)
	if err != nil {
		return err
	}

	f := domainmap.ListFilter{
		OwnerID:     owner,
		Statuses:    queryList[domainmap.Status](r, "status"),
		SSLStatuses: queryList[domainmap.SSLStatus](r, "ssl_status"),
		Page:        page,
		PerPage:     perPage,
	}.Normalize()
	for _, st := range f.Statuses {
		if !st.Valid() {
			return badRequest("unknown status "+string(st), nil)
		}
	}
	for _, st := range f.SSLStatuses {
		if !st.Valid() {
			return badRequest("unknown ssl_status "+string(st), nil)
		}
	}

	ctx := r.Context()
	if owner > 0 {
		ctx = logger.WithOwnerID(ctx, owner)
	}
	mappings, err := s.svc.List(ctx, f)
	if err != nil {
		return err
	}
	if mappings == nil {
		mappings = []*domainmap.Mapping{}
	}
	writeJSON(w, http.StatusOK, listResponse{Mappings: mappings, Page: f.Page, PerPage: f.PerPage})
	return nil
}

func (s *Server) getMapping(w http.ResponseWriter, r *http.Request) error {
	mp, err := s.svc.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mp)
	return nil
}

func (s *Server) deleteMapping(w http.ResponseWriter, r *http.Request) error {
	if err := s.svc.DeleteDomain(r.Context(), urlParam(r, "id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) instructions(w http.ResponseWriter, r *http.Request) error {
	mp, err := s.svc.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.svc.Instructions(mp))
	return nil
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) error {
	res, err := s.svc.VerifyDomain(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) propagation(w http.ResponseWriter, r *http.Request) error {
	res, err := s.svc.Propagation(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) error {
	res, err := s.svc.ApproveDomain(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request) error {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	mp, err := s.svc.RejectDomain(r.Context(), urlParam(r, "id"), req.Reason)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mp)
	return nil
}

func (s *Server) markLive(w http.ResponseWriter, r *http.Request) error {
	mp, err := s.svc.MarkLive(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, mp)
	return nil
}

// proxyConfig returns JSON by default, or one raw config file with
// ?format=nginx or ?format=apache.
func (s *Server) proxyConfig(w http.ResponseWriter, r *http.Request) error {
	cfg, err := s.svc.GenerateProxyConfig(r.Context(), urlParam(r, "id"))
	if err != nil {
		return err
	}

	var body string
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, cfg)
		return nil
	case "nginx":
		body = cfg.Nginx
	case "apache":
		body = cfg.Apache
	default:
		return badRequest("format must be json, nginx or apache", nil)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
	return nil
}
