package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/query"
	"mercator-hq/custodian/pkg/lifecycle/scan"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, errorBody{Error: errorDetail{Code: kind, Message: msg}})
}

type worklistResponse struct {
	Worklist *scan.Worklist `json:"worklist"`
	Report   *scan.Report   `json:"report"`
}

func (s *Server) handleWorklist(w http.ResponseWriter, r *http.Request) {
	wl, report := s.deps.Worklists.Latest()
	if wl == nil {
		writeError(w, http.StatusNotFound, "no_scan", "no scan has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, worklistResponse{Worklist: wl, Report: report})
}

type auditResponse struct {
	Count   int             `json:"count"`
	Records []*audit.Record `json:"records"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := query.Params{
		Start:   q.Get("start"),
		End:     q.Get("end"),
		Actions: q["action"],
		Tables:  q["table"],
		Actor:   q.Get("actor"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "limit must be an integer")
			return
		}
		params.Limit = limit
	}

	filter, err := query.ParseFilter(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	records, err := s.deps.Audit.Query(r.Context(), filter)
	if err != nil {
		var qe *audit.QueryError
		if errors.As(err, &qe) {
			writeError(w, http.StatusBadRequest, "invalid_query", err.Error())
			return
		}
		s.logger.Error("audit query failed", "error", err, "request_id", GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "storage_error", "audit query failed")
		return
	}
	if records == nil {
		records = []*audit.Record{}
	}
	writeJSON(w, http.StatusOK, auditResponse{Count: len(records), Records: records})
}
