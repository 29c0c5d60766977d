package rpc

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/canopy-network/dpos/bft"
	"github.com/canopy-network/dpos/lib"
	"github.com/julienschmidt/httprouter"
	"github.com/nsf/jsondiff"
)

// HealthResponse reports liveness and where the authority is
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Uptime  string    `json:"uptime"`
	Round   uint64    `json:"round"`
	Phase   bft.Phase `json:"phase"`
}

// StateDiffResponse compares a delegate's mirror with the settled ledger
type StateDiffResponse struct {
	Delegate string `json:"delegate"`
	Match    bool   `json:"match"`
	Diff     string `json:"diff"`
}

// Version returns the software version
func (s *Server) Version(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, SoftwareVersion, http.StatusOK)
}

// Health returns liveness information
func (s *Server) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	status := s.state.RoundStatus()
	write(w, HealthResponse{
		Status:  "ok",
		Version: SoftwareVersion,
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
		Round:   status.Round,
		Phase:   status.Phase,
	}, http.StatusOK)
}

// Accounts returns the settled ledger
func (s *Server) Accounts(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.state.Accounts(), http.StatusOK)
}

// Round returns the authority's view of the current round
func (s *Server) Round(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.state.RoundStatus(), http.StatusOK)
}

// LastRound returns the outcome of the last settled round
func (s *Server) LastRound(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	result := s.state.LastResult()
	if result == nil {
		write(w, ErrNotFound("no round settled yet"), http.StatusNotFound)
		return
	}
	write(w, result, http.StatusOK)
}

// Delegates returns every delegate snapshot
func (s *Server) Delegates(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.state.DelegateStatuses(), http.StatusOK)
}

// Clients returns every client snapshot
func (s *Server) Clients(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	write(w, s.state.ClientStatuses(), http.StatusOK)
}

// Delegate returns the snapshot of a single delegate
func (s *Server) Delegate(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	status, err := s.state.DelegateStatus(p.ByName(idParamName))
	if err != nil {
		write(w, err, http.StatusNotFound)
		return
	}
	write(w, status, http.StatusOK)
}

// Block returns a committed block from a delegate's chain
func (s *Server) Block(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	height, err := parseHeight(p.ByName(heightParamName))
	if err != nil {
		write(w, err, http.StatusBadRequest)
		return
	}
	block, err := s.state.Block(p.ByName(idParamName), height)
	if err != nil {
		write(w, err, http.StatusNotFound)
		return
	}
	write(w, block, http.StatusOK)
}

// StateDiff compares a delegate's mirror of the accounts with the settled ledger
func (s *Server) StateDiff(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	id := p.ByName(idParamName)
	status, err := s.state.DelegateStatus(id)
	if err != nil {
		write(w, err, http.StatusNotFound)
		return
	}
	if r.URL.Query().Get(formatQueryName) == htmlFormat {
		_, differ, e := diffJSON(s.state.Accounts(), status.Accounts, jsondiff.DefaultHTMLOptions())
		if e != nil {
			write(w, e, http.StatusInternalServerError)
			return
		}
		writeText(w, TextHTML, "<pre>"+differ+"</pre>")
		return
	}
	difference, differ, e := diffJSON(s.state.Accounts(), status.Accounts, jsondiff.DefaultJSONOptions())
	if e != nil {
		write(w, e, http.StatusInternalServerError)
		return
	}
	write(w, StateDiffResponse{Delegate: id, Match: difference == jsondiff.FullMatch, Diff: differ}, http.StatusOK)
}

// diffJSON() compares the JSON forms of two values
func diffJSON(expected, got any, opts jsondiff.Options) (jsondiff.Difference, string, lib.ErrorI) {
	j1, err := json.Marshal(expected)
	if err != nil {
		return 0, "", lib.ErrJSONMarshal(err)
	}
	j2, err := json.Marshal(got)
	if err != nil {
		return 0, "", lib.ErrJSONMarshal(err)
	}
	difference, differ := jsondiff.Compare(j1, j2, &opts)
	return difference, differ, nil
}

// parseHeight() accepts a decimal height or 'latest' for the head
func parseHeight(s string) (uint64, lib.ErrorI) {
	if s == headHeightParameter {
		return 0, nil
	}
	height, err := strconv.ParseUint(s, 10, 64)
	if err != nil || height == 0 {
		return 0, ErrInvalidParam(heightParamName, s)
	}
	return height, nil
}
