package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"k8s.io/apimachinery/pkg/util/validation"
)

const releasedMessage = "IP released successfully"

type healthResponse struct {
	Status string `json:"status"`
}

type allocateRequest struct {
	VMID     string `json:"vm_id"`
	Hostname string `json:"hostname,omitempty"`
}

type allocateResponse struct {
	IP       string `json:"ip"`
	VMID     string `json:"vm_id"`
	Gateway  string `json:"gateway"`
	Network  string `json:"network"`
	Hostname string `json:"hostname,omitempty"`
}

type releaseResponse struct {
	Message string `json:"message"`
	VMID    string `json:"vm_id,omitempty"`
	IP      string `json:"ip,omitempty"`
}

func doJSONWrite(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.WithError(err).Error("Couldn't write JSON response")
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	doJSONWrite(w, http.StatusOK, healthResponse{Status: "healthy"})
}

func (s *Server) allocateHandler(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Request malformed")
		return
	}
	if msg := validateAllocateRequest(&req); msg != "" {
		writeErrorMessage(w, http.StatusBadRequest, msg)
		return
	}

	alloc, err := s.pool.Allocate(req.VMID, req.Hostname)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doJSONWrite(w, http.StatusCreated, allocateResponse{
		IP:       alloc.IP.String(),
		VMID:     alloc.VMID,
		Gateway:  s.pool.Gateway(),
		Network:  s.pool.Network(),
		Hostname: alloc.Hostname,
	})
}

func (s *Server) releaseHandler(w http.ResponseWriter, r *http.Request) {
	vmID := mux.Vars(r)["vm_id"]
	if _, err := s.pool.ReleaseByOwner(vmID); err != nil {
		writeError(w, r, err)
		return
	}
	doJSONWrite(w, http.StatusOK, releaseResponse{Message: releasedMessage, VMID: vmID})
}

func (s *Server) releaseByIPHandler(w http.ResponseWriter, r *http.Request) {
	ip := mux.Vars(r)["ip"]
	if _, err := s.pool.ReleaseByAddress(ip); err != nil {
		writeError(w, r, err)
		return
	}
	doJSONWrite(w, http.StatusOK, releaseResponse{Message: releasedMessage, IP: ip})
}

func (s *Server) getAllocationHandler(w http.ResponseWriter, r *http.Request) {
	alloc, err := s.pool.Get(mux.Vars(r)["vm_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	doJSONWrite(w, http.StatusOK, alloc)
}

func (s *Server) listAllocationsHandler(w http.ResponseWriter, _ *http.Request) {
	doJSONWrite(w, http.StatusOK, s.pool.List())
}

func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	doJSONWrite(w, http.StatusOK, s.pool.Stats())
}

// validateAllocateRequest returns a client-facing message, or "" when the
// request is acceptable. The VM id ends up in URL paths so it may not
// contain a slash. Hostnames are free-form apart from a length cap.
func validateAllocateRequest(req *allocateRequest) string {
	if strings.TrimSpace(req.VMID) == "" {
		return "vm_id is required"
	}
	if strings.Contains(req.VMID, "/") {
		return "vm_id must not contain '/'"
	}
	if len(req.Hostname) > validation.DNS1123SubdomainMaxLength {
		return "invalid hostname: " + validation.MaxLenError(validation.DNS1123SubdomainMaxLength)
	}
	return ""
}
