// Package api exposes the Slice Lifecycle Manager over HTTP (C10):
// activate/deactivate a named slice, and read a status snapshot of every
// active slice and link. Handlers are a thin translation layer — all
// decisions are made by internal/lifecycle.Manager — following the same
// HandlerFunc-factory and jsonError shape as the teacher's topology
// handlers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/okdaichi/netslice/internal/lifecycle"
)

// requestIDHeader is the correlation id an operator CLI call may set so
// its output can be matched against the controller's own log lines for
// the same call.
const requestIDHeader = "X-Request-Id"

// actionResponse is the JSON body returned by the activate/deactivate
// endpoints.
type actionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// statusResponse is the JSON body returned by GET /slices/status.
type statusResponse struct {
	Slices []sliceStatusDoc `json:"slices"`
	Links  []linkStatusDoc  `json:"links"`
}

type sliceStatusDoc struct {
	Name       string  `json:"name"`
	Paths      [][]int `json:"paths"`
	ReservedBW int     `json:"reserved_bw_pct"`
	Priority   int     `json:"priority"`
}

type linkStatusDoc struct {
	From     int `json:"from"`
	To       int `json:"to"`
	UsedBW   int `json:"used_bw_pct"`
	Capacity int `json:"capacity_pct"`
}

// NewActivateHandlerFunc returns a handler for POST /slice/{name}/activate.
func NewActivateHandlerFunc(m *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name, ok := sliceNameFromPath(r.URL.Path, "/slice/", "/activate")
		if !ok {
			jsonError(w, http.StatusBadRequest, "malformed path: expected /slice/{name}/activate")
			return
		}
		logRequestID(r, "activate", name)

		sliceOK, msg, err := m.Activate(name)
		writeActionResult(w, sliceOK, msg, err)
	}
}

// NewDeactivateHandlerFunc returns a handler for POST /slice/{name}/deactivate.
func NewDeactivateHandlerFunc(m *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name, ok := sliceNameFromPath(r.URL.Path, "/slice/", "/deactivate")
		if !ok {
			jsonError(w, http.StatusBadRequest, "malformed path: expected /slice/{name}/deactivate")
			return
		}
		logRequestID(r, "deactivate", name)

		sliceOK, msg, err := m.Deactivate(name)
		writeActionResult(w, sliceOK, msg, err)
	}
}

// NewStatusHandlerFunc returns a handler for GET /slices/status.
func NewStatusHandlerFunc(m *lifecycle.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		snap := m.Status()
		doc := statusResponse{
			Slices: make([]sliceStatusDoc, 0, len(snap.Slices)),
			Links:  make([]linkStatusDoc, 0, len(snap.Links)),
		}
		for _, s := range snap.Slices {
			doc.Slices = append(doc.Slices, sliceStatusDoc{
				Name:       s.Name,
				Paths:      s.Paths,
				ReservedBW: s.ReservedBW,
				Priority:   s.Priority,
			})
		}
		for _, l := range snap.Links {
			doc.Links = append(doc.Links, linkStatusDoc{
				From:     l.From,
				To:       l.To,
				UsedBW:   l.UsedBW,
				Capacity: l.Capacity,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}
}

// RegisterHandlers wires every Control API route onto mux.
func RegisterHandlers(mux *http.ServeMux, m *lifecycle.Manager) {
	mux.HandleFunc("/slice/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/activate"):
			NewActivateHandlerFunc(m)(w, r)
		case strings.HasSuffix(r.URL.Path, "/deactivate"):
			NewDeactivateHandlerFunc(m)(w, r)
		default:
			jsonError(w, http.StatusBadRequest, "malformed path: expected /slice/{name}/activate or /deactivate")
		}
	})
	mux.HandleFunc("/slices/status", NewStatusHandlerFunc(m))
}

// logRequestID logs the caller-supplied correlation id, if any, against
// this HTTP-level call — distinct from the correlation id
// internal/lifecycle.Manager stamps on its own log lines, since the two
// layers don't currently share one id.
func logRequestID(r *http.Request, op, slice string) {
	if id := r.Header.Get(requestIDHeader); id != "" {
		slog.Info("control api: request received", "op", op, "slice", slice, "request_id", id)
	}
}

// writeActionResult maps a Manager call's result to the Control API's
// response per spec.md §4.8: success -> 200, lifecycle.Error.Kind
// determines the failure status.
func writeActionResult(w http.ResponseWriter, ok bool, msg string, err error) {
	if ok {
		writeJSON(w, http.StatusOK, actionResponse{Status: "ok", Message: msg})
		return
	}

	lerr, isLerr := err.(*lifecycle.Error)
	if !isLerr {
		jsonError(w, http.StatusInternalServerError, msg)
		return
	}

	switch lerr.Kind {
	case lifecycle.KindNotFound, lifecycle.KindNoPath, lifecycle.KindAdmissionRefused,
		lifecycle.KindAlreadyActive, lifecycle.KindNotActive:
		writeJSON(w, http.StatusConflict, actionResponse{Status: "error", Message: lerr.Error()})
	case lifecycle.KindDriverError:
		writeJSON(w, http.StatusInternalServerError, actionResponse{Status: "error", Message: lerr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, actionResponse{Status: "error", Message: lerr.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body actionResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// jsonError writes a {"status": "error", "message": message} body at
// status, the same shape as every other activate/deactivate response.
func jsonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, actionResponse{Status: "error", Message: message})
}

// sliceNameFromPath extracts {name} from a path of the form
// prefix+name+suffix, e.g. "/slice/" + "gold" + "/activate".
func sliceNameFromPath(path, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
