package registry

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/metador-go/ih5/internal/logger"
	"github.com/metador-go/ih5/pkg/catalog"
	"github.com/metador-go/ih5/pkg/naming"
	"github.com/metador-go/ih5/pkg/userblock"
)

// response is the standard envelope every registry endpoint returns.
type response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode registry response", "error", err)
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func okResponse(data interface{}) response {
	return response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errResponse(msg string) response {
	return response{Status: "error", Timestamp: time.Now().UTC(), Error: msg}
}

type handler struct {
	store *catalog.Store
}

// health is an unauthenticated liveness probe.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"status": "healthy"}))
}

// listChains returns every chain the catalog knows about.
func (h *handler) listChains(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(entries))
}

// manifest serves the raw manifest sidecar JSON for a chain's current tail.
func (h *handler) manifest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok, err := h.store.Get(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResponse(err.Error()))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errResponse("unknown chain: "+name))
		return
	}

	tailPath := naming.BasePath(entry.Directory, entry.Name)
	if entry.HeadPatchIndex > 0 {
		tailPath = naming.PatchPath(entry.Directory, entry.Name, entry.HeadPatchIndex)
	}

	raw, err := os.ReadFile(naming.ManifestPath(tailPath))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errResponse("no manifest sidecar for chain: "+name))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// userBlocks returns every file's user-block in patch order, so a remote
// host can reconstruct the chain's patch history without fetching the
// whole (possibly large) container files.
func (h *handler) userBlocks(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, ok, err := h.store.Get(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResponse(err.Error()))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errResponse("unknown chain: "+name))
		return
	}

	ordered, err := naming.LoadAndOrder(entry.Directory, entry.Name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResponse(err.Error()))
		return
	}

	blocks := make([]userblock.UserBlock, 0, len(ordered))
	for _, f := range ordered {
		blocks = append(blocks, f.UserBlock)
	}
	writeJSON(w, http.StatusOK, okResponse(blocks))
}
