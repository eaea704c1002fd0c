package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcpdirectory/catalog-sync/internal/catalog"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// StatusStore is what the status API reads from.
type StatusStore interface {
	ListSyncRecords(ctx context.Context) ([]catalog.ServerRecord, error)
	ListRuns(ctx context.Context, limit int) ([]catalog.SyncRun, error)
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServerResponse is the directory row shape served by the API.
type ServerResponse struct {
	Slug              string   `json:"slug"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	ServerURL         string   `json:"serverUrl,omitempty"`
	RepoURL           string   `json:"repoUrl,omitempty"`
	Category          string   `json:"category"`
	AuthType          string   `json:"authType"`
	Tags              []string `json:"tags"`
	Maintainer        string   `json:"maintainer,omitempty"`
	Status            string   `json:"status"`
	VerificationLevel string   `json:"verificationLevel"`
	Source            string   `json:"source,omitempty"`
	Ownership         string   `json:"ownership"`
	Lifecycle         string   `json:"lifecycle"`
	HealthStatus      string   `json:"healthStatus,omitempty"`
}

// Routes holds the handlers for the status API.
type Routes struct {
	store StatusStore
}

func (*Routes) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Routes) listServers(w http.ResponseWriter, r *http.Request) {
	records, err := rt.store.ListSyncRecords(r.Context())
	if err != nil {
		logger.Errorf("Failed to list servers: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list servers"})
		return
	}

	servers := make([]ServerResponse, 0, len(records))
	for i := range records {
		rec := &records[i]
		servers = append(servers, ServerResponse{
			Slug:              rec.Slug,
			Name:              rec.Name,
			Description:       rec.Description,
			ServerURL:         rec.ServerURL,
			RepoURL:           rec.RepoURL,
			Category:          rec.Category,
			AuthType:          string(rec.AuthType),
			Tags:              rec.Tags,
			Maintainer:        rec.Maintainer,
			Status:            string(rec.Status),
			VerificationLevel: string(rec.VerificationLevel),
			Source:            rec.Source,
			Ownership:         string(rec.Ownership),
			Lifecycle:         string(rec.Lifecycle),
			HealthStatus:      rec.HealthStatus,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"servers": servers,
		"total":   len(servers),
	})
}

func (rt *Routes) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRunsLimit {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	runs, err := rt.store.ListRuns(r.Context(), limit)
	if err != nil {
		logger.Errorf("Failed to list runs: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list runs"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}
