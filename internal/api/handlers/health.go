package handlers

import (
	"encoding/json"
	"net/http"
	"os"
)

type HealthHandler struct {
	tempDir string
}

func NewHealthHandler(tempDir string) *HealthHandler {
	return &HealthHandler{tempDir: tempDir}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if info, err := os.Stat(h.tempDir); err != nil || !info.IsDir() {
		checks["temp_dir"] = "unhealthy: staging directory unavailable"
	} else {
		checks["temp_dir"] = "ok"
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
