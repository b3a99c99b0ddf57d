package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type httpError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e httpError) Error() string {
	return e.Message
}

func newHTTPError(message string, status int) httpError {
	return httpError{Message: message, Status: status}
}

func writeError(w http.ResponseWriter, err error, logger *Logger, r *http.Request) {
	var apiErr httpError
	if e, ok := err.(httpError); ok {
		apiErr = e
	} else {
		apiErr = newHTTPError("Internal server error", http.StatusInternalServerError)
	}

	requestID := GetRequestID(r.Context())

	logger.Error("api_error").
		Component("http").
		Operation("write_error").
		HTTP(r.Method, r.URL.Path, apiErr.Status).
		Request(r.UserAgent(), r.RemoteAddr, requestID).
		Err(err).
		ErrorCode(strconv.Itoa(apiErr.Status)).
		Log()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     apiErr.Message,
		"status":    apiErr.Status,
		"timestamp": time.Now().Unix(),
		"requestId": requestID,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}, logger *Logger, r *http.Request) {
	requestID := GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json_encode_failed").
			Component("http").
			Operation("write_json").
			Request("", "", requestID).
			Err(err).
			Log()
	}
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func withRateLimit(limiter Limiter, key string, logger *Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next(w, r)
				return
			}
			requestID := GetRequestID(r.Context())

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate_limiter_unavailable").
					Component("rate_limiter").
					Operation("check_limit").
					Request("", "", requestID).
					Err(err).
					Meta("key", key).
					Log()
				next(w, r)
				return
			}

			if !allowed {
				logger.Warn("rate_limit_exceeded").
					Component("rate_limiter").
					Operation("check_limit").
					Request("", "", requestID).
					Meta("key", key).
					Log()
				writeError(w, newHTTPError("Rate limit exceeded", http.StatusTooManyRequests), logger, r)
				return
			}

			next(w, r)
		}
	}
}

func HealthHandler(cfg *Config, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("health_check").
			Component("health").
			Operation("check").
			Log()

		services := map[string]string{
			"redis":    serviceState(cfg.CacheEnabled),
			"postgres": serviceState(cfg.DatabaseEnabled),
			"nats":     serviceState(cfg.EventsEnabled),
		}
		writeJSON(w, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"services":  services,
		}, logger, r)
	})
}

func serviceState(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// StatusHandler serves the latest reconciled status. Before the first
// cycle completes there is nothing to serve yet.
func StatusHandler(reconciler *Reconciler, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		status := reconciler.Status()
		if status == nil {
			writeError(w, newHTTPError("No status available yet", http.StatusServiceUnavailable), logger, r)
			return
		}

		logger.Debug("status_request").
			Component("status").
			Operation("get_status").
			State(status.State).
			Log()

		writeJSON(w, status, logger, r)
	})
}

// RefreshHandler triggers an immediate reconciliation cycle, outside
// the regular poll schedule. Rate limited so a misbehaving caller
// cannot burn the Riot quota.
func RefreshHandler(reconciler *Reconciler, limiter Limiter, logger *Logger) http.HandlerFunc {
	return withCORS(withRateLimit(limiter, "manual_refresh", logger)(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, newHTTPError("Method not allowed", http.StatusMethodNotAllowed), logger, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		status, err := reconciler.Refresh(ctx)
		if err != nil {
			writeError(w, newHTTPError("Refresh failed: "+err.Error(), http.StatusBadGateway), logger, r)
			return
		}

		writeJSON(w, status, logger, r)
	}))
}

// HistoryHandler serves recent state transitions from Postgres.
func HistoryHandler(store StatusStore, cfg *Config, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		if store == nil || !cfg.DatabaseEnabled {
			writeError(w, newHTTPError("History storage is disabled", http.StatusNotImplemented), logger, r)
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 500 {
				writeError(w, newHTTPError("limit must be between 1 and 500", http.StatusBadRequest), logger, r)
				return
			}
			limit = parsed
		}

		records, err := store.GetStatusHistory(limit)
		if err != nil {
			writeError(w, newHTTPError("Failed to load history", http.StatusInternalServerError), logger, r)
			return
		}

		response := map[string]interface{}{
			"count":   len(records),
			"records": records,
		}
		if stats, err := store.GetHistoryStats(); err == nil {
			response["stats"] = stats
		}
		writeJSON(w, response, logger, r)
	})
}

func MetricsHandler(metrics *MetricsCollector, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, metrics.GetMetrics(), logger, r)
	})
}
