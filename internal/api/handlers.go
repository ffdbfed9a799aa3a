package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Soulfra/soulfra-sub002/internal/crypto"
	"github.com/Soulfra/soulfra-sub002/internal/models"
	"github.com/Soulfra/soulfra-sub002/internal/services"
)

// Handlers is the thin HTTP glue over the engine. All invariants live in
// the services; this layer only decodes, dispatches and maps errors.
type Handlers struct {
	devices  *services.DeviceService
	lineage  *services.LineageService
	vault    *services.VaultService
	geofence *services.GeofenceService
}

func NewHandlers(
	devices *services.DeviceService,
	lineage *services.LineageService,
	vault *services.VaultService,
	geofence *services.GeofenceService,
) *Handlers {
	return &Handlers{
		devices:  devices,
		lineage:  lineage,
		vault:    vault,
		geofence: geofence,
	}
}

type registerDeviceRequest struct {
	Serial     string             `json:"serial"`
	DeviceType string             `json:"device_type"`
	Components []models.Component `json:"components"`
}

type registerDeviceResponse struct {
	DeviceID  uuid.UUID `json:"device_id"`
	QRToken   string    `json:"qr_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Serial == "" || req.DeviceType == "" {
		writeError(w, http.StatusBadRequest, "serial and device_type are required")
		return
	}

	device, token, err := h.devices.Register(r.Context(), req.Serial, req.DeviceType, req.Components)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register device")
		return
	}

	writeJSON(w, http.StatusCreated, registerDeviceResponse{
		DeviceID:  device.ID,
		QRToken:   token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

type activateRequest struct {
	Token string `json:"token"`
}

func (h *Handlers) ActivateDevice(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	device, err := h.devices.Activate(r.Context(), req.Token)
	switch {
	case errors.Is(err, services.ErrTampered):
		writeError(w, http.StatusUnauthorized, "activation token rejected")
	case errors.Is(err, services.ErrReplayedOrExpired):
		writeError(w, http.StatusConflict, "activation token replayed or expired")
	case errors.Is(err, services.ErrAlreadyActivated):
		writeError(w, http.StatusConflict, "device already activated")
	case errors.Is(err, services.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, "device not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to activate device")
	default:
		writeJSON(w, http.StatusOK, device)
	}
}

type logActionRequest struct {
	ActionType string            `json:"action_type"`
	Metadata   map[string]string `json:"metadata"`
}

func (h *Handlers) LogDeviceAction(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	var req logActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActionType == "" {
		writeError(w, http.StatusBadRequest, "action_type is required")
		return
	}

	err = h.devices.LogAction(r.Context(), deviceID, req.ActionType, req.Metadata)
	if errors.Is(err, services.ErrDeviceNotFound) {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scanRequest struct {
	CodeID         string `json:"code_id"`
	Ref            string `json:"ref"`
	DeviceType     string `json:"device_type"`
	City           string `json:"city"`
	Country        string `json:"country"`
	Referrer       string `json:"referrer"`
	AllowCrossCode bool   `json:"allow_cross_code"`
}

type scanResponse struct {
	ScanID uuid.UUID `json:"scan_id"`
}

func (h *Handlers) RecordScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CodeID == "" {
		writeError(w, http.StatusBadRequest, "code_id is required")
		return
	}

	var parentScanID *uuid.UUID
	if req.Ref != "" {
		// A malformed ref degrades to a root scan, same as a dangling one.
		if parsed, err := uuid.Parse(req.Ref); err == nil {
			parentScanID = &parsed
		}
	}

	scan, err := h.lineage.RecordScan(r.Context(), req.CodeID, parentScanID, services.ScanContext{
		RawClientIP:    clientIP(r),
		UserAgent:      r.UserAgent(),
		DeviceType:     req.DeviceType,
		City:           req.City,
		Country:        req.Country,
		Referrer:       req.Referrer,
		AllowCrossCode: req.AllowCrossCode,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record scan")
		return
	}

	writeJSON(w, http.StatusCreated, scanResponse{ScanID: scan.ID})
}

func (h *Handlers) CodeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lineage.Aggregate(r.Context(), chi.URLParam(r, "codeID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) CodeTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.lineage.BuildTree(r.Context(), chi.URLParam(r, "codeID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build tree")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(services.RenderTree(tree)))
}

type storePayloadRequest struct {
	Kind      string `json:"kind"`
	Plaintext string `json:"plaintext"` // base64
}

type storePayloadResponse struct {
	PayloadID uuid.UUID `json:"payload_id"`
	Grant     string    `json:"grant"`
}

func (h *Handlers) StorePayload(w http.ResponseWriter, r *http.Request) {
	var req storePayloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Kind == "" {
		writeError(w, http.StatusBadRequest, "kind and plaintext are required")
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		writeError(w, http.StatusBadRequest, "plaintext must be base64")
		return
	}

	payloadID, grant, err := h.vault.Store(r.Context(), req.Kind, plaintext)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store payload")
		return
	}

	writeJSON(w, http.StatusCreated, storePayloadResponse{PayloadID: payloadID, Grant: grant})
}

type geofenceCheckRequest struct {
	GrantA        string  `json:"grant_a"`
	GrantB        string  `json:"grant_b"`
	TrustScore    float64 `json:"trust_score"`
	ActivityScore int64   `json:"activity_score"`
}

type geofenceCheckResponse struct {
	RadiusKm float64 `json:"radius_km"`
	Within   bool    `json:"within"`
}

func (h *Handlers) GeofenceCheck(w http.ResponseWriter, r *http.Request) {
	var req geofenceCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GrantA == "" || req.GrantB == "" {
		writeError(w, http.StatusBadRequest, "grant_a and grant_b are required")
		return
	}

	radius := h.geofence.ComputeRadius(models.ReputationInputs{
		TrustScore:    req.TrustScore,
		ActivityScore: req.ActivityScore,
	})

	within, err := h.geofence.WithinRadius(r.Context(), req.GrantA, req.GrantB, radius)
	switch {
	case errors.Is(err, services.ErrGrantExpired):
		writeError(w, http.StatusUnauthorized, "location grant expired")
	case errors.Is(err, services.ErrGrantInvalid):
		writeError(w, http.StatusUnauthorized, "location grant rejected")
	case errors.Is(err, crypto.ErrTamperedOrWrongKey):
		writeError(w, http.StatusUnauthorized, "location payload rejected")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to check radius")
	default:
		writeJSON(w, http.StatusOK, geofenceCheckResponse{RadiusKm: radius, Within: within})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// First entry is the originating client; later hops vary by
		// proxy chain and would split one actor into many pseudonyms.
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
