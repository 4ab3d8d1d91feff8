package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealspot/redemption-engine/internal/application"
	"github.com/dealspot/redemption-engine/internal/domain"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims, err := h.tokens.ParseAndValidate(raw)
		if err != nil {
			logHTTPOperationError(r.Context(), "auth", http.StatusUnauthorized, "UNAUTHORIZED", "token rejected", err)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) createClaim(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	var req struct {
		DealID string `json:"deal_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	dealID, err := uuid.Parse(req.DealID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid deal_id")
		return
	}

	claim, err := h.service.CreateClaim(r.Context(), claims.UserID, domain.ParseTier(claims.Tier), dealID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, claimPayload(claim))
}

func (h *Handler) verifyClaim(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	claimID, err := uuid.Parse(chi.URLParam(r, "claim_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid claim_id")
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "code is required")
		return
	}

	claim, err := h.service.Verify(r.Context(), claims.UserID, claimID, req.Code, readIP(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, claimPayload(claim))
}

func (h *Handler) billClaim(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	claimID, err := uuid.Parse(chi.URLParam(r, "claim_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid claim_id")
		return
	}

	var req struct {
		BillAmountCents int64 `json:"bill_amount_cents"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	claim, err := h.service.RecordBillAmount(r.Context(), claims.UserID, claimID, req.BillAmountCents)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, claimPayload(claim))
}

func (h *Handler) listClaims(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	items, err := h.service.ListClaims(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(items))
	for _, c := range items {
		payload = append(payload, claimPayload(c))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"claims": payload})
}

func (h *Handler) nearbyDeals(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	lat, err := parseFloat(r.URL.Query().Get("lat"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid lat")
		return
	}
	lon, err := parseFloat(r.URL.Query().Get("lon"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid lon")
		return
	}
	radiusKm := 0.0
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		radiusKm, err = parseFloat(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid radius_km")
			return
		}
	}

	ranked, err := h.service.RankNearby(r.Context(), lat, lon, radiusKm, domain.ParseTier(claims.Tier))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(ranked))
	for _, item := range ranked {
		payload = append(payload, rankedDealPayload(item))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"deals": payload})
}

func (h *Handler) dealAttempts(w http.ResponseWriter, r *http.Request) {
	dealID, err := uuid.Parse(chi.URLParam(r, "deal_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid deal_id")
		return
	}

	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	attempts, err := h.service.ListVerificationAttempts(r.Context(), dealID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(attempts))
	for _, a := range attempts {
		entry := map[string]any{
			"user_id":    a.UserID,
			"attempt_at": a.AttemptAt.Format(time.RFC3339),
			"outcome":    a.Outcome,
		}
		if a.ClaimID != nil {
			entry["claim_id"] = *a.ClaimID
		}
		if a.SourceIP != "" {
			entry["source_ip"] = a.SourceIP
		}
		if a.MatchedLayer != "" {
			entry["matched_layer"] = a.MatchedLayer
		}
		payload = append(payload, entry)
	}
	writeSuccess(w, http.StatusOK, map[string]any{"attempts": payload})
}

func (h *Handler) customerSavings(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return
	}

	total, err := h.service.CustomerSavings(r.Context(), claims.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"total_savings_cents": total})
}

func (h *Handler) vendorStats(w http.ResponseWriter, r *http.Request) {
	vendorID, err := uuid.Parse(chi.URLParam(r, "vendor_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid vendor_id")
		return
	}

	counts, err := h.service.VendorRedemptionStats(r.Context(), vendorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	perDeal := make(map[string]int64, len(counts))
	var total int64
	for dealID, n := range counts {
		perDeal[dealID.String()] = n
		total += n
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"vendor_id":         vendorID,
		"total_redemptions": total,
		"per_deal":          perDeal,
	})
}

func claimPayload(c domain.Claim) map[string]any {
	payload := map[string]any{
		"claim_id":   c.ClaimID,
		"deal_id":    c.DealID,
		"user_id":    c.UserID,
		"state":      string(c.State),
		"created_at": c.CreatedAt.Format(time.RFC3339),
	}
	if c.VerifiedAt != nil {
		payload["verified_at"] = c.VerifiedAt.Format(time.RFC3339)
		payload["matched_layer"] = c.MatchedLayer
	}
	if c.BillAmountCents != nil {
		payload["bill_amount_cents"] = *c.BillAmountCents
	}
	if c.SavingsCents != nil {
		payload["savings_cents"] = *c.SavingsCents
	}
	return payload
}

func rankedDealPayload(item application.RankedDeal) map[string]any {
	deal := item.Deal
	return map[string]any{
		"deal_id":          deal.DealID,
		"vendor_id":        deal.VendorID,
		"title":            deal.Title,
		"discount_percent": deal.DiscountPercent,
		"required_tier":    deal.RequiredTier.String(),
		"valid_until":      deal.ValidUntil.Format(time.RFC3339),
		"distance_km":      item.DistanceKm,
		"relevance_score":  item.RelevanceScore,
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(raw string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(raw), 64)
}

func readIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host := strings.TrimSpace(r.RemoteAddr)
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
