package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"autobill/backend/internal/billing"
	"autobill/backend/internal/domain"
	"autobill/backend/internal/invoice"
	"autobill/backend/internal/logger"
	"autobill/backend/internal/metrics"
	"autobill/backend/internal/service"
	"autobill/backend/internal/store"
)

const maxSearchLimit = 50

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	log           *slog.Logger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		log:           logger.For("httpapi"),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(a.withMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Post("/bill/items/validate", a.handleValidateItem)
			r.Post("/bill/items", a.handleAddLineItem)
			r.Post("/bill/items/remove", a.handleRemoveLineItem)
			r.Post("/bill/items/replace", a.handleReplaceLineItem)
			r.Post("/bill/totals", a.handleTotals)

			r.Get("/inventory", a.handleListInventory)
			r.Post("/inventory", a.handleRecordProduct)
			r.Get("/inventory/search", a.handleSearchInventory)

			r.Post("/invoices", a.handleInvoice)
		})
	})

	return r
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if actor.Role != RoleOwner {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleValidateItem always answers 200; the verdict is in the body so the
// cashier screen can show the message inline.
func (a *API) handleValidateItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.service.ValidateItem(req); err != nil {
		writeJSON(w, http.StatusOK, domain.ValidateItemResponse{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, domain.ValidateItemResponse{OK: true})
}

func (a *API) handleAddLineItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddLineItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	record := req.RecordInCatalog == nil || *req.RecordInCatalog
	item, catalog, err := a.service.AddLineItem(r.Context(), req.ItemInput, record)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, domain.AddLineItemResponse{Item: item, Catalog: catalog})
}

func (a *API) handleRemoveLineItem(w http.ResponseWriter, r *http.Request) {
	var req domain.BillEditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.RemoveLineItem(req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !finiteTotals(resp.Totals) {
		writeError(w, http.StatusUnprocessableEntity, errors.New(billing.MsgAmountTooLarge))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReplaceLineItem(w http.ResponseWriter, r *http.Request) {
	var req domain.BillEditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.ReplaceLineItem(req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if !finiteTotals(resp.Totals) {
		writeError(w, http.StatusUnprocessableEntity, errors.New(billing.MsgAmountTooLarge))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleTotals(w http.ResponseWriter, r *http.Request) {
	var req domain.TotalsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	totals := a.service.Totals(req.Items, req.GSTIncluded)
	if !finiteTotals(totals) {
		writeError(w, http.StatusUnprocessableEntity, errors.New(billing.MsgAmountTooLarge))
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListInventory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleRecordProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := a.service.RecordProduct(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	status := http.StatusOK
	if res.WasCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (a *API) handleSearchInventory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parsePositiveLimit(query.Get("limit"), store.DefaultSearchLimit, maxSearchLimit)

	var seq uint64
	if raw := strings.TrimSpace(query.Get("seq")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("seq must be a non-negative integer"))
			return
		}
		seq = parsed
	}

	result, err := a.service.SearchProducts(r.Context(), seq, query.Get("q"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleInvoice(w http.ResponseWriter, r *http.Request) {
	var req domain.InvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	inv, err := a.service.BuildInvoice(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", `inline; filename="`+inv.FileName+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(inv.HTML))
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(startedAt),
		)
	})
}

// statusFor maps service errors to HTTP codes: validation problems are 422,
// malformed requests 400, everything else a masked 500.
func statusFor(err error) int {
	switch {
	case billing.IsValidationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrItemNameRequired), errors.Is(err, invoice.ErrEmptyInvoice), errors.Is(err, invoice.ErrAmountOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// finiteTotals guards against client-supplied line items whose sum overflows.
func finiteTotals(t domain.TotalsResponse) bool {
	return billing.IsFinite(t.GrandTotal) && billing.IsFinite(t.TotalGST) && billing.IsFinite(t.Payable)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies never carry the underlying error; it is logged instead.
	msg := err.Error()
	if status >= 500 {
		logger.For("httpapi").Error("internal error", "status", status, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeJSON encodes before writing the status; a payload that cannot be
// encoded becomes a masked 500.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.For("httpapi").Error("encode response", "status", status, "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
