// Package api implements the HTTP surface: thin handlers delegating to the
// registry loader, quote engine, and the transactional/OLAP stores. No
// business logic lives in a handler.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WeAreTheArtMakers/mcryptoex/internal/apperr"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/compliance"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/config"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/notes"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/olap"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/quote"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/registry"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/store"
	"github.com/WeAreTheArtMakers/mcryptoex/internal/wire"
	"github.com/WeAreTheArtMakers/mcryptoex/pkg/logging"
)

// ReadStore is the subset of persistence the API reads from directly.
type ReadStore interface {
	Ready(ctx context.Context) bool
	RecentPairs(ctx context.Context, chainID *int64, limit int) ([]store.PairRow, error)
	RecentLedgerEntries(ctx context.Context, chainID *int64, entryType string, limit int) ([]store.LedgerRow, error)
}

// OLAPReader is the analytics read surface; a nil/failed reader degrades
// /analytics to a warning payload rather than a hard error.
type OLAPReader interface {
	Ready(ctx context.Context) bool
	RecentBuckets(ctx context.Context, minutes int) ([]olap.Bucket, error)
}

// DebugPublisher is the narrow publish surface /debug/emit-swap-note uses.
type DebugPublisher interface {
	PublishRaw(ctx context.Context, key, correlationID string, payload []byte) error
}

// PairRow is one row of the /pairs response.
type PairRow struct {
	ChainID      int64  `json:"chain_id"`
	PairAddress  string `json:"pair_address"`
	Token0Symbol string `json:"token0_symbol"`
	Token1Symbol string `json:"token1_symbol"`
	SwapCount    int64  `json:"swap_count"`
	Canonical    bool   `json:"canonical"`
}

// LedgerRow is one row of the /ledger/recent response.
type LedgerRow struct {
	TxID       string `json:"tx_id"`
	NoteID     string `json:"note_id"`
	ChainID    int64  `json:"chain_id"`
	AccountID  string `json:"account_id"`
	Side       string `json:"side"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
	EntryType  string `json:"entry_type"`
	OccurredAt string `json:"occurred_at"`
}

// AnalyticsBucket is one row of the /analytics response.
type AnalyticsBucket struct {
	BucketStart string `json:"bucket_start"`
	Action      string `json:"action"`
	Count       uint64 `json:"count"`
	VolumeUSD   string `json:"volume_usd"`
}

func toPairRow(r store.PairRow, canonical bool) PairRow {
	return PairRow{
		ChainID:      r.ChainID,
		PairAddress:  r.PairAddress,
		Token0Symbol: r.Token0Symbol,
		Token1Symbol: r.Token1Symbol,
		SwapCount:    r.SwapCount,
		Canonical:    canonical,
	}
}

func toLedgerRow(r store.LedgerRow) LedgerRow {
	return LedgerRow{
		TxID:       r.TxID,
		NoteID:     r.NoteID,
		ChainID:    r.ChainID,
		AccountID:  r.AccountID,
		Side:       r.Side,
		Asset:      r.Asset,
		Amount:     r.Amount,
		EntryType:  r.EntryType,
		OccurredAt: r.OccurredAt.UTC().Format(time.RFC3339),
	}
}

func toAnalyticsBucket(b olap.Bucket) AnalyticsBucket {
	return AnalyticsBucket{
		BucketStart: b.BucketStart,
		Action:      b.Action,
		Count:       b.Count,
		VolumeUSD:   b.VolumeUSD,
	}
}

// Server holds every dependency a handler needs.
type Server struct {
	mux        *http.ServeMux
	loader     *registry.Loader
	engine     *quote.Engine
	store      ReadStore
	olap       OLAPReader
	compliance *compliance.Checker
	publisher  DebugPublisher
	settings   *config.APISettings
	log        *logging.Logger
	hub        *WSHub

	httpServer *http.Server
}

func New(settings *config.APISettings, loader *registry.Loader, engine *quote.Engine, store ReadStore, olap OLAPReader, checker *compliance.Checker, publisher DebugPublisher, log *logging.Logger) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		loader:     loader,
		engine:     engine,
		store:      store,
		olap:       olap,
		compliance: checker,
		publisher:  publisher,
		settings:   settings,
		log:        log,
		hub:        NewWSHub(log),
	}
	s.routes()
	go s.hub.Run()
	return s
}

func (s *Server) Handler() http.Handler { return corsMiddleware(s.settings.CORSOrigins, s.mux) }

// Hub exposes the WebSocket fan-out hub so in-process callers can push
// events to connected dashboards; the ledger writer runs as a separate
// process and does not use it.
func (s *Server) Hub() *WSHub { return s.hub }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /health/ready", s.handleHealthReady)
	s.mux.HandleFunc("GET /tokens", s.handleTokens)
	s.mux.HandleFunc("GET /risk/assumptions", s.handleRiskAssumptions)
	s.mux.HandleFunc("GET /quote", s.handleQuote)
	s.mux.HandleFunc("GET /pairs", s.handlePairs)
	s.mux.HandleFunc("GET /ledger/recent", s.handleLedgerRecent)
	s.mux.HandleFunc("GET /analytics", s.handleAnalytics)
	s.mux.HandleFunc("POST /debug/emit-swap-note", s.handleEmitSwapNote)
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

// Start binds addr and serves until Stop is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api server error", "error", err)
		}
	}()
	s.log.Info("api server started", "addr", addr)
	return nil
}

// Stop gracefully shuts the server down, bounded by a 5s deadline.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(allowedOrigins string, next http.Handler) http.Handler {
	allowAll := allowedOrigins == "" || allowedOrigins == "*"
	allowlist := map[string]bool{}
	if !allowAll {
		for _, o := range strings.Split(allowedOrigins, ",") {
			allowlist[strings.TrimSpace(o)] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowAll || allowlist[origin] {
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusCode(err), map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	dbReady := s.store.Ready(r.Context())
	olapReady := s.olap == nil || s.olap.Ready(r.Context())
	if !dbReady || !olapReady {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "db": dbReady, "olap": olapReady})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.loader.TokensPayload())
}

func (s *Server) handleRiskAssumptions(w http.ResponseWriter, r *http.Request) {
	chainID, err := parsePositiveInt64(r.URL.Query().Get("chain_id"))
	if err != nil {
		writeError(w, apperr.Validation("chain_id must be a positive integer"))
		return
	}
	assumptions, chainKey, chainName, ok := s.loader.RiskAssumptions(chainID)
	if !ok {
		writeError(w, apperr.NotFound("unknown chain %d", chainID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chain_id":          chainID,
		"chain_key":         chainKey,
		"chain_name":        chainName,
		"trust_assumptions": assumptions,
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chainID, err := parsePositiveInt64(q.Get("chain_id"))
	if err != nil {
		writeError(w, apperr.Validation("chain_id must be a positive integer"))
		return
	}
	amountIn, err := parsePositiveDecimal(q.Get("amount_in"))
	if err != nil {
		writeError(w, apperr.Validation("amount_in must be a positive decimal"))
		return
	}
	slippageBps := 50
	if v := q.Get("slippage_bps"); v != "" {
		slippageBps, err = strconv.Atoi(v)
		if err != nil || slippageBps < 1 || slippageBps > 3000 {
			writeError(w, apperr.Validation("slippage_bps must be in [1, 3000]"))
			return
		}
	}

	if err := s.compliance.Check(q.Get("country_code"), q.Get("wallet_address")); err != nil {
		writeError(w, err)
		return
	}

	chain, ok := s.loader.ChainByID(chainID)
	if !ok {
		writeError(w, apperr.NotFound("unknown chain %d", chainID))
		return
	}

	result, err := s.engine.Quote(quote.Request{
		ChainID:        chainID,
		TokenIn:        q.Get("token_in"),
		TokenOut:       q.Get("token_out"),
		AmountIn:       amountIn,
		SlippageBps:    slippageBps,
		SwapFeeBps:     chain.AMM.SwapFeeBps,
		ProtocolFeeBps: chain.AMM.ProtocolFeeBps,
	}, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chain_id":               chainID,
		"route":                  result.Route,
		"expected_out":           result.ExpectedOut.String(),
		"min_out":                result.MinOut.String(),
		"route_depth":            result.RouteDepth.String(),
		"protocol_fee_amount_in": result.ProtocolFeeAmountIn.String(),
		"lp_fee_bps":             result.LPFeeBps,
		"used_static_fallback":   result.UsedStaticFallback,
	})
}

func (s *Server) handlePairs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 1000 {
			writeError(w, apperr.Validation("limit must be in [1, 1000]"))
			return
		}
		limit = parsed
	}
	var chainID *int64
	if v := q.Get("chain_id"); v != "" {
		parsed, err := parsePositiveInt64(v)
		if err != nil {
			writeError(w, apperr.Validation("chain_id must be a positive integer"))
			return
		}
		chainID = &parsed
	}

	dbRows, err := s.store.RecentPairs(r.Context(), chainID, limit)
	if err != nil {
		writeError(w, apperr.Upstream(err, "fetch pairs"))
		return
	}

	canonicalAddrs := s.canonicalPoolAddresses()
	includeExternal := q.Get("include_external") == "true"
	out := make([]PairRow, 0, len(dbRows))
	for _, r := range dbRows {
		canonical := canonicalAddrs[lowerAddress(r.PairAddress)]
		if !canonical && !includeExternal {
			continue
		}
		out = append(out, toPairRow(r, canonical))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": out})
}

// canonicalPoolAddresses collects every pool address the registry snapshot
// considers canonical, across all chains, keyed lowercase.
func (s *Server) canonicalPoolAddresses() map[string]bool {
	out := make(map[string]bool)
	for _, chain := range s.loader.Load().Chains {
		for _, pair := range chain.Pairs {
			out[lowerAddress(pair.PairAddress)] = true
		}
	}
	return out
}

func lowerAddress(s string) string {
	return strings.ToLower(s)
}

func (s *Server) handleLedgerRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 2000 {
			writeError(w, apperr.Validation("limit must be in [1, 2000]"))
			return
		}
		limit = parsed
	}
	var chainID *int64
	if v := q.Get("chain_id"); v != "" {
		parsed, err := parsePositiveInt64(v)
		if err != nil {
			writeError(w, apperr.Validation("chain_id must be a positive integer"))
			return
		}
		chainID = &parsed
	}

	dbRows, err := s.store.RecentLedgerEntries(r.Context(), chainID, q.Get("entry_type"), limit)
	if err != nil {
		writeError(w, apperr.Upstream(err, "fetch ledger entries"))
		return
	}
	rows := make([]LedgerRow, 0, len(dbRows))
	for _, r := range dbRows {
		rows = append(rows, toLedgerRow(r))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	minutes := 60
	if v := r.URL.Query().Get("minutes"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 43200 {
			writeError(w, apperr.Validation("minutes must be in [1, 43200]"))
			return
		}
		minutes = parsed
	}

	if s.olap == nil || !s.olap.Ready(r.Context()) {
		writeJSON(w, http.StatusOK, map[string]any{"warning": "clickhouse_unavailable", "buckets": []AnalyticsBucket{}})
		return
	}
	dbBuckets, err := s.olap.RecentBuckets(r.Context(), minutes)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"warning": "clickhouse_unavailable", "buckets": []AnalyticsBucket{}})
		return
	}
	buckets := make([]AnalyticsBucket, 0, len(dbBuckets))
	for _, b := range dbBuckets {
		buckets = append(buckets, toAnalyticsBucket(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

// EmitSwapRequest is the body of POST /debug/emit-swap-note.
type EmitSwapRequest struct {
	ChainID     int64  `json:"chain_id"`
	PoolAddress string `json:"pool_address"`
	UserAddress string `json:"user_address"`
	TokenIn     string `json:"token_in"`
	TokenOut    string `json:"token_out"`
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	CountryCode string `json:"country_code"`
}

func (s *Server) handleEmitSwapNote(w http.ResponseWriter, r *http.Request) {
	var req EmitSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if err := s.compliance.Check(req.CountryCode, req.UserAddress); err != nil {
		writeError(w, err)
		return
	}
	if req.ChainID <= 0 || req.TokenIn == "" || req.TokenOut == "" {
		writeError(w, apperr.Validation("chain_id, token_in and token_out are required"))
		return
	}

	noteID := notes.RandomID()
	correlationID := notes.RandomID()
	raw := &wire.DexTxRaw{
		NoteID:        noteID,
		CorrelationID: correlationID,
		ChainID:       req.ChainID,
		TxHash:        notes.RandomID(),
		PoolAddress:   req.PoolAddress,
		UserAddress:   req.UserAddress,
		Action:        string(notes.ActionSwap),
		TokenIn:       req.TokenIn,
		TokenOut:      req.TokenOut,
		AmountIn:      req.AmountIn,
		AmountOut:     req.AmountOut,
		OccurredAt:    wire.TimestampFromTime(time.Now().UTC()),
		Source:        notes.SourceAPIDebug,
	}
	if err := s.publisher.PublishRaw(r.Context(), noteID, correlationID, raw.Marshal()); err != nil {
		writeError(w, apperr.Upstream(err, "publish synthetic note"))
		return
	}
	s.hub.Broadcast(EventNoteIngested, map[string]string{"note_id": noteID, "correlation_id": correlationID})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "accepted",
		"note_id":        noteID,
		"correlation_id": correlationID,
		"topic":          s.settings.TxRaw,
		"published_at":   time.Now().UTC().Format(time.RFC3339),
	})
}

func parsePositiveInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("must be a positive integer")
	}
	return v, nil
}

func parsePositiveDecimal(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil || v.Sign() <= 0 {
		return decimal.Zero, apperr.Validation("must be a positive decimal")
	}
	return v, nil
}
