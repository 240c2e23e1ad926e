// Package api exposes the ledger executor over HTTP.
//
// Mutating endpoints take a JSON body carrying the invocation (caller,
// optional caller signature, multisig proofs) and the operation's request.
// Token amounts are human decimal strings at domain.TokenDecimals; payment
// amounts use the payment asset's decimals.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"diamond-token/internal/domain"
	"diamond-token/internal/ledger"
	"diamond-token/internal/observability"
	"diamond-token/internal/storage"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Ledger is the executor surface the API drives.
type Ledger interface {
	Engine() *ledger.Engine
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
	Events() storage.EventStore

	Initialize(ctx context.Context, inv ledger.Invocation, req ledger.InitializeRequest) (*ledger.Result, error)
	Issue(ctx context.Context, inv ledger.Invocation, req ledger.IssueRequest) (*ledger.Result, error)
	Burn(ctx context.Context, inv ledger.Invocation, req ledger.BurnRequest) (*ledger.Result, error)
	UpdateMaxSupply(ctx context.Context, inv ledger.Invocation, req ledger.UpdateMaxSupplyRequest) (*ledger.Result, error)
	Pause(ctx context.Context, inv ledger.Invocation) (*ledger.Result, error)
	Unpause(ctx context.Context, inv ledger.Invocation) (*ledger.Result, error)
	AddToBlacklist(ctx context.Context, inv ledger.Invocation, req ledger.BlacklistRequest) (*ledger.Result, error)
	RemoveFromBlacklist(ctx context.Context, inv ledger.Invocation, req ledger.BlacklistRequest) (*ledger.Result, error)
	Purchase(ctx context.Context, inv ledger.Invocation, req ledger.PurchaseRequest) (*ledger.Result, error)
	Transfer(ctx context.Context, inv ledger.Invocation, req ledger.TransferRequest) (*ledger.Result, error)
	Deposit(ctx context.Context, inv ledger.Invocation, req ledger.DepositRequest) (*ledger.Result, error)
	CheckTransfer(ctx context.Context, inv ledger.Invocation, req ledger.CheckTransferRequest) (*ledger.Result, error)
	VerifyReserve(ctx context.Context, inv ledger.Invocation) (*ledger.Result, error)
}

// Server holds the HTTP handlers.
type Server struct {
	ledger    Ledger
	logger    *log.Logger
	metrics   http.Handler
	storage   string
	startedAt time.Time
}

// Options contains configuration for creating a Server.
type Options struct {
	Ledger         Ledger
	Logger         *log.Logger
	MetricsHandler http.Handler // Default: observability.Handler()
	Storage        string       // reported by /status
}

// New creates a Server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.MetricsHandler
	if metrics == nil {
		metrics = observability.Handler()
	}
	if !opts.Ledger.Engine().RequiresCallerSignatures() {
		logger.Println("WARNING: caller signatures are not verified; any client can act as any caller")
	}
	return &Server{
		ledger:    opts.Ledger,
		logger:    logger,
		metrics:   metrics,
		storage:   opts.Storage,
		startedAt: time.Now(),
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", s.metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/holdings/{owner}", s.handleHoldings)
		r.Get("/events", s.handleEvents)
		r.Get("/quote", s.handleQuote)

		r.Post("/initialize", s.handleInitialize)
		r.Post("/issue", s.handleIssue)
		r.Post("/burn", s.handleBurn)
		r.Post("/max-supply", s.handleUpdateMaxSupply)
		r.Post("/pause", s.handlePause)
		r.Post("/unpause", s.handleUnpause)
		r.Post("/blacklist", s.handleBlacklistAdd)
		r.Post("/blacklist/remove", s.handleBlacklistRemove)
		r.Post("/purchase", s.handlePurchase)
		r.Post("/transfer", s.handleTransfer)
		r.Post("/transfer/check", s.handleCheckTransfer)
		r.Post("/deposit", s.handleDeposit)
		r.Post("/reserve/verify", s.handleVerifyReserve)
	})
	return r
}

type requestIDKey struct{}

// RequestID propagates X-Request-ID, generating one when absent.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request id stored by RequestID.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	var bad *badRequestError
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}
	if errors.Is(err, storage.ErrVersionConflict) {
		return http.StatusConflict
	}
	le, ok := domain.AsLedgerError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case le == domain.ErrNotInitialized:
		return http.StatusNotFound
	case le.Kind == domain.KindValidation:
		return http.StatusBadRequest
	case le.Kind == domain.KindAuthorization:
		return http.StatusForbidden
	case le.Kind == domain.KindInvariant, le.Kind == domain.KindTemporal:
		return http.StatusConflict
	case le.Kind == domain.KindOracle:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

// badRequestError marks malformed input rejected before the ledger runs.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}
