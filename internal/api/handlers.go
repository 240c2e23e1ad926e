package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"diamond-token/internal/access"
	"diamond-token/internal/domain"
	"diamond-token/internal/ledger"
	"diamond-token/internal/pricing"
)

// invocation is the caller envelope shared by every mutating request.
type invocation struct {
	Caller          domain.Pubkey  `json:"caller"`
	CallerSignature []byte         `json:"caller_signature,omitempty"`
	Proofs          []access.Proof `json:"proofs,omitempty"`
}

func (i invocation) toLedger() (ledger.Invocation, error) {
	if i.Caller.IsZero() {
		return ledger.Invocation{}, badRequest("caller is required")
	}
	return ledger.Invocation{
		Caller:          i.Caller,
		CallerSignature: i.CallerSignature,
		Proofs:          i.Proofs,
	}, nil
}

type initializeRequest struct {
	invocation
	InitialSupply string          `json:"initial_supply"`
	MaxSupply     string          `json:"max_supply"`
	Mint          domain.Pubkey   `json:"mint"`
	Owners        []domain.Pubkey `json:"owners"`
	Threshold     uint64          `json:"threshold"`
}

type issueRequest struct {
	invocation
	Amount          string        `json:"amount"`
	PaymentMint     domain.Pubkey `json:"payment_mint"`
	PaymentDecimals uint8         `json:"payment_decimals"`
}

type burnRequest struct {
	invocation
	Amount    string         `json:"amount"`
	Secondary *domain.Pubkey `json:"secondary,omitempty"`
}

type maxSupplyRequest struct {
	invocation
	NewMaxSupply string `json:"new_max_supply"`
}

type blacklistRequest struct {
	invocation
	Address domain.Pubkey `json:"address"`
}

type amountRequest struct {
	invocation
	Amount string `json:"amount"`
}

type transferRequest struct {
	invocation
	To     domain.Pubkey `json:"to"`
	Amount string        `json:"amount"`
}

type checkTransferRequest struct {
	invocation
	Source      domain.Pubkey `json:"source"`
	Destination domain.Pubkey `json:"destination"`
	Amount      string        `json:"amount"`
}

type depositRequest struct {
	invocation
	Owner    domain.Pubkey `json:"owner"`
	Mint     domain.Pubkey `json:"mint"`
	Decimals uint8         `json:"decimals"`
	Amount   string        `json:"amount"`
}

// eventResponse is the wire form of a ledger record.
type eventResponse struct {
	EventID   string           `json:"event_id"`
	Kind      domain.EventKind `json:"kind"`
	Version   uint64           `json:"version"`
	Actor     domain.Pubkey    `json:"actor"`
	Timestamp int64            `json:"timestamp"`
	Payload   any              `json:"payload"`
}

type resultResponse struct {
	RequestID string          `json:"request_id"`
	Version   uint64          `json:"version"`
	Events    []eventResponse `json:"events"`
}

type errorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Code      uint32 `json:"code,omitempty"`
	Message   string `json:"message"`
}

type stateResponse struct {
	Authority          domain.Pubkey   `json:"authority"`
	Mint               domain.Pubkey   `json:"mint"`
	TotalSupply        string          `json:"total_supply"`
	MaxSupply          string          `json:"max_supply"`
	IsPaused           bool            `json:"is_paused"`
	LastPauseTimestamp int64           `json:"last_pause_timestamp"`
	Multisig           domain.Pubkey   `json:"multisig"`
	Vault              domain.Pubkey   `json:"vault"`
	Bump               uint8           `json:"bump"`
	Owners             []domain.Pubkey `json:"owners"`
	Threshold          uint64          `json:"threshold"`
	Blacklist          []domain.Pubkey `json:"blacklist"`
	VaultReserve       string          `json:"vault_reserve"`
	Version            uint64          `json:"version"`
}

type holdingResponse struct {
	Mint      domain.Pubkey `json:"mint"`
	BaseUnits uint64        `json:"base_units"`
	Amount    string        `json:"amount,omitempty"`
	IsToken   bool          `json:"is_token"`
}

type quoteResponse struct {
	Amount          string        `json:"amount"`
	PaymentMint     domain.Pubkey `json:"payment_mint"`
	PaymentDecimals uint8         `json:"payment_decimals"`
	PaymentBase     uint64        `json:"payment_base_units"`
	Payment         string        `json:"payment"`
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	StartedAt   time.Time `json:"started_at"`
	Storage     string    `json:"storage"`
	Initialized bool      `json:"initialized"`
	Version     uint64    `json:"version"`
	Paused      bool      `json:"paused"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.startedAt).Truncate(time.Second).String(),
		StartedAt: s.startedAt,
		Storage:   s.storage,
	}
	snap, err := s.ledger.Snapshot(r.Context())
	switch {
	case err == nil:
		resp.Initialized = true
		resp.Version = snap.Version
		resp.Paused = snap.State.IsPaused
	case !errors.Is(err, domain.ErrNotInitialized):
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st := snap.State
	reserveMint := s.ledger.Engine().Pricing().Config().ReserveMint
	writeJSON(w, http.StatusOK, stateResponse{
		Authority:          st.Authority,
		Mint:               st.Mint,
		TotalSupply:        FormatAmount(st.TotalSupply, domain.TokenDecimals),
		MaxSupply:          FormatAmount(st.MaxSupply, domain.TokenDecimals),
		IsPaused:           st.IsPaused,
		LastPauseTimestamp: st.LastPauseTimestamp,
		Multisig:           st.Multisig,
		Vault:              st.Vault,
		Bump:               st.Bump,
		Owners:             snap.Multisig.Owners,
		Threshold:          snap.Multisig.Threshold,
		Blacklist:          snap.Blacklist.Addresses,
		VaultReserve:       FormatAmount(snap.Holdings.Balance(st.Vault, reserveMint), domain.StableDecimals),
		Version:            snap.Version,
	})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	owner, err := domain.ParsePubkey(chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, badRequest("invalid owner"))
		return
	}
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cfg := s.ledger.Engine().Pricing().Config()
	out := []holdingResponse{}
	for _, h := range snap.Holdings.Entries() {
		if h.Owner != owner {
			continue
		}
		resp := holdingResponse{Mint: h.Mint, BaseUnits: h.Amount}
		switch {
		case h.Mint == snap.State.Mint:
			resp.IsToken = true
			resp.Amount = FormatAmount(h.Amount, domain.TokenDecimals)
		case h.Mint == cfg.NativeMint:
			resp.Amount = FormatAmount(h.Amount, domain.NativeDecimals)
		default:
			if _, ok := cfg.StablePrices[h.Mint]; ok {
				resp.Amount = FormatAmount(h.Amount, domain.StableDecimals)
			}
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	store := s.ledger.Events()
	if store == nil {
		s.writeError(w, r, errors.New("no record store configured"))
		return
	}

	q := r.URL.Query()
	var (
		events []*domain.Event
		err    error
	)
	if kind := domain.EventKind(q.Get("kind")); kind != "" {
		if !kind.IsValid() {
			s.writeError(w, r, badRequest(fmt.Sprintf("unknown kind %q", kind)))
			return
		}
		events, err = store.GetByKind(r.Context(), kind)
	} else {
		from, ferr := queryInt(q.Get("from"), 0)
		to, terr := queryInt(q.Get("to"), time.Now().Unix())
		if ferr != nil || terr != nil {
			s.writeError(w, r, badRequest("from and to must be unix seconds"))
			return
		}
		events, err = store.GetByTimeRange(r.Context(), from, to)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := ParseAmount(q.Get("amount"), domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	mint, err := domain.ParsePubkey(q.Get("payment_mint"))
	if err != nil {
		s.writeError(w, r, badRequest("invalid payment_mint"))
		return
	}
	dec, err := strconv.ParseUint(q.Get("payment_decimals"), 10, 8)
	if err != nil {
		s.writeError(w, r, badRequest("invalid payment_decimals"))
		return
	}

	asset := pricing.Asset{Mint: mint, Decimals: uint8(dec)}
	payment, err := s.ledger.Engine().Pricing().Payment(r.Context(), amount, asset, time.Now().Unix())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		Amount:          FormatAmount(amount, domain.TokenDecimals),
		PaymentMint:     mint,
		PaymentDecimals: asset.Decimals,
		PaymentBase:     payment,
		Payment:         FormatAmount(payment, asset.Decimals),
	})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	initial := uint64(0)
	if req.InitialSupply != "" {
		var err error
		if initial, err = ParseAmount(req.InitialSupply, domain.TokenDecimals); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	maxSupply, err := ParseAmount(req.MaxSupply, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Initialize(r.Context(), inv, ledger.InitializeRequest{
		InitialSupply: initial,
		MaxSupply:     maxSupply,
		Mint:          req.Mint,
		Owners:        req.Owners,
		Threshold:     req.Threshold,
	})
	s.writeResult(w, r, http.StatusCreated, res, err)
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	amount, err := ParseAmount(req.Amount, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Issue(r.Context(), inv, ledger.IssueRequest{
		Amount:          amount,
		PaymentMint:     req.PaymentMint,
		PaymentDecimals: req.PaymentDecimals,
	})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	amount, err := ParseAmount(req.Amount, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Burn(r.Context(), inv, ledger.BurnRequest{Amount: amount, Secondary: req.Secondary})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleUpdateMaxSupply(w http.ResponseWriter, r *http.Request) {
	var req maxSupplyRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	maxSupply, err := ParseAmount(req.NewMaxSupply, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.UpdateMaxSupply(r.Context(), inv, ledger.UpdateMaxSupplyRequest{NewMaxSupply: maxSupply})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req invocation
	inv, ok := s.decode(w, r, &req, &req)
	if !ok {
		return
	}
	res, err := s.ledger.Pause(r.Context(), inv)
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	var req invocation
	inv, ok := s.decode(w, r, &req, &req)
	if !ok {
		return
	}
	res, err := s.ledger.Unpause(r.Context(), inv)
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleBlacklistAdd(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	res, err := s.ledger.AddToBlacklist(r.Context(), inv, ledger.BlacklistRequest{Address: req.Address})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleBlacklistRemove(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	res, err := s.ledger.RemoveFromBlacklist(r.Context(), inv, ledger.BlacklistRequest{Address: req.Address})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	amount, err := ParseAmount(req.Amount, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Purchase(r.Context(), inv, ledger.PurchaseRequest{Amount: amount})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	amount, err := ParseAmount(req.Amount, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Transfer(r.Context(), inv, ledger.TransferRequest{To: req.To, Amount: amount})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleCheckTransfer(w http.ResponseWriter, r *http.Request) {
	var req checkTransferRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	amount, err := ParseAmount(req.Amount, domain.TokenDecimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.CheckTransfer(r.Context(), inv, ledger.CheckTransferRequest{
		Source:      req.Source,
		Destination: req.Destination,
		Amount:      amount,
	})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	inv, ok := s.decode(w, r, &req, &req.invocation)
	if !ok {
		return
	}
	amount, err := ParseAmount(req.Amount, req.Decimals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.ledger.Deposit(r.Context(), inv, ledger.DepositRequest{Owner: req.Owner, Mint: req.Mint, Amount: amount})
	s.writeResult(w, r, http.StatusOK, res, err)
}

func (s *Server) handleVerifyReserve(w http.ResponseWriter, r *http.Request) {
	var req invocation
	inv, ok := s.decode(w, r, &req, &req)
	if !ok {
		return
	}
	res, err := s.ledger.VerifyReserve(r.Context(), inv)
	s.writeResult(w, r, http.StatusOK, res, err)
}

// decode reads the JSON body into dst and extracts the invocation.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, env *invocation) (ledger.Invocation, bool) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, badRequest(fmt.Sprintf("decode request: %v", err)))
		return ledger.Invocation{}, false
	}
	inv, err := env.toLedger()
	if err != nil {
		s.writeError(w, r, err)
		return ledger.Invocation{}, false
	}
	return inv, true
}

func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, status int, res *ledger.Result, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := resultResponse{
		RequestID: RequestIDFrom(r.Context()),
		Version:   res.Snapshot.Version,
		Events:    make([]eventResponse, 0, len(res.Events)),
	}
	for i := range res.Events {
		out.Events = append(out.Events, toEventResponse(&res.Events[i]))
	}
	writeJSON(w, status, out)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{
		RequestID: RequestIDFrom(r.Context()),
		Error:     "internal_error",
		Message:   http.StatusText(status),
	}
	if le, ok := domain.AsLedgerError(err); ok {
		resp.Error = le.Name
		resp.Code = le.Code
		resp.Message = le.Message
	} else if status != http.StatusInternalServerError {
		resp.Error = "bad_request"
		resp.Message = err.Error()
		if status == http.StatusConflict {
			resp.Error = "conflict"
		}
	}
	if status == http.StatusInternalServerError {
		s.logger.Printf("request %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, resp)
}

func toEventResponse(e *domain.Event) eventResponse {
	return eventResponse{
		EventID:   e.EventID,
		Kind:      e.Kind,
		Version:   e.Version,
		Actor:     e.Actor,
		Timestamp: e.Timestamp,
		Payload:   e.Payload,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func queryInt(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
