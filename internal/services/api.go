package services

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"xswap/swapd/internal/models"
	"xswap/swapd/internal/stores"
	"xswap/swapd/internal/utils/address"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	contentType = "Content-Type"

	// Caller identity header. The service trusts its deployment boundary;
	// authenticating callers is out of scope.
	callerHeader = "X-Swap-Caller"
)

type ApiService struct {
	server *http.Server
	ledger *SwapLedger
	events *EventPublisher
	log    zerolog.Logger

	upgrader websocket.Upgrader
}

func NewApiService(ledger *SwapLedger, events *EventPublisher, log zerolog.Logger, listenAddr string) *ApiService {
	a := &ApiService{
		ledger: ledger,
		events: events,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/swaps", a.handleInitiate).Methods(http.MethodPost)
	api.HandleFunc("/swaps/{id}", a.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/swaps/{id}/active", a.handleIsActive).Methods(http.MethodGet)
	api.HandleFunc("/swaps/{id}/claim", a.handleClaim).Methods(http.MethodPost)
	api.HandleFunc("/swaps/{id}/refund", a.handleRefund).Methods(http.MethodPost)
	api.HandleFunc("/events", a.handleEvents).Methods(http.MethodGet)

	a.server = &http.Server{
		Addr:    listenAddr,
		Handler: handlers.CombinedLoggingHandler(log, r),
	}
	return a
}

func (a *ApiService) Start() error {
	return a.server.ListenAndServe()
}

func (a *ApiService) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (a *ApiService) Router() http.Handler {
	return a.server.Handler
}

type initiateRequest struct {
	Participant        string `json:"participant"`
	Amount             string `json:"amount"` // decimal string
	Hashlock           string `json:"hashlock"`
	Timelock           int64  `json:"timelock"`
	DestinationAddress string `json:"destination_address"`
}

type initiateResponse struct {
	SwapID common.Hash `json:"swap_id"`
}

type claimRequest struct {
	Preimage hexutil.Bytes `json:"preimage"`
}

type swapResponse struct {
	Swap   *models.Swap      `json:"swap"`
	Exists bool              `json:"exists"`
	Status models.SwapStatus `json:"status"`
}

type activeResponse struct {
	Active bool `json:"active"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (a *ApiService) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := a.caller(w, r)
	if !ok {
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	participant, err := address.Parse(req.Participant)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid participant address")
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	hashlock, err := parseHash(req.Hashlock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hashlock")
		return
	}

	id, err := a.ledger.Initiate(ctx, caller, participant, amount, hashlock, req.Timelock, req.DestinationAddress)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, initiateResponse{SwapID: id})
}

func (a *ApiService) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, err := parseHash(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid swap id")
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := a.ledger.Claim(ctx, caller, id, req.Preimage); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ApiService) handleRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	id, err := parseHash(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid swap id")
		return
	}

	if err := a.ledger.Refund(ctx, caller, id); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *ApiService) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid swap id")
		return
	}

	swap, err := a.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, swapResponse{
		Swap:   swap,
		Exists: swap.Exists(),
		Status: swap.Status(),
	})
}

func (a *ApiService) handleIsActive(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid swap id")
		return
	}

	active, err := a.ledger.IsActive(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, activeResponse{Active: active})
}

// handleEvents upgrades to a websocket, replays journaled events from the
// optional `from` sequence number, then streams live events until the client
// goes away.
func (a *ApiService) handleEvents(w http.ResponseWriter, r *http.Request) {
	var fromSeq uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from sequence")
			return
		}
		fromSeq = n
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub, cancel := a.events.Subscribe(64)
	defer cancel()

	if fromSeq > 0 {
		err := a.events.Replay(r.Context(), fromSeq, func(ev *models.SwapEvent) error {
			return conn.WriteJSON(ev)
		})
		if err != nil {
			a.log.Debug().Err(err).Msg("event replay aborted")
			return
		}
	}

	// read loop only to observe the close handshake
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (a *ApiService) caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, err := address.Parse(r.Header.Get(callerHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or invalid "+callerHeader+" header")
		return common.Address{}, false
	}
	return caller, true
}

func (a *ApiService) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, stores.ErrSwapNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, stores.ErrDuplicateSwap),
		errors.Is(err, ErrAlreadySettled),
		errors.Is(err, ErrInvalidPreimage),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrNotYetExpired):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTransferFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		a.log.Error().Err(err).Msg("ledger operation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.New("hash must be 32 bytes")
	}
	return common.BytesToHash(b), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(contentType, "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
