// Package api implements the three HTTP/JSON ingress endpoints of spec.md
// §6 over gorilla/mux: GET claims/{token}, POST claims/mint, POST
// claims/confirm. gorilla/mux is used here in place of dcrlnd's
// gRPC + grpc-gateway stack — see DESIGN.md for why a hand-authored
// .pb.go layer was rejected.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/decred/slog"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mr-tron/base58"
	"github.com/solmint/claimengine/build"
	"github.com/solmint/claimengine/internal/engine"
	"github.com/solmint/claimengine/internal/registry"
	"github.com/solmint/claimengine/internal/streamhub"
)

var log = build.NewSubLogger("API ", nil)

// UseLogger installs a new root logger.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Server wires the Engine to an HTTP mux.
type Server struct {
	engine *engine.Engine
	mux    *mux.Router
	hub    *streamhub.Hub
	stream streamServer
}

// NewServer builds a Server routing the three ingress endpoints, plus the
// additive websocket confirmation-status relay of SPEC_FULL.md §6. hub is
// the same Hub passed as engine.Config.Updates, so the submitter.Update
// ticks Confirm publishes reach a client subscribed before Confirm ever
// runs.
func NewServer(e *engine.Engine, hub *streamhub.Hub) *Server {
	s := &Server{engine: e, mux: mux.NewRouter(), hub: hub, stream: newStreamServer()}

	s.mux.HandleFunc("/claims/{token}", s.handleEligibility).Methods(http.MethodGet)
	s.mux.HandleFunc("/claims/mint", s.handleMint).Methods(http.MethodPost)
	s.mux.HandleFunc("/claims/confirm", s.handleConfirm).Methods(http.MethodPost)
	s.mux.HandleFunc("/claims/{token}/stream", s.handleStream).Methods(http.MethodGet)
	s.mux.Use(requestIDMiddleware)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// requestIDMiddleware tags every request with a fresh correlation ID so a
// single claim's Prepare and Confirm log lines can be grepped together
// across the daemon's two API calls.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		log.Tracef("request %s: %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	tokenStr := vars["token"]
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "wallet query parameter is required"})
		return
	}

	token, err := solana.PublicKeyFromBase58(tokenStr)
	if err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "invalid token address"})
		return
	}

	elig, err := s.engine.EligibilitySnapshot(ctx, token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, eligibilityResponse{
		WalletAddress:      wallet,
		TokenAddress:       tokenStr,
		TotalClaimed:       elig.TotalMinted.String(),
		AvailableToClaim:   elig.AvailableToClaim.String(),
		MaxClaimableNow:    elig.MaxClaimableNow.String(),
		TokensPerPeriod:    elig.TokensPerPeriod.String(),
		InflationPeriods:   elig.InflationPeriods,
		TokenLaunchTime:    elig.LaunchTime.UnixMilli(),
		NextInflationTime:  elig.NextInflationTime.UnixMilli(),
		CanClaimNow:        elig.CanClaimNow,
		TimeUntilNextClaim: elig.TimeUntilNextClaim(time.Now()).Milliseconds(),
	})
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "malformed JSON body"})
		return
	}

	token, err := solana.PublicKeyFromBase58(req.TokenAddress)
	if err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "invalid tokenAddress"})
		return
	}
	user, err := solana.PublicKeyFromBase58(req.UserWallet)
	if err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "invalid userWallet"})
		return
	}
	if req.ClaimAmount == "" {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "claimAmount is required"})
		return
	}

	result, err := s.engine.Prepare(ctx, token, user, req.ClaimAmount)
	if err != nil {
		writeError(w, err)
		return
	}

	txBytes, err := result.Transaction.MarshalBinary()
	if err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrMisconfiguration, Msg: "serializing unsigned transaction"})
		return
	}

	writeJSON(w, http.StatusOK, mintResponse{
		Success:        true,
		Transaction:    base58.Encode(txBytes),
		TransactionKey: string(result.TransactionKey),
		ClaimAmount:    result.ClaimAmount,
		Message:        "sign and submit this transaction to claims/confirm",
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "malformed JSON body"})
		return
	}
	if req.SignedTransaction == "" || req.TransactionKey == "" {
		writeError(w, &engine.Error{Kind: engine.ErrMissingField, Msg: "signedTransaction and transactionKey are required"})
		return
	}

	raw, err := base58.Decode(req.SignedTransaction)
	if err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrSignatureInvalid, Msg: "signedTransaction is not valid base58"})
		return
	}

	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		writeError(w, &engine.Error{Kind: engine.ErrSignatureInvalid, Msg: "signedTransaction failed to deserialize"})
		return
	}

	result, err := s.engine.Confirm(ctx, tx, registry.TransactionKey(req.TransactionKey))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmResponse{
		Success:              true,
		TransactionSignature: result.Signature.String(),
		TokenAddress:         result.Token.String(),
		ClaimAmount:          result.ClaimAmount,
		Confirmation:         confirmationStatusDTO{Status: result.Status.ConfirmationStatus},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if engErr, ok := err.(*engine.Error); ok {
		log.Debugf("request failed: %s: %v", engErr.Kind, engErr)
		writeJSON(w, engErr.HTTPStatus(), errorResponse{
			Error:             string(engErr.Kind),
			Message:           engErr.Msg,
			NextInflationTime: engErr.NextInflationTime,
		})
		return
	}

	log.Errorf("request failed with unmapped error: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   string(engine.ErrMisconfiguration),
		Message: err.Error(),
	})
}
