package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/tsegai/nexbank/internal/infrastructure/auth"
	service "github.com/tsegai/nexbank/internal/services"
	pkgerrors "github.com/tsegai/nexbank/pkg/errors"
)

type Handler struct {
	service service.TransferService
}

func NewHandler(s service.TransferService) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/transfers/initiate", h.InitiateTransfer).Methods("POST")
	r.HandleFunc("/transfers/verify-security-question", h.VerifySecurityQuestion).Methods("POST")
	r.HandleFunc("/transfers/verify-otp", h.VerifyOTP).Methods("POST")
	r.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	r.HandleFunc("/transactions/export-pdf", h.ExportStatement).Methods("POST")
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeEnvelope wraps the payload under the operation label, matching the
// uniform response shape used across the API.
func writeEnvelope(w http.ResponseWriter, status int, label string, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{label: payload})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pkgerrors.ErrAccountNotFound),
		errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrAccountNotActivated),
		errors.Is(err, pkgerrors.ErrSecurityAnswerInvalid):
		status = http.StatusForbidden
	case errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrSameAccount):
		status = http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrTransferSessionExpired),
		errors.Is(err, pkgerrors.ErrOTPInvalid),
		errors.Is(err, pkgerrors.ErrOTPExpired),
		errors.Is(err, pkgerrors.ErrOTPAlreadyUsed),
		errors.Is(err, pkgerrors.ErrInsufficientFunds):
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Store internals stay in the logs.
		msg = pkgerrors.ErrInternal.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func actingUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(errorResponse{Error: "user not authenticated"})
		return 0, false
	}
	return userID, true
}

func (h *Handler) InitiateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req struct {
		SenderAccount   string `json:"sender_account"`
		ReceiverAccount string `json:"receiver_account"`
		Amount          string `json:"amount"`
		Description     string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, pkgerrors.ErrInvalidInput)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, pkgerrors.ErrInvalidInput)
		return
	}

	err = h.service.InitiateTransfer(r.Context(), userID, service.InitiateTransferRequest{
		SenderAccount:   req.SenderAccount,
		ReceiverAccount: req.ReceiverAccount,
		Amount:          amount,
		Description:     req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, http.StatusCreated, "initiate_transfer", map[string]string{
		"message":   "Please answer the security question to proceed with the transfer",
		"next_step": "verify_security_question",
	})
}

func (h *Handler) VerifySecurityQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req struct {
		SecurityAnswer string `json:"security_answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, pkgerrors.ErrInvalidInput)
		return
	}

	if err := h.service.VerifySecurityQuestion(r.Context(), userID, req.SecurityAnswer); err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, "verify_security_question", map[string]string{
		"message":   "Security question verified. An OTP has been sent to your email",
		"next_step": "verify_otp",
	})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req struct {
		OTP string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, pkgerrors.ErrInvalidInput)
		return
	}

	result, err := h.service.VerifyOTPAndCommit(r.Context(), userID, req.OTP)
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, http.StatusCreated, "transfer", result.Transaction)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	query := service.HistoryQuery{
		AccountNumber: r.URL.Query().Get("account_number"),
	}
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		if t, err := parseQueryDate(raw); err == nil {
			query.StartDate = &t
		}
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		if t, err := parseQueryDate(raw); err == nil {
			query.EndDate = &t
		}
	}

	transactions, err := h.service.ListTransactions(r.Context(), userID, query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, "transactions", transactions)
}

func (h *Handler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req struct {
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
		AccountNumber string `json:"account_number"`
	}
	// Body is optional; dates default server-side.
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.StartDate == "" {
		req.StartDate = r.URL.Query().Get("start_date")
	}
	if req.EndDate == "" {
		req.EndDate = r.URL.Query().Get("end_date")
	}
	if req.AccountNumber == "" {
		req.AccountNumber = r.URL.Query().Get("account_number")
	}

	receipt, err := h.service.RequestStatement(r.Context(), userID, req.StartDate, req.EndDate, req.AccountNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeEnvelope(w, http.StatusAccepted, "transaction_pdf", map[string]string{
		"message": "Your transaction history PDF is being generated and will be sent to your email shortly",
		"email":   receipt.Email,
	})
}

// Malformed date filters are ignored rather than rejected, matching the
// lenient history listing behavior.
func parseQueryDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
