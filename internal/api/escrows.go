package api

import (
	"context"
	"net/http"
	"strings"

	"propie-escrow-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *EscrowService) createAccount(w http.ResponseWriter, r *http.Request) {
	var in models.CreateAccountInput
	if !decodeBody(w, r, &in) {
		return
	}
	account, err := s.ledger.CreateAccount(r.Context(), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, account)
}

func (s *EscrowService) listTransactionEscrows(w http.ResponseWriter, r *http.Request) {
	transactionId := strings.TrimSpace(r.URL.Query().Get("transaction_id"))
	if transactionId == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "transaction_id query parameter is required")
		return
	}
	accounts, err := s.ledger.GetTransactionEscrows(r.Context(), transactionId)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []*models.EscrowAccount{}
	}
	writeSuccess(w, http.StatusOK, accounts)
}

func (s *EscrowService) getAccount(w http.ResponseWriter, r *http.Request) {
	escrowId := chi.URLParam(r, "escrowId")
	account, err := s.ledger.GetEscrowAccount(r.Context(), escrowId)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "escrow account not found")
		return
	}
	writeSuccess(w, http.StatusOK, account)
}

func (s *EscrowService) getSummary(w http.ResponseWriter, r *http.Request) {
	escrowId := chi.URLParam(r, "escrowId")
	summary, err := s.ledger.GetEscrowSummary(r.Context(), escrowId)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "escrow account not found")
		return
	}
	writeSuccess(w, http.StatusOK, summary)
}

func (s *EscrowService) reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.ReconcileBalance(r.Context(), chi.URLParam(r, "escrowId"))
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, result)
}

func (s *EscrowService) depositFunds(w http.ResponseWriter, r *http.Request) {
	var in models.DepositInput
	if !decodeBody(w, r, &in) {
		return
	}
	fund, err := s.ledger.DepositFunds(r.Context(), chi.URLParam(r, "escrowId"), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, fund)
}

func (s *EscrowService) markConditionMet(w http.ResponseWriter, r *http.Request) {
	var in models.VerifyConditionInput
	if !decodeBody(w, r, &in) {
		return
	}
	condition, err := s.ledger.MarkConditionMet(r.Context(), chi.URLParam(r, "escrowId"), chi.URLParam(r, "conditionId"), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, condition)
}

func (s *EscrowService) failCondition(w http.ResponseWriter, r *http.Request) {
	var in models.VerifyConditionInput
	if !decodeBody(w, r, &in) {
		return
	}
	condition, err := s.ledger.FailCondition(r.Context(), chi.URLParam(r, "escrowId"), chi.URLParam(r, "conditionId"), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, condition)
}

type completeMilestoneRequest struct {
	CompletedBy string `json:"completed_by"`
}

func (s *EscrowService) completeMilestone(w http.ResponseWriter, r *http.Request) {
	var req completeMilestoneRequest
	if !decodeBody(w, r, &req) {
		return
	}
	milestone, err := s.ledger.CompleteMilestone(r.Context(), chi.URLParam(r, "escrowId"), chi.URLParam(r, "milestoneId"), req.CompletedBy)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, milestone)
}

func (s *EscrowService) raiseDispute(w http.ResponseWriter, r *http.Request) {
	s.close(w, r, s.ledger.RaiseDispute)
}

func (s *EscrowService) cancelEscrow(w http.ResponseWriter, r *http.Request) {
	s.close(w, r, s.ledger.CancelEscrow)
}

func (s *EscrowService) expireEscrow(w http.ResponseWriter, r *http.Request) {
	s.close(w, r, s.ledger.ExpireEscrow)
}

func (s *EscrowService) close(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, string, models.CloseInput) (*models.EscrowAccount, error)) {
	var in models.CloseInput
	if !decodeBody(w, r, &in) {
		return
	}
	account, err := fn(r.Context(), chi.URLParam(r, "escrowId"), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, account)
}
