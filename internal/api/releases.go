package api

import (
	"net/http"

	"propie-escrow-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *EscrowService) requestRelease(w http.ResponseWriter, r *http.Request) {
	var in models.ReleaseRequestInput
	if !decodeBody(w, r, &in) {
		return
	}
	release, err := s.ledger.RequestRelease(r.Context(), chi.URLParam(r, "escrowId"), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, release)
}

// approveRelease answers 502 when the approval was recorded but the payment
// for the now fully approved release failed
func (s *EscrowService) approveRelease(w http.ResponseWriter, r *http.Request) {
	var in models.ApprovalInput
	if !decodeBody(w, r, &in) {
		return
	}
	approval, err := s.ledger.ApproveRelease(r.Context(), chi.URLParam(r, "escrowId"), chi.URLParam(r, "releaseId"), in)
	if err != nil {
		writeLedgerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, approval)
}
