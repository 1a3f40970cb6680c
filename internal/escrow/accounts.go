package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"propie-escrow-go/internal/models"
	"propie-escrow-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAccount builds a new escrow account from caller supplied prototypes.
// Every participant, condition and milestone gets a generated id; references
// between prototypes use their keys and are rewritten to the generated ids.
func (l *Ledger) CreateAccount(ctx context.Context, in models.CreateAccountInput) (*models.EscrowAccount, error) {
	if err := validateCreateInput(in); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	now := l.nowFn()
	account := &models.EscrowAccount{
		Id:            l.newId(),
		TransactionId: in.TransactionId,
		PropertyId:    in.PropertyId,
		Status:        models.EscrowStatusCreated,
		Balance:       decimal.Zero,
		Currency:      currency,
		Participants:  make([]models.Participant, 0, len(in.Participants)),
		Conditions:    make([]models.Condition, 0, len(in.Conditions)),
		Milestones:    make([]models.Milestone, 0, len(in.Milestones)),
		Funds:         []models.Fund{},
		Releases:      []models.Release{},
		Metadata:      in.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	participantIds := make(map[string]string)
	for _, p := range in.Participants {
		id := l.newId()
		if p.Key != "" {
			participantIds[p.Key] = id
		}
		account.Participants = append(account.Participants, models.Participant{
			Id:                id,
			Key:               p.Key,
			Type:              p.Type,
			Name:              p.Name,
			Email:             p.Email,
			Phone:             p.Phone,
			Role:              p.Role,
			Permissions:       append([]models.Permission(nil), p.Permissions...),
			SignatureRequired: p.SignatureRequired,
		})
	}

	conditionIds := make(map[string]string)
	for _, c := range in.Conditions {
		id := l.newId()
		if c.Key != "" {
			conditionIds[c.Key] = id
		}
		priority := c.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		account.Conditions = append(account.Conditions, models.Condition{
			Id:                id,
			Key:               c.Key,
			Type:              c.Type,
			Title:             c.Title,
			Description:       c.Description,
			Status:            models.ConditionPending,
			Priority:          priority,
			RequiredApprovers: mapKeys(c.RequiredApprovers, participantIds),
			DueDate:           c.DueDate,
		})
	}

	milestoneIds := make(map[string]string)
	for _, m := range in.Milestones {
		if m.Key != "" {
			milestoneIds[m.Key] = l.newId()
		}
	}
	for _, m := range in.Milestones {
		id, ok := milestoneIds[m.Key]
		if !ok {
			id = l.newId()
		}
		account.Milestones = append(account.Milestones, models.Milestone{
			Id:                id,
			Key:               m.Key,
			Title:             m.Title,
			Description:       m.Description,
			Status:            models.MilestonePending,
			Order:             m.Order,
			DueDate:           m.DueDate,
			ReleaseAmount:     m.ReleaseAmount,
			ReleasePercentage: m.ReleasePercentage,
			Conditions:        mapKeys(m.Conditions, conditionIds),
			Dependencies:      mapKeys(m.Dependencies, milestoneIds),
			Participants:      mapKeys(m.Participants, participantIds),
		})
	}

	if err := l.store.CreateAccount(ctx, account); err != nil {
		zap.L().Error("Failed to create escrow account",
			zap.String("transaction_id", in.TransactionId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create escrow account: %w", err)
	}

	zap.L().Info("Escrow account created",
		zap.String("escrow_id", account.Id),
		zap.String("transaction_id", account.TransactionId),
		zap.String("property_id", account.PropertyId),
		zap.Int("participants", len(account.Participants)),
		zap.Int("conditions", len(account.Conditions)),
		zap.Int("milestones", len(account.Milestones)))

	m := &mutation{account: account, now: now}
	m.emit(models.EventAccountCreated, "account", account.Id, "", decimal.Zero)
	l.dispatch(ctx, m)

	return account, nil
}

func mapKeys(keys []string, ids map[string]string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, ids[k])
	}
	return out
}

// DepositFunds appends a fund to the account and credits its balance
func (l *Ledger) DepositFunds(ctx context.Context, escrowId string, in models.DepositInput) (*models.Fund, error) {
	if err := validateAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	source := in.Source
	if source == "" {
		source = models.FundSourceBuyerDeposit
	}
	if !validFundSources[source] {
		return nil, invalid("source", "unknown fund source %q", in.Source)
	}
	method := in.PaymentMethod
	if method == "" {
		method = models.PaymentBankTransfer
	}
	if !validPaymentMethods[method] {
		return nil, invalid("payment_method", "unknown payment method %q", in.PaymentMethod)
	}

	var fund models.Fund
	_, err := l.update(ctx, escrowId, func(m *mutation) error {
		account := m.account
		if err := ensureOpen(account); err != nil {
			return err
		}

		currency := strings.ToUpper(strings.TrimSpace(in.Currency))
		if currency == "" {
			currency = account.Currency
		}
		if currency != account.Currency {
			return invalid("currency", "deposit in %s into a %s escrow", currency, account.Currency)
		}

		depositor := findParticipant(account, in.DepositedBy)
		if depositor < 0 {
			return notFound("participant", in.DepositedBy)
		}

		releaseConditions := make([]string, 0, len(in.ReleaseConditions))
		for _, ref := range in.ReleaseConditions {
			idx := findCondition(account, ref)
			if idx < 0 {
				return notFound("condition", ref)
			}
			releaseConditions = append(releaseConditions, account.Conditions[idx].Id)
		}

		fund = models.Fund{
			Id:                l.newId(),
			Amount:            in.Amount,
			ReleasedAmount:    decimal.Zero,
			Currency:          currency,
			Source:            source,
			DepositedBy:       account.Participants[depositor].Id,
			DepositedAt:       m.now,
			Status:            models.FundDeposited,
			PaymentMethod:     method,
			Reference:         in.Reference,
			Purpose:           in.Purpose,
			ReleaseConditions: releaseConditions,
			Metadata:          in.Metadata,
		}
		account.Funds = append(account.Funds, fund)
		m.record(models.MovementDeposit, in.Amount, fund.Id, fund.DepositedBy, l.newId())
		m.emit(models.EventFundsDeposited, "fund", fund.Id, fund.DepositedBy, in.Amount)

		zap.L().Info("Funds deposited",
			zap.String("escrow_id", account.Id),
			zap.String("fund_id", fund.Id),
			zap.String("amount", in.Amount.String()),
			zap.String("balance", account.Balance.String()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fund, nil
}

// GetEscrowAccount returns the account, or nil when it does not exist
func (l *Ledger) GetEscrowAccount(ctx context.Context, escrowId string) (*models.EscrowAccount, error) {
	account, err := l.store.GetAccount(ctx, escrowId)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			zap.L().Debug("Escrow account not found", zap.String("escrow_id", escrowId))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get escrow %s: %w", escrowId, err)
	}
	return account, nil
}

// GetTransactionEscrows returns every account owned by a transaction, oldest first
func (l *Ledger) GetTransactionEscrows(ctx context.Context, transactionId string) ([]*models.EscrowAccount, error) {
	accounts, err := l.store.ListByTransaction(ctx, transactionId)
	if err != nil {
		return nil, fmt.Errorf("failed to list escrows for transaction %s: %w", transactionId, err)
	}
	zap.L().Debug("Listed transaction escrows",
		zap.String("transaction_id", transactionId),
		zap.Int("count", len(accounts)))
	return accounts, nil
}

// Lookups accept either the generated id or the caller supplied key.

func findParticipant(account *models.EscrowAccount, ref string) int {
	if ref == "" {
		return -1
	}
	for i, p := range account.Participants {
		if p.Id == ref || p.Key == ref {
			return i
		}
	}
	return -1
}

func findCondition(account *models.EscrowAccount, ref string) int {
	if ref == "" {
		return -1
	}
	for i, c := range account.Conditions {
		if c.Id == ref || c.Key == ref {
			return i
		}
	}
	return -1
}

func findMilestone(account *models.EscrowAccount, ref string) int {
	if ref == "" {
		return -1
	}
	for i, m := range account.Milestones {
		if m.Id == ref || m.Key == ref {
			return i
		}
	}
	return -1
}

func findRelease(account *models.EscrowAccount, id string) int {
	for i, r := range account.Releases {
		if r.Id == id {
			return i
		}
	}
	return -1
}

func findFund(account *models.EscrowAccount, id string) int {
	for i, f := range account.Funds {
		if f.Id == id {
			return i
		}
	}
	return -1
}
