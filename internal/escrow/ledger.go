/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propie-escrow-go/internal/models"
	"propie-escrow-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultSystemActor    = "system"
	defaultPaymentTimeout = 10 * time.Second
	defaultCurrency       = "EUR"
)

// PaymentExecutor moves released money to the recipient. It is invoked at most
// once per release, only after the release reached the approved status.
type PaymentExecutor interface {
	ExecuteRelease(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error)
}

// Notifier receives the events produced by a ledger operation after it was stored
type Notifier interface {
	Notify(ctx context.Context, events []models.EscrowEvent)
}

type Config struct {
	SystemActor    string
	PaymentTimeout time.Duration
}

type Dependencies struct {
	Store    store.EscrowStore
	Payments PaymentExecutor
	Notifier Notifier
	Config   Config
}

// Ledger owns escrow account state and enforces the
// deposit -> condition -> milestone -> approval -> release pipeline.
//
// Every mutation of one account runs under that account's lock: the account is
// loaded, mutated, cascaded to a fixed point, saved, and only then are the
// collected events handed to the notifier.
type Ledger struct {
	store    store.EscrowStore
	payments PaymentExecutor
	notifier Notifier
	cfg      Config
	locks    *accountLocks
	nowFn    func() time.Time
	newId    func() string
}

func NewLedger(deps Dependencies) (*Ledger, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("escrow store is required")
	}
	if deps.Payments == nil {
		return nil, fmt.Errorf("payment executor is required")
	}

	cfg := deps.Config
	if cfg.SystemActor == "" {
		cfg.SystemActor = defaultSystemActor
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = defaultPaymentTimeout
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &Ledger{
		store:    deps.Store,
		payments: deps.Payments,
		notifier: notifier,
		cfg:      cfg,
		locks:    newAccountLocks(),
		nowFn:    time.Now,
		newId:    func() string { return uuid.New().String() },
	}, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, []models.EscrowEvent) {}

// mutation collects everything one operation changes on an account
type mutation struct {
	account   *models.EscrowAccount
	now       time.Time
	events    []models.EscrowEvent
	movements []models.Movement

	// keepOnError stores the account even though the operation returns an
	// error. Used for releases that failed execution.
	keepOnError bool
}

func (m *mutation) emit(eventType models.EventType, entityType, entityId, actor string, amount decimal.Decimal) {
	m.events = append(m.events, models.EscrowEvent{
		Type:          eventType,
		EscrowId:      m.account.Id,
		TransactionId: m.account.TransactionId,
		EntityType:    entityType,
		EntityId:      entityId,
		Actor:         actor,
		Amount:        amount,
		OccurredAt:    m.now,
	})
}

func (m *mutation) record(movementType models.MovementType, amount decimal.Decimal, reference, counterparty, id string) {
	before := m.account.Balance
	after := before.Add(amount)
	m.account.Balance = after
	m.movements = append(m.movements, models.Movement{
		Id:            id,
		EscrowId:      m.account.Id,
		MovementType:  movementType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Currency:      m.account.Currency,
		Reference:     reference,
		Counterparty:  counterparty,
		CreatedAt:     m.now,
	})
}

// update runs fn against a fresh copy of the account under the account lock,
// derives the status, saves, and dispatches the collected events.
func (l *Ledger) update(ctx context.Context, escrowId string, fn func(m *mutation) error) (*models.EscrowAccount, error) {
	unlock := l.locks.lock(escrowId)
	defer unlock()

	account, err := l.store.GetAccount(ctx, escrowId)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, notFound("escrow account", escrowId)
		}
		return nil, fmt.Errorf("failed to load escrow %s: %w", escrowId, err)
	}

	m := &mutation{account: account, now: l.nowFn()}
	opErr := fn(m)
	if opErr != nil && !m.keepOnError {
		return nil, opErr
	}

	l.settleStatus(m)
	account.UpdatedAt = m.now

	if err := l.store.SaveAccount(ctx, account, m.movements...); err != nil {
		zap.L().Error("Failed to save escrow account",
			zap.String("escrow_id", escrowId),
			zap.Error(err))
		return nil, fmt.Errorf("failed to save escrow %s: %w", escrowId, err)
	}

	l.dispatch(ctx, m)
	return account, opErr
}

// settleStatus applies DeriveStatus and closes the account when it completes
func (l *Ledger) settleStatus(m *mutation) {
	previous := m.account.Status
	next := DeriveStatus(m.account)
	if next == previous {
		return
	}

	m.account.Status = next
	zap.L().Info("Escrow status changed",
		zap.String("escrow_id", m.account.Id),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))

	if next == models.EscrowStatusCompleted {
		closedAt := m.now
		m.account.ClosedAt = &closedAt
		m.account.ClosedReason = "all funds released"
		m.emit(models.EventEscrowCompleted, "account", m.account.Id, l.cfg.SystemActor, decimal.Zero)
	}
}

func (l *Ledger) dispatch(ctx context.Context, m *mutation) {
	if len(m.events) == 0 {
		return
	}
	snapshot := m.account.Clone()
	for i := range m.events {
		m.events[i].Id = l.newId()
		m.events[i].Account = snapshot
	}
	l.notifier.Notify(ctx, m.events)
}

func ensureOpen(account *models.EscrowAccount) error {
	if account.Status.IsTerminal() {
		return invalid("status", "escrow %s is %s", account.Id, account.Status)
	}
	return nil
}
