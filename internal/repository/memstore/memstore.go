// internal/repository/memstore/memstore.go
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-service/internal/domain"
	"wallet-service/internal/repository"

	"github.com/shopspring/decimal"
)

// Store keeps users, wallets, transactions and cards in memory. Settlement
// takes the transaction lock, then the wallet lock, matching the order used
// by the Postgres implementation.
type Store struct {
	mu           sync.RWMutex
	users        map[string]*domain.User
	wallets      map[string]*domain.Wallet
	transactions map[string]*domain.Transaction
	cards        map[string]*domain.Card

	txnLocks    keyedMutex
	walletLocks keyedMutex
}

var (
	_ repository.LedgerRepository = (*Store)(nil)
	_ repository.WalletRepository = (*Store)(nil)
	_ repository.CardRepository   = (*Store)(nil)
	_ repository.UserRepository   = users{}
)

func New() *Store {
	return &Store{
		users:        make(map[string]*domain.User),
		wallets:      make(map[string]*domain.Wallet),
		transactions: make(map[string]*domain.Transaction),
		cards:        make(map[string]*domain.Card),
	}
}

// ============================================
// USERS
// ============================================

// CreateUser stores u and opens its wallet.
func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user %s already exists", u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	if _, ok := s.wallets[u.ID]; !ok {
		s.wallets[u.ID] = domain.NewWallet(u.ID)
	}
	return nil
}

// Users returns the user lookup view of the store.
func (s *Store) Users() repository.UserRepository {
	return users{s}
}

type users struct{ s *Store }

func (u users) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *usr
	return &cp, nil
}

// ============================================
// LEDGER
// ============================================

func (s *Store) CreateTransaction(_ context.Context, txn *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[txn.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := s.transactions[txn.Reference]; ok {
		return fmt.Errorf("transaction %s already exists", txn.Reference)
	}

	now := time.Now()
	txn.CreatedAt = now
	txn.UpdatedAt = now
	cp := *txn
	s.transactions[txn.Reference] = &cp
	return nil
}

func (s *Store) GetTransaction(_ context.Context, reference string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransactionLocked(reference)
}

func (s *Store) GetUserTransaction(_ context.Context, userID, reference string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, err := s.getTransactionLocked(reference)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		return nil, domain.ErrTransactionNotFound
	}
	return txn, nil
}

func (s *Store) ListUserTransactions(_ context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	limit, offset = repository.NormalizePage(limit, offset)

	s.mu.RLock()
	out := make([]*domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.UserID == userID {
			cp := *txn
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Reference > out[j].Reference
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (s *Store) ListPending(_ context.Context, rail domain.Rail, createdBefore time.Time, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	out := make([]*domain.Transaction, 0)
	for _, txn := range s.transactions {
		if txn.Status == domain.TransactionStatusPending && txn.Rail == rail && !txn.CreatedAt.After(createdBefore) {
			cp := *txn
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, 0), nil
}

func (s *Store) Settle(_ context.Context, reference string, card *domain.Card) (*repository.SettleResult, error) {
	unlockTxn := s.txnLocks.Lock(reference)
	defer unlockTxn()

	s.mu.RLock()
	stored, ok := s.transactions[reference]
	var userID string
	if ok {
		userID = stored.UserID
	}
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	unlockWallet := s.walletLocks.Lock(userID)
	defer unlockWallet()

	s.mu.Lock()
	defer s.mu.Unlock()

	if stored.IsSettled() {
		cp := *stored
		return &repository.SettleResult{Transaction: &cp}, nil
	}

	wallet, ok := s.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}

	// apply on copies so a failure leaves nothing half-written
	nextWallet := *wallet
	if err := nextWallet.Fund(stored.Amount); err != nil {
		return nil, err
	}

	cardSaved := false
	if card != nil {
		card.UserID = userID
		if s.activeCardBySignatureLocked(userID, card.Signature) == nil {
			cp := *card
			cp.IsActive = true
			s.cards[card.ID] = &cp
			cardSaved = true
		}
	}

	now := time.Now()
	s.wallets[userID] = &nextWallet
	stored.Status = domain.TransactionStatusSuccess
	stored.UpdatedAt = now
	stored.SettledAt = &now

	txnCopy := *stored
	walletCopy := nextWallet
	return &repository.SettleResult{
		Transaction: &txnCopy,
		Wallet:      &walletCopy,
		Credited:    true,
		CardSaved:   cardSaved,
	}, nil
}

func (s *Store) MarkUnsettled(_ context.Context, reference string, status domain.TransactionStatus) (*domain.Transaction, bool, error) {
	unlock := s.txnLocks.Lock(reference)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[reference]
	if !ok {
		return nil, false, domain.ErrTransactionNotFound
	}
	move, err := repository.UnsettledTransition(stored, status)
	if err != nil {
		return nil, false, err
	}
	if !move {
		cp := *stored
		return &cp, false, nil
	}

	stored.Status = status
	stored.UpdatedAt = time.Now()
	cp := *stored
	return &cp, true, nil
}

func (s *Store) getTransactionLocked(reference string) (*domain.Transaction, error) {
	txn, ok := s.transactions[reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

// ============================================
// WALLETS
// ============================================

func (s *Store) GetByUserID(_ context.Context, userID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *Store) Fund(_ context.Context, userID string, amount int64) (*domain.Wallet, error) {
	return s.mutateWallet(userID, func(w *domain.Wallet) error {
		return w.Fund(amount)
	})
}

func (s *Store) DeductAvailable(_ context.Context, userID string, amount decimal.Decimal) (*domain.Wallet, error) {
	return s.mutateWallet(userID, func(w *domain.Wallet) error {
		if _, err := domain.ValidateDecimalAmount(amount); err != nil {
			return err
		}
		if !w.Covers(amount) {
			return domain.ErrInsufficientFunds
		}
		return w.Deduct(amount)
	})
}

func (s *Store) mutateWallet(userID string, fn func(w *domain.Wallet) error) (*domain.Wallet, error) {
	unlock := s.walletLocks.Lock(userID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	next := *w
	if err := fn(&next); err != nil {
		return nil, err
	}
	s.wallets[userID] = &next
	cp := next
	return &cp, nil
}

// ============================================
// CARDS
// ============================================

func (s *Store) ListByUser(_ context.Context, userID string) ([]*domain.Card, error) {
	s.mu.RLock()
	out := make([]*domain.Card, 0)
	for _, c := range s.cards {
		if c.UserID == userID && c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetByID(_ context.Context, userID, id string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok || c.UserID != userID || !c.IsActive {
		return nil, domain.ErrCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetBySignature(_ context.Context, userID, signature string) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.activeCardBySignatureLocked(userID, signature)
	if c == nil {
		return nil, domain.ErrCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateKeep(_ context.Context, userID, id string, keep bool) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok || c.UserID != userID || !c.IsActive {
		return nil, domain.ErrCardNotFound
	}
	c.Keep = keep
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok || c.UserID != userID || !c.IsActive {
		return domain.ErrCardNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now()
	return nil
}

func (s *Store) activeCardBySignatureLocked(userID, signature string) *domain.Card {
	for _, c := range s.cards {
		if c.UserID == userID && c.Signature == signature && c.IsActive {
			return c
		}
	}
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
