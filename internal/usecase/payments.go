// internal/usecase/payments.go
package usecase

import (
	"context"
	"fmt"

	"wallet-service/internal/domain"
	"wallet-service/internal/provider"
	"wallet-service/internal/repository"
)

// PaymentRail is the part of an orchestrator the rail-agnostic endpoints
// and the reconciliation worker drive.
type PaymentRail interface {
	Rail() domain.Rail
	Initialize(ctx context.Context, user *domain.User, amount int64) (*provider.InitResult, error)
	Verify(ctx context.Context, txn *domain.Transaction) (*SettlementResult, error)
	Withdraw(ctx context.Context, user *domain.User, amount int64) (*WithdrawResult, error)
}

var (
	_ PaymentRail = (*FiatWalletPayment)(nil)
	_ PaymentRail = (*CryptoWalletPayment)(nil)
)

// Payments routes requests to the orchestrator of a rail.
type Payments struct {
	ledger repository.LedgerRepository
	rails  map[domain.Rail]PaymentRail
}

func NewPayments(ledger repository.LedgerRepository, rails ...PaymentRail) *Payments {
	p := &Payments{ledger: ledger, rails: make(map[domain.Rail]PaymentRail, len(rails))}
	for _, r := range rails {
		p.rails[r.Rail()] = r
	}
	return p
}

func (p *Payments) Rail(rail domain.Rail) (PaymentRail, error) {
	r, ok := p.rails[rail]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedRail, rail)
	}
	return r, nil
}

func (p *Payments) Initialize(ctx context.Context, user *domain.User, rail domain.Rail, amount int64) (*provider.InitResult, error) {
	r, err := p.Rail(rail)
	if err != nil {
		return nil, err
	}
	return r.Initialize(ctx, user, amount)
}

// VerifyReference verifies one of the user's own transactions. Settled
// transactions are rejected with ErrTransactionCompleted.
func (p *Payments) VerifyReference(ctx context.Context, user *domain.User, rail domain.Rail, reference string) (*SettlementResult, error) {
	r, err := p.Rail(rail)
	if err != nil {
		return nil, err
	}

	txn, err := p.ledger.GetUserTransaction(ctx, user.ID, reference)
	if err != nil {
		return nil, err
	}
	if txn.Rail != rail {
		return nil, domain.ErrTransactionNotFound
	}
	if txn.IsSettled() {
		return nil, domain.ErrTransactionCompleted
	}
	return r.Verify(ctx, txn)
}

func (p *Payments) Withdraw(ctx context.Context, user *domain.User, rail domain.Rail, amount int64) (*WithdrawResult, error) {
	r, err := p.Rail(rail)
	if err != nil {
		return nil, err
	}
	return r.Withdraw(ctx, user, amount)
}
