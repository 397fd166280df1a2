// Package ledger implementa el almacén de monedas: saldo materializado en users.coins
// más el log inmutable coin_transactions. Transfer es la única primitiva de escritura y
// siempre corre dentro de la transacción del caller.
package ledger

import (
	"context"
	"fmt"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// Tariff costo en monedas por razón de creación. Razones ausentes o con 0 no cobran.
type Tariff map[string]int64

// Cost devuelve el costo de la razón.
func (t Tariff) Cost(reason string) int64 {
	return t[reason]
}

// TransferInput entrada de Transfer.
type TransferInput struct {
	FromUserID string
	ToUserID   string
	Amount     int64
	Reason     string
	ReasonText string
}

// TransferResult asiento creado y saldos resultantes.
type TransferResult struct {
	Transaction *entity.CoinTransaction
	FromBalance int64
	ToBalance   int64
}

// ReconciliationReport compara el saldo almacenado con el derivado del log.
type ReconciliationReport struct {
	UserID     string
	Stored     int64
	Derived    int64
	Consistent bool
}

// Ledger servicio de monedas. La cuenta tesorería es el sumidero de los cobros y
// el emisor de monedas nuevas; es la única autorizada a quedar en negativo.
type Ledger struct {
	treasuryID string
	clock      ports.Clock
	ids        ports.IDGenerator
}

// New construye el ledger con la cuenta tesorería.
func New(treasuryID string, clock ports.Clock, ids ports.IDGenerator) *Ledger {
	return &Ledger{treasuryID: treasuryID, clock: clock, ids: ids}
}

// TreasuryID ID de la cuenta tesorería.
func (l *Ledger) TreasuryID() string {
	return l.treasuryID
}

func isValidReason(reason string) bool {
	switch reason {
	case entity.ReasonAdminCreation, entity.ReasonOperatorCreation,
		entity.ReasonCoinAllocation, entity.ReasonSessionCreation:
		return true
	}
	return false
}

// Transfer bloquea ambas cuentas (SELECT FOR UPDATE en orden de ID), verifica fondos del origen,
// aplica los deltas y agrega el CoinTransaction. La verificación y el débito ocurren bajo el mismo bloqueo.
func (l *Ledger) Transfer(ctx context.Context, r ports.TxRepos, in TransferInput) (*TransferResult, error) {
	if in.Amount <= 0 || in.FromUserID == "" || in.ToUserID == "" || in.FromUserID == in.ToUserID {
		return nil, domain.ErrInvalidInput
	}
	if !isValidReason(in.Reason) {
		return nil, domain.ErrInvalidInput
	}

	accounts, err := r.Users.LockForUpdate(ctx, in.FromUserID, in.ToUserID)
	if err != nil {
		return nil, err
	}
	from, ok := accounts[in.FromUserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if _, ok := accounts[in.ToUserID]; !ok {
		return nil, domain.ErrUserNotFound
	}

	if from.ID != l.treasuryID && from.Balance() < in.Amount {
		return nil, &domain.InsufficientFundsError{UserID: from.ID, Balance: from.Balance(), Required: in.Amount}
	}

	fromBalance, err := r.Users.AddCoins(ctx, in.FromUserID, -in.Amount)
	if err != nil {
		return nil, err
	}
	toBalance, err := r.Users.AddCoins(ctx, in.ToUserID, in.Amount)
	if err != nil {
		return nil, err
	}

	tx := &entity.CoinTransaction{
		ID:         l.ids.NewID(),
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Amount:     in.Amount,
		Reason:     in.Reason,
		ReasonText: in.ReasonText,
		CreatedAt:  l.clock.Now(),
	}
	if err := r.CoinTxs.Create(ctx, tx); err != nil {
		return nil, err
	}
	return &TransferResult{Transaction: tx, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

// Debit cobra amount al actor transfiriéndolo a la tesorería.
func (l *Ledger) Debit(ctx context.Context, r ports.TxRepos, actorID string, amount int64, reason, reasonText string) (*TransferResult, error) {
	return l.Transfer(ctx, r, TransferInput{
		FromUserID: actorID,
		ToUserID:   l.treasuryID,
		Amount:     amount,
		Reason:     reason,
		ReasonText: reasonText,
	})
}

// Balance saldo materializado del usuario.
func (l *Ledger) Balance(ctx context.Context, r ports.TxRepos, userID string) (int64, error) {
	u, err := r.Users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, domain.ErrUserNotFound
	}
	return u.Balance(), nil
}

// Reconcile recalcula Σ entradas − Σ salidas del log y lo compara con users.coins.
func (l *Ledger) Reconcile(ctx context.Context, r ports.TxRepos, userID string) (*ReconciliationReport, error) {
	stored, err := l.Balance(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	credits, debits, err := r.CoinTxs.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("totales del ledger: %w", err)
	}
	derived := credits - debits
	return &ReconciliationReport{
		UserID:     userID,
		Stored:     stored,
		Derived:    derived,
		Consistent: stored == derived,
	}, nil
}

// StatementLine asiento visto desde un usuario: Delta es positivo si entra y Running el
// saldo acumulado tras aplicarlo.
type StatementLine struct {
	Transaction *entity.CoinTransaction
	Delta       int64
	Running     int64
}

// Statement extracto de un usuario en orden de inserción.
type Statement struct {
	UserID  string
	Balance int64
	Lines   []StatementLine
}

// Statement arma el extracto del usuario. El Running de la última línea coincide con
// Balance salvo que el saldo materializado esté corrupto (ver Reconcile).
func (l *Ledger) Statement(ctx context.Context, r ports.TxRepos, userID string) (*Statement, error) {
	balance, err := l.Balance(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	txs, err := r.CoinTxs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("asientos del usuario: %w", err)
	}
	out := &Statement{UserID: userID, Balance: balance, Lines: make([]StatementLine, 0, len(txs))}
	var running int64
	for _, tx := range txs {
		var delta int64
		if tx.ToUserID == userID {
			delta += tx.Amount
		}
		if tx.FromUserID == userID {
			delta -= tx.Amount
		}
		running += delta
		out.Lines = append(out.Lines, StatementLine{Transaction: tx, Delta: delta, Running: running})
	}
	return out, nil
}
