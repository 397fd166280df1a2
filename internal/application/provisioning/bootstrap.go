package provisioning

import (
	"context"

	"github.com/jhoicas/custody-api/internal/application/audit"
	"github.com/jhoicas/custody-api/internal/application/ledger"
	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

// treasuryPasswordHash no corresponde a ningún hash bcrypt: la tesorería no puede iniciar sesión.
const treasuryPasswordHash = "!"

// EnsureTreasury crea la cuenta tesorería si no existe. Devuelve true si la creó.
func (e *Engine) EnsureTreasury(ctx context.Context, email string) (bool, error) {
	treasuryID := e.ledger.TreasuryID()
	email = entity.NormalizeEmail(email)
	if treasuryID == "" || email == "" {
		return false, domain.ErrInvalidInput
	}
	created := false
	err := e.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		existing, err := r.Users.GetByID(ctx, treasuryID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		now := e.clock.Now()
		var zero int64
		treasury := &entity.User{
			ID:           treasuryID,
			Name:         "Tesorería",
			Email:        email,
			PasswordHash: treasuryPasswordHash,
			Role:         entity.RoleSuperAdmin,
			Coins:        &zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.Users.Create(ctx, treasury); err != nil {
			return err
		}
		if _, err := e.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      treasuryID,
			Action:       entity.ActionCreate,
			TargetUserID: treasuryID,
			ResourceType: entity.ResourceUser,
			ResourceID:   treasuryID,
			Details:      map[string]any{"role": entity.RoleSuperAdmin, "system": true},
		}); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// EnsureRoot crea un SUPERADMIN raíz (sin creador) registrado por la tesorería. Si el email
// ya pertenece a una raíz devuelve su ID con created=false; cualquier otro dueño es ErrDuplicateEmail.
func (e *Engine) EnsureRoot(ctx context.Context, in NewUserSpec) (userID string, created bool, err error) {
	in.Role = entity.RoleSuperAdmin
	if err := validateShape(&in); err != nil {
		return "", false, err
	}
	hash, err := e.hash(in.Password)
	if err != nil {
		return "", false, err
	}
	treasuryID := e.ledger.TreasuryID()
	err = e.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		treasury, err := r.Users.GetByID(ctx, treasuryID)
		if err != nil {
			return err
		}
		if treasury == nil {
			return domain.ErrUserNotFound
		}
		existing, err := r.Users.GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			if !isRoot(existing, treasuryID) {
				return domain.ErrDuplicateEmail
			}
			userID, created = existing.ID, false
			return nil
		}
		now := e.clock.Now()
		var zero int64
		user := &entity.User{
			ID:           e.ids.NewID(),
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         entity.RoleSuperAdmin,
			Coins:        &zero,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}
		if _, err := e.audit.Record(ctx, r.ActivityLogs, audit.Entry{
			ActorID:      treasuryID,
			Action:       entity.ActionCreate,
			TargetUserID: user.ID,
			ResourceType: entity.ResourceUser,
			ResourceID:   user.ID,
			Details:      map[string]any{"role": entity.RoleSuperAdmin, "root": true},
		}); err != nil {
			return err
		}
		userID, created = user.ID, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return userID, created, nil
}

func isRoot(u *entity.User, treasuryID string) bool {
	return u.Role == entity.RoleSuperAdmin && u.CreatedByID == nil && u.ID != treasuryID
}

// Mint emite monedas nuevas desde la tesorería hacia recipientID.
func (e *Engine) Mint(ctx context.Context, recipientID string, amount int64, reasonText string) (string, error) {
	var txID string
	err := e.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		var err error
		txID, err = e.mint(ctx, r, recipientID, amount, reasonText)
		return err
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

// GrantOnce emite amount a recipientID solo si nunca recibió una emisión de la tesorería.
// Devuelve "" cuando la emisión ya existía.
func (e *Engine) GrantOnce(ctx context.Context, recipientID string, amount int64, reasonText string) (string, error) {
	treasuryID := e.ledger.TreasuryID()
	var txID string
	err := e.txRunner.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		if _, err := r.Users.LockForUpdate(ctx, treasuryID, recipientID); err != nil {
			return err
		}
		history, err := r.CoinTxs.ListByUser(ctx, recipientID)
		if err != nil {
			return err
		}
		for _, ct := range history {
			if ct.FromUserID == treasuryID && ct.ToUserID == recipientID {
				return nil
			}
		}
		txID, err = e.mint(ctx, r, recipientID, amount, reasonText)
		return err
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

func (e *Engine) mint(ctx context.Context, r ports.TxRepos, recipientID string, amount int64, reasonText string) (string, error) {
	treasuryID := e.ledger.TreasuryID()
	res, err := e.ledger.Transfer(ctx, r, ledger.TransferInput{
		FromUserID: treasuryID,
		ToUserID:   recipientID,
		Amount:     amount,
		Reason:     entity.ReasonCoinAllocation,
		ReasonText: reasonText,
	})
	if err != nil {
		return "", err
	}
	if _, err := e.audit.Record(ctx, r.ActivityLogs, audit.Entry{
		ActorID:      treasuryID,
		Action:       entity.ActionAllocate,
		TargetUserID: recipientID,
		ResourceType: entity.ResourceCoinTx,
		ResourceID:   res.Transaction.ID,
		Details:      map[string]any{"amount": amount, "recipientBalance": res.ToBalance, "mint": true},
	}); err != nil {
		return "", err
	}
	return res.Transaction.ID, nil
}

// BootstrapInput entrada del arranque inicial del sistema.
type BootstrapInput struct {
	TreasuryEmail string
	SuperAdmin    NewUserSpec
	Grant         int64
}

// BootstrapResult IDs creados en el arranque. GrantTxID queda vacío si la emisión ya existía.
type BootstrapResult struct {
	TreasuryCreated bool
	SuperAdminID    string
	RootCreated     bool
	GrantTxID       string
}
