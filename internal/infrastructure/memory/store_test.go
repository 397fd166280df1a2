package memory

import (
	"context"
	"errors"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

func newUser(id, email string) *entity.User {
	now := time.Now()
	var zero int64
	return &entity.User{ID: id, Name: id, Email: email, Role: entity.RoleSuperAdmin, Coins: &zero, CreatedAt: now, UpdatedAt: now}
}

func TestRun_RollbackAnteError(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	err := s.Run(context.Background(), func(ctx context.Context, r ports.TxRepos) error {
		require.NoError(t, r.Users.Create(ctx, newUser("u1", "a@x.com")))
		_, err := r.Users.AddCoins(ctx, "u1", 10)
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Counts().Users, "un error no debe dejar filas")
}

func TestRun_CommitYAislamientoDeCopias(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		return r.Users.Create(ctx, newUser("u1", "a@x.com"))
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		u, err := r.Users.GetByID(ctx, "u1")
		require.NoError(t, err)
		*u.Coins = 999 // mutar la copia no altera el estado
		return nil
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		u, err := r.Users.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), u.Balance())
		return nil
	}))
}

func TestRun_ContextoCanceladoNoConfirma(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		require.NoError(t, r.Users.Create(ctx, newUser("u1", "a@x.com")))
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Counts().Users)
}

func TestView_RechazaEscrituras(t *testing.T) {
	s := New()
	err := s.View(context.Background(), func(ctx context.Context, r ports.TxRepos) error {
		return r.Users.Create(ctx, newUser("u1", "a@x.com"))
	})
	assert.Error(t, err)
}

func TestUniqueConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		require.NoError(t, r.Users.Create(ctx, newUser("u1", "a@x.com")))
		return r.Users.Create(ctx, newUser("u2", "a@x.com"))
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	err = s.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		now := time.Now()
		require.NoError(t, r.Seals.Create(ctx, &entity.Seal{ID: "s1", SessionID: "ses", CreatedAt: now}))
		return r.Seals.Create(ctx, &entity.Seal{ID: "s2", SessionID: "ses", CreatedAt: now})
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestAncestorIDs_RecorreHastaLaRaiz(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		root := newUser("root", "root@x.com")
		child := newUser("child", "child@x.com")
		child.CreatedByID = &root.ID
		leaf := newUser("leaf", "leaf@x.com")
		leaf.CreatedByID = &child.ID
		for _, u := range []*entity.User{root, child, leaf} {
			if err := r.Users.Create(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		ids, err := r.Users.AncestorIDs(ctx, "leaf")
		require.NoError(t, err)
		assert.Equal(t, []string{"leaf", "child", "root"}, ids)
		return nil
	}))
}

// bufferString devuelve un string que comparte memoria con buf, como los valores
// sin copia que entrega fasthttp durante una petición.
func bufferString(buf []byte) string {
	return unsafe.String(unsafe.SliceData(buf), len(buf))
}

func TestCreate_NoRetieneBuffersDelLlamador(t *testing.T) {
	s := New()
	ctx := context.Background()

	idBuf := []byte("company-1")
	emailBuf := []byte("ops@acme.com")
	sessionBuf := []byte("session-1")
	require.NoError(t, s.Run(ctx, func(ctx context.Context, r ports.TxRepos) error {
		now := time.Now()
		if err := r.Companies.Create(ctx, &entity.Company{ID: bufferString(idBuf), Name: "Acme", Email: bufferString(emailBuf), CreatedAt: now}); err != nil {
			return err
		}
		return r.Sessions.Create(ctx, &entity.Session{ID: bufferString(sessionBuf), CompanyID: bufferString(idBuf), Status: entity.SessionPending, CreatedAt: now})
	}))

	// El buffer se reutiliza para la siguiente petición.
	copy(idBuf, "XXXXXXXXX")
	copy(emailBuf, "YYYYYYYYYYYY")
	copy(sessionBuf, "ZZZZZZZZZ")

	require.NoError(t, s.View(ctx, func(ctx context.Context, r ports.TxRepos) error {
		c, err := r.Companies.GetByID(ctx, "company-1")
		require.NoError(t, err)
		require.NotNil(t, c, "la clave del mapa no debe cambiar con el buffer")
		assert.Equal(t, "company-1", c.ID)
		assert.Equal(t, "ops@acme.com", c.Email)

		ses, err := r.Sessions.GetByID(ctx, "session-1")
		require.NoError(t, err)
		require.NotNil(t, ses)
		assert.Equal(t, "company-1", ses.CompanyID)
		return nil
	}))
}
