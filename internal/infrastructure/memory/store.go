// Package memory implementa los puertos de persistencia en memoria con semántica serializable:
// Run trabaja sobre una copia del estado y solo la publica si fn termina sin error.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/custody-api/internal/application/ports"
	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
)

var errReadOnly = errors.New("memory: escritura en transacción de solo lectura")

type state struct {
	users     map[string]*entity.User
	companies map[string]*entity.Company
	coinTxs   []*entity.CoinTransaction
	sessions  map[string]*entity.Session
	seals     map[string]*entity.Seal
	logs      []*entity.ActivityLog
}

func newState() *state {
	return &state{
		users:     map[string]*entity.User{},
		companies: map[string]*entity.Company{},
		sessions:  map[string]*entity.Session{},
		seals:     map[string]*entity.Seal{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = copyUser(v)
	}
	for k, v := range s.companies {
		c.companies[k] = copyCompany(v)
	}
	for k, v := range s.sessions {
		c.sessions[k] = copySession(v)
	}
	for k, v := range s.seals {
		c.seals[k] = copySeal(v)
	}
	// Los asientos y registros son inmutables: se comparten.
	c.coinTxs = append([]*entity.CoinTransaction(nil), s.coinTxs...)
	c.logs = append([]*entity.ActivityLog(nil), s.logs...)
	return c
}

// Store TxRunner en memoria. Las transacciones de escritura se serializan con un mutex.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// New crea un store vacío.
func New() *Store {
	return &Store{state: newState()}
}

var _ ports.TxRunner = (*Store)(nil)

// Run ejecuta fn sobre una copia del estado; commit solo si fn devuelve nil y ctx sigue vivo.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, r ports.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, repos(&tx{st: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// View ejecuta fn sobre el estado confirmado sin permitir escrituras.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r ports.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, repos(&tx{st: s.state, readOnly: true}))
}

// Counts cantidad de filas por tabla (tests de atomicidad).
type Counts struct {
	Users, Companies, CoinTxs, Sessions, Seals, ActivityLogs int
}

// Counts devuelve el número de filas confirmadas.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Users:        len(s.state.users),
		Companies:    len(s.state.companies),
		CoinTxs:      len(s.state.coinTxs),
		Sessions:     len(s.state.sessions),
		Seals:        len(s.state.seals),
		ActivityLogs: len(s.state.logs),
	}
}

// CoinTransactions copia del log del ledger confirmado.
func (s *Store) CoinTransactions() []*entity.CoinTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*entity.CoinTransaction(nil), s.state.coinTxs...)
}

// ActivityLogs copia del rastro confirmado.
func (s *Store) ActivityLogs() []*entity.ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*entity.ActivityLog(nil), s.state.logs...)
}

// UserIDs IDs de todos los usuarios confirmados, ordenados.
func (s *Store) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.state.users))
	for id := range s.state.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) write() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func repos(t *tx) ports.TxRepos {
	return ports.TxRepos{
		Users:        userRepo{t},
		Companies:    companyRepo{t},
		CoinTxs:      coinTxRepo{t},
		Sessions:     sessionRepo{t},
		Seals:        sealRepo{t},
		ActivityLogs: activityLogRepo{t},
	}
}

// Las copias clonan cada string: los valores que llegan del transporte pueden
// apuntar a buffers que se reutilizan después de la petición.

func copyUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	c := *u
	c.ID = strings.Clone(u.ID)
	c.Name = strings.Clone(u.Name)
	c.Email = strings.Clone(u.Email)
	c.PasswordHash = strings.Clone(u.PasswordHash)
	c.Role = strings.Clone(u.Role)
	c.Subrole = strings.Clone(u.Subrole)
	c.CompanyID = clonePtr(u.CompanyID)
	c.CreatedByID = clonePtr(u.CreatedByID)
	if u.Coins != nil {
		coins := *u.Coins
		c.Coins = &coins
	}
	return &c
}

func copyCompany(c *entity.Company) *entity.Company {
	if c == nil {
		return nil
	}
	out := *c
	out.ID = strings.Clone(c.ID)
	out.Name = strings.Clone(c.Name)
	out.Email = strings.Clone(c.Email)
	out.Address = strings.Clone(c.Address)
	out.Phone = strings.Clone(c.Phone)
	if c.DeletedAt != nil {
		at := *c.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}

func copySession(s *entity.Session) *entity.Session {
	if s == nil {
		return nil
	}
	out := *s
	out.ID = strings.Clone(s.ID)
	out.CompanyID = strings.Clone(s.CompanyID)
	out.CreatedByID = strings.Clone(s.CreatedByID)
	out.Source = strings.Clone(s.Source)
	out.Destination = strings.Clone(s.Destination)
	out.Status = strings.Clone(s.Status)
	return &out
}

func copySeal(s *entity.Seal) *entity.Seal {
	if s == nil {
		return nil
	}
	out := *s
	out.ID = strings.Clone(s.ID)
	out.SessionID = strings.Clone(s.SessionID)
	out.Barcode = strings.Clone(s.Barcode)
	out.VerifiedByID = clonePtr(s.VerifiedByID)
	if s.ScannedAt != nil {
		at := *s.ScannedAt
		out.ScannedAt = &at
	}
	return &out
}

func copyCoinTx(ct *entity.CoinTransaction) *entity.CoinTransaction {
	out := *ct
	out.ID = strings.Clone(ct.ID)
	out.FromUserID = strings.Clone(ct.FromUserID)
	out.ToUserID = strings.Clone(ct.ToUserID)
	out.ReasonText = strings.Clone(ct.ReasonText)
	out.Reason = strings.Clone(ct.Reason)
	return &out
}

func copyLog(l *entity.ActivityLog) *entity.ActivityLog {
	out := *l
	out.ID = strings.Clone(l.ID)
	out.UserID = strings.Clone(l.UserID)
	out.Action = strings.Clone(l.Action)
	out.TargetUserID = clonePtr(l.TargetUserID)
	out.TargetResourceID = clonePtr(l.TargetResourceID)
	out.TargetResourceType = clonePtr(l.TargetResourceType)
	out.IPAddress = strings.Clone(l.IPAddress)
	out.UserAgent = strings.Clone(l.UserAgent)
	if l.Details != nil {
		out.Details = make(map[string]any, len(l.Details))
		for k, v := range l.Details {
			if str, ok := v.(string); ok {
				v = strings.Clone(str)
			}
			out.Details[strings.Clone(k)] = v
		}
	}
	return &out
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.Clone(*p)
	return &v
}

// ── users ────────────────────────────────────────────────────────────────────

type userRepo struct{ t *tx }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	if err := r.t.write(); err != nil {
		return err
	}
	if _, ok := r.t.st.users[u.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, existing := range r.t.st.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	stored := copyUser(u)
	r.t.st.users[stored.ID] = stored
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return copyUser(r.t.st.users[id]), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.t.st.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r userRepo) LockForUpdate(_ context.Context, ids ...string) (map[string]*entity.User, error) {
	out := make(map[string]*entity.User, len(ids))
	for _, id := range ids {
		if u, ok := r.t.st.users[id]; ok {
			out[id] = copyUser(u)
		}
	}
	return out, nil
}

func (r userRepo) AddCoins(_ context.Context, id string, delta int64) (int64, error) {
	if err := r.t.write(); err != nil {
		return 0, err
	}
	u, ok := r.t.st.users[id]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	balance := u.Balance() + delta
	u.Coins = &balance
	return balance, nil
}

func (r userRepo) AncestorIDs(_ context.Context, id string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for cur := id; cur != "" && !seen[cur]; {
		seen[cur] = true
		out = append(out, cur)
		u, ok := r.t.st.users[cur]
		if !ok || u.CreatedByID == nil {
			break
		}
		cur = *u.CreatedByID
	}
	return out, nil
}

// ── companies ────────────────────────────────────────────────────────────────

type companyRepo struct{ t *tx }

func (r companyRepo) Create(_ context.Context, c *entity.Company) error {
	if err := r.t.write(); err != nil {
		return err
	}
	if _, ok := r.t.st.companies[c.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, existing := range r.t.st.companies {
		if existing.Email == c.Email {
			return domain.ErrDuplicateEmail
		}
	}
	stored := copyCompany(c)
	r.t.st.companies[stored.ID] = stored
	return nil
}

func (r companyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	return copyCompany(r.t.st.companies[id]), nil
}

func (r companyRepo) GetForUpdate(ctx context.Context, id string) (*entity.Company, error) {
	return r.GetByID(ctx, id)
}

func (r companyRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	if err := r.t.write(); err != nil {
		return err
	}
	c, ok := r.t.st.companies[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.DeletedAt = &at
	c.UpdatedAt = at
	return nil
}

// ── coin transactions ────────────────────────────────────────────────────────

type coinTxRepo struct{ t *tx }

func (r coinTxRepo) Create(_ context.Context, ct *entity.CoinTransaction) error {
	if err := r.t.write(); err != nil {
		return err
	}
	r.t.st.coinTxs = append(r.t.st.coinTxs, copyCoinTx(ct))
	return nil
}

func (r coinTxRepo) ListByUser(_ context.Context, userID string) ([]*entity.CoinTransaction, error) {
	var out []*entity.CoinTransaction
	for _, ct := range r.t.st.coinTxs {
		if ct.FromUserID == userID || ct.ToUserID == userID {
			c := *ct
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r coinTxRepo) Totals(_ context.Context, userID string) (credits, debits int64, err error) {
	for _, ct := range r.t.st.coinTxs {
		if ct.ToUserID == userID {
			credits += ct.Amount
		}
		if ct.FromUserID == userID {
			debits += ct.Amount
		}
	}
	return credits, debits, nil
}

// ── sessions & seals ─────────────────────────────────────────────────────────

type sessionRepo struct{ t *tx }

func (r sessionRepo) Create(_ context.Context, s *entity.Session) error {
	if err := r.t.write(); err != nil {
		return err
	}
	if _, ok := r.t.st.sessions[s.ID]; ok {
		return domain.ErrDuplicate
	}
	stored := copySession(s)
	r.t.st.sessions[stored.ID] = stored
	return nil
}

func (r sessionRepo) GetByID(_ context.Context, id string) (*entity.Session, error) {
	return copySession(r.t.st.sessions[id]), nil
}

func (r sessionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Session, error) {
	return r.GetByID(ctx, id)
}

func (r sessionRepo) UpdateStatus(_ context.Context, id, status string, at time.Time) error {
	if err := r.t.write(); err != nil {
		return err
	}
	s, ok := r.t.st.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = strings.Clone(status)
	s.UpdatedAt = at
	return nil
}

func (r sessionRepo) CountOpenByCompany(_ context.Context, companyID string) (int, error) {
	n := 0
	for _, s := range r.t.st.sessions {
		if s.CompanyID == companyID && s.IsOpen() {
			n++
		}
	}
	return n, nil
}

type sealRepo struct{ t *tx }

func (r sealRepo) Create(_ context.Context, s *entity.Seal) error {
	if err := r.t.write(); err != nil {
		return err
	}
	for _, existing := range r.t.st.seals {
		if existing.SessionID == s.SessionID || existing.ID == s.ID {
			return domain.ErrDuplicate
		}
	}
	stored := copySeal(s)
	r.t.st.seals[stored.ID] = stored
	return nil
}

func (r sealRepo) GetByID(_ context.Context, id string) (*entity.Seal, error) {
	return copySeal(r.t.st.seals[id]), nil
}

func (r sealRepo) GetBySession(_ context.Context, sessionID string) (*entity.Seal, error) {
	for _, s := range r.t.st.seals {
		if s.SessionID == sessionID {
			return copySeal(s), nil
		}
	}
	return nil, nil
}

func (r sealRepo) GetBySessionForUpdate(ctx context.Context, sessionID string) (*entity.Seal, error) {
	return r.GetBySession(ctx, sessionID)
}

func (r sealRepo) Update(_ context.Context, s *entity.Seal) error {
	if err := r.t.write(); err != nil {
		return err
	}
	if _, ok := r.t.st.seals[s.ID]; !ok {
		return domain.ErrNotFound
	}
	stored := copySeal(s)
	r.t.st.seals[stored.ID] = stored
	return nil
}

// ── activity logs ────────────────────────────────────────────────────────────

type activityLogRepo struct{ t *tx }

func (r activityLogRepo) Create(_ context.Context, l *entity.ActivityLog) error {
	if err := r.t.write(); err != nil {
		return err
	}
	r.t.st.logs = append(r.t.st.logs, copyLog(l))
	return nil
}

func (r activityLogRepo) ListByResource(_ context.Context, resourceType, resourceID string) ([]*entity.ActivityLog, error) {
	var out []*entity.ActivityLog
	for _, l := range r.t.st.logs {
		if l.TargetResourceType != nil && *l.TargetResourceType == resourceType &&
			l.TargetResourceID != nil && *l.TargetResourceID == resourceID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r activityLogRepo) ListByActor(_ context.Context, userID string) ([]*entity.ActivityLog, error) {
	var out []*entity.ActivityLog
	for _, l := range r.t.st.logs {
		if l.UserID == userID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}
