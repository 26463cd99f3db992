package solicitud

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	appaccess "github.com/jhoicas/spm-api/internal/application/access"
	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
	domsol "github.com/jhoicas/spm-api/internal/domain/solicitud"
	"github.com/jhoicas/spm-api/pkg/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// memStore guarda snapshots y aplica el mismo control de versión que el repositorio pgx.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]domsol.Snapshot
	order     []string
	failSaves int // Save devuelve conflicto esta cantidad de veces, simulando una escritura concurrente
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]domsol.Snapshot{}}
}

func (m *memStore) Create(_ context.Context, s *domsol.Solicitud) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = s.Snapshot()
	m.order = append(m.order, s.ID)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domsol.Solicitud, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return domsol.Restore(snap)
}

func (m *memStore) GetForUpdate(ctx context.Context, id string) (*domsol.Solicitud, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) Save(_ context.Context, s *domsol.Solicitud, _ *domsol.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[s.ID]
	if !ok {
		return domain.NotFound("solicitud no encontrada")
	}
	if m.failSaves > 0 {
		m.failSaves--
		stored.Version++
		m.rows[s.ID] = stored
		return domain.ConcurrencyConflict("versión desactualizada")
	}
	if stored.Version != s.Version {
		return domain.ConcurrencyConflict("versión desactualizada")
	}
	s.Version++
	m.rows[s.ID] = s.Snapshot()
	return nil
}

func (m *memStore) ListCandidates(_ context.Context, q repository.SolicitudQuery) ([]*domsol.Solicitud, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domsol.Solicitud, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		snap := m.rows[m.order[i]]
		if q.Status != "" && snap.Status != q.Status {
			continue
		}
		s, err := domsol.Restore(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) version(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Version
}

type memTx struct{ repo *memStore }

func (t memTx) Run(_ context.Context, fn func(repo repository.SolicitudRepository) error) error {
	return fn(t.repo)
}

type memUsers map[string]*entity.User

func (m memUsers) GetByID(_ context.Context, id string) (*entity.User, error) { return m[id], nil }

func (m memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m memUsers) ListByRole(_ context.Context, role entity.Role, _, _ int) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memGrants []*entity.AccessGrant

func (m memGrants) Create(context.Context, *entity.AccessGrant) error { return nil }
func (m memGrants) Delete(context.Context, string) error              { return nil }

func (m memGrants) GetByID(_ context.Context, id string) (*entity.AccessGrant, error) {
	for _, g := range m {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, nil
}

func (m memGrants) ListByUser(_ context.Context, userID string) ([]*entity.AccessGrant, error) {
	var out []*entity.AccessGrant
	for _, g := range m {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

type memCatalog struct{}

func (memCatalog) LookupMaterial(_ context.Context, code string) (*entity.Material, error) {
	prices := map[string]string{"MAT-001": "10.00", "MAT-002": "5.00", "MAT-003": "2.50"}
	p, ok := prices[code]
	if !ok {
		return nil, nil
	}
	return &entity.Material{Code: code, Description: "Material " + code, UnitPrice: decimal.RequireFromString(p), UnitMeasure: "UN"}, nil
}

func (memCatalog) GetCenter(_ context.Context, code string) (*entity.Center, error) {
	if code != "C100" && code != "C200" {
		return nil, nil
	}
	return &entity.Center{Code: code, Name: "Centro " + code}, nil
}

func (memCatalog) GetWarehouse(_ context.Context, code string) (*entity.Warehouse, error) {
	centers := map[string]string{"A100": "C100", "A200": "C200"}
	c, ok := centers[code]
	if !ok {
		return nil, nil
	}
	return &entity.Warehouse{Code: code, CenterCode: c, Name: "Almacén " + code}, nil
}

type memRecorder struct {
	mu          sync.Mutex
	transitions map[string]int // trigger/outcome
	retries     map[string]int
}

func (r *memRecorder) RecordTransition(trigger, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[trigger+"/"+outcome]++
}

func (r *memRecorder) RecordRetry(trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries[trigger]++
}

func testUsers() memUsers {
	u := func(id string, role entity.Role, status string) *entity.User {
		return &entity.User{ID: id, Email: id + "@spm.test", Name: id, Role: role, Status: status}
	}
	return memUsers{
		"u-sol":   u("u-sol", entity.RoleSolicitante, entity.UserStatusActive),
		"u-sol-2": u("u-sol-2", entity.RoleSolicitante, entity.UserStatusActive),
		"u-apr":   u("u-apr", entity.RoleAprobador, entity.UserStatusActive),
		"u-apr-2": u("u-apr-2", entity.RoleAprobador, entity.UserStatusActive),
		"u-pla":   u("u-pla", entity.RolePlanificador, entity.UserStatusActive),
		"u-adm":   u("u-adm", entity.RoleAdmin, entity.UserStatusActive),
		"u-off":   u("u-off", entity.RoleSolicitante, entity.UserStatusInactive),
	}
}

func testGrants() memGrants {
	return memGrants{
		{ID: "g1", UserID: "u-apr", ScopeType: entity.ScopeCentro, ScopeID: "C100"},
		{ID: "g2", UserID: "u-apr-2", ScopeType: entity.ScopeAlmacen, ScopeID: "A200"},
		{ID: "g3", UserID: "u-pla", ScopeType: entity.ScopeCentro, ScopeID: "C100"},
	}
}

type fixture struct {
	uc    *UseCase
	store *memStore
	rec   *memRecorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemStore()
	users := testUsers()
	rec := &memRecorder{transitions: map[string]int{}, retries: map[string]int{}}
	uc := NewUseCase(memTx{repo: store}, store, memCatalog{}, users,
		appaccess.NewResolver(users, testGrants()), rec, logger.Nop(), 3)
	uc.now = func() time.Time { return testNow }
	return fixture{uc: uc, store: store, rec: rec}
}
