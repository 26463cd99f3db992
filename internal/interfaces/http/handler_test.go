package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spm-api/internal/application/dto"
	"github.com/jhoicas/spm-api/internal/domain"
	domsol "github.com/jhoicas/spm-api/internal/domain/solicitud"
	apphttp "github.com/jhoicas/spm-api/internal/interfaces/http"
	"github.com/jhoicas/spm-api/pkg/logger"
)

type transitionCall struct {
	userID  string
	id      string
	trigger domsol.Trigger
	in      dto.TransitionRequest
}

// fakeSolicitudes responde con err si está definido; si no, con una solicitud mínima.
type fakeSolicitudes struct {
	mu         sync.Mutex
	err        error
	created    int
	lastList   dto.ListSolicitudesRequest
	lastUser   string
	lastItemID string
	calls      []transitionCall
}

func (f *fakeSolicitudes) reply(userID, id string) (*dto.SolicitudResponse, error) {
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.SolicitudResponse{ID: id, CreadorID: userID, Status: "draft", Acciones: []string{}}, nil
}

func (f *fakeSolicitudes) Create(_ context.Context, userID string, _ dto.CreateSolicitudRequest) (*dto.SolicitudResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f.reply(userID, "sol-1")
}

func (f *fakeSolicitudes) UpdateHeader(_ context.Context, userID, id string, _ dto.UpdateSolicitudRequest) (*dto.SolicitudResponse, error) {
	return f.reply(userID, id)
}

func (f *fakeSolicitudes) AddItem(_ context.Context, userID, id string, _ dto.ItemRequest) (*dto.SolicitudResponse, error) {
	return f.reply(userID, id)
}

func (f *fakeSolicitudes) UpdateItem(_ context.Context, userID, id, itemID string, _ dto.UpdateItemRequest) (*dto.SolicitudResponse, error) {
	f.lastItemID = itemID
	return f.reply(userID, id)
}

func (f *fakeSolicitudes) RemoveItem(_ context.Context, userID, id, itemID string) (*dto.SolicitudResponse, error) {
	f.lastItemID = itemID
	return f.reply(userID, id)
}

func (f *fakeSolicitudes) Transition(_ context.Context, userID, id string, trigger domsol.Trigger, in dto.TransitionRequest) (*dto.SolicitudResponse, error) {
	f.calls = append(f.calls, transitionCall{userID: userID, id: id, trigger: trigger, in: in})
	return f.reply(userID, id)
}

func (f *fakeSolicitudes) Get(_ context.Context, userID, id string) (*dto.SolicitudResponse, error) {
	return f.reply(userID, id)
}

func (f *fakeSolicitudes) List(_ context.Context, userID string, in dto.ListSolicitudesRequest) (*dto.SolicitudListResponse, error) {
	f.lastList = in
	f.lastUser = userID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.SolicitudListResponse{Solicitudes: []dto.SolicitudResponse{}, Page: dto.PageResponse{Limit: in.Limit, Offset: in.Offset}}, nil
}

type fakeGrants struct {
	deleted string
}

func (f *fakeGrants) Create(_ context.Context, adminID, userID string, in dto.CreateGrantRequest) (*dto.GrantResponse, error) {
	return &dto.GrantResponse{ID: "g-1", UserID: userID, ScopeType: in.ScopeType, ScopeID: in.ScopeID, CreatedBy: adminID}, nil
}

func (f *fakeGrants) ListByUser(_ context.Context, _, userID string) ([]dto.GrantResponse, error) {
	return []dto.GrantResponse{{ID: "g-1", UserID: userID, ScopeType: "centro", ScopeID: "C100"}}, nil
}

func (f *fakeGrants) Delete(_ context.Context, _, grantID string) error {
	if f.deleted == grantID {
		return domain.NotFound("alcance no encontrado")
	}
	f.deleted = grantID
	return nil
}

type fakeUsers struct {
	lastList dto.ListUsersRequest
}

func (f *fakeUsers) Me(_ context.Context, userID string) (*dto.ProfileResponse, error) {
	return &dto.ProfileResponse{User: dto.UserResponse{ID: userID}, Alcances: map[string][]string{}}, nil
}

func (f *fakeUsers) List(_ context.Context, _ string, in dto.ListUsersRequest) ([]dto.UserResponse, error) {
	f.lastList = in
	return []dto.UserResponse{{ID: "u-pla", Role: "planificador"}}, nil
}

// memIdempotency versión en memoria del almacén Redis.
type memIdempotency struct {
	mu         sync.Mutex
	keys       map[string]string
	reserveErr error
}

func (m *memIdempotency) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return false, m.reserveErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = ""
	return true, nil
}

func (m *memIdempotency) Complete(_ context.Context, key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = id
	return nil
}

func (m *memIdempotency) Lookup(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	routes     []string
	duplicates int
}

func (f *fakeMetrics) ObserveHTTP(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, method+" "+route+" "+http.StatusText(status))
}

func (f *fakeMetrics) RecordDuplicate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duplicates++
}

type testAPI struct {
	app     *fiber.App
	sol     *fakeSolicitudes
	grants  *fakeGrants
	users   *fakeUsers
	idem    *memIdempotency
	metrics *fakeMetrics
	logs    *bytes.Buffer
}

func newTestAPI() testAPI {
	api := testAPI{
		app:     fiber.New(),
		sol:     &fakeSolicitudes{},
		grants:  &fakeGrants{},
		users:   &fakeUsers{},
		idem:    &memIdempotency{keys: map[string]string{}},
		metrics: &fakeMetrics{},
		logs:    &bytes.Buffer{},
	}
	apphttp.Router(api.app, apphttp.RouterDeps{
		SolicitudUC:    api.sol,
		GrantUC:        api.grants,
		UserUC:         api.users,
		JWTSecret:      testJWTSecret,
		Idempotency:    api.idem,
		IdempotencyTTL: time.Hour,
		Metrics:        api.metrics,
		Log:            logger.New(logger.Config{Env: "test", Level: "warn", Output: api.logs}),
	})
	return api
}

func (a testAPI) do(t *testing.T, method, path, auth string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestSolicitudes_CreateUsaUsuarioDelToken(t *testing.T) {
	api := newTestAPI()
	resp, body := api.do(t, http.MethodPost, "/api/solicitudes", tokenFor(t, "u-sol", "solicitante"),
		map[string]any{"centro": "C100", "items": []map[string]any{{"material_code": "MAT-001", "cantidad": "2"}}})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "sol-1", body["id"])
	assert.Equal(t, "u-sol", api.sol.lastUser)
}

func TestSolicitudes_SinToken(t *testing.T) {
	api := newTestAPI()
	resp, body := api.do(t, http.MethodGet, "/api/solicitudes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", body["code"])
}

func TestSolicitudes_CuerpoInvalido(t *testing.T) {
	api := newTestAPI()
	req := httptest.NewRequest(http.MethodPost, "/api/solicitudes", bytes.NewBufferString("{no-json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenFor(t, "u-sol", "solicitante"))
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, api.sol.created)
}

func TestSolicitudes_ListParametros(t *testing.T) {
	api := newTestAPI()
	auth := tokenFor(t, "u-apr", "aprobador")

	resp, _ := api.do(t, http.MethodGet, "/api/solicitudes?status=pending_approval&limit=5&offset=10", auth, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending_approval", api.sol.lastList.Status)
	assert.Equal(t, 5, api.sol.lastList.Limit)
	assert.Equal(t, 10, api.sol.lastList.Offset)

	resp, body := api.do(t, http.MethodGet, "/api/solicitudes?limit=muchos", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", body["code"])
}

func TestSolicitudes_AccionesDelFlujo(t *testing.T) {
	api := newTestAPI()
	auth := tokenFor(t, "u-apr", "aprobador")
	version := 3
	routes := map[string]domsol.Trigger{
		"submit":         domsol.TriggerSubmit,
		"approve":        domsol.TriggerApprove,
		"reject":         domsol.TriggerReject,
		"return":         domsol.TriggerReturnForEdit,
		"assign-planner": domsol.TriggerAssignPlanner,
		"close":          domsol.TriggerClose,
		"cancel":         domsol.TriggerCancel,
	}
	for path, trigger := range routes {
		t.Run(path, func(t *testing.T) {
			api.sol.calls = nil
			resp, _ := api.do(t, http.MethodPost, "/api/solicitudes/sol-9/"+path, auth,
				dto.TransitionRequest{Comment: "ok", PlannerID: "u-pla", Version: &version})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Len(t, api.sol.calls, 1)
			call := api.sol.calls[0]
			assert.Equal(t, trigger, call.trigger)
			assert.Equal(t, "sol-9", call.id)
			assert.Equal(t, "u-apr", call.userID)
			assert.Equal(t, "ok", call.in.Comment)
			assert.Equal(t, "u-pla", call.in.PlannerID)
			require.NotNil(t, call.in.Version)
			assert.Equal(t, 3, *call.in.Version)
		})
	}
}

func TestSolicitudes_AccionSinCuerpo(t *testing.T) {
	api := newTestAPI()
	req := httptest.NewRequest(http.MethodPost, "/api/solicitudes/sol-9/submit", nil)
	req.Header.Set("Authorization", tokenFor(t, "u-sol", "solicitante"))
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, api.sol.calls, 1)
	assert.Nil(t, api.sol.calls[0].in.Version)
}

func TestSolicitudes_RutasDeRenglones(t *testing.T) {
	api := newTestAPI()
	auth := tokenFor(t, "u-sol", "solicitante")

	resp, _ := api.do(t, http.MethodPost, "/api/solicitudes/sol-1/items", auth, map[string]any{"material_code": "MAT-002", "cantidad": "1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPut, "/api/solicitudes/sol-1/items/it-7", auth, map[string]any{"cantidad": "4"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "it-7", api.sol.lastItemID)

	resp, _ = api.do(t, http.MethodDelete, "/api/solicitudes/sol-1/items/it-8", auth, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "it-8", api.sol.lastItemID)

	resp, _ = api.do(t, http.MethodPut, "/api/solicitudes/sol-1", auth, map[string]any{"centro": "C100"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSolicitudes_MapeoDeErrores(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validación", domain.Validation("cantidad debe ser mayor a cero"), http.StatusBadRequest, "VALIDATION"},
		{"estado", domain.InvalidState("solo en borrador"), http.StatusConflict, "INVALID_STATE"},
		{"transición", domain.InvalidTransition("no permitida").With("status", "approved"), http.StatusConflict, "INVALID_TRANSITION"},
		{"prohibido", domain.Forbidden("sin alcance"), http.StatusForbidden, "FORBIDDEN"},
		{"no encontrada", domain.NotFound("solicitud no encontrada"), http.StatusNotFound, "NOT_FOUND"},
		{"conflicto", domain.ConcurrencyConflict("versión desactualizada").With("version", "4"), http.StatusConflict, "CONFLICT"},
		{"no registrado", domain.NewError(domain.ErrUnauthorized, "usuario no registrado"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"envuelto", errors.Join(errors.New("tx"), domain.NotFound("x")), http.StatusNotFound, "NOT_FOUND"},
		{"interno", errors.New("conexión cerrada"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI()
			api.sol.err = tc.err
			resp, body := api.do(t, http.MethodPost, "/api/solicitudes/sol-1/approve", tokenFor(t, "u-apr", "aprobador"), nil)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestSolicitudes_ErrorIncluyeCampos(t *testing.T) {
	api := newTestAPI()
	api.sol.err = domain.InvalidTransition("no permitida").With("status", "approved").With("trigger", "approve")
	resp, body := api.do(t, http.MethodPost, "/api/solicitudes/sol-1/approve", tokenFor(t, "u-apr", "aprobador"), nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no permitida", body["message"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "approved", fields["status"])
	assert.Equal(t, "approve", fields["trigger"])
}

func TestSolicitudes_ErrorInternoNoExponeDetalle(t *testing.T) {
	api := newTestAPI()
	api.sol.err = errors.New("pq: password authentication failed")
	_, body := api.do(t, http.MethodGet, "/api/solicitudes/sol-1", tokenFor(t, "u-sol", "solicitante"), nil)
	assert.NotContains(t, body["message"], "password")
	assert.Contains(t, api.logs.String(), "password authentication failed", "el detalle va al logger de la aplicación")
	assert.Contains(t, api.logs.String(), "/api/solicitudes/sol-1")
}

func TestIdempotency_AlmacenNoDisponible(t *testing.T) {
	api := newTestAPI()
	api.idem.reserveErr = errors.New("redis: connection refused")

	resp, body := api.do(t, http.MethodPost, "/api/solicitudes", tokenFor(t, "u-sol", "solicitante"),
		map[string]any{"centro": "C100"}, apphttp.HeaderIdempotencyKey, "k-9")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "IDEMPOTENCY_UNAVAILABLE", body["code"])
	assert.Equal(t, 0, api.sol.created)
	assert.Contains(t, api.logs.String(), "connection refused")
}

func TestIdempotency_DuplicadoDevuelveIDOriginal(t *testing.T) {
	api := newTestAPI()
	auth := tokenFor(t, "u-sol", "solicitante")
	payload := map[string]any{"centro": "C100"}

	resp, _ := api.do(t, http.MethodPost, "/api/solicitudes", auth, payload, apphttp.HeaderIdempotencyKey, "k-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := api.do(t, http.MethodPost, "/api/solicitudes", auth, payload, apphttp.HeaderIdempotencyKey, "k-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_REQUEST", body["code"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sol-1", fields["solicitud_id"])
	assert.Equal(t, 1, api.sol.created)
	assert.Equal(t, 1, api.metrics.duplicates)

	// La misma clave de otro usuario es independiente.
	resp, _ = api.do(t, http.MethodPost, "/api/solicitudes", tokenFor(t, "u-sol-2", "solicitante"), payload, apphttp.HeaderIdempotencyKey, "k-1")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, api.sol.created)
}

func TestIdempotency_FalloLiberaLaClave(t *testing.T) {
	api := newTestAPI()
	auth := tokenFor(t, "u-sol", "solicitante")
	api.sol.err = domain.Validation("material desconocido")

	resp, _ := api.do(t, http.MethodPost, "/api/solicitudes", auth, map[string]any{}, apphttp.HeaderIdempotencyKey, "k-2")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, api.idem.keys)

	api.sol.err = nil
	resp, _ = api.do(t, http.MethodPost, "/api/solicitudes", auth, map[string]any{}, apphttp.HeaderIdempotencyKey, "k-2")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "sol-1", api.idem.keys["u-sol:k-2"])
}

func TestIdempotency_SinCabecera(t *testing.T) {
	api := newTestAPI()
	auth := tokenFor(t, "u-sol", "solicitante")
	for i := 0; i < 2; i++ {
		resp, _ := api.do(t, http.MethodPost, "/api/solicitudes", auth, map[string]any{})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	assert.Equal(t, 2, api.sol.created)
	assert.Empty(t, api.idem.keys)
}

func TestGrants_SoloAdmin(t *testing.T) {
	api := newTestAPI()

	resp, body := api.do(t, http.MethodGet, "/api/users/u-apr/grants", tokenFor(t, "u-apr", "aprobador"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])

	admin := tokenFor(t, "u-adm", "admin")
	resp, body = api.do(t, http.MethodPost, "/api/users/u-apr/grants", admin, dto.CreateGrantRequest{ScopeType: "centro", ScopeID: "C100"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "u-apr", body["user_id"])
	assert.Equal(t, "u-adm", body["created_by"])

	resp, _ = api.do(t, http.MethodDelete, "/api/grants/g-1", admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = api.do(t, http.MethodDelete, "/api/grants/g-1", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGrants_NoBloqueaSolicitudes(t *testing.T) {
	api := newTestAPI()
	resp, _ := api.do(t, http.MethodGet, "/api/solicitudes/sol-1", tokenFor(t, "u-sol", "solicitante"), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics_UsaPatronDeRuta(t *testing.T) {
	api := newTestAPI()
	api.do(t, http.MethodGet, "/api/solicitudes/sol-42", tokenFor(t, "u-sol", "solicitante"), nil)

	api.metrics.mu.Lock()
	defer api.metrics.mu.Unlock()
	require.Len(t, api.metrics.routes, 1)
	assert.Equal(t, "GET /api/solicitudes/:id OK", api.metrics.routes[0])
}

func TestUsers_MeYBusqueda(t *testing.T) {
	api := newTestAPI()

	resp, body := api.do(t, http.MethodGet, "/api/users/me", tokenFor(t, "u-sol", "solicitante"), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u-sol", user["id"])

	resp, _ = api.do(t, http.MethodGet, "/api/users?role=planificador", tokenFor(t, "u-sol", "solicitante"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/users?role=planificador&limit=10", tokenFor(t, "u-apr", "aprobador"), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "planificador", api.users.lastList.Role)
	assert.Equal(t, 10, api.users.lastList.Limit)
}
