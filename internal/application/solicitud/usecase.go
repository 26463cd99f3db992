// Package solicitud orquesta el ciclo de vida de las solicitudes: creación, edición en borrador,
// transiciones del flujo de aprobación y consultas filtradas por visibilidad.
package solicitud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/spm-api/internal/application/dto"
	"github.com/jhoicas/spm-api/internal/domain"
	domaccess "github.com/jhoicas/spm-api/internal/domain/access"
	"github.com/jhoicas/spm-api/internal/domain/entity"
	"github.com/jhoicas/spm-api/internal/domain/repository"
	domsol "github.com/jhoicas/spm-api/internal/domain/solicitud"
	"github.com/jhoicas/spm-api/pkg/logger"
)

const defaultMaxRetries = 3

// UseCase casos de uso de Solicitud. Cada escritura corre en una transacción con la fila bloqueada
// (SELECT FOR UPDATE) y verificación de versión al guardar.
type UseCase struct {
	txRunner   TxRunner
	repo       repository.SolicitudRepository
	catalog    repository.CatalogRepository
	users      repository.UserRepository
	resolver   ActorResolver
	metrics    TransitionRecorder
	log        *logger.Logger
	maxRetries int
	now        func() time.Time
}

// NewUseCase construye el caso de uso. metrics puede ser nil.
func NewUseCase(
	txRunner TxRunner,
	repo repository.SolicitudRepository,
	catalog repository.CatalogRepository,
	users repository.UserRepository,
	resolver ActorResolver,
	metrics TransitionRecorder,
	log *logger.Logger,
	maxRetries int,
) *UseCase {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &UseCase{
		txRunner:   txRunner,
		repo:       repo,
		catalog:    catalog,
		users:      users,
		resolver:   resolver,
		metrics:    metrics,
		log:        log,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Create crea una solicitud en borrador. Centro, almacén y materiales se resuelven contra el catálogo.
func (uc *UseCase) Create(ctx context.Context, userID string, in dto.CreateSolicitudRequest) (*dto.SolicitudResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	actor, grants, err := uc.activeActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	header := toHeader(in.Centro, in.Sector, in.AlmacenVirtual, in.Criticidad, in.Justificacion)
	if err := uc.ensureScopes(ctx, header); err != nil {
		return nil, err
	}
	lines := make([]domsol.Line, 0, len(in.Items))
	for _, it := range in.Items {
		m, err := uc.lookupMaterial(ctx, it.MaterialCode)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domsol.Line{Material: *m, Quantity: it.Cantidad})
	}
	s, err := domsol.New("", actor.UserID, header, lines, uc.now())
	if err != nil {
		return nil, err
	}
	if err := uc.txRunner.Run(ctx, func(repo repository.SolicitudRepository) error {
		return repo.Create(ctx, s)
	}); err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("solicitud_id", s.ID).
		Str("user_id", actor.UserID).
		Str("total", s.TotalAmount().StringFixed(2)).
		Msg("solicitud creada")
	return toResponse(s, actor, grants, true), nil
}

// UpdateHeader reemplaza la cabecera de un borrador. Solo el creador.
func (uc *UseCase) UpdateHeader(ctx context.Context, userID, id string, in dto.UpdateSolicitudRequest) (*dto.SolicitudResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	header := toHeader(in.Centro, in.Sector, in.AlmacenVirtual, in.Criticidad, in.Justificacion)
	if err := uc.ensureScopes(ctx, header); err != nil {
		return nil, err
	}
	return uc.edit(ctx, userID, id, func(s *domsol.Solicitud, now time.Time) error {
		return s.UpdateHeader(header, now)
	})
}

// AddItem agrega un renglón a un borrador con el precio vigente del catálogo.
func (uc *UseCase) AddItem(ctx context.Context, userID, id string, in dto.ItemRequest) (*dto.SolicitudResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	m, err := uc.lookupMaterial(ctx, in.MaterialCode)
	if err != nil {
		return nil, err
	}
	return uc.edit(ctx, userID, id, func(s *domsol.Solicitud, now time.Time) error {
		_, err := s.AddItem(*m, in.Cantidad, now)
		return err
	})
}

// UpdateItem cambia la cantidad de un renglón.
func (uc *UseCase) UpdateItem(ctx context.Context, userID, id, itemID string, in dto.UpdateItemRequest) (*dto.SolicitudResponse, error) {
	return uc.edit(ctx, userID, id, func(s *domsol.Solicitud, now time.Time) error {
		return s.UpdateItem(itemID, in.Cantidad, now)
	})
}

// RemoveItem elimina un renglón.
func (uc *UseCase) RemoveItem(ctx context.Context, userID, id, itemID string) (*dto.SolicitudResponse, error) {
	return uc.edit(ctx, userID, id, func(s *domsol.Solicitud, now time.Time) error {
		return s.RemoveItem(itemID, now)
	})
}

// Transition ejecuta una acción del flujo (submit, approve, reject, return_for_edit, assign_planner,
// close, cancel). Ante un conflicto de versión vuelve a leer y reintenta hasta maxRetries veces; si el
// cliente envió la versión que vio y ya no coincide, devuelve el conflicto sin reintentar.
func (uc *UseCase) Transition(ctx context.Context, userID, id string, trigger domsol.Trigger, in dto.TransitionRequest) (*dto.SolicitudResponse, error) {
	if !trigger.IsValid() {
		return nil, domain.Validation("acción desconocida").With("trigger", string(trigger))
	}
	if err := dto.Validate(in); err != nil {
		uc.metrics.RecordTransition(string(trigger), outcomeOf(err))
		return nil, err
	}
	actor, grants, err := uc.activeActor(ctx, userID)
	if err != nil {
		uc.metrics.RecordTransition(string(trigger), outcomeOf(err))
		return nil, err
	}
	cmd := domsol.Command{
		Trigger:   trigger,
		Comment:   strings.TrimSpace(in.Comment),
		PlannerID: strings.TrimSpace(in.PlannerID),
	}

	var (
		result   *domsol.Solicitud
		decision *domsol.Decision
	)
	err = uc.withRetry(ctx, string(trigger), func(repo repository.SolicitudRepository) (bool, error) {
		current, err := load(ctx, repo, id)
		if err != nil {
			return false, err
		}
		if in.Version != nil && *in.Version != current.Version {
			return false, staleVersion(current, *in.Version)
		}
		next, d, err := domsol.Apply(current, cmd, actor, grants, uc.now())
		if err != nil {
			return false, err
		}
		if trigger == domsol.TriggerAssignPlanner {
			if err := uc.ensurePlanner(ctx, cmd.PlannerID); err != nil {
				return false, err
			}
		}
		if d != nil {
			if err := repo.Save(ctx, next, d); err != nil {
				return true, err
			}
		}
		result, decision = next, d
		return false, nil
	})
	if err != nil {
		uc.metrics.RecordTransition(string(trigger), outcomeOf(err))
		uc.log.Warn().
			Err(err).
			Str("solicitud_id", id).
			Str("user_id", actor.UserID).
			Str("trigger", string(trigger)).
			Msg("transición rechazada")
		return nil, err
	}
	if decision == nil {
		uc.metrics.RecordTransition(string(trigger), "noop")
		return toResponse(result, actor, grants, true), nil
	}
	uc.metrics.RecordTransition(string(trigger), "ok")
	uc.log.Info().
		Str("solicitud_id", result.ID).
		Str("user_id", actor.UserID).
		Str("trigger", string(trigger)).
		Str("from", string(decision.From)).
		Str("to", string(decision.To)).
		Int("version", result.Version).
		Msg("transición aplicada")
	return toResponse(result, actor, grants, true), nil
}

// Get devuelve una solicitud visible para el usuario. Si no es visible responde ErrNotFound.
func (uc *UseCase) Get(ctx context.Context, userID, id string) (*dto.SolicitudResponse, error) {
	actor, grants, err := uc.activeActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	s, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener solicitud: %w", err)
	}
	if s == nil || !domsol.CanView(actor, grants, s) {
		return nil, notFound(id)
	}
	return toResponse(s, actor, grants, true), nil
}

// List devuelve la página de solicitudes visibles. El filtro de visibilidad se aplica antes de paginar
// y Total es el conteo filtrado.
func (uc *UseCase) List(ctx context.Context, userID string, in dto.ListSolicitudesRequest) (*dto.SolicitudListResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	in.DefaultPage()
	actor, grants, err := uc.activeActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidates, err := uc.repo.ListCandidates(ctx, repository.SolicitudQuery{
		ViewerID:     actor.UserID,
		Unrestricted: grants.IsUnrestricted(),
		Centers:      grants.IDs(entity.ScopeCentro),
		Warehouses:   grants.IDs(entity.ScopeAlmacen),
		Status:       domsol.Status(in.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("listar solicitudes: %w", err)
	}
	visible := domsol.VisibleTo(actor, grants, candidates)

	total := len(visible)
	start := min(in.Offset, total)
	end := min(start+in.Limit, total)
	out := make([]dto.SolicitudResponse, 0, end-start)
	for _, s := range visible[start:end] {
		out = append(out, *toResponse(s, actor, grants, false))
	}
	return &dto.SolicitudListResponse{
		Solicitudes: out,
		Page:        dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}

// edit aplica una mutación de borrador dentro de una transacción. Solo el creador edita.
func (uc *UseCase) edit(ctx context.Context, userID, id string, mutate func(*domsol.Solicitud, time.Time) error) (*dto.SolicitudResponse, error) {
	actor, grants, err := uc.activeActor(ctx, userID)
	if err != nil {
		return nil, err
	}
	var result *domsol.Solicitud
	err = uc.withRetry(ctx, "edit", func(repo repository.SolicitudRepository) (bool, error) {
		s, err := load(ctx, repo, id)
		if err != nil {
			return false, err
		}
		if !domsol.CanView(actor, grants, s) {
			return false, notFound(id)
		}
		if s.CreatorID != actor.UserID {
			return false, domain.Forbidden("solo el creador puede modificar la solicitud").
				With("solicitud_id", id).With("user_id", actor.UserID)
		}
		if err := mutate(s, uc.now()); err != nil {
			return false, err
		}
		if err := repo.Save(ctx, s, nil); err != nil {
			return true, err
		}
		result = s
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return toResponse(result, actor, grants, true), nil
}

// withRetry ejecuta fn en una transacción. fn indica si su error proviene de Save; solo esos conflictos
// de versión se reintentan.
func (uc *UseCase) withRetry(ctx context.Context, op string, fn func(repo repository.SolicitudRepository) (bool, error)) error {
	for attempt := 1; ; attempt++ {
		retryable := false
		err := uc.txRunner.Run(ctx, func(repo repository.SolicitudRepository) error {
			var ferr error
			retryable, ferr = fn(repo)
			return ferr
		})
		if err == nil || !retryable || !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= uc.maxRetries {
			return err
		}
		uc.metrics.RecordRetry(op)
		uc.log.Warn().Str("op", op).Int("attempt", attempt).Msg("conflicto de versión, reintentando")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (uc *UseCase) activeActor(ctx context.Context, userID string) (domaccess.Actor, domaccess.Grants, error) {
	actor, grants, err := uc.resolver.Resolve(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domaccess.Actor{}, domaccess.Grants{}, domain.NewError(domain.ErrUnauthorized, "usuario no registrado").
				With("user_id", userID)
		}
		return domaccess.Actor{}, domaccess.Grants{}, err
	}
	if !actor.Active {
		return domaccess.Actor{}, domaccess.Grants{}, domain.Forbidden("usuario inactivo").With("user_id", userID)
	}
	return actor, grants, nil
}

func (uc *UseCase) ensureScopes(ctx context.Context, h domsol.Header) error {
	center, err := uc.catalog.GetCenter(ctx, strings.TrimSpace(h.Center))
	if err != nil {
		return fmt.Errorf("obtener centro: %w", err)
	}
	if center == nil {
		return domain.Validation("centro desconocido").With("centro", h.Center)
	}
	wh, err := uc.catalog.GetWarehouse(ctx, strings.TrimSpace(h.Warehouse))
	if err != nil {
		return fmt.Errorf("obtener almacén: %w", err)
	}
	if wh == nil {
		return domain.Validation("almacén virtual desconocido").With("almacen_virtual", h.Warehouse)
	}
	if wh.CenterCode != "" && wh.CenterCode != center.Code {
		return domain.Validation("el almacén no pertenece al centro").
			With("centro", center.Code).With("almacen_virtual", wh.Code)
	}
	return nil
}

func (uc *UseCase) lookupMaterial(ctx context.Context, code string) (*entity.Material, error) {
	code = strings.TrimSpace(code)
	m, err := uc.catalog.LookupMaterial(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("buscar material: %w", err)
	}
	if m == nil {
		return nil, domain.Validation("material desconocido").With("material_code", code)
	}
	return m, nil
}

func (uc *UseCase) ensurePlanner(ctx context.Context, plannerID string) error {
	u, err := uc.users.GetByID(ctx, plannerID)
	if err != nil {
		return fmt.Errorf("obtener planificador: %w", err)
	}
	if u == nil || !u.IsActive() || u.Role != entity.RolePlanificador {
		return domain.Validation("el planificador no existe o no está activo").With("planner_id", plannerID)
	}
	return nil
}

func load(ctx context.Context, repo repository.SolicitudRepository, id string) (*domsol.Solicitud, error) {
	s, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("obtener solicitud: %w", err)
	}
	if s == nil {
		return nil, notFound(id)
	}
	return s, nil
}

func notFound(id string) error {
	return domain.NotFound("solicitud no encontrada").With("solicitud_id", id)
}

func staleVersion(s *domsol.Solicitud, seen int) error {
	return domain.ConcurrencyConflict("la solicitud cambió desde la última lectura").
		With("solicitud_id", s.ID).
		With("version", fmt.Sprint(s.Version)).
		With("version_cliente", fmt.Sprint(seen))
}

func toHeader(centro, sector, almacen, criticidad, justificacion string) domsol.Header {
	return domsol.Header{
		Center:        centro,
		Sector:        sector,
		Warehouse:     almacen,
		Criticality:   domsol.Criticality(strings.TrimSpace(criticidad)),
		Justification: justificacion,
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidState):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
