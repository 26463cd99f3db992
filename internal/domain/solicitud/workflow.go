package solicitud

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/access"
	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// Command acción solicitada sobre una solicitud.
type Command struct {
	Trigger   Trigger
	Comment   string
	PlannerID string // requerido para assign_planner
}

type authorizer func(s *Solicitud, actor access.Actor, grants access.Grants) bool

type transition struct {
	trigger   Trigger
	from      Status
	to        Status
	authorize authorizer
	validate  func(s *Solicitud, cmd Command) error
}

// Tabla de transiciones. Es el único lugar donde se decide qué cambio de estado es válido y quién lo ejecuta.
var transitions = []transition{
	{TriggerSubmit, StatusDraft, StatusPendingApproval, isCreator, requireItems},
	{TriggerCancel, StatusDraft, StatusCancelled, creatorOrAdmin, nil},
	{TriggerApprove, StatusPendingApproval, StatusApproved, scopedApprover, nil},
	{TriggerReject, StatusPendingApproval, StatusRejected, scopedApprover, nil},
	{TriggerReturnForEdit, StatusPendingApproval, StatusDraft, scopedApprover, requireComment},
	{TriggerAssignPlanner, StatusApproved, StatusInPlanning, approverOrAdmin, requirePlanner},
	{TriggerClose, StatusInPlanning, StatusClosed, assignedPlanner, nil},
	{TriggerCancel, StatusPendingApproval, StatusCancelled, adminOnly, nil},
	{TriggerCancel, StatusApproved, StatusCancelled, adminOnly, nil},
	{TriggerCancel, StatusInPlanning, StatusCancelled, adminOnly, nil},
}

func lookup(trigger Trigger, from Status) (transition, bool) {
	for _, t := range transitions {
		if t.trigger == trigger && t.from == from {
			return t, true
		}
	}
	return transition{}, false
}

// Apply valida y aplica una transición. Es una función pura: s nunca se modifica; el resultado es una
// copia con el nuevo estado y exactamente una decisión nueva al final del historial.
//
// Orden de verificación: estado actual (ErrInvalidTransition), autorización (ErrForbidden),
// datos del comando (ErrValidation).
//
// submit sobre una solicitud ya pending_approval es un no-op exitoso para su creador: devuelve una copia
// sin cambios y decisión nil.
func Apply(s *Solicitud, cmd Command, actor access.Actor, grants access.Grants, now time.Time) (*Solicitud, *Decision, error) {
	if s == nil {
		return nil, nil, domain.Validation("solicitud requerida")
	}
	if !cmd.Trigger.IsValid() {
		return nil, nil, domain.Validation("acción desconocida").With("trigger", string(cmd.Trigger))
	}
	if cmd.Trigger == TriggerSubmit && s.status == StatusPendingApproval {
		if !isCreator(s, actor, grants) {
			return nil, nil, forbidden(s, cmd.Trigger, actor)
		}
		return s.Clone(), nil, nil
	}

	t, ok := lookup(cmd.Trigger, s.status)
	if !ok {
		return nil, nil, domain.InvalidTransition("la acción no está permitida en el estado actual").
			With("solicitud_id", s.ID).With("status", string(s.status)).With("trigger", string(cmd.Trigger))
	}
	if !t.authorize(s, actor, grants) {
		return nil, nil, forbidden(s, cmd.Trigger, actor)
	}
	if t.validate != nil {
		if err := t.validate(s, cmd); err != nil {
			return nil, nil, err
		}
	}

	next := s.Clone()
	next.status = t.to
	switch cmd.Trigger {
	case TriggerApprove, TriggerReject, TriggerReturnForEdit:
		next.approverID = actor.UserID
	case TriggerAssignPlanner:
		next.plannerID = strings.TrimSpace(cmd.PlannerID)
	}
	d := Decision{
		ID:          uuid.New().String(),
		SolicitudID: s.ID,
		ActorID:     actor.UserID,
		Trigger:     cmd.Trigger,
		From:        s.status,
		To:          t.to,
		Comment:     strings.TrimSpace(cmd.Comment),
		CreatedAt:   now,
	}
	next.decisions = append(next.decisions, d)
	next.UpdatedAt = now
	return next, &d, nil
}

// AllowedTriggers devuelve las acciones que el actor puede ejecutar ahora sobre s.
// No evalúa los datos del comando (comentario, planificador).
func AllowedTriggers(s *Solicitud, actor access.Actor, grants access.Grants) []Trigger {
	var out []Trigger
	for _, t := range transitions {
		if t.from != s.status || !t.authorize(s, actor, grants) {
			continue
		}
		if !containsTrigger(out, t.trigger) {
			out = append(out, t.trigger)
		}
	}
	return out
}

func containsTrigger(list []Trigger, t Trigger) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

func forbidden(s *Solicitud, trigger Trigger, actor access.Actor) error {
	return domain.Forbidden("el usuario no puede ejecutar esta acción sobre la solicitud").
		With("solicitud_id", s.ID).With("trigger", string(trigger)).With("user_id", actor.UserID)
}

func isCreator(s *Solicitud, actor access.Actor, _ access.Grants) bool {
	return actor.Active && actor.UserID != "" && actor.UserID == s.CreatorID
}

func adminOnly(_ *Solicitud, actor access.Actor, _ access.Grants) bool {
	return actor.IsAdmin()
}

func creatorOrAdmin(s *Solicitud, actor access.Actor, g access.Grants) bool {
	return actor.IsAdmin() || isCreator(s, actor, g)
}

// scopedApprover: administrador, o aprobador activo con alcance sobre el centro o el almacén.
func scopedApprover(s *Solicitud, actor access.Actor, g access.Grants) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Active && actor.Is(entity.RoleAprobador) && g.Covers(s.header.Center, s.header.Warehouse)
}

// approverOrAdmin: administrador o aprobador activo, sin exigir alcance.
func approverOrAdmin(_ *Solicitud, actor access.Actor, _ access.Grants) bool {
	return actor.IsAdmin() || (actor.Active && actor.Is(entity.RoleAprobador))
}

func assignedPlanner(s *Solicitud, actor access.Actor, _ access.Grants) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Active && actor.Is(entity.RolePlanificador) && s.plannerID != "" && s.plannerID == actor.UserID
}

func requireItems(s *Solicitud, _ Command) error {
	if len(s.items) == 0 {
		return domain.Validation("no se puede enviar una solicitud sin ítems").With("solicitud_id", s.ID)
	}
	return nil
}

func requireComment(s *Solicitud, cmd Command) error {
	if strings.TrimSpace(cmd.Comment) == "" {
		return domain.Validation("comentario requerido para devolver la solicitud").With("solicitud_id", s.ID)
	}
	return nil
}

func requirePlanner(s *Solicitud, cmd Command) error {
	if strings.TrimSpace(cmd.PlannerID) == "" {
		return domain.Validation("planificador requerido").With("solicitud_id", s.ID)
	}
	return nil
}
