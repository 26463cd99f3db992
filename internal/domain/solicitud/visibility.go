package solicitud

import (
	"github.com/jhoicas/spm-api/internal/domain/access"
	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// CanView indica si el actor puede ver la solicitud.
//   - admin: todas.
//   - solicitante: solo las que creó.
//   - aprobador/planificador: las que creó y las de centros o almacenes otorgados;
//     el planificador además ve las que tiene asignadas.
func CanView(actor access.Actor, grants access.Grants, s *Solicitud) bool {
	if s == nil || !actor.Active {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if s.CreatorID == actor.UserID {
		return true
	}
	switch actor.Role {
	case entity.RoleAprobador:
		return grants.Covers(s.header.Center, s.header.Warehouse)
	case entity.RolePlanificador:
		return s.plannerID == actor.UserID || grants.Covers(s.header.Center, s.header.Warehouse)
	}
	return false
}

// VisibleTo filtra candidates conservando el orden. Debe aplicarse antes de ordenar o paginar.
func VisibleTo(actor access.Actor, grants access.Grants, candidates []*Solicitud) []*Solicitud {
	out := make([]*Solicitud, 0, len(candidates))
	for _, s := range candidates {
		if CanView(actor, grants, s) {
			out = append(out, s)
		}
	}
	return out
}
