// Package access modela quién actúa y sobre qué alcances organizacionales puede hacerlo.
// No realiza I/O: el resolver de la capa de aplicación construye estos valores.
package access

import (
	"sort"

	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// Actor es el usuario autenticado que ejecuta una operación.
type Actor struct {
	UserID string
	Role   entity.Role
	Active bool
}

// IsAdmin indica si el actor es un administrador activo.
func (a Actor) IsAdmin() bool {
	return a.Active && a.Role == entity.RoleAdmin
}

// Is indica si el actor tiene el rol dado.
func (a Actor) Is(role entity.Role) bool {
	return a.Role == role
}

// Grants es el conjunto de alcances (centros, almacenes) sobre los que un usuario puede actuar.
// El valor cero es un conjunto vacío. Se trata como inmutable una vez construido.
type Grants struct {
	unrestricted bool
	scopes       map[entity.ScopeType]map[string]struct{}
}

// Unrestricted devuelve un conjunto que satisface cualquier verificación de alcance (administradores).
func Unrestricted() Grants {
	return Grants{unrestricted: true}
}

// NewGrants construye el conjunto a partir de los registros de AccessGrant.
func NewGrants(list []*entity.AccessGrant) Grants {
	g := Grants{scopes: make(map[entity.ScopeType]map[string]struct{})}
	for _, ag := range list {
		if ag == nil || !ag.ScopeType.IsValid() {
			continue
		}
		set, ok := g.scopes[ag.ScopeType]
		if !ok {
			set = make(map[string]struct{})
			g.scopes[ag.ScopeType] = set
		}
		set[ag.ScopeID] = struct{}{}
	}
	return g
}

// IsUnrestricted indica si el conjunto cubre todos los alcances.
func (g Grants) IsUnrestricted() bool { return g.unrestricted }

// Has indica si el conjunto incluye el alcance (tipo, id).
func (g Grants) Has(t entity.ScopeType, id string) bool {
	if g.unrestricted {
		return true
	}
	_, ok := g.scopes[t][id]
	return ok
}

// Covers indica si el conjunto intersecta el centro o el almacén de una solicitud.
func (g Grants) Covers(center, warehouse string) bool {
	return g.Has(entity.ScopeCentro, center) || g.Has(entity.ScopeAlmacen, warehouse)
}

// IDs devuelve los ids ordenados de un tipo de alcance. Vacío para conjuntos sin restricción.
func (g Grants) IDs(t entity.ScopeType) []string {
	set := g.scopes[t]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ByType devuelve la vista {tipo: ids} del conjunto.
func (g Grants) ByType() map[entity.ScopeType][]string {
	out := make(map[entity.ScopeType][]string, len(g.scopes))
	for t := range g.scopes {
		out[t] = g.IDs(t)
	}
	return out
}
