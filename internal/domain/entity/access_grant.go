package entity

import "time"

// ScopeType tipo de alcance organizacional sobre el que se otorga acceso.
type ScopeType string

const (
	ScopeCentro  ScopeType = "centro"
	ScopeAlmacen ScopeType = "almacen"
)

// IsValid indica si el tipo de alcance es conocido.
func (t ScopeType) IsValid() bool {
	return t == ScopeCentro || t == ScopeAlmacen
}

// AccessGrant otorga a un usuario acceso a un centro o almacén. Solo un admin los crea o elimina.
type AccessGrant struct {
	ID        string
	UserID    string
	ScopeType ScopeType
	ScopeID   string
	CreatedBy string
	CreatedAt time.Time
}
