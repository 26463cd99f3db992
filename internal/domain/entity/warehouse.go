package entity

import "time"

// Center representa un centro logístico (planta o sede) del catálogo organizacional.
type Center struct {
	Code      string
	Name      string
	CreatedAt time.Time
}

// Warehouse representa un almacén virtual; pertenece a exactamente un centro.
type Warehouse struct {
	Code       string
	CenterCode string
	Name       string
	CreatedAt  time.Time
}
