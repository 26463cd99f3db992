package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material representa una entrada del catálogo de materiales (solo lectura para el flujo).
// UnitPrice es el precio vigente; las solicitudes copian el valor al crearse.
type Material struct {
	Code        string
	Description string
	UnitPrice   decimal.Decimal
	UnitMeasure string
	UpdatedAt   time.Time
}
