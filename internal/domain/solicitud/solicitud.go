// Package solicitud contiene el agregado Solicitud, su máquina de estados y el filtro de visibilidad.
// Todo el paquete es puro: no hace I/O y no conserva estado compartido.
package solicitud

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/entity"
)

// Header datos de cabecera editables mientras la solicitud está en borrador.
type Header struct {
	Center        string
	Sector        string
	Warehouse     string // almacén virtual
	Criticality   Criticality
	Justification string
}

// Line es un renglón de entrada para crear una solicitud: material resuelto del catálogo + cantidad.
type Line struct {
	Material entity.Material
	Quantity decimal.Decimal
}

// Item renglón de la solicitud. UnitPrice es una copia del precio del catálogo al momento de crearlo.
type Item struct {
	ID           string
	MaterialCode string
	Description  string
	UnitMeasure  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
}

// Subtotal cantidad * precio unitario.
func (i Item) Subtotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Decision registro de auditoría de una transición de estado. Nunca se edita ni se elimina.
type Decision struct {
	ID          string
	SolicitudID string
	ActorID     string
	Trigger     Trigger
	From        Status
	To          Status
	Comment     string
	CreatedAt   time.Time
}

// Solicitud es la raíz del agregado: cabecera, renglones e historial de decisiones.
// Estado, totales, renglones e historial solo cambian a través de sus métodos y de Apply.
type Solicitud struct {
	ID        string
	CreatorID string
	Version   int // concurrencia optimista; la incrementa la persistencia
	CreatedAt time.Time
	UpdatedAt time.Time

	header      Header
	status      Status
	approverID  string
	plannerID   string
	totalAmount decimal.Decimal
	items       []Item
	decisions   []Decision
}

// New crea una solicitud en borrador. Los materiales ya vienen resueltos del catálogo.
func New(id, creatorID string, header Header, lines []Line, now time.Time) (*Solicitud, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if creatorID == "" {
		return nil, domain.Validation("creador requerido")
	}
	header = normalizeHeader(header)
	if err := validateHeader(header); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.Validation("la solicitud debe tener al menos un ítem").With("campo", "items")
	}
	s := &Solicitud{
		ID:        id,
		CreatorID: creatorID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		header:    header,
		status:    StatusDraft,
		items:     make([]Item, 0, len(lines)),
	}
	for _, l := range lines {
		item, err := newItem(l.Material, l.Quantity)
		if err != nil {
			return nil, err
		}
		s.items = append(s.items, item)
	}
	s.recalculateTotal()
	return s, nil
}

func newItem(m entity.Material, qty decimal.Decimal) (Item, error) {
	if strings.TrimSpace(m.Code) == "" {
		return Item{}, domain.Validation("código de material requerido").With("campo", "material_code")
	}
	if !qty.IsPositive() {
		return Item{}, domain.Validation("la cantidad debe ser mayor que cero").
			With("material_code", m.Code).With("cantidad", qty.String())
	}
	if m.UnitPrice.IsNegative() {
		return Item{}, domain.Validation("precio unitario negativo en el catálogo").With("material_code", m.Code)
	}
	return Item{
		ID:           uuid.New().String(),
		MaterialCode: m.Code,
		Description:  m.Description,
		UnitMeasure:  m.UnitMeasure,
		Quantity:     qty,
		UnitPrice:    m.UnitPrice,
	}, nil
}

func normalizeHeader(h Header) Header {
	h.Center = strings.TrimSpace(h.Center)
	h.Sector = strings.TrimSpace(h.Sector)
	h.Warehouse = strings.TrimSpace(h.Warehouse)
	h.Justification = strings.TrimSpace(h.Justification)
	return h
}

func validateHeader(h Header) error {
	switch {
	case h.Center == "":
		return domain.Validation("centro requerido").With("campo", "centro")
	case h.Warehouse == "":
		return domain.Validation("almacén virtual requerido").With("campo", "almacen_virtual")
	case h.Sector == "":
		return domain.Validation("sector requerido").With("campo", "sector")
	case !h.Criticality.IsValid():
		return domain.Validation("criticidad inválida").With("criticidad", string(h.Criticality))
	case h.Justification == "":
		return domain.Validation("justificación requerida").With("campo", "justificacion")
	}
	return nil
}

// Header devuelve la cabecera.
func (s *Solicitud) Header() Header { return s.header }

// Status devuelve el estado actual.
func (s *Solicitud) Status() Status { return s.status }

// ApproverID devuelve el id del último aprobador que decidió ("" si ninguno).
func (s *Solicitud) ApproverID() string { return s.approverID }

// PlannerID devuelve el planificador asignado ("" si ninguno).
func (s *Solicitud) PlannerID() string { return s.plannerID }

// TotalAmount devuelve total_monto.
func (s *Solicitud) TotalAmount() decimal.Decimal { return s.totalAmount }

// Items devuelve una copia de los renglones.
func (s *Solicitud) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Decisions devuelve una copia del historial en orden de registro.
func (s *Solicitud) Decisions() []Decision {
	out := make([]Decision, len(s.decisions))
	copy(out, s.decisions)
	return out
}

// IsEditable indica si se permiten cambios de cabecera y renglones.
func (s *Solicitud) IsEditable() bool { return s.status == StatusDraft }

// AddItem agrega un renglón. Solo en borrador.
func (s *Solicitud) AddItem(m entity.Material, qty decimal.Decimal, now time.Time) (Item, error) {
	if err := s.ensureEditable(); err != nil {
		return Item{}, err
	}
	item, err := newItem(m, qty)
	if err != nil {
		return Item{}, err
	}
	s.items = append(s.items, item)
	s.touch(now)
	return item, nil
}

// UpdateItem cambia la cantidad de un renglón. El precio copiado no cambia.
func (s *Solicitud) UpdateItem(itemID string, qty decimal.Decimal, now time.Time) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	idx := s.indexOf(itemID)
	if idx < 0 {
		return domain.NotFound("ítem no encontrado").With("item_id", itemID)
	}
	if !qty.IsPositive() {
		return domain.Validation("la cantidad debe ser mayor que cero").With("item_id", itemID)
	}
	s.items[idx].Quantity = qty
	s.touch(now)
	return nil
}

// RemoveItem elimina un renglón. Una solicitud sin renglones no puede enviarse.
func (s *Solicitud) RemoveItem(itemID string, now time.Time) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	idx := s.indexOf(itemID)
	if idx < 0 {
		return domain.NotFound("ítem no encontrado").With("item_id", itemID)
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	s.touch(now)
	return nil
}

// UpdateHeader reemplaza la cabecera. Solo en borrador.
func (s *Solicitud) UpdateHeader(h Header, now time.Time) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	h = normalizeHeader(h)
	if err := validateHeader(h); err != nil {
		return err
	}
	s.header = h
	s.UpdatedAt = now
	return nil
}

// Clone devuelve una copia profunda.
func (s *Solicitud) Clone() *Solicitud {
	c := *s
	c.items = s.Items()
	c.decisions = s.Decisions()
	return &c
}

func (s *Solicitud) ensureEditable() error {
	if !s.IsEditable() {
		return domain.InvalidState("la solicitud solo puede modificarse en borrador").
			With("solicitud_id", s.ID).With("status", string(s.status))
	}
	return nil
}

func (s *Solicitud) indexOf(itemID string) int {
	for i := range s.items {
		if s.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (s *Solicitud) touch(now time.Time) {
	s.recalculateTotal()
	s.UpdatedAt = now
}

func (s *Solicitud) recalculateTotal() {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	s.totalAmount = total
}

// Snapshot es la forma plana del agregado usada por la persistencia.
type Snapshot struct {
	ID         string
	CreatorID  string
	Header     Header
	Status     Status
	ApproverID string
	PlannerID  string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []Item
	Decisions  []Decision
}

// Restore reconstruye una solicitud persistida. El total se recalcula a partir de los renglones.
func Restore(snap Snapshot) (*Solicitud, error) {
	if !snap.Status.IsValid() {
		return nil, domain.Validation("estado persistido desconocido").
			With("solicitud_id", snap.ID).With("status", string(snap.Status))
	}
	s := &Solicitud{
		ID:         snap.ID,
		CreatorID:  snap.CreatorID,
		Version:    snap.Version,
		CreatedAt:  snap.CreatedAt,
		UpdatedAt:  snap.UpdatedAt,
		header:     snap.Header,
		status:     snap.Status,
		approverID: snap.ApproverID,
		plannerID:  snap.PlannerID,
		items:      append([]Item(nil), snap.Items...),
		decisions:  append([]Decision(nil), snap.Decisions...),
	}
	s.recalculateTotal()
	return s, nil
}

// Snapshot devuelve la forma plana del agregado.
func (s *Solicitud) Snapshot() Snapshot {
	return Snapshot{
		ID:         s.ID,
		CreatorID:  s.CreatorID,
		Header:     s.header,
		Status:     s.status,
		ApproverID: s.approverID,
		PlannerID:  s.plannerID,
		Version:    s.Version,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		Items:      s.Items(),
		Decisions:  s.Decisions(),
	}
}
