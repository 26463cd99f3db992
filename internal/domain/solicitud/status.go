package solicitud

// Status es el estado del ciclo de vida de una solicitud. Conjunto cerrado.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusInPlanning      Status = "in_planning"
	StatusClosed          Status = "closed"
	StatusCancelled       Status = "cancelled"
)

// Statuses lista todos los estados en orden de ciclo de vida.
var Statuses = []Status{
	StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected,
	StatusInPlanning, StatusClosed, StatusCancelled,
}

// IsValid indica si s es un estado conocido.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected,
		StatusInPlanning, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal indica si desde s no hay transiciones definidas.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusClosed || s == StatusCancelled
}

func (s Status) String() string { return string(s) }

// Trigger es la acción que solicita un cambio de estado.
type Trigger string

const (
	TriggerSubmit        Trigger = "submit"
	TriggerCancel        Trigger = "cancel"
	TriggerApprove       Trigger = "approve"
	TriggerReject        Trigger = "reject"
	TriggerReturnForEdit Trigger = "return_for_edit"
	TriggerAssignPlanner Trigger = "assign_planner"
	TriggerClose         Trigger = "close"
)

// Triggers lista todas las acciones del flujo.
var Triggers = []Trigger{
	TriggerSubmit, TriggerCancel, TriggerApprove, TriggerReject,
	TriggerReturnForEdit, TriggerAssignPlanner, TriggerClose,
}

// IsValid indica si t es una acción conocida.
func (t Trigger) IsValid() bool {
	for _, known := range Triggers {
		if t == known {
			return true
		}
	}
	return false
}

func (t Trigger) String() string { return string(t) }

// Criticality nivel de criticidad declarado por el solicitante.
type Criticality string

const (
	CriticalityBaja    Criticality = "baja"
	CriticalityMedia   Criticality = "media"
	CriticalityAlta    Criticality = "alta"
	CriticalityCritica Criticality = "critica"
)

// IsValid indica si c es un nivel conocido.
func (c Criticality) IsValid() bool {
	switch c {
	case CriticalityBaja, CriticalityMedia, CriticalityAlta, CriticalityCritica:
		return true
	}
	return false
}
