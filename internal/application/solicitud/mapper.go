package solicitud

import (
	"github.com/jhoicas/spm-api/internal/application/dto"
	domaccess "github.com/jhoicas/spm-api/internal/domain/access"
	domsol "github.com/jhoicas/spm-api/internal/domain/solicitud"
)

// toResponse arma el DTO de salida. detail incluye renglones e historial.
func toResponse(s *domsol.Solicitud, actor domaccess.Actor, grants domaccess.Grants, detail bool) *dto.SolicitudResponse {
	h := s.Header()
	out := &dto.SolicitudResponse{
		ID:             s.ID,
		CreadorID:      s.CreatorID,
		Centro:         h.Center,
		Sector:         h.Sector,
		AlmacenVirtual: h.Warehouse,
		Criticidad:     string(h.Criticality),
		Justificacion:  h.Justification,
		Status:         string(s.Status()),
		TotalMonto:     s.TotalAmount(),
		AprobadorID:    optional(s.ApproverID()),
		PlanificadorID: optional(s.PlannerID()),
		Version:        s.Version,
		Acciones:       []string{},
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	for _, t := range domsol.AllowedTriggers(s, actor, grants) {
		out.Acciones = append(out.Acciones, string(t))
	}
	if !detail {
		return out
	}
	items := s.Items()
	out.Items = make([]dto.SolicitudItemResponse, 0, len(items))
	for _, it := range items {
		out.Items = append(out.Items, dto.SolicitudItemResponse{
			ID:             it.ID,
			MaterialCode:   it.MaterialCode,
			Descripcion:    it.Description,
			UnidadMedida:   it.UnitMeasure,
			Cantidad:       it.Quantity,
			PrecioUnitario: it.UnitPrice,
			Subtotal:       it.Subtotal(),
		})
	}
	decisions := s.Decisions()
	out.Decisiones = make([]dto.DecisionResponse, 0, len(decisions))
	for _, d := range decisions {
		out.Decisiones = append(out.Decisiones, dto.DecisionResponse{
			ID:         d.ID,
			ActorID:    d.ActorID,
			Accion:     string(d.Trigger),
			StatusDe:   string(d.From),
			StatusA:    string(d.To),
			Comentario: d.Comment,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
