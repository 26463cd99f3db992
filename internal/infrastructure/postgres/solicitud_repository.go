package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/spm-api/internal/domain"
	"github.com/jhoicas/spm-api/internal/domain/repository"
	"github.com/jhoicas/spm-api/internal/domain/solicitud"
)

var _ repository.SolicitudRepository = (*SolicitudRepo)(nil)

const solicitudColumns = `id, creator_id, centro, sector, almacen_virtual, criticidad, justificacion,
	status, approver_id, planner_id, version, created_at, updated_at`

// SolicitudRepo persistencia del agregado Solicitud en solicitudes, solicitud_items y solicitud_decisions.
// total_monto se guarda desnormalizado para reportes; al leer se recalcula desde los renglones.
type SolicitudRepo struct {
	db Querier
}

// NewSolicitudRepository construye el repositorio. db puede ser el pool o una tx.
func NewSolicitudRepository(db Querier) *SolicitudRepo {
	return &SolicitudRepo{db: db}
}

// Create inserta cabecera, renglones e historial.
func (r *SolicitudRepo) Create(ctx context.Context, s *solicitud.Solicitud) error {
	h := s.Header()
	_, err := r.db.Exec(ctx, `
		INSERT INTO solicitudes (id, creator_id, centro, sector, almacen_virtual, criticidad, justificacion,
			status, approver_id, planner_id, total_monto, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.CreatorID, h.Center, h.Sector, h.Warehouse, string(h.Criticality), h.Justification,
		string(s.Status()), nullable(s.ApproverID()), nullable(s.PlannerID()), s.TotalAmount(), s.Version,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Validation("la solicitud ya existe").With("solicitud_id", s.ID)
		}
		return fmt.Errorf("insert solicitud: %w", err)
	}
	if err := r.insertItems(ctx, s); err != nil {
		return err
	}
	for _, d := range s.Decisions() {
		if err := r.insertDecision(ctx, &d); err != nil {
			return err
		}
	}
	return nil
}

// GetByID lee el agregado completo sin bloquear.
func (r *SolicitudRepo) GetByID(ctx context.Context, id string) (*solicitud.Solicitud, error) {
	return r.get(ctx, `SELECT `+solicitudColumns+` FROM solicitudes WHERE id = $1`, id)
}

// GetForUpdate lee el agregado y bloquea la fila de cabecera hasta el fin de la transacción.
func (r *SolicitudRepo) GetForUpdate(ctx context.Context, id string) (*solicitud.Solicitud, error) {
	return r.get(ctx, `SELECT `+solicitudColumns+` FROM solicitudes WHERE id = $1 FOR UPDATE`, id)
}

func (r *SolicitudRepo) get(ctx context.Context, query, id string) (*solicitud.Solicitud, error) {
	snap, err := scanSolicitud(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get solicitud: %w", err)
	}
	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	snap.Items = items[id]
	if snap.Decisions, err = r.loadDecisions(ctx, id); err != nil {
		return nil, err
	}
	return solicitud.Restore(snap)
}

// Save actualiza la cabecera con control de versión, reescribe los renglones y agrega la decisión.
func (r *SolicitudRepo) Save(ctx context.Context, s *solicitud.Solicitud, decision *solicitud.Decision) error {
	h := s.Header()
	tag, err := r.db.Exec(ctx, `
		UPDATE solicitudes SET
			centro = $2, sector = $3, almacen_virtual = $4, criticidad = $5, justificacion = $6,
			status = $7, approver_id = $8, planner_id = $9, total_monto = $10,
			version = version + 1, updated_at = $11
		WHERE id = $1 AND version = $12`,
		s.ID, h.Center, h.Sector, h.Warehouse, string(h.Criticality), h.Justification,
		string(s.Status()), nullable(s.ApproverID()), nullable(s.PlannerID()), s.TotalAmount(),
		s.UpdatedAt, s.Version,
	)
	if err != nil {
		return fmt.Errorf("update solicitud: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ConcurrencyConflict("la solicitud fue modificada por otra operación").
			With("solicitud_id", s.ID).With("version", strconv.Itoa(s.Version))
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM solicitud_items WHERE solicitud_id = $1`, s.ID); err != nil {
		return fmt.Errorf("delete solicitud items: %w", err)
	}
	if err := r.insertItems(ctx, s); err != nil {
		return err
	}
	if decision != nil {
		if err := r.insertDecision(ctx, decision); err != nil {
			return err
		}
	}
	s.Version++
	return nil
}

// ListCandidates acota por creador, planificador asignado o alcance. Carga los renglones (para el total)
// pero no el historial de decisiones.
func (r *SolicitudRepo) ListCandidates(ctx context.Context, q repository.SolicitudQuery) ([]*solicitud.Solicitud, error) {
	centers := q.Centers
	if centers == nil {
		centers = []string{}
	}
	warehouses := q.Warehouses
	if warehouses == nil {
		warehouses = []string{}
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+solicitudColumns+` FROM solicitudes
		WHERE ($1 OR creator_id = $2 OR planner_id = $2 OR centro = ANY($3) OR almacen_virtual = ANY($4))
		  AND ($5 = '' OR status = $5)
		ORDER BY created_at DESC, id`,
		q.Unrestricted, q.ViewerID, centers, warehouses, string(q.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("list solicitudes: %w", err)
	}
	var snaps []solicitud.Snapshot
	for rows.Next() {
		snap, err := scanSolicitud(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(snaps))
	for _, s := range snaps {
		ids = append(ids, s.ID)
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*solicitud.Solicitud, 0, len(snaps))
	for _, snap := range snaps {
		snap.Items = items[snap.ID]
		s, err := solicitud.Restore(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *SolicitudRepo) insertItems(ctx context.Context, s *solicitud.Solicitud) error {
	items := s.Items()
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(`
			INSERT INTO solicitud_items (id, solicitud_id, position, material_code, description, unit_measure, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, s.ID, i, it.MaterialCode, it.Description, it.UnitMeasure, it.Quantity, it.UnitPrice,
		)
	}
	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert solicitud item: %w", err)
		}
	}
	return nil
}

func (r *SolicitudRepo) insertDecision(ctx context.Context, d *solicitud.Decision) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO solicitud_decisions (id, solicitud_id, actor_id, trigger, from_status, to_status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.SolicitudID, d.ActorID, string(d.Trigger), string(d.From), string(d.To), d.Comment, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert solicitud decision: %w", err)
	}
	return nil
}

func (r *SolicitudRepo) loadItems(ctx context.Context, ids []string) (map[string][]solicitud.Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT solicitud_id, id, material_code, description, unit_measure, quantity, unit_price
		FROM solicitud_items
		WHERE solicitud_id = ANY($1)
		ORDER BY solicitud_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("list solicitud items: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]solicitud.Item, len(ids))
	for rows.Next() {
		var solicitudID string
		var it solicitud.Item
		if err := rows.Scan(&solicitudID, &it.ID, &it.MaterialCode, &it.Description, &it.UnitMeasure, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[solicitudID] = append(out[solicitudID], it)
	}
	return out, rows.Err()
}

func (r *SolicitudRepo) loadDecisions(ctx context.Context, id string) ([]solicitud.Decision, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, solicitud_id, actor_id, trigger, from_status, to_status, comment, created_at
		FROM solicitud_decisions
		WHERE solicitud_id = $1
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list solicitud decisions: %w", err)
	}
	defer rows.Close()
	var out []solicitud.Decision
	for rows.Next() {
		var d solicitud.Decision
		var trigger, from, to string
		if err := rows.Scan(&d.ID, &d.SolicitudID, &d.ActorID, &trigger, &from, &to, &d.Comment, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Trigger, d.From, d.To = solicitud.Trigger(trigger), solicitud.Status(from), solicitud.Status(to)
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanSolicitud(row pgx.Row) (solicitud.Snapshot, error) {
	var snap solicitud.Snapshot
	var criticidad, status string
	var approverID, plannerID *string
	err := row.Scan(
		&snap.ID, &snap.CreatorID, &snap.Header.Center, &snap.Header.Sector, &snap.Header.Warehouse,
		&criticidad, &snap.Header.Justification, &status, &approverID, &plannerID,
		&snap.Version, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if err != nil {
		return solicitud.Snapshot{}, err
	}
	snap.Header.Criticality = solicitud.Criticality(criticidad)
	snap.Status = solicitud.Status(status)
	snap.ApproverID = deref(approverID)
	snap.PlannerID = deref(plannerID)
	return snap, nil
}
