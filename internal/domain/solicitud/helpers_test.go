package solicitud

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/spm-api/internal/domain/access"
	"github.com/jhoicas/spm-api/internal/domain/entity"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

var (
	creador      = access.Actor{UserID: "u-sol", Role: entity.RoleSolicitante, Active: true}
	otroSolic    = access.Actor{UserID: "u-sol-2", Role: entity.RoleSolicitante, Active: true}
	aprobador    = access.Actor{UserID: "u-apr", Role: entity.RoleAprobador, Active: true}
	planificador = access.Actor{UserID: "u-pla", Role: entity.RolePlanificador, Active: true}
	admin        = access.Actor{UserID: "u-adm", Role: entity.RoleAdmin, Active: true}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func material(code, price string) entity.Material {
	return entity.Material{Code: code, Description: "Material " + code, UnitPrice: dec(price), UnitMeasure: "UN"}
}

func grantsCentro(ids ...string) access.Grants {
	list := make([]*entity.AccessGrant, 0, len(ids))
	for _, id := range ids {
		list = append(list, &entity.AccessGrant{UserID: "x", ScopeType: entity.ScopeCentro, ScopeID: id})
	}
	return access.NewGrants(list)
}

func grantsAlmacen(ids ...string) access.Grants {
	list := make([]*entity.AccessGrant, 0, len(ids))
	for _, id := range ids {
		list = append(list, &entity.AccessGrant{UserID: "x", ScopeType: entity.ScopeAlmacen, ScopeID: id})
	}
	return access.NewGrants(list)
}

func header() Header {
	return Header{
		Center:        "C100",
		Sector:        "Mantenimiento",
		Warehouse:     "A100",
		Criticality:   CriticalityMedia,
		Justification: "Reposición de repuestos de bombas",
	}
}

// draft crea una solicitud en borrador con dos renglones: 3 x 10.00 y 1 x 5.00.
func draft(t *testing.T) *Solicitud {
	t.Helper()
	s, err := New("sol-1", creador.UserID, header(), []Line{
		{Material: material("MAT-001", "10.00"), Quantity: dec("3")},
		{Material: material("MAT-002", "5.00"), Quantity: dec("1")},
	}, testNow)
	require.NoError(t, err)
	return s
}

// inStatus reconstruye la solicitud de draft(t) en el estado dado.
func inStatus(t *testing.T, st Status, plannerID string) *Solicitud {
	t.Helper()
	snap := draft(t).Snapshot()
	snap.Status = st
	snap.PlannerID = plannerID
	s, err := Restore(snap)
	require.NoError(t, err)
	return s
}

func sumSubtotals(s *Solicitud) decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items() {
		total = total.Add(it.Quantity.Mul(it.UnitPrice))
	}
	return total
}
