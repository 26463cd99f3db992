package solicitud

import (
	"context"

	domaccess "github.com/jhoicas/spm-api/internal/domain/access"
	"github.com/jhoicas/spm-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el repositorio atado a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(repo repository.SolicitudRepository) error) error
}

// ActorResolver obtiene el actor y sus alcances a partir del id de usuario del token.
type ActorResolver interface {
	Resolve(ctx context.Context, userID string) (domaccess.Actor, domaccess.Grants, error)
}

// TransitionRecorder registra métricas del flujo. La implementación vive en infrastructure/metrics.
type TransitionRecorder interface {
	RecordTransition(trigger, outcome string)
	RecordRetry(trigger string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, string) {}
func (nopRecorder) RecordRetry(string)              {}
