package protocol

import (
	"context"

	"github.com/areaflow/areaflow/pkg/models"
)

// PollerCallback is invoked by a poller when an area is due to fire. The
// trigger payload is a flat-or-nested mapping of primitives extractable by
// the variable resolver for the area's trigger service.
type PollerCallback func(ctx context.Context, area *models.Area, triggerData map[string]any) error

// Poller periodically decides whether an area is due to fire and, when so,
// builds a trigger payload and invokes the callback.
type Poller interface {
	Start(ctx context.Context, callback PollerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}
