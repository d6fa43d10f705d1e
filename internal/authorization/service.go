package authorization

import "context"

// Service decides whether actor may perform action on object inside an
// organization. Actors are "system" or "user:<id>".
type Service interface {
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}
