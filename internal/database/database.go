package database

import "context"

// HealthChecker is implemented by every connection wrapper in this package.
type HealthChecker interface {
	Health(ctx context.Context) error
}
