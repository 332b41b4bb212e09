package datasource

import (
	"context"

	"github.com/guttosm/sunday-edge/internal/circuitbreaker"
	"github.com/guttosm/sunday-edge/internal/domain/model"
)

// ClientWithCircuitBreaker wraps a Client with circuit breaker protection.
// An open circuit returns circuitbreaker.ErrCircuitOpen without calling upstream.
type ClientWithCircuitBreaker struct {
	client         Client
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClientWithCircuitBreaker creates a new client wrapper with circuit breaker.
func NewClientWithCircuitBreaker(client Client, cb *circuitbreaker.CircuitBreaker) *ClientWithCircuitBreaker {
	return &ClientWithCircuitBreaker{
		client:         client,
		circuitBreaker: cb,
	}
}

func (c *ClientWithCircuitBreaker) Teams(ctx context.Context) ([]model.Team, error) {
	return circuitbreaker.Do(ctx, c.circuitBreaker, c.client.Teams)
}

func (c *ClientWithCircuitBreaker) Roster(ctx context.Context, teamID string) (*model.Roster, error) {
	return circuitbreaker.Do(ctx, c.circuitBreaker, func(ctx context.Context) (*model.Roster, error) {
		return c.client.Roster(ctx, teamID)
	})
}

func (c *ClientWithCircuitBreaker) SearchPlayers(ctx context.Context, query string) ([]model.Player, error) {
	return circuitbreaker.Do(ctx, c.circuitBreaker, func(ctx context.Context) ([]model.Player, error) {
		return c.client.SearchPlayers(ctx, query)
	})
}

// Health bypasses the breaker so readiness checks see the real upstream state.
func (c *ClientWithCircuitBreaker) Health(ctx context.Context) (*Health, error) {
	return c.client.Health(ctx)
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (c *ClientWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return c.circuitBreaker
}
