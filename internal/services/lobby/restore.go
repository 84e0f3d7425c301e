package lobby

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/lobbyengine/internal/model"
)

const restoreConcurrency = 8

// Restore starts an actor for every lobby the store lists as active, re-arming its timers
// from the persisted deadlines. Returns how many lobbies were resumed.
func (c *Coordinator) Restore(ctx context.Context) (int, error) {
	ids, err := c.storage.ListActiveLobbies(ctx)
	if err != nil {
		return 0, model.PersistenceError(err)
	}

	var restored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(restoreConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			a, _, err := c.actorFor(gctx, id)
			if err != nil {
				if errors.Is(err, model.ErrLobbyNotFound) {
					// snapshot expired while still indexed
					c.logger.Warn("pruning active lobby with no snapshot", slog.String("lobby_id", string(id)))
					if err := c.storage.DeleteLobby(gctx, id); err != nil {
						return model.PersistenceError(err)
					}
					return nil
				}
				return err
			}
			if a != nil {
				restored.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(restored.Load()), err
	}

	c.logger.Info("restored lobbies", slog.Int64("count", restored.Load()))
	return int(restored.Load()), nil
}
