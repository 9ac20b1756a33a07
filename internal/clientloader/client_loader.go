package clientloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

type ClientLoader struct {
	Loader *dataloader.Loader
}

func NewClientLoader(repo repository.ClientRepository) *ClientLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// Convert keys to []uuid.UUID, keeping invalid keys as per-key errors
		ids := make([]uuid.UUID, 0, len(keys))
		parsed := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				continue
			}
			parsed[i] = id
			ids = append(ids, id)
		}

		// Fetch clients in batch
		clients, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			for i := range results {
				if results[i] == nil {
					results[i] = &dataloader.Result{Error: err}
				}
			}
			return results
		}

		// Map UUID -> client for ordering
		clientMap := make(map[uuid.UUID]domain.Client, len(clients))
		for _, c := range clients {
			clientMap[c.ID] = c
		}

		// Build results in the same order as keys
		for i, id := range parsed {
			if results[i] != nil {
				continue
			}
			if c, ok := clientMap[id]; ok {
				results[i] = &dataloader.Result{Data: c}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &ClientLoader{Loader: loader}
}

// Load resolves one client through the batch loader. A missing client
// yields ok=false without an error.
func Load(ctx context.Context, loader *dataloader.Loader, id uuid.UUID) (domain.Client, bool, error) {
	value, err := loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return domain.Client{}, false, err
	}
	client, ok := value.(domain.Client)
	return client, ok, nil
}
