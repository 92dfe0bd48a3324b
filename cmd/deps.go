package cmd

import (
	"fmt"

	"github.com/quinn/daybook/internal/cache"
	"github.com/quinn/daybook/internal/config"
	"github.com/quinn/daybook/internal/remote"
	"github.com/quinn/daybook/internal/store"
	"github.com/quinn/daybook/internal/syncer"
)

// openStore opens the local store under the data directory.
func openStore() (*store.Store, error) {
	st := store.New(getBaseDir())
	if err := st.Init(); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// newRemoteClient builds a backend client from config, or nil when not
// authenticated. A nil client keeps everything local; the queue just grows
// until credentials appear.
func newRemoteClient() *remote.Client {
	if !config.IsAuthenticated() {
		return nil
	}
	deviceID, err := config.GetDeviceID()
	if err != nil {
		deviceID = ""
	}
	return remote.New(config.GetServerURL(), config.GetAPIKey(), deviceID)
}

// newManager builds a sync manager over the store.
func newManager(st *store.Store, client *remote.Client) *syncer.Manager {
	return syncer.New(st, client, syncer.Options{
		DeadLetterCeiling: config.GetDeadLetterCeiling(),
	})
}

// newCache builds the data layer the commands talk to.
func newCache(st *store.Store) *cache.Cache {
	client := newRemoteClient()
	if client == nil {
		return cache.New(st)
	}
	return cache.New(st, cache.WithRemote(client))
}

// currentUserID returns the signed-in user ID ("" when anonymous).
func currentUserID() string {
	return config.GetUserID()
}
