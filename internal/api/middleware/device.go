package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

const (
	DeviceIDHeader = "X-Device-ID"
	storeKey       = "device_store"
)

// StoreProvider resolves and persists device stores. *store.Registry
// implements it.
type StoreProvider interface {
	Get(ctx context.Context, deviceID string) (*store.Store, error)
	Persist(ctx context.Context, st *store.Store) error
}

// DeviceMiddleware resolves the caller's store from X-Device-ID and persists
// it once the handler is done.
func DeviceMiddleware(stores StoreProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader(DeviceIDHeader)
		if deviceID == "" {
			AbortWithError(c, utils.NewMissingDeviceIDError())
			return
		}

		ctx := utils.WithDeviceID(c.Request.Context(), deviceID)
		c.Request = c.Request.WithContext(ctx)

		st, err := stores.Get(ctx, deviceID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(storeKey, st)

		c.Next()

		// Persist on a context that outlives a client disconnect.
		if err := stores.Persist(context.WithoutCancel(ctx), st); err != nil {
			utils.LogError(ctx, "Failed to persist device state", err)
		}
	}
}

// StoreFrom returns the store attached by DeviceMiddleware.
func StoreFrom(c *gin.Context) *store.Store {
	if v, ok := c.Get(storeKey); ok {
		if st, ok := v.(*store.Store); ok {
			return st
		}
	}
	return nil
}
