package handler

import (
	"alumnet/internal/app/presence"
	"alumnet/internal/app/storage"
	"alumnet/internal/app/store"
	"alumnet/internal/configs"
)

// AppDeps bundles the shared dependencies threaded through every handler.
type AppDeps struct {
	Hub            *presence.Hub
	Config         *configs.AppConfig
	StorageService storage.StorageService
	DB             *store.Queries
}
