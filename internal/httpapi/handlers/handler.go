package handlers

import (
	"github.com/acelabs/aceai/internal/chat"
	"github.com/acelabs/aceai/internal/chatstore"
	"github.com/acelabs/aceai/internal/config"
	"github.com/acelabs/aceai/internal/index"
	"github.com/acelabs/aceai/internal/keystore"
)

// Handler bundles the shared services. Everything is constructed once at
// process start and passed here by reference.
type Handler struct {
	Cfg      config.Config
	Keys     *keystore.Store
	Sessions *chatstore.Store
	Index    *index.Index
	ChatSvc  *chat.Service
}

func NewHandler(cfg config.Config, keys *keystore.Store, sessions *chatstore.Store, ix *index.Index, chatSvc *chat.Service) *Handler {
	return &Handler{
		Cfg:      cfg,
		Keys:     keys,
		Sessions: sessions,
		Index:    ix,
		ChatSvc:  chatSvc,
	}
}
