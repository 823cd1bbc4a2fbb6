package controllers

import (
	"net/http"

	"github.com/vkmc/zaqar-websocket/internal/runtime"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes.
type ControllerRegistry struct {
	general  *GeneralController
	queues   *QueuesController
	messages *MessagesController
	claims   *ClaimsController
}

// NewControllerRegistry creates a new controller registry wired to the
// runtime's dispatcher.
func NewControllerRegistry(rt *runtime.Runtime) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		queues:   NewQueuesController(rt),
		messages: NewMessagesController(rt),
		claims:   NewClaimsController(rt),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.queues.RegisterRoutes(mux)
	r.messages.RegisterRoutes(mux)
	r.claims.RegisterRoutes(mux)
}
