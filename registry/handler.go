package registry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kbukum/serviceclient/discovery"
	"github.com/kbukum/serviceclient/logger"
	"github.com/kbukum/serviceclient/server"
	"github.com/kbukum/serviceclient/sse"
)

// StreamClientPattern matches the IDs of event stream clients.
const StreamClientPattern = "events:*"

// Handler serves the registry HTTP API:
//
//	GET    /v1/services        {"response": [name...]} when the store can list
//	GET    /v1/services/:name  {"response": [endpoint...]}
//	PUT    /v1/services/:name  body [endpoint...], broadcasts serviceChanged
//	DELETE /v1/services/:name  broadcasts serviceChanged
//	GET    /v1/events          SSE stream of connected / serviceChanged
type Handler struct {
	store    Store
	hub      *sse.Hub
	pub      Publisher
	log      *logger.Logger
	validate *validator.Validate
}

// NewHandler creates a Handler. pub receives every change; the hub only
// serves the stream.
func NewHandler(store Store, hub *sse.Hub, pub Publisher, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		store:    store,
		hub:      hub,
		pub:      pub,
		log:      log.WithComponent("registry"),
		validate: validator.New(),
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/v1/services", h.list)
	r.GET("/v1/services/:name", h.get)
	r.PUT("/v1/services/:name", h.put)
	r.DELETE("/v1/services/:name", h.remove)
	r.GET("/v1/events", h.events)
}

func (h *Handler) list(c *gin.Context) {
	lister, ok := h.store.(Lister)
	if !ok {
		server.RespondFail(c, http.StatusNotImplemented, "store cannot list services")
		return
	}
	names, err := lister.Names(c.Request.Context())
	if err != nil {
		server.RespondError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	server.RespondOK(c, names)
}

func (h *Handler) get(c *gin.Context) {
	name := c.Param("name")
	endpoints, err := h.store.Get(c.Request.Context(), name)
	if errors.Is(err, ErrNotFound) {
		server.RespondFail(c, http.StatusNotFound, fmt.Sprintf("Unknown service '%s'.", name))
		return
	}
	if err != nil {
		h.log.WithContext(c.Request.Context()).Error("store lookup failed", logger.ErrorFields("get", err))
		server.RespondError(c, err)
		return
	}
	server.RespondOK(c, endpoints)
}

func (h *Handler) put(c *gin.Context) {
	name := c.Param("name")
	var endpoints []discovery.Endpoint
	if err := c.ShouldBindJSON(&endpoints); err != nil {
		server.RespondFail(c, http.StatusBadRequest, "body must be a JSON array of endpoints")
		return
	}
	if endpoints == nil {
		endpoints = []discovery.Endpoint{}
	}
	if err := h.validate.Var(endpoints, "dive"); err != nil {
		server.RespondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.store.Put(ctx, name, endpoints); err != nil {
		h.log.WithContext(ctx).Error("store update failed", logger.ErrorFields("put", err))
		server.RespondError(c, err)
		return
	}
	h.publish(c, name, endpoints)
	server.RespondOK(c, endpoints)
}

func (h *Handler) remove(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()
	if err := h.store.Delete(ctx, name); err != nil {
		server.RespondError(c, err)
		return
	}
	h.publish(c, name, nil)
	server.RespondOK(c, gin.H{"deleted": name})
}

// publish failures are logged; the registration itself has succeeded.
func (h *Handler) publish(c *gin.Context, name string, endpoints []discovery.Endpoint) {
	log := h.log.WithContext(c.Request.Context())
	if err := h.pub.PublishChange(c.Request.Context(), name, endpoints); err != nil {
		log.Warn("change not fully published", logger.Fields("service", name, "error", err.Error()))
		return
	}
	log.Info("service changed", logger.Fields("service", name, "endpoints", len(endpoints)))
}

func (h *Handler) events(c *gin.Context) {
	var opts []sse.ClientOption
	if svc := c.Query("service"); svc != "" {
		opts = append(opts, sse.WithMetadata("service", svc))
	}
	sse.ServeSSE(h.hub, c.Writer, c.Request, "events:"+uuid.NewString(), opts...)
}
