package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-shoplist/internal/items"
	"github.com/imrishuroy/go-shoplist/internal/validation"
)

// HandlerConfig groups dependencies for the shopping handlers.
type HandlerConfig struct {
	Service *items.Service
	Logger  *slog.Logger
}

type itemsHandler struct {
	svc    *items.Service
	logger *slog.Logger
}

// RegisterItemsRoutes registers the /shopping routes.
func RegisterItemsRoutes(r gin.IRouter, cfg HandlerConfig) {
	h := &itemsHandler{svc: cfg.Service, logger: cfg.Logger}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	g := r.Group("/shopping")
	g.GET("", h.list)
	g.GET("/stats", h.stats)
	g.GET("/:id", h.get)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.PATCH("/:id/toggle", h.toggle)
	g.DELETE("/:id", h.remove)
}

func (h *itemsHandler) list(c *gin.Context) {
	var f items.Filter
	if raw, present := c.GetQuery("purchased"); present {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "purchased must be true or false")
			return
		}
		f.Purchased = &b
	}

	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		failErr(c, h.logger, err, "failed to list items")
		return
	}
	okList(c, list)
}

func (h *itemsHandler) stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		failErr(c, h.logger, err, "failed to count items")
		return
	}
	ok(c, http.StatusOK, st, "")
}

func (h *itemsHandler) get(c *gin.Context) {
	id, valid := itemID(c)
	if !valid {
		return
	}
	it, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, h.logger, err, "failed to get item")
		return
	}
	ok(c, http.StatusOK, it, "")
}

func (h *itemsHandler) create(c *gin.Context) {
	req, err := validation.BindNewItem(c)
	if err != nil {
		failErr(c, h.logger, err, "failed to create item")
		return
	}
	it, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		failErr(c, h.logger, err, "failed to create item")
		return
	}
	c.Header("Location", "/shopping/"+strconv.FormatInt(it.ID, 10))
	ok(c, http.StatusCreated, it, "item created")
}

func (h *itemsHandler) update(c *gin.Context) {
	id, valid := itemID(c)
	if !valid {
		return
	}
	// a missing item is reported before anything about the body
	if _, err := h.svc.Get(c.Request.Context(), id); err != nil {
		failErr(c, h.logger, err, "failed to update item")
		return
	}
	p, err := validation.BindPatch(c)
	if err != nil {
		failErr(c, h.logger, err, "failed to update item")
		return
	}
	it, err := h.svc.Update(c.Request.Context(), id, p)
	if err != nil {
		failErr(c, h.logger, err, "failed to update item")
		return
	}
	ok(c, http.StatusOK, it, "item updated")
}

func (h *itemsHandler) toggle(c *gin.Context) {
	id, valid := itemID(c)
	if !valid {
		return
	}
	it, err := h.svc.TogglePurchased(c.Request.Context(), id)
	if err != nil {
		failErr(c, h.logger, err, "failed to toggle item")
		return
	}
	msg := "item marked as not purchased"
	if it.Purchased {
		msg = "item marked as purchased"
	}
	ok(c, http.StatusOK, it, msg)
}

func (h *itemsHandler) remove(c *gin.Context) {
	id, valid := itemID(c)
	if !valid {
		return
	}
	deleted, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		failErr(c, h.logger, err, "failed to delete item")
		return
	}
	if !deleted {
		fail(c, http.StatusNotFound, "item not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id}, "item deleted")
}

// itemID parses :id, writing a 400 when it is not an integer.
func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
