package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/collection/service"
	"github.com/docgate/docgate/internal/export"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/mongo"
)

// Exporter writes a collection to object storage. It is optional.
type Exporter interface {
	Export(ctx context.Context, name string, req export.Request) (*export.Result, error)
}

// Query-string parameters of the browse endpoint that are not field filters.
var reservedParams = map[string]bool{"filter": true, "limit": true, "skip": true}

type Handler struct {
	svc      *service.Service
	exporter Exporter
}

// RegisterCollectionRoutes mounts the collection API on rg. exporter may be nil.
func RegisterCollectionRoutes(rg *gin.RouterGroup, svc *service.Service, exporter Exporter) {
	h := &Handler{svc: svc, exporter: exporter}
	rg.GET("/collections", h.listCollections)
	rg.POST("/collections/:name", h.createCollection)
	rg.POST("/collections/:name/documents", h.insert)
	rg.GET("/collections/:name/documents", h.search)
	rg.DELETE("/collections/:name/documents", h.deleteByFilter)
	rg.POST("/collections/:name/documents/delete", h.deleteByFilter)
	rg.GET("/collections/:name/documents/:id", h.getByID)
	rg.PATCH("/collections/:name/documents/:id", h.patch)
	rg.DELETE("/collections/:name/documents/:id", h.deleteByID)
	rg.POST("/collections/:name/find", h.find)
	rg.POST("/collections/:name/export", h.export)
}

func (h *Handler) listCollections(c *gin.Context) {
	names, err := h.svc.ListCollections(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "collections": names})
}

func (h *Handler) createCollection(c *gin.Context) {
	res, err := h.svc.CreateCollection(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !res.Created {
		c.JSON(http.StatusOK, gin.H{"ok": true, "created": false, "message": "Collection already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "created": true, "collection": res.Name})
}

func (h *Handler) insert(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	res, err := h.svc.Insert(c.Request.Context(), c.Param("name"), body, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "insertedId": res.ID})
}

func (h *Handler) patch(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	doc, err := h.svc.Patch(c.Request.Context(), c.Param("name"), c.Param("id"), body, principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "document": doc})
}

// search is the lenient browse endpoint: ?filter=<json>&limit=&skip= plus
// any other parameter as an equality match.
func (h *Handler) search(c *gin.Context) {
	q := c.Request.URL.Query()
	req := service.SearchRequest{
		Limit:  cast.ToInt64(q.Get("limit")),
		Skip:   cast.ToInt64(q.Get("skip")),
		Fields: map[string]string{},
	}
	if q.Has("filter") {
		req.Filter = collection.String(q.Get("filter"))
	}
	for k := range q {
		if !reservedParams[k] {
			req.Fields[k] = q.Get(k)
		}
	}
	res, err := h.svc.Search(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": res.Count, "documents": res.Documents})
}

func (h *Handler) find(c *gin.Context) {
	body, ok := readEnvelope(c)
	if !ok {
		return
	}
	limit, _ := body.Raw("limit")
	skip, _ := body.Raw("skip")
	res, err := h.svc.Query(c.Request.Context(), c.Param("name"), service.QueryRequest{
		Filter:     body.Lookup("filter"),
		Projection: body.Lookup("projection"),
		Sort:       body.Lookup("sort"),
		Limit:      cast.ToInt64(limit),
		Skip:       cast.ToInt64(skip),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": res.Count, "documents": res.Documents})
}

func (h *Handler) getByID(c *gin.Context) {
	doc, err := h.svc.GetByID(c.Request.Context(), c.Param("name"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "document": doc})
}

func (h *Handler) deleteByFilter(c *gin.Context) {
	body, ok := readEnvelope(c)
	if !ok {
		return
	}
	res, err := h.svc.DeleteByFilter(c.Request.Context(), c.Param("name"), body.Lookup("filter"), principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": res.Deleted})
}

func (h *Handler) deleteByID(c *gin.Context) {
	res, err := h.svc.DeleteByID(c.Request.Context(), c.Param("name"), c.Param("id"), principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": res.Deleted})
}

func (h *Handler) export(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"ok": false, "error": "object storage is not configured"})
		return
	}
	body, ok := readEnvelope(c)
	if !ok {
		return
	}
	res, err := h.exporter.Export(c.Request.Context(), c.Param("name"), export.Request{
		Filter:     body.Lookup("filter"),
		Projection: body.Lookup("projection"),
		Sort:       body.Lookup("sort"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "key": res.Key, "count": res.Count, "url": res.URL})
}

// readBody decodes the request body as a tagged value. Invalid JSON is
// answered with InvalidPayload.
func readBody(c *gin.Context) (collection.Value, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		writeError(c, collection.Errorf(collection.InvalidPayload, "cannot read body"))
		return collection.Value{}, false
	}
	v, err := collection.ParseValue(raw)
	if err != nil {
		writeError(c, collection.Errorf(collection.InvalidPayload, "invalid JSON body"))
		return collection.Value{}, false
	}
	return v, true
}

// readEnvelope reads an options body such as {"filter": ..., "limit": ...}.
// A missing body means all defaults.
func readEnvelope(c *gin.Context) (collection.Value, bool) {
	v, ok := readBody(c)
	if !ok {
		return v, false
	}
	switch v.Kind() {
	case collection.KindAbsent, collection.KindNull:
		return collection.Object(nil), true
	case collection.KindObject:
		return v, true
	}
	writeError(c, collection.Errorf(collection.InvalidPayload, "body must be an object"))
	return collection.Value{}, false
}

func principal(c *gin.Context) *collection.Principal {
	user, email, ok := middleware.Identity(c)
	if !ok {
		return nil
	}
	return &collection.Principal{Username: user, Email: email}
}

func writeError(c *gin.Context, err error) {
	kind := collection.KindOf(err)
	msg := err.Error()
	status := http.StatusInternalServerError
	switch kind {
	case collection.InvalidPayload, collection.InvalidFilter, collection.InvalidID, collection.InvalidName:
		status = http.StatusBadRequest
	case collection.NotFound:
		status = http.StatusNotFound
	case collection.StoreUnavailable, "":
		if unreachable(err) {
			status = http.StatusServiceUnavailable
		}
		kind = collection.StoreUnavailable
		msg = "document store unavailable"
		c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg, "kind": kind})
}

func unreachable(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected)
}
