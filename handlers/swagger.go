package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API description.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r *gin.Engine) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})
	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>docgate - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "docgate", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "ok": {"type":"boolean"}, "error": {"type":"string"}, "kind": {"type":"string","enum":["InvalidPayload","InvalidFilter","InvalidId","InvalidName","NotFound","StoreUnavailable"]} } },
      "QueryBody": { "type": "object", "properties": { "filter": {"type":"object"}, "projection": {"type":"object"}, "sort": {"type":"object"}, "limit": {"type":"integer","default":50,"maximum":500}, "skip": {"type":"integer","default":0} } },
      "FilterBody": { "type": "object", "properties": { "filter": {"type":"object"} } }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "store unreachable" } } } },
    "/api/auth/logout": {
      "post": { "summary": "Revoke the bearer token", "responses": { "200": { "description": "logged out" }, "401": { "description": "no token" } } }
    },
    "/api/collections": {
      "get": { "summary": "List collections", "responses": { "200": { "description": "collection names" } } }
    },
    "/api/collections/{name}": {
      "post": { "summary": "Create a collection", "responses": { "201": { "description": "created" }, "200": { "description": "already exists" }, "400": { "description": "invalid name" } } }
    },
    "/api/collections/{name}/documents": {
      "post": { "summary": "Insert a document", "requestBody": { "content": { "application/json": { "schema": {"type":"object"} } } }, "responses": { "201": { "description": "inserted id" }, "400": { "description": "invalid payload" } } },
      "get": { "summary": "Browse live documents", "parameters": [ {"name":"filter","in":"query","schema":{"type":"string"}}, {"name":"limit","in":"query","schema":{"type":"integer"}}, {"name":"skip","in":"query","schema":{"type":"integer"}} ], "responses": { "200": { "description": "documents" } } },
      "delete": { "summary": "Soft-delete documents matching a filter", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/FilterBody"} } } }, "responses": { "200": { "description": "deleted count" } } }
    },
    "/api/collections/{name}/documents/delete": {
      "post": { "summary": "Soft-delete documents matching a filter", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/FilterBody"} } } }, "responses": { "200": { "description": "deleted count" } } }
    },
    "/api/collections/{name}/documents/{id}": {
      "get": { "summary": "Get a live document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Merge fields into a live document", "requestBody": { "content": { "application/json": { "schema": {"type":"object"} } } }, "responses": { "200": { "description": "updated document" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Soft-delete a document", "responses": { "200": { "description": "deleted" }, "404": { "description": "not found" } } }
    },
    "/api/collections/{name}/find": {
      "post": { "summary": "Query live documents", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/QueryBody"} } } }, "responses": { "200": { "description": "documents" }, "400": { "description": "invalid filter" } } }
    },
    "/api/collections/{name}/export": {
      "post": { "summary": "Export live documents to object storage", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/QueryBody"} } } }, "responses": { "200": { "description": "object key and download URL" }, "501": { "description": "object storage not configured" } } }
    }
  }
}`
