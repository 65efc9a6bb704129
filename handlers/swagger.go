package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the API documentation.
// - GET /swagger/index.html  -> Swagger UI page loading the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>ReadMe ReadYou API</title>
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
  "info": { "title": "readme-readyou", "version": "v1.0.0" },
  "paths": {
    "/api/readmes/{identifier}/exists": {
      "get": {
        "summary": "Check the GitHub handle and report the stored README",
        "parameters": [
          { "name": "identifier", "in": "path", "required": true, "schema": {"type":"string"} },
          { "name": "mode", "in": "query", "required": false, "schema": {"type":"string","enum":["standard","minimal","detailed","creative"]} }
        ],
        "responses": { "200": { "description": "exists, content, mode, isDefault" }, "404": { "description": "user not found on GitHub" } }
      }
    },
    "/api/readmes/generate": {
      "post": {
        "summary": "Return the stored README or generate one",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["identifier"],"properties":{"identifier":{"type":"string"},"mode":{"type":"string"}}}}}},
        "responses": { "200": { "description": "content, mode, fromCache" }, "400": { "description": "missing identifier" }, "404": { "description": "user not found" }, "500": { "description": "upstream or generation failure" } }
      }
    },
    "/api/readmes/save": {
      "post": {
        "summary": "Overwrite README content for an identifier and mode",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["identifier","content"],"properties":{"identifier":{"type":"string"},"mode":{"type":"string"},"content":{"type":"string"}}}}}},
        "responses": { "200": { "description": "saved" }, "400": { "description": "missing fields" }, "500": { "description": "store failure" } }
      }
    },
    "/api/readmes/set-default": {
      "post": {
        "summary": "Choose the mode embedded for an identifier",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["identifier","mode"],"properties":{"identifier":{"type":"string"},"mode":{"type":"string"}}}}}},
        "responses": { "200": { "description": "default updated" }, "404": { "description": "no README stored" }, "500": { "description": "store failure" } }
      }
    },
    "/api/github/{identifier}": {
      "get": {
        "summary": "GitHub profile and recent repositories",
        "parameters": [ { "name": "identifier", "in": "path", "required": true, "schema": {"type":"string"} } ],
        "responses": { "200": { "description": "user and repos" }, "404": { "description": "user not found" } }
      }
    },
    "/embed/{identifier}": {
      "get": {
        "summary": "README rendered as an SVG card",
        "parameters": [ { "name": "identifier", "in": "path", "required": true, "schema": {"type":"string"} } ],
        "responses": { "200": { "description": "image/svg+xml" }, "404": { "description": "no README stored (text/plain)" }, "500": { "description": "render failure (text/plain)" } }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
