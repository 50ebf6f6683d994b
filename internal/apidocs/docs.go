// Package apidocs registers the Swagger document for the gallery API. The
// template mirrors the annotations on the handlers in internal/handler.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/gallery": {
            "get": {
                "tags": ["gallery"],
                "summary": "List active images",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query", "description": "1-based page, default 1"},
                    {"type": "integer", "name": "pageSize", "in": "query", "description": "default 12, max 100; limit is an alias"},
                    {"type": "string", "name": "category", "in": "query", "description": "exact category; All or empty for every category"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/page"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/api/gallery/categories": {
            "get": {
                "tags": ["gallery"],
                "summary": "List distinct categories of active images",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/categories"}}
                }
            }
        },
        "/api/admin/gallery": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "List active images in manual order",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/imageList"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/error"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Upload an image",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "file", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "name": "caption", "in": "formData"},
                    {"type": "string", "name": "category", "in": "formData"},
                    {"type": "boolean", "name": "featured", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/image"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}},
                    "422": {"description": "Undecodable image", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/api/admin/gallery/reorder": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Apply a batch of position updates atomically",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "order", "in": "body", "required": true, "schema": {"$ref": "#/definitions/reorder"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/api/admin/gallery/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Get an image in any status",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/image"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Edit caption, category or featured",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "metadata", "in": "body", "required": true, "schema": {"$ref": "#/definitions/metadata"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/image"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/error"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Hide an image and remove its file",
                "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        }
    },
    "definitions": {
        "image": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "filename": {"type": "string"},
                "url": {"type": "string"},
                "caption": {"type": "string"},
                "category": {"type": "string"},
                "featured": {"type": "boolean"},
                "status": {"type": "string", "enum": ["active", "hidden"]},
                "position": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "imageList": {
            "type": "object",
            "properties": {"images": {"type": "array", "items": {"$ref": "#/definitions/image"}}}
        },
        "page": {
            "type": "object",
            "properties": {
                "images": {"type": "array", "items": {"$ref": "#/definitions/image"}},
                "total": {"type": "integer"},
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"}
            }
        },
        "categories": {
            "type": "object",
            "properties": {"categories": {"type": "array", "items": {"type": "string"}}}
        },
        "metadata": {
            "type": "object",
            "properties": {
                "caption": {"type": "string"},
                "category": {"type": "string"},
                "featured": {"type": "boolean"}
            }
        },
        "reorder": {
            "type": "object",
            "properties": {
                "order": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"id": {"type": "integer"}, "position": {"type": "integer"}}
                    }
                }
            }
        },
        "error": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Admin JWT. Format: Bearer {token}",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Gallery API",
	Description:      "Public gallery reads and admin image lifecycle.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
