// Package docs registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g internal/httpapi/router.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/admin/pending-scholarships": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["moderation"],
                "summary": "List pending scholarships",
                "parameters": [
                    {"type": "string", "description": "comma-separated statuses (default pending,needs_review)", "name": "status", "in": "query"},
                    {"type": "integer", "description": "page size, 1-100 (default 50)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.ListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorBody"}}
                }
            }
        },
        "/api/admin/pending-scholarships/{id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["moderation"],
                "summary": "Approve a pending scholarship",
                "parameters": [
                    {"type": "string", "description": "record id (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "reviewer notes", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/httpapi.decisionBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.DecisionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorBody"}}
                }
            }
        },
        "/api/admin/pending-scholarships/{id}/reject": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["moderation"],
                "summary": "Reject a pending scholarship",
                "parameters": [
                    {"type": "string", "description": "record id (UUID)", "name": "id", "in": "path", "required": true},
                    {"description": "reviewer notes", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/httpapi.decisionBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpapi.DecisionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpapi.errorBody"}}
                }
            }
        },
        "/api/scholarships/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Search scholarships",
                "parameters": [
                    {"type": "string", "description": "all|local|state|national", "name": "location", "in": "query"},
                    {"type": "string", "description": "any|1k|5k|10k", "name": "amount", "in": "query"},
                    {"type": "string", "description": "any|month|quarter", "name": "deadline", "in": "query"},
                    {"type": "string", "description": "any|low|medium|high", "name": "competition", "in": "query"},
                    {"type": "string", "description": "any|yes|no", "name": "requiresEssay", "in": "query"},
                    {"type": "string", "description": "opaque cursor from a previous page", "name": "cursor", "in": "query"},
                    {"type": "integer", "description": "page size, 1-20 (default 20)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/search.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httpapi.errorBody"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httpapi.errorBody"}}
                }
            }
        }
    },
    "definitions": {
        "apperr.Issue": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "httpapi.errorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "issues": {"type": "array", "items": {"$ref": "#/definitions/apperr.Issue"}}
            }
        },
        "httpapi.decisionBody": {
            "type": "object",
            "properties": {"reviewerNotes": {"type": "string", "maxLength": 2000}}
        },
        "httpapi.DecisionResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "status": {"type": "string"}}
        },
        "httpapi.ListResponse": {
            "type": "object",
            "properties": {"items": {"type": "array", "items": {"type": "object"}}}
        },
        "search.Response": {
            "type": "object",
            "properties": {
                "scholarships": {"type": "array", "items": {"type": "object"}},
                "nextCursor": {"type": "string"},
                "totalCount": {"type": "integer"},
                "aiRanked": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Magpie Scholarship API",
	Description:      "Moderation queue and ranked scholarship search.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
