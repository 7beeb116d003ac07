package api

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
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/contacts": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["contacts"],
                "summary": "List contacts",
                "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error"}}
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["text/vcard"],
                "produces": ["application/json"],
                "tags": ["contacts"],
                "summary": "Create contacts",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "string"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/contacts/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json", "text/vcard"],
                "tags": ["contacts"],
                "summary": "Get a contact",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["text/vcard"],
                "produces": ["application/json"],
                "tags": ["contacts"],
                "summary": "Replace a contact",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "string"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["contacts"],
                "summary": "Delete a contact",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/search": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["contacts"],
                "summary": "Search contacts",
                "parameters": [
                    {"name": "field", "in": "query", "required": true, "type": "string"},
                    {"name": "q", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Store statistics",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/vcard/parse": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["text/vcard"],
                "produces": ["application/json"],
                "tags": ["vcard"],
                "summary": "Parse vCards",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "string"}}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/vcard/format": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["text/vcard"],
                "produces": ["text/vcard"],
                "tags": ["vcard"],
                "summary": "Format vCards",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "string"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "rolodex REST API",
	Description:      "Address book service storing vCards.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
