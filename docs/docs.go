// Package docs registers the swagger document served at /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/v1/reactor/list": {
            "get": {"tags": ["reactor"], "summary": "list reactors", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/reactor/cycles": {
            "get": {"tags": ["reactor"], "summary": "cycles available on a date", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "reactor_name", "in": "query", "required": true},
                    {"type": "string", "name": "date", "in": "query", "required": true},
                    {"type": "string", "name": "order_uuid", "in": "query"},
                    {"type": "string", "name": "dosage", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/reactor/calendar": {
            "get": {"tags": ["reactor"], "summary": "availability calendar", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "reactor_name", "in": "query", "required": true},
                    {"type": "integer", "name": "month", "in": "query"},
                    {"type": "integer", "name": "year", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/order": {
            "post": {"tags": ["order"], "summary": "place an order", "consumes": ["application/json"], "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "422": {"description": "cycle unavailable or capacity exceeded"}}}
        },
        "/v1/order/list": {
            "get": {"tags": ["order"], "summary": "list orders", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/v1/admin/order/{uuid}/status": {
            "put": {"tags": ["admin"], "summary": "move an order through its lifecycle", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"type": "string", "name": "uuid", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "invalid transition"}}}
        },
        "/v1/notification/list": {
            "get": {"tags": ["notification"], "summary": "list notifications of the current clinic", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "clinicorder API",
	Description:      "Reactor availability and clinic ordering.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
