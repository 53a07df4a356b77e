// Package docs holds the OpenAPI description of the JSON store API, in the
// layout swag generates. Regenerate with: swag init -g cmd/api/main.go
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
        "/api/bills": {
            "get": {
                "description": "Employees only get their own bills; admins may filter by email.",
                "produces": ["application/json"],
                "tags": ["bills"],
                "summary": "List bills",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "page size, 0 for all", "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "description": "rows to skip", "name": "offset", "in": "query"},
                    {"type": "string", "description": "submitter filter (admins only)", "name": "email", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.BillListResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "description": "The bill is always stored as pending.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bills"],
                "summary": "Create a bill",
                "parameters": [
                    {"description": "fields to change", "name": "bill", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.Bill"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Bill"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/bills/upload": {
            "post": {
                "description": "Stores a jpg, jpeg or png receipt and creates the pending draft bill pointing at it.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["bills"],
                "summary": "Upload a receipt",
                "parameters": [
                    {"type": "file", "description": "receipt", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.UploadedFile"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/bills/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["bills"],
                "summary": "Get a bill",
                "parameters": [
                    {"type": "string", "description": "bill id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Bill"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "patch": {
                "description": "Fields missing from the body keep their stored value.\nEmployees may only amend their own bills, which go back to pending.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bills"],
                "summary": "Update a bill",
                "parameters": [
                    {"type": "string", "description": "bill id (uuid)", "name": "id", "in": "path", "required": true},
                    {"description": "fields to change", "name": "bill", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.Bill"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Bill"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/bills/{id}/file": {
            "get": {
                "description": "Returns a time-limited link to the bill's receipt in object storage.",
                "produces": ["application/json"],
                "tags": ["bills"],
                "summary": "Direct receipt link",
                "parameters": [
                    {"type": "string", "description": "bill id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Checks database connectivity.",
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "tags": ["ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "handler.errorEnvelope": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.errorPayload": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/handler.errorEnvelope"},
                "request_id": {"type": "string"}
            }
        },
        "model.Bill": {
            "type": "object",
            "properties": {
                "amount": {"type": "number"},
                "commentary": {"type": "string"},
                "createdAt": {"type": "string"},
                "date": {"type": "string", "example": "2004-04-04"},
                "email": {"type": "string"},
                "fileName": {"type": "string"},
                "fileUrl": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "pct": {"type": "number"},
                "status": {"type": "string", "enum": ["pending", "accepted", "refused"]},
                "type": {"type": "string", "enum": ["Transports", "Restaurants et bars", "Hôtel et logement", "Services en ligne", "IT et électronique", "Equipement et matériel", "Fournitures de bureau"]},
                "updatedAt": {"type": "string"},
                "vat": {"type": "number"}
            }
        },
        "model.UploadedFile": {
            "type": "object",
            "properties": {
                "fileName": {"type": "string"},
                "fileUrl": {"type": "string"},
                "key": {"type": "string"}
            }
        },
        "service.BillListResult": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/model.Bill"}},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Billed API",
	Description:      "Expense report store: bills and their receipts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
