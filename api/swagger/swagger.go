package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Changeboard API",
        "description": "Inventory change log grouped by show, built from the rental system's global change log report.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Changes", "description": "Grouped inventory changes"},
        {"name": "Ops", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Exposition format"},
                    "503": {"description": "Metrics disabled"}
                }
            }
        },
        "/api/changes": {
            "get": {
                "tags": ["Changes"],
                "summary": "Grouped inventory changes",
                "description": "Runs a fresh upstream fetch on every call. Upstream HTTP errors are mirrored; other failures return 500.",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GroupedReport"}},
                    "401": {"description": "Upstream rejected credentials", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Upstream or internal failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/changes/export": {
            "get": {
                "tags": ["Changes"],
                "summary": "Download inventory changes",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "500": {"description": "Upstream or internal failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "ClassifiedChange": {
            "type": "object",
            "properties": {
                "show": {"type": "string"},
                "orderId": {"type": "integer"},
                "item": {"type": "string"},
                "verb": {"type": "string", "enum": ["added", "updated", "changed", "deleted"], "x-nullable": true},
                "changeBy": {"type": "string"},
                "eventDate": {"type": "string"},
                "note": {"type": "string"},
                "prepDate": {"type": "string"},
                "returnDate": {"type": "string"}
            }
        },
        "ReportFilters": {
            "type": "object",
            "properties": {
                "eventDaysBack": {"type": "integer"},
                "prepFrom": {"type": "string", "format": "date-time"},
                "prepTo": {"type": "string", "format": "date-time"}
            }
        },
        "GroupedReport": {
            "type": "object",
            "properties": {
                "asOf": {"type": "string", "format": "date-time"},
                "count": {"type": "integer"},
                "grouped": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {"$ref": "#/definitions/ClassifiedChange"}
                    }
                },
                "filters": {"$ref": "#/definitions/ReportFilters"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
