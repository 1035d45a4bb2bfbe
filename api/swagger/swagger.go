package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Merit API",
        "description": "Merit, demerit and offset point ledger",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Operator password and access tokens"},
        {"name": "Records", "description": "Point records"},
        {"name": "Summaries", "description": "Per-student aggregates"},
        {"name": "Maintenance", "description": "Reset and backups"},
        {"name": "Exports", "description": "CSV and PDF exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate operator",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid password", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change operator password",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}],
                "responses": {
                    "200": {"description": "Changed"},
                    "403": {"description": "Old password does not match"}
                }
            }
        },
        "/records": {
            "get": {
                "tags": ["Records"],
                "summary": "List point records",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "q", "type": "string", "required": false}],
                "responses": {"200": {"description": "Records", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Records"],
                "summary": "Add a point record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateRecordRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/records/{id}": {
            "get": {
                "tags": ["Records"],
                "summary": "Get a point record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"200": {"description": "Record"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Records"],
                "summary": "Replace a point record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "integer", "required": true},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateRecordRequest"}}
                ],
                "responses": {"200": {"description": "Updated"}, "404": {"description": "Not found"}}
            },
            "delete": {
                "tags": ["Records"],
                "summary": "Delete a point record",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "type": "integer", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        },
        "/students/{studentId}/records": {
            "get": {
                "tags": ["Records"],
                "summary": "List records of one student",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "studentId", "type": "string", "required": true}],
                "responses": {"200": {"description": "Records"}}
            }
        },
        "/summaries": {
            "get": {
                "tags": ["Summaries"],
                "summary": "Per-student point summaries",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "q", "type": "string", "required": false}],
                "responses": {"200": {"description": "Summaries"}}
            }
        },
        "/maintenance/reset": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Back up and delete every record",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Reset result"}}
            }
        },
        "/backups": {
            "get": {
                "tags": ["Maintenance"],
                "summary": "List backups, newest first",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Backups"}}
            }
        },
        "/backups/{name}/restore": {
            "post": {
                "tags": ["Maintenance"],
                "summary": "Restore a backup",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}],
                "responses": {"200": {"description": "Restored"}, "404": {"description": "Backup not found"}}
            }
        },
        "/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Generate an export",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}],
                "responses": {"201": {"description": "Signed URL"}}
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export",
                "parameters": [{"in": "path", "name": "token", "type": "string", "required": true}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired link"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {"password": {"type": "string"}}
        },
        "ChangePasswordRequest": {
            "type": "object",
            "properties": {"old_password": {"type": "string"}, "new_password": {"type": "string", "minLength": 3}}
        },
        "CreateRecordRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "name": {"type": "string"},
                "reason": {"type": "string"},
                "points": {"type": "integer", "minimum": 1},
                "point_type": {"type": "string", "enum": ["award", "deduction", "offset"]},
                "date": {"type": "string", "format": "date"}
            }
        },
        "UpdateRecordRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "name": {"type": "string"},
                "reason": {"type": "string"},
                "points": {"type": "integer", "minimum": 1},
                "point_type": {"type": "string", "enum": ["award", "deduction", "offset"]},
                "date": {"type": "string", "format": "date"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "view": {"type": "string", "enum": ["summary", "detail"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "term": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
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
