package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Diploma Portal API",
        "description": "Gateway in front of the diploma authority: issuance, listing, revocation and verification of diplomas.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Authentication", "description": "Portal sessions backed by the authority"},
        {"name": "Diplomas", "description": "Listing, downloads and revocation"},
        {"name": "Issuance", "description": "Single and CSV batch issuance"},
        {"name": "Sharing", "description": "Signed public links and QR codes"},
        {"name": "Verification", "description": "Public verification of diploma files"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign in",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Authority unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Sign out",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current actor",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/diplomas": {
            "get": {
                "tags": ["Diplomas"],
                "summary": "List diplomas visible to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Authority unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Issuance"],
                "summary": "Issue one diploma",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diplomas/bulk": {
            "post": {
                "tags": ["Issuance"],
                "summary": "Issue diplomas from a CSV file",
                "consumes": ["multipart/form-data"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "Per-row report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diplomas/bulk/reports/{token}": {
            "get": {
                "tags": ["Issuance"],
                "summary": "Download a bulk issuance report",
                "produces": ["text/csv"],
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "CSV report"}, "404": {"description": "Not found"}}
            }
        },
        "/diplomas/export": {
            "get": {
                "tags": ["Diplomas"],
                "summary": "Export the diploma list",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "Document"}}
            }
        },
        "/diplomas/{id}/revoke": {
            "post": {
                "tags": ["Diplomas"],
                "summary": "Revoke a diploma",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RevokeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Revoked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Not confirmed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diplomas/{id}/audit": {
            "get": {
                "tags": ["Diplomas"],
                "summary": "Audit trail of a diploma",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/diplomas/{id}/verification-file": {
            "get": {
                "tags": ["Diplomas"],
                "summary": "Download the verification file",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/VerificationFile"}}}
            }
        },
        "/diplomas/{id}/pdf": {
            "get": {
                "tags": ["Diplomas"],
                "summary": "Download the diploma PDF",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "PDF"}}
            }
        },
        "/diplomas/{id}/share": {
            "post": {
                "tags": ["Sharing"],
                "summary": "Create a share link",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Revoked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diplomas/{id}/qrcode": {
            "get": {
                "tags": ["Sharing"],
                "summary": "QR code of the share link",
                "produces": ["image/png"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "PNG"}}
            }
        },
        "/shared/{token}": {
            "get": {
                "tags": ["Sharing"],
                "summary": "Open a share link",
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/verify": {
            "post": {
                "tags": ["Verification"],
                "summary": "Verify a diploma verification file",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [{"name": "file", "in": "formData", "type": "file"}],
                "responses": {
                    "200": {"description": "Verdict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "No verdict available", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "IssueRequest": {
            "type": "object",
            "required": ["student_name", "degree_name"],
            "properties": {
                "student_name": {"type": "string"},
                "student_email": {"type": "string"},
                "degree_name": {"type": "string"}
            }
        },
        "RevokeRequest": {
            "type": "object",
            "properties": {"confirm": {"type": "boolean"}}
        },
        "VerificationFile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_name": {"type": "string"},
                "degree_name": {"type": "string"},
                "issued_at": {"type": "string"},
                "signature": {"type": "string"},
                "revoked": {"type": "boolean"}
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
