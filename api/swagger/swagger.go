package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Deposit API",
        "description": "Draft deposits with ordered file attachments and publication.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Deposits", "description": "Draft lifecycle and publication"},
        {"name": "Deposit Files", "description": "Ordered file attachments of a draft"},
        {"name": "Admin", "description": "Operational controls"}
    ],
    "paths": {
        "/deposits": {
            "get": {
                "tags": ["Deposits"],
                "summary": "Search deposits",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["draft", "published"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Deposits"],
                "summary": "Create a draft deposit",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/DepositRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/deposits/{id}": {
            "parameters": [
                {"name": "id", "in": "path", "required": true, "type": "string"}
            ],
            "get": {
                "tags": ["Deposits"],
                "summary": "Get a deposit",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Deposits"],
                "summary": "Replace the metadata of a draft deposit",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DepositRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Concurrent modification"}
                }
            },
            "delete": {
                "tags": ["Deposits"],
                "summary": "Discard a draft deposit",
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/deposits/{id}/actions/publish": {
            "post": {
                "tags": ["Deposits"],
                "summary": "Publish a draft deposit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Deposit has no files; errors holds exactly one entry", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/deposits/{id}/files": {
            "parameters": [
                {"name": "id", "in": "path", "required": true, "type": "string"}
            ],
            "get": {
                "tags": ["Deposit Files"],
                "summary": "List the files of a deposit in order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Deposit Files"],
                "summary": "Upload a file to a draft deposit",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "name", "in": "formData", "required": false, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or duplicate filename"},
                    "403": {"description": "Forbidden"}
                }
            },
            "put": {
                "tags": ["Deposit Files"],
                "summary": "Reorder the files of a deposit",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/SortFileItem"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Not a permutation of the current file ids"}
                }
            }
        },
        "/deposits/{id}/files/{fileId}": {
            "parameters": [
                {"name": "id", "in": "path", "required": true, "type": "string"},
                {"name": "fileId", "in": "path", "required": true, "type": "string"}
            ],
            "get": {
                "tags": ["Deposit Files"],
                "summary": "Get one deposit file",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Deposit Files"],
                "summary": "Rename a deposit file",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RenameFileRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or filename"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Deposit Files"],
                "summary": "Delete a deposit file",
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/deposits/{id}/files/{fileId}/download": {
            "get": {
                "tags": ["Deposit Files"],
                "summary": "Download file content via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "fileId", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File content"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/admin/search/refresh": {
            "post": {
                "tags": ["Admin"],
                "summary": "Wait until the search view reflects every committed change",
                "responses": {
                    "204": {"description": "Refreshed"},
                    "403": {"description": "Admin role required"}
                }
            }
        }
    },
    "definitions": {
        "Creator": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "affiliation": {"type": "string"}
            }
        },
        "DepositMetadata": {
            "type": "object",
            "properties": {
                "upload_type": {"type": "string"},
                "title": {"type": "string"},
                "creators": {"type": "array", "items": {"$ref": "#/definitions/Creator"}},
                "description": {"type": "string"},
                "publication_date": {"type": "string", "format": "date"},
                "access_right": {"type": "string", "enum": ["open", "embargoed", "restricted", "closed"]},
                "keywords": {"type": "array", "items": {"type": "string"}}
            }
        },
        "DepositRequest": {
            "type": "object",
            "properties": {
                "metadata": {"$ref": "#/definitions/DepositMetadata"}
            }
        },
        "RenameFileRequest": {
            "type": "object",
            "required": ["filename"],
            "properties": {
                "filename": {"type": "string"}
            }
        },
        "SortFileItem": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
        "FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/FieldError"}},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
