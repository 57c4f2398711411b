package docs

import "github.com/swaggo/swag"

// InstanceName is the swag registry key the Swagger UI is served from.
const InstanceName = "hub"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health with live session and room counts",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/ws": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["realtime"],
                "summary": "Open a realtime session",
                "description": "Upgrades to a WebSocket. The access token is taken from the Authorization header or the token query parameter and verified before the upgrade.",
                "parameters": [
                    {"type": "string", "description": "Access token", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/schedules/{schedule_id}/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["schedules"],
                "summary": "Read the current schedule status",
                "parameters": [
                    {"type": "integer", "description": "Schedule ID", "name": "schedule_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["schedules"],
                "summary": "Change the schedule status",
                "parameters": [
                    {"type": "integer", "description": "Schedule ID", "name": "schedule_id", "in": "path", "required": true},
                    {"description": "Target status", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.UpdateStatusReq"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StatusChangeResp"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List notifications for the caller",
                "parameters": [
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Send a notification to a user or a role",
                "parameters": [
                    {"description": "Notification", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreateNotificationReq"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "dto.UpdateStatusReq": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["scheduled", "in_progress", "completed", "cancelled"]}
            }
        },
        "dto.StatusChangeResp": {
            "type": "object",
            "properties": {
                "schedule_id": {"type": "integer"},
                "status": {"type": "string"},
                "previous_status": {"type": "string"},
                "updated_by": {"type": "integer"},
                "timestamp": {"type": "string"}
            }
        },
        "dto.CreateNotificationReq": {
            "type": "object",
            "properties": {
                "recipient_id": {"type": "integer"},
                "target_role": {"type": "string", "enum": ["admin", "driver", "parent"]},
                "title": {"type": "string"},
                "message": {"type": "string"},
                "type": {"type": "string", "enum": ["info", "warning", "alert", "success"]}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "School Bus Hub API",
	Description:      "Realtime hub for the school bus fleet.",
	InfoInstanceName: InstanceName,
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
