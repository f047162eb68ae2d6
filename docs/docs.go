// Package docs registers the OpenAPI document served by gin-swagger.
// Regenerate with `swag init -g cmd/server/main.go` after changing
// handler annotations.
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
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["browse"],
                "summary": "Home feed",
                "parameters": [{"type": "string", "description": "Search text", "name": "q", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/topics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["browse"],
                "summary": "List topics",
                "parameters": [{"type": "string", "description": "Topic name filter", "name": "q", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/activity": {
            "get": {
                "produces": ["application/json"],
                "tags": ["browse"],
                "summary": "Recent activity",
                "parameters": [{"type": "string", "name": "If-None-Match", "in": "header"}],
                "responses": {"200": {"description": "OK"}, "304": {"description": "Not Modified"}}
            }
        },
        "/profile/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["browse"],
                "summary": "User profile",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/login": {
            "get": {"tags": ["accounts"], "summary": "Login page", "responses": {"200": {"description": "OK"}, "302": {"description": "Already signed in"}}},
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["accounts"],
                "summary": "Sign in by email or username",
                "parameters": [
                    {"type": "string", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "name": "password", "in": "formData", "required": true},
                    {"type": "string", "name": "next", "in": "formData"}
                ],
                "responses": {"302": {"description": "Signed in"}, "401": {"description": "Unauthorized"}, "429": {"description": "Too Many Requests"}}
            }
        },
        "/register": {
            "get": {"tags": ["accounts"], "summary": "Registration page", "responses": {"200": {"description": "OK"}}},
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["accounts"],
                "summary": "Create an account",
                "parameters": [
                    {"type": "string", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "name": "name", "in": "formData"},
                    {"type": "string", "name": "password1", "in": "formData", "required": true},
                    {"type": "string", "name": "password2", "in": "formData", "required": true}
                ],
                "responses": {"302": {"description": "Registered"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/logout": {
            "get": {"tags": ["accounts"], "summary": "Sign out", "responses": {"302": {"description": "Found"}}}
        },
        "/room/create": {
            "get": {"tags": ["rooms"], "summary": "Room form", "responses": {"200": {"description": "OK"}}},
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["rooms"],
                "summary": "Create a room",
                "parameters": [
                    {"type": "string", "name": "topic", "in": "formData"},
                    {"type": "string", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "name": "description", "in": "formData"}
                ],
                "responses": {"302": {"description": "Found"}, "400": {"description": "Bad Request"}}
            }
        },
        "/room/{id}": {
            "get": {
                "tags": ["rooms"],
                "summary": "View a room",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["messages"],
                "summary": "Post a message",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "body", "in": "formData", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"}
                ],
                "responses": {"302": {"description": "Found"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/room/{id}/update": {
            "get": {"tags": ["rooms"], "summary": "Room edit form", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}},
            "post": {"tags": ["rooms"], "summary": "Update a room", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"302": {"description": "Found"}, "403": {"description": "Forbidden"}}}
        },
        "/room/{id}/delete": {
            "get": {"tags": ["rooms"], "summary": "Confirm room deletion", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}},
            "post": {"tags": ["rooms"], "summary": "Delete a room", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"302": {"description": "Found"}, "403": {"description": "Forbidden"}}}
        },
        "/message/{id}/delete": {
            "get": {"tags": ["messages"], "summary": "Confirm message deletion", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}},
            "post": {"tags": ["messages"], "summary": "Delete a message", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"302": {"description": "Found"}, "403": {"description": "Forbidden"}}}
        },
        "/user/update": {
            "get": {"tags": ["accounts"], "summary": "Profile form", "responses": {"200": {"description": "OK"}}},
            "post": {
                "consumes": ["multipart/form-data", "application/x-www-form-urlencoded"],
                "tags": ["accounts"],
                "summary": "Update own profile",
                "parameters": [
                    {"type": "string", "name": "name", "in": "formData"},
                    {"type": "string", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "name": "bio", "in": "formData"},
                    {"type": "file", "name": "avatar", "in": "formData"}
                ],
                "responses": {"302": {"description": "Found"}, "409": {"description": "Conflict"}, "413": {"description": "Payload Too Large"}, "415": {"description": "Unsupported Media Type"}}
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
	Title:            "Forum API",
	Description:      "Topics, rooms and threaded messages with session-based accounts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
