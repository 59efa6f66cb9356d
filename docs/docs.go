// Package docs registers the swagger definition served under /swagger/. It is
// maintained by hand; keep it in sync with the shopapi handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Register",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Login",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/products": {
            "get": {
                "produces": ["application/json"],
                "summary": "List products",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/cart/add": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Add to cart",
                "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/cart/{userID}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get cart",
                "parameters": [{"type": "string", "name": "userID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/checkout": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Checkout",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/health": {
            "get": {
                "produces": ["application/json"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:5000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GamersHub API",
	Description:      "Order service for the GamersHub storefront",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
