// Package docs registers the OpenAPI document served under /swagger.
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
        "/balance": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Ledger"],
                "summary": "Balances",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Balances"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Ledger"],
                "summary": "Transaction history",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "items": {"type": "array", "items": {"$ref": "#/definitions/models.HistoryItem"}}
                            }
                        }
                    },
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/deposit-targets": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Deposits"],
                "summary": "Issue deposit target",
                "parameters": [{
                    "description": "Deposit target request",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"type": "object", "properties": {"rail": {"type": "string"}}}
                }],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.DepositTargetResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/card-deposits": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Deposits"],
                "summary": "Create card deposit",
                "parameters": [{
                    "description": "Decimal amount in the card currency",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"type": "object", "properties": {"amount": {"type": "string"}}}
                }],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cardrail.PaymentIntent"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/withdrawals": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Withdrawals"],
                "summary": "Request withdrawal",
                "parameters": [{
                    "description": "Withdrawal request",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {
                        "type": "object",
                        "properties": {
                            "rail": {"type": "string"},
                            "destination": {"type": "string"},
                            "memo": {"type": "string"},
                            "amount": {"type": "string"}
                        }
                    }
                }],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/services.WithdrawalReceipt"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/services.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        },
        "/webhooks/{rail}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Rail webhook",
                "parameters": [{"type": "string", "description": "asset or card", "name": "rail", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"msg": {"type": "string"}}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/services.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "cardrail.PaymentIntent": {
            "type": "object",
            "properties": {"paymentIntentId": {"type": "string"}, "clientSecret": {"type": "string"}}
        },
        "handlers.DepositTargetResponse": {
            "type": "object",
            "properties": {
                "rail": {"type": "string"},
                "address": {"type": "string"},
                "memo": {"type": "string"},
                "qrImage": {"type": "string"}
            }
        },
        "models.Balances": {
            "type": "object",
            "properties": {"accountId": {"type": "string"}, "asset": {"type": "integer"}, "card": {"type": "integer"}}
        },
        "models.HistoryItem": {
            "type": "object",
            "properties": {
                "amount": {"type": "integer"},
                "rail": {"type": "string"},
                "direction": {"type": "string"},
                "status": {"type": "string"},
                "fee": {"type": "integer"},
                "createdAt": {"type": "string"}
            }
        },
        "services.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "services.WithdrawalReceipt": {
            "type": "object",
            "properties": {
                "entryId": {"type": "integer"},
                "orderId": {"type": "string"},
                "status": {"type": "string"},
                "amount": {"type": "integer"},
                "fee": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Reconciliation API",
	Description:      "Deposits, withdrawals and balances across the asset and card rails",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
