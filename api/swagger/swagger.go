package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "NeuroBridge Scheduling API",
        "description": "Appointment scheduling and availability reconciliation for the NeuroBridge marketplace",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Weekly templates and open slot resolution"},
        {"name": "Appointments", "description": "Appointment lifecycle and check-in PINs"},
        {"name": "Blocks", "description": "Educator-family block relationships"},
        {"name": "Exports", "description": "Downloadable schedule sheets"}
    ],
    "paths": {
        "/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Resolve an educator's open slots across a date range",
                "parameters": [
                    {"name": "educatorId", "in": "query", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range"}
                }
            }
        },
        "/educators/{educatorId}/availability-rules": {
            "get": {
                "tags": ["Availability"],
                "summary": "List an educator's weekly availability rules",
                "parameters": [
                    {"name": "educatorId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Add a weekly availability rule",
                "parameters": [
                    {"name": "educatorId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilityRuleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability-rules/{ruleId}": {
            "put": {
                "tags": ["Availability"],
                "summary": "Rewrite an availability rule",
                "parameters": [
                    {"name": "ruleId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateAvailabilityRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Availability"],
                "summary": "Deactivate an availability rule",
                "parameters": [
                    {"name": "ruleId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/appointments": {
            "get": {
                "tags": ["Appointments"],
                "summary": "List appointments",
                "parameters": [
                    {"name": "educatorId", "in": "query", "type": "string"},
                    {"name": "familyId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Appointments"],
                "summary": "Propose one or more appointment slots, all or nothing",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProposeAppointmentsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Pair is blocked"},
                    "409": {"description": "Slot no longer available"}
                }
            }
        },
        "/appointments/{id}": {
            "get": {
                "tags": ["Appointments"],
                "summary": "Get an appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments/{id}/confirm": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Confirm a pending appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Concurrent transition"},
                    "422": {"description": "Illegal transition"}
                }
            }
        },
        "/appointments/{id}/complete": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Complete a confirmed appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Illegal transition or unvalidated PIN"}
                }
            }
        },
        "/appointments/{id}/cancel": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Cancel a pending or confirmed appointment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/CancelAppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Already terminal"}
                }
            }
        },
        "/appointments/{id}/reset": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Administratively reset an appointment to pending",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ResetAppointmentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/appointments/{id}/pin/validate": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Validate an in-person check-in PIN",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidatePinRequest"}}
                ],
                "responses": {
                    "200": {"description": "Validated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Mismatch"},
                    "410": {"description": "Expired"},
                    "429": {"description": "Attempt limit reached"}
                }
            }
        },
        "/appointments/{id}/pin/reissue": {
            "post": {
                "tags": ["Appointments"],
                "summary": "Issue a fresh check-in PIN",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/blocks": {
            "post": {
                "tags": ["Blocks"],
                "summary": "Block a family from booking an educator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBlockRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already blocked"}
                }
            }
        },
        "/blocks/{id}": {
            "delete": {
                "tags": ["Blocks"],
                "summary": "Lift a block",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/educators/{educatorId}/blocks": {
            "get": {
                "tags": ["Blocks"],
                "summary": "List blocks involving an educator",
                "parameters": [
                    {"name": "educatorId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/educators/{educatorId}/schedule/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export an educator's schedule as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "educatorId", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "definitions": {
        "Appointment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "educator_id": {"type": "string"},
                "family_id": {"type": "string"},
                "appointment_date": {"type": "string"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:00"},
                "location_type": {"type": "string", "enum": ["online", "in_person"]},
                "address": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "confirmed", "completed", "cancelled"]},
                "pin_code_expires_at": {"type": "string"},
                "pin_code_attempts": {"type": "integer"},
                "pin_code_validated": {"type": "boolean"},
                "educator_notes": {"type": "string"},
                "cancel_reason": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "AvailableSlot": {
            "type": "object",
            "properties": {
                "date": {"type": "string"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            }
        },
        "WeeklyAvailabilityRule": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "educator_id": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "is_active": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "BlockRelationship": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "educator_id": {"type": "string"},
                "family_id": {"type": "string"},
                "reason": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "ProposeAppointmentsRequest": {
            "type": "object",
            "properties": {
                "educator_id": {"type": "string"},
                "family_id": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "location_type": {"type": "string", "enum": ["online", "in_person"]},
                "address": {"type": "string"},
                "educator_notes": {"type": "string"},
                "slots": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ProposedSlot"}
                }
            },
            "required": ["educator_id", "family_id", "date", "location_type", "slots"]
        },
        "ProposedSlot": {
            "type": "object",
            "properties": {
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:00"}
            },
            "required": ["start_time", "end_time"]
        },
        "CancelAppointmentRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "ResetAppointmentRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "ValidatePinRequest": {
            "type": "object",
            "properties": {
                "pin_code": {"type": "string", "example": "4217"}
            },
            "required": ["pin_code"]
        },
        "CreateAvailabilityRuleRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"}
            },
            "required": ["day_of_week", "start_time", "end_time"]
        },
        "UpdateAvailabilityRuleRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "is_active": {"type": "boolean"}
            },
            "required": ["day_of_week", "start_time", "end_time", "is_active"]
        },
        "CreateBlockRequest": {
            "type": "object",
            "properties": {
                "educator_id": {"type": "string"},
                "family_id": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["educator_id", "family_id"]
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
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
