// Package tool declares the fixed set of scheduling operations the driving
// model may call, and executes them against the business's data.
package tool

import (
	"github.com/cloudwego/eino/schema"
)

// The closed tool surface. Adding a name here requires a matching case in
// Executor.Execute.
const (
	ToolGetServices       = "get_services"
	ToolGetAvailability   = "get_availability"
	ToolBookAppointment   = "book_appointment"
	ToolCancelAppointment = "cancel_appointment"
	ToolGetBusinessHours  = "get_business_hours"
)

// MaxSlotsReturned caps how many slots get_availability presents to the
// model; more is noise in a WhatsApp conversation.
const MaxSlotsReturned = 8

// Infos returns the tool declarations handed to the model driver. The
// drivers translate these into their backend's schema encoding.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolGetServices,
			Desc: "Get the list of services offered by this business with their prices and durations",
		},
		{
			Name: ToolGetAvailability,
			Desc: "Check available appointment slots for a given date and service. Returns a list of available time slots.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"date": {
					Type:     schema.String,
					Desc:     "The date to check in YYYY-MM-DD format",
					Required: true,
				},
				"service_id": {
					Type:     schema.String,
					Desc:     "The ID of the service to check availability for",
					Required: true,
				},
			}),
		},
		{
			Name: ToolBookAppointment,
			Desc: "Book an appointment for a customer. Creates an event in the business calendar.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"service_id": {
					Type:     schema.String,
					Desc:     "The ID of the service to book",
					Required: true,
				},
				"customer_name": {
					Type:     schema.String,
					Desc:     "The customer's name",
					Required: true,
				},
				"customer_phone": {
					Type:     schema.String,
					Desc:     "The customer's phone number",
					Required: true,
				},
				"datetime": {
					Type:     schema.String,
					Desc:     "The appointment start time in ISO 8601 format (e.g. 2025-03-15T14:00:00)",
					Required: true,
				},
			}),
		},
		{
			Name: ToolCancelAppointment,
			Desc: "Cancel an existing appointment by its ID",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"appointment_id": {
					Type:     schema.String,
					Desc:     "The appointment ID to cancel",
					Required: true,
				},
			}),
		},
		{
			Name: ToolGetBusinessHours,
			Desc: "Get the business hours for each day of the week",
		},
	}
}
