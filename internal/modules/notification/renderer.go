package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Message is a rendered email ready for a Mailer.
type Message struct {
	To      string
	Subject string
	Body    string
}

var statusMessages = map[string]string{
	"PENDING":    "Order Received",
	"CONFIRMED":  "Order Confirmed",
	"PROCESSING": "Being Prepared",
	"SHIPPED":    "On the Way",
	"DELIVERED":  "Delivered",
	"CANCELLED":  "Cancelled",
	"REFUNDED":   "Refunded",
}

func statusMessage(status string) string {
	if m, ok := statusMessages[status]; ok {
		return m
	}
	return status
}

var funcs = template.FuncMap{
	"statusMessage": statusMessage,
	"date":          func(p Payload) string { return p.OrderDate.Format("January 2, 2006") },
}

const customerBody = `Hi {{.CustomerName}},

Your order {{.OrderNumber}} is now: {{statusMessage .Status}}.
{{- if .PreviousStatus}} (previously {{.PreviousStatus}}){{end}}

Order date: {{date .}}
{{range .Items}}
  {{.Quantity}} x {{.Name}}{{if .VendorName}} from {{.VendorName}}{{end}} @ {{.Price.StringFixed 2}}
{{- end}}

Total: {{.Total.StringFixed 2}}

Thank you for shopping with Crafty.
`

const vendorBody = `Hello {{.VendorName}},

You have a new order {{.OrderNumber}} ({{.Status}}) placed on {{date .}}.
{{range .Items}}
  {{.Quantity}} x {{.Name}} @ {{.Price.StringFixed 2}}
{{- end}}

Your subtotal: {{.Total.StringFixed 2}}

Please prepare these items for fulfillment.
`

const adminBody = `Order {{.OrderNumber}} changed status: {{if .PreviousStatus}}{{.PreviousStatus}}{{else}}NEW{{end}} -> {{.Status}}

Customer: {{.CustomerName}} <{{.CustomerEmail}}>
Order date: {{date .}}
{{range .Items}}
  {{.Quantity}} x {{.Name}}{{if .VendorName}} ({{.VendorName}}){{end}} @ {{.Price.StringFixed 2}}
{{- end}}

Total: {{.Total.StringFixed 2}}
`

type kindTemplate struct {
	subject func(p Payload) string
	body    *template.Template
}

// Renderer turns jobs into messages.
type Renderer struct {
	kinds map[Kind]kindTemplate
}

func NewRenderer() *Renderer {
	parse := func(name, text string) *template.Template {
		return template.Must(template.New(name).Funcs(funcs).Parse(text))
	}
	return &Renderer{kinds: map[Kind]kindTemplate{
		KindCustomer: {
			subject: func(p Payload) string { return fmt.Sprintf("Order %s - %s", p.OrderNumber, statusMessage(p.Status)) },
			body:    parse("customer", customerBody),
		},
		KindVendor: {
			subject: func(p Payload) string { return fmt.Sprintf("New Order %s - Action Required", p.OrderNumber) },
			body:    parse("vendor", vendorBody),
		},
		KindAdmin: {
			subject: func(p Payload) string { return fmt.Sprintf("Order %s - Status Changed to %s", p.OrderNumber, p.Status) },
			body:    parse("admin", adminBody),
		},
	}}
}

// Render fails with ErrUnknownKind or ErrNoRecipient; neither is retryable.
func (r *Renderer) Render(job *Job) (*Message, error) {
	t, ok := r.kinds[job.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
	if strings.TrimSpace(job.Payload.To) == "" {
		return nil, fmt.Errorf("%w: job %s", ErrNoRecipient, job.ID)
	}
	var body bytes.Buffer
	if err := t.body.Execute(&body, job.Payload); err != nil {
		return nil, fmt.Errorf("render %s: %w", job.Kind, err)
	}
	return &Message{To: job.Payload.To, Subject: t.subject(job.Payload), Body: body.String()}, nil
}
