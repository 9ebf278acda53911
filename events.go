package monger

import (
	"time"

	"github.com/fnklabs/monger-go/delivery"
)

// Service endpoints relative to the configured base address.
const (
	PathActivity = "/api/user_event/new"
	PathCustomer = "/api/customer/new"
	PathPayment  = "/api/payments/new"
)

// TimeLayout is ISO-8601 with a numeric zone offset; UTC renders as +00:00.
const TimeLayout = "2006-01-02T15:04:05-07:00"

// Gender literals sent for Customer.Male.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

// FormatTime renders t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// Activity is something a customer did in the reporting application.
type Activity struct {
	CustomerID string
	Action     string
	// CreatedAt is omitted from the request when zero; the service then uses its own clock.
	CreatedAt time.Time
}

// Customer is a newly registered customer.
type Customer struct {
	ID       string
	Initials string
	Email    string
	Phone    string
	Male     bool
	Country  string
	City     string
	Age      int
	// CreatedAt is sent as the registration, creation and last activity date.
	CreatedAt time.Time
	Tags      []string
}

// Payment is a payment made by a customer.
type Payment struct {
	CustomerID string
	PaymentID  string
	Amount     float64
	// CreatedAt is omitted from the request when zero.
	CreatedAt time.Time
}

func (a Activity) envelope(app applicationInfo) delivery.Envelope {
	fields := map[string]any{
		"clientId":           a.CustomerID,
		"action":             a.Action,
		"application":        app.name,
		"applicationVersion": app.version,
	}
	if !a.CreatedAt.IsZero() {
		fields["createdAt"] = FormatTime(a.CreatedAt)
	}
	return delivery.NewEnvelope(fields)
}

func (c Customer) envelope() delivery.Envelope {
	gender := GenderFemale
	if c.Male {
		gender = GenderMale
	}
	created := FormatTime(c.CreatedAt)
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return delivery.NewEnvelope(map[string]any{
		"client":           c.ID,
		"initials":         c.Initials,
		"email":            c.Email,
		"phone":            c.Phone,
		"gender":           gender,
		"country":          c.Country,
		"city":             c.City,
		"age":              c.Age,
		"lastActivity":     created,
		"createdAt":        created,
		"registrationDate": created,
		"tags":             tags,
	})
}

func (p Payment) envelope() delivery.Envelope {
	fields := map[string]any{
		"client":    p.CustomerID,
		"paymentId": p.PaymentID,
		"amount":    p.Amount,
	}
	if !p.CreatedAt.IsZero() {
		fields["createdAt"] = FormatTime(p.CreatedAt)
	}
	return delivery.NewEnvelope(fields)
}
