package stripe

import "encoding/json"

// Event is the envelope Stripe POSTs to webhook endpoints. Data.Object is
// kept raw so callers can decode it into the type the event name implies.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
)

func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Object decodes the event payload into out, typically a PaymentIntent or
// CheckoutSession depending on the event type.
func (e *Event) Object(out interface{}) error {
	return json.Unmarshal(e.Data.Object, out)
}
