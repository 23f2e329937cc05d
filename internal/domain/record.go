package domain

import "time"

// Field names used in the durable usage document. The record store speaks in
// documents (get / merge fields), so partial writes only ever touch the
// fields named here.
const (
	FieldPostCount        = "postCount"
	FieldSubscription     = "hasValidSubscription"
	FieldSubscriptionDate = "subscriptionDate"
	FieldPhoneNumber      = "phoneNumber"
)

// UsageRecord is the durable per-user record, keyed by principal id. It is
// created on first authenticated generation and never deleted.
type UsageRecord struct {
	PostCount            int        `json:"postCount"`
	HasValidSubscription bool       `json:"hasValidSubscription"`
	SubscriptionDate     *time.Time `json:"subscriptionDate,omitempty"`
	PhoneNumber          string     `json:"phoneNumber,omitempty"`
}

// UsageRecordFromDoc converts a stored document into a typed record.
// Unknown fields are ignored; missing fields take their zero values.
func UsageRecordFromDoc(doc map[string]any) UsageRecord {
	var rec UsageRecord
	switch v := doc[FieldPostCount].(type) {
	case float64:
		rec.PostCount = int(v)
	case int:
		rec.PostCount = v
	}
	if v, ok := doc[FieldSubscription].(bool); ok {
		rec.HasValidSubscription = v
	}
	if v, ok := doc[FieldSubscriptionDate].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			rec.SubscriptionDate = &ts
		}
	}
	if v, ok := doc[FieldPhoneNumber].(string); ok {
		rec.PhoneNumber = v
	}
	return rec
}
