package models

import "time"

// Classification categories. The classifier only ever returns one of these.
const (
	CategoryInterested    = "Interested"
	CategoryMeetingBooked = "Meeting Booked"
	CategoryNotInterested = "Not Interested"
	CategorySpam          = "Spam"
	CategoryOutOfOffice   = "Out of Office"
)

// Categories lists every valid classification category.
var Categories = []string{
	CategoryInterested,
	CategoryMeetingBooked,
	CategoryNotInterested,
	CategorySpam,
	CategoryOutOfOffice,
}

// IsValidCategory reports whether category is one of the fixed set.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Message is the canonical, deduplicated record of one remote message.
// (AccountID, MessageID) is unique in durable storage; UID is the remote
// sequence identifier and is only used for fetch addressing, never identity.
type Message struct {
	ID                 string     `json:"id"`
	AccountID          string     `json:"account_id"`
	MessageID          string     `json:"message_id"`
	UID                int64      `json:"uid"`
	Subject            string     `json:"subject"`
	FromAddress        string     `json:"from_address"`
	FromName           string     `json:"from_name"`
	ToAddresses        []string   `json:"to_addresses"`
	CCAddresses        []string   `json:"cc_addresses"`
	Folder             string     `json:"folder"`
	BodyText           string     `json:"body_text"`
	BodyHTML           string     `json:"body_html"`
	ReceivedAt         time.Time  `json:"received_at"`
	IsRead             bool       `json:"is_read"`
	Category           *string    `json:"category"`
	CategoryConfidence *float64   `json:"category_confidence"`
	IngestedAt         time.Time  `json:"ingested_at"`
}

// DeliveryAttempt records one outbound webhook delivery, successful or not.
type DeliveryAttempt struct {
	ID           string    `json:"id"`
	MessageID    string    `json:"message_id"`
	Target       string    `json:"target"`
	Status       string    `json:"status"`
	ResponseCode *int      `json:"response_code"`
	ResponseBody string    `json:"response_body"`
	CreatedAt    time.Time `json:"created_at"`
}

// Delivery attempt statuses.
const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
	DeliveryStatusError   = "error"
)
