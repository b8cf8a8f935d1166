package budget

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/daily-briefing/app/content"
)

// Payload is the JSON document handed to the LLM for one topic.
type Payload struct {
	Topic       string        `json:"topic"`
	ContentType string        `json:"content_type"`
	Items       []PayloadItem `json:"items"`
}

type PayloadItem struct {
	SourceName string `json:"source_name"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	Sender     string `json:"sender,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Published  string `json:"published"`
	Body       string `json:"body"`
}

func NewPayload(topic, contentType string, items []content.Item) Payload {
	p := Payload{
		Topic:       topic,
		ContentType: contentType,
		Items:       make([]PayloadItem, 0, len(items)),
	}
	for _, item := range items {
		pi := PayloadItem{
			SourceName: item.SourceName,
			Published:  item.Timestamp.Format(time.RFC3339),
			Body:       item.Body,
		}
		switch item.Kind {
		case content.KindEmail:
			pi.Sender = item.Sender
			pi.Subject = item.Subject
		default:
			pi.Title = item.Title
			pi.URL = item.URL
		}
		p.Items = append(p.Items, pi)
	}
	return p
}

// Serialize encodes items exactly as they are sent for synthesis.
func Serialize(topic, contentType string, items []content.Item) ([]byte, error) {
	data, err := json.Marshal(NewPayload(topic, contentType, items))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return data, nil
}
