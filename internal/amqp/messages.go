package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PeriodSavedMessage announces that a period was created or replaced.
// It carries only the id; consumers read the current record from storage.
type PeriodSavedMessage struct {
	MessageID string    `json:"message_id"`
	PeriodID  string    `json:"period_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPeriodSavedMessage(periodID string) *PeriodSavedMessage {
	return &PeriodSavedMessage{
		MessageID: uuid.NewString(),
		PeriodID:  periodID,
		Timestamp: time.Now(),
	}
}

func (m *PeriodSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PeriodSavedMessageFromJSON(data []byte) (*PeriodSavedMessage, error) {
	var msg PeriodSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
