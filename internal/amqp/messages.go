package amqp

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"wonchon/internal/core"
)

// FilingCompletedMessage announces a filing job that reached COMPLETED. It
// carries the full earner list so consumers need no access to the draft,
// which is gone by the time the message is read.
type FilingCompletedMessage struct {
	JobID       string              `json:"jobId"`
	Business    core.Company        `json:"business"`
	Year        int                 `json:"year"`
	Month       int                 `json:"month"`
	Overdue     bool                `json:"overdue"`
	Earners     []core.IncomeEarner `json:"earners"`
	Tax         core.TaxCalculation `json:"tax"`
	CompletedAt time.Time           `json:"completedAt"`
	Timestamp   time.Time           `json:"timestamp"`
}

func NewFilingCompletedMessage(jobID string, business core.Company, period core.Period, overdue bool, earners []core.IncomeEarner, tax core.TaxCalculation, completedAt time.Time) *FilingCompletedMessage {
	return &FilingCompletedMessage{
		JobID:       jobID,
		Business:    business,
		Year:        period.Year,
		Month:       period.Month,
		Overdue:     overdue,
		Earners:     earners,
		Tax:         tax,
		CompletedAt: completedAt,
		Timestamp:   time.Now(),
	}
}

func (m *FilingCompletedMessage) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

// Validate rejects messages no consumer could act on.
func (m *FilingCompletedMessage) Validate() error {
	if m.JobID == "" {
		return errors.New("missing job id")
	}
	if m.Business.ID <= 0 {
		return errors.New("missing business id")
	}
	return m.Period().Validate()
}

// ToJSON converts the message to JSON bytes
func (m *FilingCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FilingCompletedMessageFromJSON decodes and validates a message body.
func FilingCompletedMessageFromJSON(data []byte) (*FilingCompletedMessage, error) {
	var msg FilingCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Filing is the summary row recorded for the message's job.
func (m *FilingCompletedMessage) Filing() core.Filing {
	return core.Filing{
		JobID:        m.JobID,
		BusinessID:   m.Business.ID,
		BusinessName: m.Business.Name,
		BizNumber:    m.Business.BizNumber,
		Period:       m.Period(),
		EarnerCount:  len(m.Earners),
		TotalAmount:  core.TotalAmount(m.Earners),
		Tax:          m.Tax,
		Overdue:      m.Overdue,
		CompletedAt:  m.CompletedAt,
	}
}
