package models

import (
	"strings"
	"time"
)

type ScheduleState string

const (
	Unscheduled ScheduleState = "unscheduled"
	Scheduled   ScheduleState = "scheduled"
)

type Subscriber struct {
	ID                       uint      `gorm:"primaryKey" json:"id" example:"1"`
	Email                    string    `gorm:"uniqueIndex;not null;size:120" json:"email" example:"ops@example.org"`
	PasswordHash             string    `gorm:"not null;size:60" json:"-"`
	IsAdmin                  bool      `gorm:"not null;default:false" json:"is_admin" example:"false"`
	ScheduledTargetURL       *string   `gorm:"size:255" json:"scheduled_target_url,omitempty" example:"https://example.org"`
	ScheduledDeliveryAddress *string   `gorm:"size:120" json:"scheduled_delivery_address,omitempty" example:"ops@example.org"`
	CreatedAt                time.Time `json:"created_at" example:"2024-01-01T12:00:00Z"`
}

func (s *Subscriber) ScheduleState() ScheduleState {
	if deref(s.ScheduledTargetURL) != "" && deref(s.ScheduledDeliveryAddress) != "" {
		return Scheduled
	}
	return Unscheduled
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// AuditSnapshot is written once per audit run and never updated.
type AuditSnapshot struct {
	ID                 uint        `gorm:"primaryKey" json:"id" example:"42"`
	TargetURL          string      `gorm:"not null;size:255" json:"target_url" example:"https://example.com"`
	CreatedAt          time.Time   `gorm:"index;not null" json:"created_at" example:"2024-01-01T12:00:00Z"`
	OwnerID            uint        `gorm:"index;not null" json:"owner_id" example:"1"`
	Owner              *Subscriber `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	PerformanceScore   int         `gorm:"not null" json:"performance_score" example:"87"`
	SecurityScore      int         `gorm:"not null" json:"security_score" example:"92"`
	AccessibilityScore int         `gorm:"not null" json:"accessibility_score" example:"71"`
	Metrics            MetricSet   `gorm:"serializer:json;type:text;not null" json:"metrics"`
}

type MetricSet map[string]MetricValue

type Dashboard struct {
	Recent        []AuditSnapshot `json:"recent"`
	TotalReports  int64           `json:"total_reports" example:"12"`
	OwnReports    int64           `json:"own_reports" example:"3"`
	ScheduleState ScheduleState   `json:"schedule_state" example:"scheduled"`
	Subscriber    Subscriber      `json:"subscriber"`
}

type AdminOverview struct {
	Subscribers []Subscriber    `json:"subscribers"`
	Recent      []AuditSnapshot `json:"recent"`
}
