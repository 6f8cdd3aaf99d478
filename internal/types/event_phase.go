package types

import (
	"time"
)

const (
	PhasePreEvent  = "pre_event"
	PhaseLive      = "live"
	PhasePaused    = "paused"
	PhaseActivity  = "activity"
	PhaseLunch     = "lunch"
	PhasePostEvent = "post_event"
)

// EventPhaseStateID is the primary key of the singleton row; exactly one row
// exists at all times.
const EventPhaseStateID = 1

// EventPhaseState is the shared record every client subscribes to. Version
// guards controller writes with optimistic concurrency so concurrent
// transitions cannot silently overwrite each other.
type EventPhaseState struct {
	ID                    int        `gorm:"primaryKey" json:"-"`
	Status                string     `gorm:"not null;default:'pre_event';column:status" json:"status"`
	CurrentDay            int        `gorm:"not null;default:1;column:current_day" json:"current_day"`
	CurrentModule         string     `gorm:"column:current_module" json:"current_module"`
	OfferVisible          bool       `gorm:"not null;default:false;column:offer_visible" json:"offer_visible"`
	BonusTabUnlocksAt     *time.Time `gorm:"column:bonus_tab_unlocks_at" json:"bonus_tab_unlocks_at,omitempty"`
	PostEventTabUnlocksAt *time.Time `gorm:"column:post_event_tab_unlocks_at" json:"post_event_tab_unlocks_at,omitempty"`
	Version               int        `gorm:"not null;default:0;column:version" json:"version"`
	UpdatedAt             time.Time  `gorm:"not null" json:"updated_at"`
}

func (EventPhaseState) TableName() string {
	return "event_phase_state"
}

// LiveWindowStatuses are the states the controller may move between freely
// while the event is running.
var LiveWindowStatuses = map[string]bool{
	PhaseLive:     true,
	PhasePaused:   true,
	PhaseActivity: true,
	PhaseLunch:    true,
}

func IsPhaseStatus(s string) bool {
	switch s {
	case PhasePreEvent, PhaseLive, PhasePaused, PhaseActivity, PhaseLunch, PhasePostEvent:
		return true
	}
	return false
}
