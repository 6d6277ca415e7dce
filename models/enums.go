package models

import "bitbucket.org/mmdatafocus/stripboard_backend/utils"

type StripStatus string

const (
	StripStatusPlanned   StripStatus = "PLANNED"
	StripStatusScheduled StripStatus = "SCHEDULED"
	StripStatusShot      StripStatus = "SHOT"
	StripStatusDropped   StripStatus = "DROPPED"
)

func ParseStripStatus(s string) (StripStatus, error) {
	switch StripStatus(s) {
	case StripStatusPlanned, StripStatusScheduled, StripStatusShot, StripStatusDropped:
		return StripStatus(s), nil
	}
	return "", utils.NewValidationError("invalid strip status")
}

type ReorderDirection string

const (
	ReorderDirectionUp   ReorderDirection = "UP"
	ReorderDirectionDown ReorderDirection = "DOWN"
)

func ParseReorderDirection(s string) (ReorderDirection, error) {
	switch ReorderDirection(s) {
	case ReorderDirectionUp, ReorderDirectionDown:
		return ReorderDirection(s), nil
	}
	return "", utils.NewValidationError("invalid reorder direction")
}

type SyncDirection string

const (
	SyncDirectionToSchedule   SyncDirection = "to_schedule"
	SyncDirectionFromSchedule SyncDirection = "from_schedule"
	SyncDirectionBoth         SyncDirection = "both"
)

func ParseSyncDirection(s string) (SyncDirection, error) {
	switch SyncDirection(s) {
	case SyncDirectionToSchedule, SyncDirectionFromSchedule, SyncDirectionBoth:
		return SyncDirection(s), nil
	}
	return "", utils.NewValidationError("invalid sync direction")
}
