package model

import "time"

type LogStatus string

const (
	LogStatusRunning LogStatus = "running"
	LogStatusSuccess LogStatus = "success"
	LogStatusFailed  LogStatus = "failed"
)

type TriggerType string

const (
	TriggerScheduler TriggerType = "scheduler"
	TriggerManual    TriggerType = "manual"
)

// RunStats are the counters accumulated during one store sync.
type RunStats struct {
	ProductsProcessed int
	PriceSet          int
	PriceCleared      int
	Unchanged         int
	ProductsFailed    int
}

type SyncLog struct {
	ID          string
	StoreID     string
	StoreName   string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      LogStatus
	TriggeredBy TriggerType
	Stats       RunStats

	ErrorMessage string
	ErrorDetails string
}

// LogFilter narrows a log listing. Zero values mean no filter.
type LogFilter struct {
	StoreID string
	Status  LogStatus
	Limit   int
	Offset  int
}
