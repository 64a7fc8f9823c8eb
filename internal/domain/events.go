package domain

// ConversionMessage is the queue payload that hands a conversion task
// to the worker.
type ConversionMessage struct {
	TaskID   string `json:"task_id"`
	MenuName string `json:"menu_name"`
}
