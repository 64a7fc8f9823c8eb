package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConversionTaskStatus string

const (
	StatusQueued     ConversionTaskStatus = "queued"
	StatusProcessing ConversionTaskStatus = "processing"
	StatusCompleted  ConversionTaskStatus = "completed"
	StatusFailed     ConversionTaskStatus = "failed"
)

// ConversionTask is one queued menu conversion. The menu comes either
// inline (Content) or from a Google Sheet (SpreadsheetID); exactly one
// of the two is set.
type ConversionTask struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Status        ConversionTaskStatus `bson:"status" json:"status"`
	MenuName      string               `bson:"menu_name" json:"menu_name"`
	Content       string               `bson:"content,omitempty" json:"content,omitempty"`
	SpreadsheetID string               `bson:"spreadsheet_id,omitempty" json:"spreadsheet_id,omitempty"`
	Format        string               `bson:"format" json:"format"`
	Allergens     []Allergen           `bson:"allergens" json:"allergens"`
	MenuID        *primitive.ObjectID  `bson:"menu_id,omitempty" json:"menu_id,omitempty"`
	ErrorMessage  string               `bson:"error_message,omitempty" json:"error_message,omitempty"`
	RetryCount    int                  `bson:"retry_count" json:"retry_count"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// ConvertedMenu is the stored result of a completed conversion.
type ConvertedMenu struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Allergens  []Allergen         `bson:"allergens" json:"allergens"`
	Original   *MenuDocument      `bson:"original" json:"original"`
	Resolved   *ResolvedMenu      `bson:"resolved" json:"resolved"`
	Unresolved int                `bson:"unresolved" json:"unresolved"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
