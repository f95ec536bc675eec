package models

import (
	"time"
)

// Category is the garment category picked by the user.
type Category string

const (
	CategoryTop      Category = "top"
	CategoryBottom   Category = "bottom"
	CategoryFullBody Category = "full-body"
)

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTop, CategoryBottom, CategoryFullBody:
		return true
	}
	return false
}

// TryOnStatus is the lifecycle state of a try-on record.
type TryOnStatus string

const (
	TryOnStatusProcessing TryOnStatus = "processing"
	TryOnStatusCompleted  TryOnStatus = "completed"
	TryOnStatusFailed     TryOnStatus = "failed"
)

// Terminal reports whether no further transition can happen from s.
func (s TryOnStatus) Terminal() bool {
	return s == TryOnStatusCompleted || s == TryOnStatusFailed
}

// TryOn represents a virtual try-on run and its result
type TryOn struct {
	ID               string      `bson:"_id" json:"id"`
	UserID           string      `bson:"user_id" json:"user_id"`
	ModelImagePath   string      `bson:"model_image_path" json:"model_image_path"`
	GarmentImagePath string      `bson:"garment_image_path" json:"garment_image_path"`
	Category         Category    `bson:"category" json:"category"`
	Status           TryOnStatus `bson:"status" json:"status"`
	RequestID        string      `bson:"request_id,omitempty" json:"request_id,omitempty"`                 // external job handle
	ResultImagePath  string      `bson:"result_image_path,omitempty" json:"result_image_path,omitempty"` // object key in the result bucket
	ErrorMessage     string      `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt        time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `bson:"updated_at" json:"updated_at"`
}

// TryOnUpdate is a partial update of a try-on record. Empty fields are left untouched.
type TryOnUpdate struct {
	Status          TryOnStatus
	RequestID       string
	ResultImagePath string
	ErrorMessage    string
}
