package domain

import (
	"errors"
	"time"
)

// Sample errors
var (
	ErrSampleNotFound  = errors.New("sample not found")
	ErrEmptySample     = errors.New("sample data length <= 0")
	ErrDuplicateSample = errors.New("sample already attached to event")
)

// Sample is a file attached to an event. Data is stored separately and
// addressed by StorageKey; the md5 is used for de-duplication.
type Sample struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	Filename   string    `json:"filename"`
	MD5        string    `json:"md5"`
	Size       int64     `json:"size"`
	StorageKey string    `json:"storage_key"`
	Source     string    `json:"source"`
	Analyst    string    `json:"analyst"`
	Created    time.Time `json:"created"`
}
