package models

import (
	"sort"
	"time"
)

// Attempt is one student's response to one practice question. Attempts are
// read-only inputs to the analysis pipeline; the engine never mutates them.
type Attempt struct {
	StudentID     string    `json:"student_id" validate:"required"`
	QuestionID    string    `json:"question_id" validate:"required"`
	Topic         string    `json:"topic" validate:"required"`
	Correct       bool      `json:"correct"`
	TimeTaken     float64   `json:"time_taken" validate:"gte=0"` // seconds
	AttemptNumber int       `json:"attempt_number" validate:"omitempty,gte=1"`
	Timestamp     time.Time `json:"timestamp"`

	// Profile is a demo-generation label carried through from tabular
	// sources. Detection logic ignores it.
	Profile string `json:"profile,omitempty"`
}

// AttemptBatch is the unit of analysis: all attempts for a single student.
type AttemptBatch []Attempt

// Accuracy returns the fraction of correct attempts, 0 for an empty batch.
func (b AttemptBatch) Accuracy() float64 {
	if len(b) == 0 {
		return 0
	}
	correct := 0
	for _, a := range b {
		if a.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(b))
}

// CorrectCount returns the number of correct attempts.
func (b AttemptBatch) CorrectCount() int {
	correct := 0
	for _, a := range b {
		if a.Correct {
			correct++
		}
	}
	return correct
}

// AverageTime returns the mean time-taken across the batch in seconds.
func (b AttemptBatch) AverageTime() float64 {
	if len(b) == 0 {
		return 0
	}
	var total float64
	for _, a := range b {
		total += a.TimeTaken
	}
	return total / float64(len(b))
}

// MedianTime returns the median time-taken across the batch in seconds.
// The student's own median is the baseline for hesitation and rushing
// signals, so outlier questions do not skew the cut line the way a mean
// would.
func (b AttemptBatch) MedianTime() float64 {
	if len(b) == 0 {
		return 0
	}
	times := make([]float64, len(b))
	for i, a := range b {
		times[i] = a.TimeTaken
	}
	sort.Float64s(times)
	mid := len(times) / 2
	if len(times)%2 == 0 {
		return (times[mid-1] + times[mid]) / 2
	}
	return times[mid]
}

// ByTopic partitions the batch by topic, preserving attempt order within
// each topic.
func (b AttemptBatch) ByTopic() map[string]AttemptBatch {
	topics := make(map[string]AttemptBatch)
	for _, a := range b {
		topics[a.Topic] = append(topics[a.Topic], a)
	}
	return topics
}

// Wrong returns the incorrect attempts in batch order.
func (b AttemptBatch) Wrong() AttemptBatch {
	var wrong AttemptBatch
	for _, a := range b {
		if !a.Correct {
			wrong = append(wrong, a)
		}
	}
	return wrong
}

// ByStudent splits a mixed collection of attempts into per-student batches.
// Batch analysis runs each student independently.
func ByStudent(attempts []Attempt) map[string]AttemptBatch {
	students := make(map[string]AttemptBatch)
	for _, a := range attempts {
		students[a.StudentID] = append(students[a.StudentID], a)
	}
	return students
}
