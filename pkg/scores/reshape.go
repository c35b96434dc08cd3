package scores

import (
	"fmt"
	"math"
	"slices"
)

const (
	VerdictNeutral  = "neutral"
	VerdictDetected = "detected"
)

// Score is one row of a CategoryScoreTable.
type Score struct {
	Category   string  `json:"category" yaml:"category"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Table is a list of valid categories sorted by confidence, highest first.
// Rows with equal confidence keep their input order.
type Table []Score

// Verdict is "neutral" for an empty table and "detected" otherwise.
func (t Table) Verdict() string {
	if len(t) == 0 {
		return VerdictNeutral
	}
	return VerdictDetected
}

// Tables is the reshaped form of a Result ready for display.
type Tables struct {
	Visual Table
	Audio  Table
	Frames []Table
}

// ReshapeJSON decodes a classifier response body and reshapes it.
func ReshapeJSON(data []byte) (*Tables, error) {
	res, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Reshape(res)
}

// Reshape turns a Result into the audio table, one table per frame and the
// visual aggregate (per-category maximum across frames). It does not modify r.
func Reshape(r *Result) (*Tables, error) {
	if r == nil {
		return nil, &MalformedResultError{Reason: "result is nil"}
	}

	if err := checkMapping(r.Audio, fieldAudio); err != nil {
		return nil, err
	}
	audio := validTable(r.Audio)

	frames := make([]Table, 0, len(r.Frames))
	for i, f := range r.Frames {
		if err := checkMapping(f, fmt.Sprintf("%s[%d]", fieldFrames, i)); err != nil {
			return nil, err
		}
		frames = append(frames, validTable(f))
	}

	return &Tables{
		Visual: aggregateMax(frames),
		Audio:  audio,
		Frames: frames,
	}, nil
}

func checkMapping(m Mapping, path string) error {
	seen := make(map[string]struct{}, len(m))
	for _, e := range m {
		if e.Category == "" {
			return &SchemaError{Path: path, Reason: "empty category name"}
		}
		if _, dup := seen[e.Category]; dup {
			return &SchemaError{Path: path + "." + e.Category, Reason: "duplicate category"}
		}
		if math.IsInf(e.Confidence, 0) || math.IsNaN(e.Confidence) {
			return &SchemaError{Path: path + "." + e.Category, Reason: "confidence must be finite"}
		}
		seen[e.Category] = struct{}{}
	}
	return nil
}

func validTable(m Mapping) Table {
	t := make(Table, 0, len(m))
	for _, e := range m {
		if e.Valid {
			t = append(t, Score{Category: e.Category, Confidence: e.Confidence})
		}
	}
	sortDesc(t)
	return t
}

// aggregateMax groups rows by category in order of first appearance across
// the frame tables and keeps the highest confidence of each.
func aggregateMax(frames []Table) Table {
	index := make(map[string]int)
	agg := Table{}
	for _, f := range frames {
		for _, s := range f {
			i, ok := index[s.Category]
			if !ok {
				index[s.Category] = len(agg)
				agg = append(agg, s)
				continue
			}
			if s.Confidence > agg[i].Confidence {
				agg[i].Confidence = s.Confidence
			}
		}
	}
	sortDesc(agg)
	return agg
}

func sortDesc(t Table) {
	slices.SortStableFunc(t, func(a, b Score) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
}
