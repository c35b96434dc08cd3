package scores

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

const (
	fieldAudio  = "audio_score"
	fieldFrames = "frames_score"
)

// Entry is one category of a frame or audio mapping as sent by the classifier.
type Entry struct {
	Category   string  `json:"category"`
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
}

// Mapping is a category -> {valid, confidence} object kept in document order.
type Mapping []Entry

// Result is a decoded ClassificationResult.
type Result struct {
	Audio  Mapping
	Frames []Mapping
}

// Decode parses a classifier response body into a Result.
//
// audio_score may be a single mapping or an array holding exactly one
// mapping; any other cardinality is rejected rather than indexed blindly.
func Decode(data []byte) (*Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, &MalformedResultError{Reason: "body is not valid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &MalformedResultError{Reason: "body is not a JSON object"}
	}

	audioRaw := root.Get(fieldAudio)
	if !audioRaw.Exists() {
		return nil, &MalformedResultError{Field: fieldAudio, Reason: "is missing"}
	}
	framesRaw := root.Get(fieldFrames)
	if !framesRaw.Exists() {
		return nil, &MalformedResultError{Field: fieldFrames, Reason: "is missing"}
	}

	audioObj, err := normalizeAudio(audioRaw)
	if err != nil {
		return nil, err
	}
	audio, err := decodeMapping(audioObj, fieldAudio)
	if err != nil {
		return nil, err
	}

	if !framesRaw.IsArray() {
		return nil, &MalformedResultError{Field: fieldFrames, Reason: "must be an array"}
	}
	frameItems := framesRaw.Array()
	frames := make([]Mapping, 0, len(frameItems))
	for i, item := range frameItems {
		path := fmt.Sprintf("%s[%d]", fieldFrames, i)
		if !item.IsObject() {
			return nil, &MalformedResultError{Field: path, Reason: "must be an object"}
		}
		m, err := decodeMapping(item, path)
		if err != nil {
			return nil, err
		}
		frames = append(frames, m)
	}

	return &Result{Audio: audio, Frames: frames}, nil
}

func normalizeAudio(raw gjson.Result) (gjson.Result, error) {
	switch {
	case raw.IsObject():
		return raw, nil
	case raw.IsArray():
		items := raw.Array()
		if len(items) != 1 {
			return gjson.Result{}, &MalformedResultError{
				Field:  fieldAudio,
				Reason: fmt.Sprintf("array must hold exactly one mapping, got %d", len(items)),
			}
		}
		if !items[0].IsObject() {
			return gjson.Result{}, &MalformedResultError{Field: fieldAudio + "[0]", Reason: "must be an object"}
		}
		return items[0], nil
	default:
		return gjson.Result{}, &MalformedResultError{Field: fieldAudio, Reason: "must be an object or a one-element array"}
	}
}

func decodeMapping(obj gjson.Result, path string) (Mapping, error) {
	var (
		m    Mapping
		err  error
		seen = make(map[string]struct{})
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		category := key.String()
		entryPath := path + "." + category
		if category == "" {
			err = &SchemaError{Path: path, Reason: "empty category name"}
			return false
		}
		if _, dup := seen[category]; dup {
			err = &SchemaError{Path: entryPath, Reason: "duplicate category"}
			return false
		}
		seen[category] = struct{}{}

		var e Entry
		e, err = decodeEntry(category, value, entryPath)
		if err != nil {
			return false
		}
		m = append(m, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeEntry(category string, value gjson.Result, path string) (Entry, error) {
	if !value.IsObject() {
		return Entry{}, &SchemaError{Path: path, Reason: "entry must be an object"}
	}

	valid := value.Get("valid")
	if !valid.Exists() {
		return Entry{}, &SchemaError{Path: path, Reason: `missing "valid"`}
	}
	if valid.Type != gjson.True && valid.Type != gjson.False {
		return Entry{}, &SchemaError{Path: path, Reason: `"valid" must be a boolean`}
	}

	conf := value.Get("confidence")
	if !conf.Exists() {
		return Entry{}, &SchemaError{Path: path, Reason: `missing "confidence"`}
	}
	if conf.Type != gjson.Number {
		return Entry{}, &SchemaError{Path: path, Reason: `"confidence" must be a number`}
	}

	f := conf.Float()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Entry{}, &SchemaError{Path: path, Reason: `"confidence" must be finite`}
	}

	return Entry{Category: category, Valid: valid.Bool(), Confidence: f}, nil
}
