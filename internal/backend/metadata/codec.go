package metadata

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jo-hoe/imageroulette/internal/backend/degradation"
)

// Delimiter separates the content type and every key=value pair
const Delimiter = ";"

// DefaultContentType is assumed when the stored field starts without one
const DefaultContentType = "image/jpeg"

// DefaultShameMessage is shown for hidden uploads that carry no message of their own
const DefaultShameMessage = "🙈 THIS USER IS A COWARD WHO TRIED TO HIDE THEIR SHAME! 🙈"

// DateLayout is the RFC3339 form with millisecond precision used for the date key
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Keys written by Encode
const (
	KeyTier    = "shitlevel"
	KeyRoll    = "roll"
	KeyDate    = "date"
	KeyHidden  = "hidden"
	KeyMessage = "message"
)

// accepted on decode only
var keyAliases = map[string]string{
	"type":   KeyTier,
	"random": KeyRoll,
	"msg":    KeyMessage,
}

// Meta is the structured form of the metadata field stored with every image
type Meta struct {
	ContentType string
	Tier        degradation.Tier
	Roll        float64
	Date        time.Time
	Hidden      bool
	Message     string
}

// DerivedTier classifies the record by its roll. Stored tier labels are not
// trusted for counting.
func (m Meta) DerivedTier() degradation.Tier {
	return degradation.TierForRoll(m.Roll)
}

// ShameMessage returns the message shown for a hidden record, or "" if visible
func (m Meta) ShameMessage() string {
	if !m.Hidden {
		return ""
	}
	if m.Message == "" {
		return DefaultShameMessage
	}
	return m.Message
}

// Encode serializes the meta into the single stored field:
//
//	<contentType>;shitlevel=<TIER>;roll=<0.00>;date=<RFC3339 ms>[;hidden=true[;message=<escaped>]]
//
// The message is only written for hidden records.
func Encode(m Meta) string {
	contentType := strings.TrimSpace(m.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}
	tier := m.Tier
	if tier == "" {
		tier = degradation.Unknown
	}

	var sb strings.Builder
	sb.WriteString(contentType)
	writePair(&sb, KeyTier, tier.String())
	writePair(&sb, KeyRoll, strconv.FormatFloat(degradation.TruncateRoll(m.Roll), 'f', 2, 64))
	if !m.Date.IsZero() {
		writePair(&sb, KeyDate, m.Date.UTC().Format(DateLayout))
	}
	if m.Hidden {
		writePair(&sb, KeyHidden, "true")
		if m.Message != "" {
			writePair(&sb, KeyMessage, url.QueryEscape(m.Message))
		}
	}
	return sb.String()
}

func writePair(sb *strings.Builder, key, value string) {
	sb.WriteString(Delimiter)
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(value)
}

// EncodeOutcome builds the stored field for a freshly processed upload.
// Hidden uploads without a message get DefaultShameMessage.
func EncodeOutcome(outcome degradation.Outcome, hidden bool, timestamp time.Time) string {
	m := Meta{
		ContentType: outcome.ContentType,
		Tier:        outcome.Tier,
		Roll:        outcome.Roll,
		Date:        timestamp,
		Hidden:      hidden,
	}
	if hidden {
		m.Message = outcome.Message
		if m.Message == "" {
			m.Message = DefaultShameMessage
		}
	}
	return Encode(m)
}

// Decode parses a stored field. It never fails: absent or garbled keys keep
// their zero value, unknown keys are ignored.
func Decode(encoded string) Meta {
	m := Meta{
		ContentType: DefaultContentType,
		Tier:        degradation.Unknown,
	}

	parts := strings.Split(encoded, Delimiter)
	if head := strings.TrimSpace(parts[0]); head != "" && !strings.Contains(head, "=") {
		m.ContentType = head
		parts = parts[1:]
	}

	for _, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if alias, found := keyAliases[key]; found {
			key = alias
		}
		value = strings.TrimSpace(value)

		switch key {
		case KeyTier:
			m.Tier = degradation.ParseTier(value)
		case KeyRoll:
			m.Roll = parseRoll(value)
		case KeyDate:
			if date, err := time.Parse(time.RFC3339Nano, value); err == nil {
				m.Date = date
			}
		case KeyHidden:
			m.Hidden = strings.EqualFold(value, "true")
		case KeyMessage:
			if unescaped, err := url.QueryUnescape(value); err == nil {
				m.Message = unescaped
			} else {
				m.Message = value
			}
		}
	}

	return m
}

func parseRoll(value string) float64 {
	roll, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(roll) || math.IsInf(roll, 0) {
		return 0
	}
	return roll
}

// BaseContentType returns the content type in front of the first delimiter
func BaseContentType(encoded string) string {
	return Decode(encoded).ContentType
}

// ToggleHidden flips the visibility of a stored field and returns the new
// field together with the new hidden state. A record that becomes hidden gets
// the default shame message; a record that becomes visible loses its message.
func ToggleHidden(encoded string) (string, bool) {
	m := Decode(encoded)
	m.Hidden = !m.Hidden
	if m.Hidden && m.Message == "" {
		m.Message = DefaultShameMessage
	}
	return Encode(m), m.Hidden
}

// RollLabel formats a roll the way it is displayed to users
func RollLabel(roll float64) string {
	return fmt.Sprintf("%.2f%%", roll)
}
