package analysis

import (
	"encoding/json"
	"strconv"
	"strings"

	"litreview/internal/models"
)

type metadataPayload struct {
	Title    string          `json:"title"`
	Authors  json.RawMessage `json:"authors"`
	Journal  string          `json:"journal"`
	Year     json.RawMessage `json:"year"`
	DOI      string          `json:"doi"`
	Keywords json.RawMessage `json:"keywords"`
}

type referencePayload struct {
	ID      json.RawMessage `json:"id"`
	Full    string          `json:"full"`
	Authors json.RawMessage `json:"authors"`
	Title   string          `json:"title"`
	Year    json.RawMessage `json:"year"`
}

// ParseMetadata decodes the metadata JSON object. Output that is not valid
// JSON is kept verbatim in Raw.
func ParseMetadata(raw string) models.Metadata {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Metadata{}
	}
	body := jsonBody(stripCodeFence(raw), '{', '}')
	var p metadataPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return models.Metadata{Raw: raw}
	}
	return models.Metadata{
		Title:    strings.TrimSpace(p.Title),
		Authors:  stringList(p.Authors),
		Journal:  strings.TrimSpace(p.Journal),
		Year:     scalarString(p.Year),
		DOI:      strings.TrimSpace(p.DOI),
		Keywords: stringList(p.Keywords),
	}
}

// ParseBullets returns one entry per non-empty line with list markers removed.
func ParseBullets(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "-•* \t")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// ParseCitations decodes the reference list. Unparseable output becomes a
// single entry holding the raw text.
func ParseCitations(raw string) []models.Reference {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	body := jsonBody(stripCodeFence(raw), '[', ']')
	var payload []referencePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return []models.Reference{{Raw: raw}}
	}
	out := make([]models.Reference, 0, len(payload))
	for _, r := range payload {
		ref := models.Reference{
			ID:      scalarString(r.ID),
			Full:    strings.TrimSpace(r.Full),
			Authors: stringList(r.Authors),
			Title:   strings.TrimSpace(r.Title),
			Year:    scalarString(r.Year),
		}
		if ref.Full == "" && ref.Title == "" {
			continue
		}
		out = append(out, ref)
	}
	return out
}

func stripCodeFence(s string) string {
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// jsonBody trims any prose a model put around the outermost open/close pair.
func jsonBody(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// scalarString accepts a JSON string or number.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// stringList accepts a JSON list of strings or a single comma separated string.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		list = strings.Split(s, ",")
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
