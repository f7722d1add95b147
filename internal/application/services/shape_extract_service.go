package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/voltfield/backend/internal/domain/models"
	"github.com/voltfield/backend/pkg/matching"
	"github.com/voltfield/backend/pkg/utils"
)

// fieldContainers are the custom-data blocks a diagram shape may carry,
// searched in this order before falling back to the shape's own top level.
// New container names from the diagram platform slot in here without
// touching any call site.
var fieldContainers = []string{"customData", "rawCustomData", "data", "properties", "metadata"}

// Synonym lists per semantic field. Order is a deliberate priority, not
// alphabetical: the most specific label wins over generic ones.
var (
	roomNameKeys    = []string{"Room Name", "Room", "RoomName", "Drop Location"}
	locationKeys    = []string{"Location", "Area", "Zone"}
	dropTypeKeys    = []string{"Drop Type", "Type", "DropType", "Category"}
	wireTypeKeys    = []string{"Wire Type", "Wire", "WireType", "Cable Type"}
	floorKeys       = []string{"Floor", "Level", "Story"}
	deviceKeys      = []string{"Device", "Equipment", "Hardware"}
	installNoteKeys = []string{"Install Note", "Note", "Notes", "Comments"}
)

var hexColorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// colorChains lists every color candidate per slot in evaluation order.
// The first candidate that passes hex validation wins; everything found
// along the way lands in the diagnostics trail.
var colorChains = []struct {
	slot  string
	paths []string
}{
	{"primary", []string{"customData.Color", "color", "style.color", "properties.color"}},
	{"fill", []string{"customData.Fill", "fillColor", "style.fill", "properties.fill"}},
	{"line", []string{"customData.Line", "lineColor", "style.line", "style.stroke", "properties.line"}},
}

// positionChains lists the geometry candidates per axis in evaluation order
var positionChains = []struct {
	slot  string
	paths []string
}{
	{"x", []string{"x", "position.x", "geometry.x", "bounds.x"}},
	{"y", []string{"y", "position.y", "geometry.y", "bounds.y"}},
	{"width", []string{"width", "w", "geometry.width", "bounds.width"}},
	{"height", []string{"height", "h", "geometry.height", "bounds.height"}},
	{"rotation", []string{"rotation", "angle", "geometry.rotation"}},
}

// ShapeExtractService turns raw diagram shape records into typed drop
// attributes. Extraction never fails: missing or malformed source data
// degrades to empty values and the pipeline moves on.
type ShapeExtractService struct{}

// NewShapeExtractService creates a new ShapeExtractService
func NewShapeExtractService() *ShapeExtractService {
	return &ShapeExtractService{}
}

// ExtractField finds the first non-empty value whose key matches fieldKey
// after normalization, searching the known containers before the shape's
// top level. Returns "" when nothing matches.
func (s *ShapeExtractService) ExtractField(shape models.SObject, fieldKey string) string {
	normKey := matching.NormalizeName(fieldKey)
	if normKey == "" {
		return ""
	}

	for _, container := range fieldContainers {
		if m, ok := shape.GetMap(container); ok {
			if v := lookupNormalizedKey(m, normKey); v != "" {
				return v
			}
		}
	}
	return lookupNormalizedKey(shape, normKey)
}

// ExtractFirst applies ExtractField over a synonym list and returns the
// first non-empty result.
func (s *ShapeExtractService) ExtractFirst(shape models.SObject, keys ...string) string {
	for _, key := range keys {
		if v := s.ExtractField(shape, key); v != "" {
			return v
		}
	}
	return ""
}

// IsDroppable reports whether the shape is marked as a wire drop via the
// "IS Drop" custom field: present and truthy (true, 1, "true", "yes").
func (s *ShapeExtractService) IsDroppable(shape models.SObject) bool {
	raw := s.ExtractField(shape, "IS Drop")
	if raw == "" {
		return false
	}
	return utils.ToBool(raw)
}

// ExtractShape builds the full typed view of one shape, including the
// color and geometry fallback chains with their diagnostics trail.
func (s *ShapeExtractService) ExtractShape(shape models.SObject, pageID, pageName string) models.ExtractedShape {
	extracted := models.ExtractedShape{
		ShapeID:     strings.TrimSpace(utils.ToString(shape.Get("id"))),
		PageID:      pageID,
		PageName:    pageName,
		RoomName:    s.ExtractFirst(shape, roomNameKeys...),
		Location:    s.ExtractFirst(shape, locationKeys...),
		Category:    s.ExtractFirst(shape, dropTypeKeys...),
		WireType:    s.ExtractFirst(shape, wireTypeKeys...),
		Floor:       s.ExtractFirst(shape, floorKeys...),
		Device:      s.ExtractFirst(shape, deviceKeys...),
		InstallNote: s.ExtractFirst(shape, installNoteKeys...),
	}
	extracted.Colors = s.resolveColors(shape, &extracted.Diagnostics)
	extracted.Position = s.resolvePosition(shape, &extracted.Diagnostics)
	return extracted
}

// resolveColors walks each slot's candidate chain, keeping the first value
// that passes hex validation. Every candidate found is recorded.
func (s *ShapeExtractService) resolveColors(shape models.SObject, diagnostics *[]string) models.ShapeColors {
	var colors models.ShapeColors
	for _, chain := range colorChains {
		value := ""
		for _, path := range chain.paths {
			raw := unwrapValue(lookupPath(shape, path))
			if raw == "" {
				continue
			}
			if hexColorPattern.MatchString(raw) {
				*diagnostics = append(*diagnostics, fmt.Sprintf("color.%s: %s=%q accepted", chain.slot, path, raw))
				value = raw
				break
			}
			*diagnostics = append(*diagnostics, fmt.Sprintf("color.%s: %s=%q rejected", chain.slot, path, raw))
		}

		switch chain.slot {
		case "primary":
			colors.Primary = value
		case "fill":
			colors.Fill = value
		case "line":
			colors.Line = value
		}
	}
	return colors
}

// resolvePosition walks each axis's candidate chain, keeping the first
// numeric value. Axes with no usable candidate stay nil.
func (s *ShapeExtractService) resolvePosition(shape models.SObject, diagnostics *[]string) models.ShapePosition {
	var pos models.ShapePosition
	for _, chain := range positionChains {
		for _, path := range chain.paths {
			raw := lookupPath(shape, path)
			if raw == nil {
				continue
			}
			num, ok := toNumber(raw)
			if !ok {
				continue
			}
			value := num
			switch chain.slot {
			case "x":
				pos.X = &value
			case "y":
				pos.Y = &value
			case "width":
				pos.Width = &value
			case "height":
				pos.Height = &value
			case "rotation":
				pos.Rotation = &value
			}
			break
		}
	}

	if !pos.HasAny() {
		*diagnostics = append(*diagnostics, "position: no geometry present")
	}
	return pos
}

// lookupNormalizedKey scans a map for a key that normalizes to normKey and
// returns its unwrapped value. Keys are scanned in sorted order so results
// stay deterministic when several raw keys collapse to the same form.
func lookupNormalizedKey(m map[string]interface{}, normKey string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if matching.NormalizeName(k) != normKey {
			continue
		}
		if v := unwrapValue(m[k]); v != "" {
			return v
		}
	}
	return ""
}

// unwrapValue reduces a raw shape value to text. Wrapped objects are
// unwrapped by value, text, displayValue, values in that order; arrays
// flatten and space-join, dropping empty entries.
func unwrapValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		for _, key := range []string{"value", "text", "displayValue", "values"} {
			if inner, ok := v[key]; ok {
				if s := unwrapValue(inner); s != "" {
					return s
				}
			}
		}
		return ""
	case models.SObject:
		return unwrapValue(map[string]interface{}(v))
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := unwrapValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return strings.TrimSpace(utils.ToString(v))
	}
}

// lookupPath resolves a dotted path like "style.color" against nested maps
func lookupPath(record map[string]interface{}, path string) interface{} {
	var current interface{} = map[string]interface{}(record)
	for _, segment := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

func asMap(val interface{}) (map[string]interface{}, bool) {
	switch m := val.(type) {
	case map[string]interface{}:
		return m, true
	case models.SObject:
		return m, true
	}
	return nil, false
}

// toNumber accepts the numeric types JSON decoding and the diagram API
// produce, plus numeric strings.
func toNumber(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
