package types

import "fmt"

// CustomizationMode selects how many system cursor slots a user customizes.
type CustomizationMode string

const (
	// ModeSimple customizes only the pointer and the link hand.
	ModeSimple CustomizationMode = "simple"
	// ModeAdvanced customizes every system cursor slot.
	ModeAdvanced CustomizationMode = "advanced"
)

// ParseMode validates a mode string.
func ParseMode(s string) (CustomizationMode, error) {
	switch CustomizationMode(s) {
	case ModeSimple, ModeAdvanced:
		return CustomizationMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// CursorSlot is one named system cursor.
type CursorSlot struct {
	Name        string // registry value name, e.g. "Arrow"
	DisplayName string
}

// Slots lists every system cursor slot in scheme order.
var Slots = []CursorSlot{
	{Name: "Arrow", DisplayName: "Normal Select"},
	{Name: "Help", DisplayName: "Help Select"},
	{Name: "AppStarting", DisplayName: "Working in Background"},
	{Name: "Wait", DisplayName: "Busy"},
	{Name: "Crosshair", DisplayName: "Precision Select"},
	{Name: "IBeam", DisplayName: "Text Select"},
	{Name: "NWPen", DisplayName: "Handwriting"},
	{Name: "No", DisplayName: "Unavailable"},
	{Name: "SizeNS", DisplayName: "Vertical Resize"},
	{Name: "SizeWE", DisplayName: "Horizontal Resize"},
	{Name: "SizeNWSE", DisplayName: "Diagonal Resize 1"},
	{Name: "SizeNESW", DisplayName: "Diagonal Resize 2"},
	{Name: "SizeAll", DisplayName: "Move"},
	{Name: "UpArrow", DisplayName: "Alternate Select"},
	{Name: "Hand", DisplayName: "Link Select"},
	{Name: "Pin", DisplayName: "Location Select"},
	{Name: "Person", DisplayName: "Person Select"},
}

var simpleSlots = map[string]bool{"Arrow": true, "Hand": true}

// SlotsForMode returns the slots a pack captured in mode contains.
func SlotsForMode(mode CustomizationMode) []CursorSlot {
	if mode != ModeSimple {
		return Slots
	}
	var out []CursorSlot
	for _, s := range Slots {
		if simpleSlots[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// LookupSlot finds a slot by its name.
func LookupSlot(name string) (CursorSlot, bool) {
	for _, s := range Slots {
		if s.Name == name {
			return s, true
		}
	}
	return CursorSlot{}, false
}
