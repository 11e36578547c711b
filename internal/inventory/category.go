package inventory

import (
	"regexp"
	"strings"
)

// Category classifies a device as a main unit or an accessory.
type Category string

const (
	CategoryMainUnit  Category = "Main Unit"
	CategoryAccessory Category = "Accessory"
)

var accessoryPattern = regexp.MustCompile(`(?i)\b(cables?|chargers?|adapters?|bags?|case|cases|covers?|mounts?|brackets?|connectors?|extensions?|kits?|remotes?|straps?|fuses?|plugs?|leads?|clamps?|spare|wheels?|manuals?)\b`)

// Categorize derives the category of a device from its name.
func Categorize(deviceName string) Category {
	if strings.TrimSpace(deviceName) == "" {
		return ""
	}
	if accessoryPattern.MatchString(deviceName) {
		return CategoryAccessory
	}
	return CategoryMainUnit
}
