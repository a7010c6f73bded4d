// Package normalize holds the leaf mappings shared by every wire-schema variant:
// the component identifier codec, the strength quantizer, and the concern classifier.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// MissingIndex is substituted for any index that a token does not carry as a number,
// including the explicit "None" sentinel emitted by older backends.
const MissingIndex = 0

var headIDPattern = regexp.MustCompile(`(?i)L\s*([0-9]+|none|null)?\s*H\s*([0-9]+|none|null)?`)

// Encode renders a layer and sub-unit index as a component token such as "L6H15".
// Negative indices are clamped to zero.
func Encode(layer, subUnit int) string {
	if layer < 0 {
		layer = 0
	}
	if subUnit < 0 {
		subUnit = 0
	}
	return "L" + strconv.Itoa(layer) + "H" + strconv.Itoa(subUnit)
}

// Decode parses a component token back into its layer and sub-unit. It never fails:
// malformed or partial tokens yield MissingIndex for the part that cannot be read.
func Decode(token string) (layer, subUnit int) {
	m := headIDPattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return MissingIndex, MissingIndex
	}
	return parseIndex(m[1]), parseIndex(m[2])
}

func parseIndex(s string) int {
	if s == "" {
		return MissingIndex
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return MissingIndex
	}
	return n
}
