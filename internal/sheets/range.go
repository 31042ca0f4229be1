package sheets

import (
	"fmt"
	"regexp"
	"strconv"
)

// RangeParseError represents an updated-range descriptor the resolver could
// not understand. Callers abort coloring, not the pipeline.
type RangeParseError struct {
	Descriptor string
	Message    string
}

func (e *RangeParseError) Error() string {
	return fmt.Sprintf("cannot resolve row range from %q: %s", e.Descriptor, e.Message)
}

// rangePattern matches "<SheetName>!A9:V10" and the single-cell form
// "<SheetName>!B5". Sheet names may be quoted.
var rangePattern = regexp.MustCompile(`^(?:'[^']*'|[^'!]+)!\$?[A-Z]+\$?(\d+)(?::\$?[A-Z]+\$?(\d+))?$`)

// ResolveRowRange parses the sink's updated-range descriptor into a
// 1-indexed inclusive row pair. Single-cell descriptors yield start == end.
func ResolveRowRange(descriptor string) (startRow, endRow int, err error) {
	match := rangePattern.FindStringSubmatch(descriptor)
	if match == nil {
		return 0, 0, &RangeParseError{Descriptor: descriptor, Message: "unrecognized format"}
	}

	startRow, err = strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, &RangeParseError{Descriptor: descriptor, Message: "bad start row"}
	}

	if match[2] == "" {
		return startRow, startRow, nil
	}

	endRow, err = strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, &RangeParseError{Descriptor: descriptor, Message: "bad end row"}
	}

	if startRow > endRow {
		return 0, 0, &RangeParseError{
			Descriptor: descriptor,
			Message:    fmt.Sprintf("start row %d after end row %d", startRow, endRow),
		}
	}

	return startRow, endRow, nil
}
