package record

// monthAbbrevs is the closed set of canonical month values.
var monthAbbrevs = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true,
	"may": true, "jun": true, "jul": true, "aug": true,
	"sep": true, "oct": true, "nov": true, "dec": true,
}

// IsMonthAbbrev reports whether s is one of the twelve 3-letter
// lowercase month abbreviations.
func IsMonthAbbrev(s string) bool {
	return monthAbbrevs[s]
}
