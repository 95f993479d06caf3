package turn

import (
	"strconv"
	"strings"
)

// NextTurnPlaceholder is returned when a date cannot be parsed.
const NextTurnPlaceholder = "Tour Suivant"

// DefaultYear is assumed when a date carries no year.
const DefaultYear = 1936

// Months is the calendar used by in-game dates.
var Months = [12]string{"Jan", "Fev", "Mar", "Avr", "Mai", "Juin", "Juil", "Aou", "Sep", "Oct", "Nov", "Dec"}

// AdvanceDate moves a "<day> <month> <year>" date to the first day of the
// following month. Month tokens match by prefix, ignoring case and accents,
// so "Janvier" and "août" are understood. Unparseable input yields
// NextTurnPlaceholder.
func AdvanceDate(date string) string {
	parts := strings.Fields(date)
	if len(parts) < 2 {
		return NextTurnPlaceholder
	}

	month := monthIndex(parts[1])
	if month < 0 {
		return NextTurnPlaceholder
	}

	year := DefaultYear
	if len(parts) > 2 {
		y, err := strconv.Atoi(parts[2])
		if err != nil {
			return NextTurnPlaceholder
		}
		year = y
	}

	next := month + 1
	if next == len(Months) {
		next = 0
		year++
	}
	return "1 " + Months[next] + " " + strconv.Itoa(year)
}

func monthIndex(token string) int {
	t := fold(token)
	for i, m := range Months {
		if strings.HasPrefix(t, fold(m)) {
			return i
		}
	}
	return -1
}
