// Package format turns stored bill values into the labels shown in the list view.
package format

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"billed/internal/model"
)

// DateLayout is the layout bills carry their date in.
const DateLayout = "2006-01-02"

// French short month names, first letter capitalised and cut to three letters.
var months = [...]string{
	"Jan", "Fév", "Mar", "Avr", "Mai", "Jui",
	"Jui", "Aoû", "Sep", "Oct", "Nov", "Déc",
}

// Date formats an ISO date as "4 Avr. 04". It returns an error when the
// value is not a valid date; callers decide what to show instead.
func Date(raw string) (string, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("format date %q: %w", raw, err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), months[t.Month()-1], t.Year()%100), nil
}

// Status returns the label for a bill status. Unknown statuses are returned as is.
func Status(s model.Status) string {
	switch s {
	case model.StatusPending:
		return "En attente"
	case model.StatusAccepted:
		return "Accepté"
	case model.StatusRefused:
		return "Refused"
	default:
		return string(s)
	}
}

// Amount formats a currency amount with French separators. NaN renders empty.
func Amount(n model.Number) string {
	if n.IsNaN() {
		return ""
	}
	p := message.NewPrinter(language.French)
	return p.Sprintf("%.2f €", float64(n))
}
