// Package datetime understands the date and time expressions customers type
// in Brazilian Portuguese ("amanha as 10h", "sexta de tarde", "20/10 14:30").
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/textnorm"
)

// Zone is the business timezone every relative date is resolved in.
const Zone = "America/Sao_Paulo"

type Kind string

const (
	KindNone        Kind = "NONE"
	KindExact       Kind = "EXACT"
	KindPeriod      Kind = "PERIOD"
	KindInvalidHour Kind = "INVALID_HOUR"
)

// Result is what Parse understood. DateISO is set for KindExact and KindPeriod,
// Time only for KindExact and Period only for KindPeriod. DateExplicit is false
// when no day was named and DateISO fell back to tomorrow.
type Result struct {
	Kind         Kind          `json:"kind"`
	DateISO      string        `json:"date_iso,omitempty"`
	DateExplicit bool          `json:"date_explicit,omitempty"`
	Time    string        `json:"time,omitempty"`
	Period  statex.Period `json:"period,omitempty"`
	Display string        `json:"display,omitempty"`
}

// PeriodSuggestions is the representative time offered for each day-part.
var PeriodSuggestions = map[statex.Period]string{
	statex.PeriodManha: "09:00",
	statex.PeriodTarde: "14:00",
	statex.PeriodNoite: "19:00",
}

// PeriodLabel is the user-facing name of a day-part.
var PeriodLabel = map[statex.Period]string{
	statex.PeriodManha: "manhã",
	statex.PeriodTarde: "tarde",
	statex.PeriodNoite: "noite",
}

var location = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation(Zone)
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
})

// Location returns the business timezone.
func Location() *time.Location {
	return location()
}

var (
	colonRe  = regexp.MustCompile(`(?:^|[^\d/:])(\d{1,2}):([0-5]\d)`)
	suffixRe = regexp.MustCompile(`(?:^|[^\d/:])(\d{1,2}) ?(?:h([0-5]\d)(?:min)?|horas?|hrs?|h)\b`)
	prepRe   = regexp.MustCompile(`(?:^|\s)(?:as|das|pelas|umas) (\d{1,2})(?:$|[^\d/:h])`)
	slashRe  = regexp.MustCompile(`(?:^|[^\d])(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?(?:$|[^\d])`)
	dayRe    = regexp.MustCompile(`(?:^|\s)dia (\d{1,2})(?:$|[^\d/:h])`)
)

var greetings = []string{"bom dia", "boa tarde", "boa noite"}

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

var weekdayAbbrev = [...]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}

type clock struct {
	hour, minute int
}

// Parse interprets text relative to now. An hour token above 23 anywhere in
// the text yields KindInvalidHour; an exact hour wins over a day-part keyword.
func Parse(text string, now time.Time) Result {
	norm := stripGreetings(textnorm.Normalize(text))
	if norm == "" {
		return Result{Kind: KindNone}
	}

	hours := hourTokens(norm)
	for _, h := range hours {
		if h.hour > 23 {
			return Result{Kind: KindInvalidHour}
		}
	}

	var (
		exact    *clock
		fixedDay bool
	)
	switch {
	case textnorm.ContainsAny(norm, "meia noite", "meia-noite", "meianoite"):
		exact, fixedDay = &clock{hour: 0}, true
		norm = strings.NewReplacer("meia noite", " ", "meia-noite", " ", "meianoite", " ").Replace(norm)
	case textnorm.ContainsAny(norm, "meio dia", "meio-dia", "meiodia"):
		exact, fixedDay = &clock{hour: 12}, true
		norm = strings.NewReplacer("meio dia", " ", "meio-dia", " ", "meiodia", " ").Replace(norm)
	}
	if exact == nil && len(hours) > 0 {
		exact = &hours[0]
	}

	period := detectPeriod(norm)
	day, explicit := resolveDate(norm, now.In(Location()))
	dateISO := day.Format(time.DateOnly)

	if exact != nil {
		h := exact.hour
		switch {
		case fixedDay:
		case h <= 11 && (period == statex.PeriodTarde || period == statex.PeriodNoite):
			h += 12
		case h == 12 && period == statex.PeriodNoite:
			// "12h da noite" is midnight, read like "meia noite".
			h = 0
		}
		hhmm := fmt.Sprintf("%02d:%02d", h, exact.minute)
		return Result{
			Kind:         KindExact,
			DateISO:      dateISO,
			DateExplicit: explicit,
			Time:         hhmm,
			Display:      FormatDisplay(dateISO, hhmm),
		}
	}
	if period != statex.PeriodNone {
		return Result{
			Kind:         KindPeriod,
			DateISO:      dateISO,
			DateExplicit: explicit,
			Period:       period,
			Display:      FormatDisplay(dateISO, ""),
		}
	}
	return Result{Kind: KindNone}
}

// DetectPeriod extracts a day-part keyword without resolving any date.
func DetectPeriod(text string) statex.Period {
	return detectPeriod(stripGreetings(textnorm.Normalize(text)))
}

var availabilityPhrases = []string{
	"tem horario", "tem vaga", "tem disponibilidade", "tem agenda",
	"horarios disponiveis", "horario disponivel", "horarios livres", "horario livre",
	"qual horario", "quais horarios", "que horas tem", "que horario tem",
	"quando tem", "quando voce pode", "quando pode", "qual o proximo horario",
}

// IsAvailabilityQuestion reports vague availability requests ("tem horario?").
func IsAvailabilityQuestion(text string) bool {
	return textnorm.ContainsAny(textnorm.Normalize(text), availabilityPhrases...)
}

// FormatDisplay renders "qui, 15/10 às 10:00", or "qui, 15/10" when hhmm is empty.
func FormatDisplay(dateISO, hhmm string) string {
	day, err := time.ParseInLocation(time.DateOnly, dateISO, Location())
	if err != nil {
		return strings.TrimSpace(dateISO + " " + hhmm)
	}
	out := fmt.Sprintf("%s, %s", weekdayAbbrev[day.Weekday()], day.Format("02/01"))
	if hhmm != "" {
		out += " às " + hhmm
	}
	return out
}

/* ------------------------------- Helpers -------------------------------- */

func stripGreetings(norm string) string {
	for _, g := range greetings {
		norm = strings.ReplaceAll(norm, g, " ")
	}
	return textnorm.CollapseSpaces(norm)
}

// hourTokens returns colon tokens first, then "10h" tokens, then "as 10".
func hourTokens(norm string) []clock {
	var out []clock
	for _, m := range colonRe.FindAllStringSubmatch(norm, -1) {
		out = append(out, clock{hour: atoi(m[1]), minute: atoi(m[2])})
	}
	for _, m := range suffixRe.FindAllStringSubmatch(norm, -1) {
		out = append(out, clock{hour: atoi(m[1]), minute: atoi(m[2])})
	}
	for _, m := range prepRe.FindAllStringSubmatch(norm, -1) {
		out = append(out, clock{hour: atoi(m[1])})
	}
	return out
}

func detectPeriod(norm string) statex.Period {
	for _, w := range textnorm.Words(norm) {
		switch w {
		case "manha":
			return statex.PeriodManha
		case "tarde":
			return statex.PeriodTarde
		case "noite":
			return statex.PeriodNoite
		}
	}
	return statex.PeriodNone
}

// resolveDate picks the day in the order: dd/mm, "dia N", "depois de amanha",
// "hoje", "amanha", weekday name, and finally tomorrow. The flag is false only
// for the tomorrow fallback.
func resolveDate(norm string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if m := slashRe.FindStringSubmatch(norm); m != nil {
		if d, ok := explicitDate(today, atoi(m[1]), atoi(m[2]), m[3]); ok {
			return d, true
		}
	}
	if m := dayRe.FindStringSubmatch(norm); m != nil {
		if d, ok := dayOfMonth(today, atoi(m[1])); ok {
			return d, true
		}
	}

	words := textnorm.Words(norm)
	switch {
	case strings.Contains(norm, "depois de amanha"):
		return today.AddDate(0, 0, 2), true
	case hasWord(words, "hoje"):
		return today, true
	case hasWord(words, "amanha"):
		return today.AddDate(0, 0, 1), true
	}
	for _, w := range words {
		if wd, ok := weekdays[w]; ok {
			ahead := (int(wd) - int(today.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return today.AddDate(0, 0, ahead), true
		}
	}
	return today.AddDate(0, 0, 1), false
}

func explicitDate(today time.Time, day, month int, year string) (time.Time, bool) {
	y := today.Year()
	if year != "" {
		y = atoi(year)
		if y < 100 {
			y += 2000
		}
	}
	d := time.Date(y, time.Month(month), day, 0, 0, 0, 0, today.Location())
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	if year == "" && d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

func dayOfMonth(today time.Time, day int) (time.Time, bool) {
	for i := 0; i < 3; i++ {
		first := time.Date(today.Year(), today.Month()+time.Month(i), 1, 0, 0, 0, 0, today.Location())
		d := first.AddDate(0, 0, day-1)
		if d.Month() == first.Month() && !d.Before(today) {
			return d, true
		}
	}
	return time.Time{}, false
}

func hasWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
