// Package professional decides who may perform a service and picks a
// professional out of a customer's free-text answer.
package professional

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Scheduling-Assistant/agent/textnorm"
)

// ResolveAptProfessionals returns the active professionals allowed to perform
// serviceID. An empty assignment table means the business has not configured
// assignments yet and every active professional is allowed.
func ResolveAptProfessionals(serviceID string, professionals []contractx.Professional, assignments []contractx.Assignment) []contractx.Professional {
	active := make([]contractx.Professional, 0, len(professionals))
	for _, p := range professionals {
		if p.Active {
			active = append(active, p)
		}
	}
	if len(assignments) == 0 {
		return active
	}

	allowed := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		if a.Enabled && a.ServiceID == serviceID {
			allowed[a.ProfessionalID] = struct{}{}
		}
	}
	out := make([]contractx.Professional, 0, len(allowed))
	for _, p := range active {
		if _, ok := allowed[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FormatProfessionalList renders "1. Ana Silva\n2. Bruno" for presentation.
func FormatProfessionalList(professionals []contractx.Professional) string {
	var b strings.Builder
	for i, p := range professionals {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, p.Name)
	}
	return b.String()
}

// FuzzyMatchProfessional resolves text in order: a 1-based index into the
// list, an exact or substring match on the full name (either direction), then
// the first name alone.
func FuzzyMatchProfessional(text string, professionals []contractx.Professional) (contractx.Professional, bool) {
	query := textnorm.Normalize(strings.Trim(strings.TrimSpace(text), ".!?"))
	if query == "" {
		return contractx.Professional{}, false
	}

	if textnorm.IsNumeric(query) {
		idx, err := strconv.Atoi(query)
		if err != nil || idx < 1 || idx > len(professionals) {
			return contractx.Professional{}, false
		}
		return professionals[idx-1], true
	}

	for _, p := range professionals {
		name := textnorm.Normalize(p.Name)
		if name == "" {
			continue
		}
		if name == query || strings.Contains(name, query) || strings.Contains(query, name) {
			return p, true
		}
	}

	words := textnorm.Words(query)
	for _, p := range professionals {
		first := firstName(p.Name)
		if first == "" {
			continue
		}
		if first == query {
			return p, true
		}
		for _, w := range words {
			if w == first {
				return p, true
			}
		}
	}
	return contractx.Professional{}, false
}

func firstName(name string) string {
	words := textnorm.Words(name)
	if len(words) == 0 {
		return ""
	}
	return words[0]
}
