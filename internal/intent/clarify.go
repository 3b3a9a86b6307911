package intent

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/textnorm"
)

const (
	// MenuMarker identifies a clarification menu in the chat log.
	MenuMarker = "¿Te refieres a"
	// MaxOptions caps a menu: the primary reading plus four alternatives.
	MaxOptions = 5
)

var (
	ErrNoChoice         = errors.New("intent: reply is not a menu choice")
	ErrChoiceOutOfRange = errors.New("intent: menu choice out of range")
	optionLinePattern   = regexp.MustCompile(`^\s*([1-9])[.)]\s+(.+?)\s*$`)
	choiceNumPattern    = regexp.MustCompile(`^[0-9]{1,2}$`)
)

// Cardinals are left out: "una caja" or "dos kilos" start new requests.
var ordinalWords = map[string]int{
	"primero": 1, "primera": 1, "primer": 1, "1ro": 1, "1ra": 1, "1ero": 1, "1era": 1,
	"segundo": 2, "segunda": 2, "2do": 2, "2da": 2,
	"tercero": 3, "tercera": 3, "tercer": 3, "3ro": 3, "3ra": 3, "3ero": 3, "3era": 3,
	"cuarto": 4, "cuarta": 4, "4to": 4, "4ta": 4,
	"quinto": 5, "quinta": 5, "5to": 5, "5ta": 5,
}

// Words allowed around a choice, as in "la 2" or "opción 3 por favor".
var choiceFiller = map[string]bool{
	"la": true, "el": true, "opcion": true, "numero": true, "nro": true,
	"por": true, "favor": true, "porfa": true, "fa": true,
}

// MenuOptions lists the menu lines for a low-confidence result: the primary
// reading first, then its alternatives, without duplicates.
func MenuOptions(r Result) []string {
	var opts []string
	seen := map[string]bool{}
	add := func(i Intent, desc string) {
		if len(opts) >= MaxOptions {
			return
		}
		if _, isChat := i.(Chat); isChat {
			return
		}
		if strings.TrimSpace(desc) == "" {
			desc = Describe(i)
		}
		desc = strings.Join(strings.Fields(desc), " ")
		key := textnorm.Fold(desc)
		if seen[key] {
			return
		}
		seen[key] = true
		opts = append(opts, desc)
	}
	add(r.Intent, r.Description)
	for _, a := range r.Alternatives {
		add(a.Intent, a.Description)
	}
	return opts
}

// BuildMenu renders the numbered clarification reply. The text is the only
// state of the dialog; DetectPending parses it back out of the chat log.
func BuildMenu(original string, options []string) (string, domain.PendingClarification) {
	if len(options) > MaxOptions {
		options = options[:MaxOptions]
	}
	var b strings.Builder
	b.WriteString("🤔 No estoy seguro de qué quieres hacer. " + MenuMarker + "...?\n\n")
	for i, o := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o)
	}
	b.WriteString("\nResponde con el número de la opción.")
	return b.String(), domain.PendingClarification{OriginalText: strings.TrimSpace(original), Options: append([]string(nil), options...)}
}

// DetectPending reports the open menu, if the most recent assistant turn is
// one. The original text is the user turn right before the menu.
func DetectPending(history []domain.ChatTurn) (domain.PendingClarification, bool) {
	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant {
			last = i
			break
		}
	}
	if last < 0 || !strings.Contains(history[last].Text, MenuMarker) {
		return domain.PendingClarification{}, false
	}
	var p domain.PendingClarification
	for _, line := range strings.Split(history[last].Text, "\n") {
		if m := optionLinePattern.FindStringSubmatch(line); m != nil {
			p.Options = append(p.Options, m[2])
		}
	}
	for i := last - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			p.OriginalText = strings.TrimSpace(history[i].Text)
			break
		}
	}
	if len(p.Options) == 0 || p.OriginalText == "" {
		return domain.PendingClarification{}, false
	}
	return p, true
}

// ResolveReply maps a reply to one of the pending options and synthesizes
// the disambiguated instruction to classify again.
func ResolveReply(text string, p domain.PendingClarification) (string, error) {
	n, ok := ParseChoice(text)
	if !ok {
		return "", ErrNoChoice
	}
	if n < 1 || n > len(p.Options) {
		return "", fmt.Errorf("%w: %d of %d", ErrChoiceOutOfRange, n, len(p.Options))
	}
	return Disambiguate(p.OriginalText, p.Options[n-1]), nil
}

// Disambiguate appends the chosen reading to the original text.
func Disambiguate(original, option string) string {
	return fmt.Sprintf("%s (me refiero a: %s)", strings.TrimSpace(original), option)
}

// ParseChoice reads a menu choice. The reply must be the choice alone, a
// bare number, a keycap or circled numeral, or an ordinal word, optionally
// wrapped in filler words. Anything else is a new request.
func ParseChoice(text string) (int, bool) {
	choice, found := 0, false
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, ".,;:!?¡¿()\"'#")
		if tok == "" {
			continue
		}
		n, ok := glyphNumber(tok)
		if !ok {
			w := textnorm.Fold(tok)
			if choiceFiller[w] {
				continue
			}
			n, ok = ordinalWords[w]
			if !ok && choiceNumPattern.MatchString(w) {
				n, _ = strconv.Atoi(w)
				ok = true
			}
		}
		if !ok || found {
			return 0, false
		}
		choice, found = n, true
	}
	return choice, found
}

// glyphNumber recognizes a token that is exactly one keycap emoji (digit,
// optional U+FE0F, U+20E3) or one circled digit.
func glyphNumber(tok string) (int, bool) {
	rs := []rune(tok)
	switch {
	case len(rs) == 1 && rs[0] >= '\u2460' && rs[0] <= '\u2468':
		return int(rs[0]-'\u2460') + 1, true
	case len(rs) < 2 || rs[0] < '0' || rs[0] > '9':
		return 0, false
	case len(rs) == 2 && rs[1] == '\u20E3':
		return int(rs[0] - '0'), true
	case len(rs) == 3 && rs[1] == '\uFE0F' && rs[2] == '\u20E3':
		return int(rs[0] - '0'), true
	}
	return 0, false
}
