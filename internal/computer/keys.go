package computer

import (
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
)

// normalizeKey upper-cases and trims a model key name.
func normalizeKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

var xdotoolKeys = map[string]string{
	"ENTER":      "Return",
	"RETURN":     "Return",
	"TAB":        "Tab",
	"ESC":        "Escape",
	"ESCAPE":     "Escape",
	"SPACE":      "space",
	"BACKSPACE":  "BackSpace",
	"DELETE":     "Delete",
	"INSERT":     "Insert",
	"HOME":       "Home",
	"END":        "End",
	"PAGEUP":     "Page_Up",
	"PAGEDOWN":   "Page_Down",
	"UP":         "Up",
	"DOWN":       "Down",
	"LEFT":       "Left",
	"RIGHT":      "Right",
	"ARROWUP":    "Up",
	"ARROWDOWN":  "Down",
	"ARROWLEFT":  "Left",
	"ARROWRIGHT": "Right",
	"CAPSLOCK":   "Caps_Lock",
	"CTRL":       "ctrl",
	"CONTROL":    "ctrl",
	"ALT":        "alt",
	"OPTION":     "alt",
	"SHIFT":      "shift",
	"CMD":        "super",
	"META":       "super",
	"SUPER":      "super",
	"WIN":        "super",
}

// xdotoolChord joins keys into a single xdotool key chord such as "ctrl+shift+t".
func xdotoolChord(keys []string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		n := normalizeKey(k)
		switch {
		case n == "":
			continue
		case xdotoolKeys[n] != "":
			parts = append(parts, xdotoolKeys[n])
		case isFunctionKey(n):
			parts = append(parts, n)
		case len([]rune(k)) == 1:
			parts = append(parts, strings.ToLower(k))
		default:
			parts = append(parts, strings.TrimSpace(k))
		}
	}
	return strings.Join(parts, "+")
}

func isFunctionKey(n string) bool {
	if len(n) < 2 || len(n) > 3 || n[0] != 'F' {
		return false
	}
	for _, r := range n[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var cdpModifiers = map[string]input.Modifier{
	"CTRL":    input.ModifierCtrl,
	"CONTROL": input.ModifierCtrl,
	"ALT":     input.ModifierAlt,
	"OPTION":  input.ModifierAlt,
	"SHIFT":   input.ModifierShift,
	"CMD":     input.ModifierMeta,
	"META":    input.ModifierMeta,
	"SUPER":   input.ModifierMeta,
	"WIN":     input.ModifierMeta,
}

var cdpModifierKeys = map[input.Modifier]string{
	input.ModifierCtrl:  kb.Control,
	input.ModifierAlt:   kb.Alt,
	input.ModifierShift: kb.Shift,
	input.ModifierMeta:  kb.Meta,
}

var cdpKeys = map[string]string{
	"ENTER":      kb.Enter,
	"RETURN":     kb.Enter,
	"TAB":        kb.Tab,
	"ESC":        kb.Escape,
	"ESCAPE":     kb.Escape,
	"SPACE":      " ",
	"BACKSPACE":  kb.Backspace,
	"DELETE":     kb.Delete,
	"INSERT":     kb.Insert,
	"HOME":       kb.Home,
	"END":        kb.End,
	"PAGEUP":     kb.PageUp,
	"PAGEDOWN":   kb.PageDown,
	"UP":         kb.ArrowUp,
	"DOWN":       kb.ArrowDown,
	"LEFT":       kb.ArrowLeft,
	"RIGHT":      kb.ArrowRight,
	"ARROWUP":    kb.ArrowUp,
	"ARROWDOWN":  kb.ArrowDown,
	"ARROWLEFT":  kb.ArrowLeft,
	"ARROWRIGHT": kb.ArrowRight,
	"F1":         kb.F1,
	"F2":         kb.F2,
	"F3":         kb.F3,
	"F4":         kb.F4,
	"F5":         kb.F5,
	"F6":         kb.F6,
	"F7":         kb.F7,
	"F8":         kb.F8,
	"F9":         kb.F9,
	"F10":        kb.F10,
	"F11":        kb.F11,
	"F12":        kb.F12,
}

// cdpChord splits keys into the modifier mask and the keys to send under it,
// encoded for chromedp.KeyEvent. A chord of only modifiers sends the last
// modifier key itself.
func cdpChord(keys []string) (input.Modifier, string) {
	var (
		mods    input.Modifier
		lastMod input.Modifier
		b       strings.Builder
	)
	for _, k := range keys {
		n := normalizeKey(k)
		if n == "" {
			continue
		}
		if m, ok := cdpModifiers[n]; ok {
			mods |= m
			lastMod = m
			continue
		}
		if v, ok := cdpKeys[n]; ok {
			b.WriteString(v)
			continue
		}
		if len([]rune(k)) == 1 {
			b.WriteString(strings.ToLower(k))
			continue
		}
		b.WriteString(k)
	}
	if b.Len() == 0 && lastMod != 0 {
		return mods &^ lastMod, cdpModifierKeys[lastMod]
	}
	return mods, b.String()
}
