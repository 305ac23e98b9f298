// Package hotkey registers the global start/stop and quit shortcuts.
package hotkey

import (
	"context"
	"fmt"
	"strings"

	hook "github.com/robotn/gohook"
)

var modifierNames = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"cmd":     "command",
	"command": "command",
	"super":   "command",
	"meta":    "command",
}

var keyAliases = map[string]string{
	"escape": "esc",
	"return": "enter",
	"spc":    "space",
}

// Parse turns a shortcut like "ctrl+shift+esc" into the key list gohook
// expects: the main key first, then its modifiers in the order written.
func Parse(shortcut string) ([]string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(shortcut)), "+")
	var key string
	var mods []string
	seen := make(map[string]bool)
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("shortcut %q has an empty key", shortcut)
		}
		if m, ok := modifierNames[p]; ok {
			if !seen[m] {
				mods = append(mods, m)
				seen[m] = true
			}
			continue
		}
		if key != "" {
			return nil, fmt.Errorf("shortcut %q has more than one non-modifier key", shortcut)
		}
		if a, ok := keyAliases[p]; ok {
			p = a
		}
		key = p
	}
	if key == "" {
		return nil, fmt.Errorf("shortcut %q has no non-modifier key", shortcut)
	}
	return append([]string{key}, mods...), nil
}

// Listen registers both shortcuts and dispatches key events until ctx is
// cancelled or the hook stops.
func Listen(ctx context.Context, toggle, terminate string, onToggle, onTerminate func()) error {
	toggleKeys, err := Parse(toggle)
	if err != nil {
		return err
	}
	terminateKeys, err := Parse(terminate)
	if err != nil {
		return err
	}

	hook.Register(hook.KeyDown, toggleKeys, func(hook.Event) { onToggle() })
	hook.Register(hook.KeyDown, terminateKeys, func(hook.Event) { onTerminate() })

	s := hook.Start()
	done := hook.Process(s)
	select {
	case <-ctx.Done():
		hook.End()
	case <-done:
	}
	return nil
}
