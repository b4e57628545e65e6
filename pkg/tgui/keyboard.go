package tgui

import kit "remindbot/internal/transport"

// Keyboard builds inline keyboard rows.
type Keyboard struct {
	rows [][]kit.Button
}

func NewKeyboard() *Keyboard { return &Keyboard{} }

// Row appends a row; empty rows are ignored.
func (k *Keyboard) Row(btn ...kit.Button) *Keyboard {
	if len(btn) > 0 {
		k.rows = append(k.rows, btn)
	}
	return k
}

func (k *Keyboard) Rows() [][]kit.Button { return k.rows }

// Btn creates a callback button. Build data with Data.
func Btn(text, data string) kit.Button { return kit.Button{Text: text, Data: data} }

func URLBtn(text, url string) kit.Button { return kit.Button{Text: text, URL: url} }

// Grid splits buttons into rows of n columns.
func Grid(n int, buttons ...kit.Button) [][]kit.Button {
	if n <= 0 {
		n = 2
	}
	var rows [][]kit.Button
	for len(buttons) > 0 {
		c := min(n, len(buttons))
		rows = append(rows, buttons[:c:c])
		buttons = buttons[c:]
	}
	return rows
}
