package tgui

import (
	"context"
	"strings"

	kit "remindbot/internal/transport"
)

// Message is rendered text plus send options.
type Message struct {
	Text string
	Opt  *kit.SendOptions
}

func (m Message) Send(ctx context.Context, ad kit.Adapter, to kit.ChatTarget) (kit.MessageRef, error) {
	return ad.SendText(ctx, to, m.Text, m.Opt)
}

func (m Message) Edit(ctx context.Context, ad kit.Adapter, ref kit.MessageRef) error {
	return ad.EditText(ctx, ref, m.Text, m.Opt)
}

// Builder assembles an HTML message line by line. Plain strings are
// escaped; H values are used as-is.
type Builder struct {
	lines  []string
	kb     *Keyboard
	webApp *kit.WebAppButton
}

func New() *Builder { return &Builder{} }

// Title adds a bold title line with an optional emoji.
func (b *Builder) Title(emoji, title string) *Builder {
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	if e := strings.TrimSpace(emoji); e != "" {
		return b.HTML(Esc(e) + " " + B(t))
	}
	return b.HTML(B(t))
}

func (b *Builder) Line(s string) *Builder { return b.HTML(Esc(s)) }

func (b *Builder) HTML(h H) *Builder {
	b.lines = append(b.lines, h.String())
	return b
}

func (b *Builder) Blank() *Builder { return b.HTML("") }

// KV adds a "key: value" line with a bold key. Empty values are skipped.
func (b *Builder) KV(key, value string) *Builder {
	if strings.TrimSpace(value) == "" {
		return b
	}
	return b.HTML(B(key+":") + " " + Esc(value))
}

func (b *Builder) Bullets(items ...string) *Builder {
	for _, it := range items {
		b.HTML("• " + Esc(it))
	}
	return b
}

func (b *Builder) Keyboard(kb *Keyboard) *Builder {
	b.kb = kb
	return b
}

// WebApp attaches a reply keyboard button that opens the mini app.
func (b *Builder) WebApp(text, url string) *Builder {
	if strings.TrimSpace(url) == "" {
		return b
	}
	b.webApp = &kit.WebAppButton{Text: text, URL: url}
	return b
}

func (b *Builder) Build() Message {
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true, WebAppButton: b.webApp}
	if b.kb != nil {
		opt.Buttons = b.kb.Rows()
	}
	return Message{Text: strings.TrimRight(strings.Join(b.lines, "\n"), "\n"), Opt: opt}
}
