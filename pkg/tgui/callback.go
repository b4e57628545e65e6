package tgui

import (
	"errors"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data limit in bytes.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Data formats callback data as "prefix:action:arg1:arg2".
func Data(prefix, action string, args ...string) (string, error) {
	parts := append([]string{strings.TrimSpace(prefix), strings.TrimSpace(action)}, args...)
	s := strings.Join(parts, ":")
	if len(s) > MaxCallbackDataLen {
		return "", ErrCallbackDataTooLong
	}
	return s, nil
}

// ParseData splits callback data produced by Data. ok is false when the
// data does not carry the given prefix.
func ParseData(data, prefix string) (action string, args []string, ok bool) {
	rest, found := strings.CutPrefix(data, prefix+":")
	if !found || rest == "" {
		return "", nil, false
	}
	parts := strings.Split(rest, ":")
	return parts[0], parts[1:], true
}
