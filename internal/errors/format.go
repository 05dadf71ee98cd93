package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

// style is an ANSI SGR sequence.
type style string

const (
	styleReset style = "\033[0m"
	styleError style = "\033[1;31m"
	styleCode  style = "\033[1;37m"
	styleKey   style = "\033[36m"
	styleCause style = "\033[33m"
	styleMuted style = "\033[90m"
	styleLink  style = "\033[34m"
)

const detailWidth = 70

var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(true)
}

// SetColor turns ANSI styling of Format output on or off. The CLI turns it
// off when NO_COLOR is set.
func SetColor(enabled bool) {
	colorEnabled.Store(enabled)
}

func paint(s style, text string) string {
	if !colorEnabled.Load() {
		return text
	}
	return string(s) + text + string(styleReset)
}

// Format renders the error as a multi-line block for terminals:
//
//	ERROR E201: Unresolved path pattern token
//
//	  token:   fingerprint
//	  pattern: site#[.{fingerprint}].css
//
//	  Hint: Make the group optional with '?'
func (e *Error) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(paint(styleError, "ERROR "))
		b.WriteString(paint(styleCode, e.Code+": "+e.Message))
	} else {
		b.WriteString(paint(styleError, "ERROR: "))
		b.WriteString(e.Message)
	}
	b.WriteString("\n\n")

	if len(e.Meta) > 0 {
		width := 0
		for _, m := range e.Meta {
			width = max(width, len(m.Key))
		}
		for _, m := range e.Meta {
			fmt.Fprintf(&b, "  %s %s\n", paint(styleKey, fmt.Sprintf("%-*s", width+1, m.Key+":")), m.Value)
		}
		b.WriteString("\n")
	}

	section := func(label string, s style, text string) {
		if text == "" {
			return
		}
		fmt.Fprintf(&b, "  %s%s\n\n", paint(s, label), text)
	}

	for _, line := range wrapText(e.Detail, detailWidth) {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if e.Detail != "" {
		b.WriteString("\n")
	}
	if e.Wrapped != nil {
		section("Cause: ", styleCause, e.Wrapped.Error())
	}
	section("Hint: ", styleKey, e.Suggestion)
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", paint(styleMuted, "Learn more: "), paint(styleLink, e.DocURL))
	}

	return b.String()
}

// FormatCompact renders the error on one line with quoted metadata, for
// logs and browser overlays.
func (e *Error) FormatCompact() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code + ": ")
	}
	b.WriteString(e.Message)
	for _, m := range e.Meta {
		fmt.Fprintf(&b, " %s=%q", m.Key, m.Value)
	}
	return b.String()
}

type jsonError struct {
	Code       string            `json:"code,omitempty"`
	Category   Category          `json:"category"`
	Message    string            `json:"message"`
	Detail     string            `json:"detail,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	DocURL     string            `json:"docUrl,omitempty"`
}

// FormatJSON renders the error as a JSON object. Metadata keys are emitted
// in sorted order; a repeated key keeps its first value.
func (e *Error) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	if len(e.Meta) > 0 {
		out.Meta = make(map[string]string, len(e.Meta))
		for _, m := range e.Meta {
			if _, ok := out.Meta[m.Key]; !ok {
				out.Meta[m.Key] = m.Value
			}
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText splits text into lines of at most width columns at word
// boundaries. Words longer than width get a line of their own.
func wrapText(text string, width int) []string {
	var lines []string
	var line []string
	n := 0
	for _, word := range strings.Fields(text) {
		if n > 0 && n+1+len(word) > width {
			lines = append(lines, strings.Join(line, " "))
			line, n = line[:0], 0
		}
		if n > 0 {
			n++
		}
		line = append(line, word)
		n += len(word)
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return lines
}

// Fprint writes err to w, using Format when err wraps an *Error.
func Fprint(w io.Writer, err error) {
	if e, ok := As(err); ok {
		io.WriteString(w, e.Format())
		return
	}
	fmt.Fprintf(w, "\n%s%s\n\n", paint(styleError, "ERROR: "), err.Error())
}
