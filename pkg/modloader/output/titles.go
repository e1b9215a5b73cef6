package output

import (
	"bytes"
)

// TitlesFormatter writes the active titles in load order, one per line.
// The output can be fed back to "mods select".
type TitlesFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TitlesFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, m := range r.Mods {
		if !m.Active {
			continue
		}
		w.WriteString(m.Title)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("titles", func() Formatter {
		return &TitlesFormatter{}
	})
}

// Ensure TitlesFormatter implements Formatter.
var _ Formatter = (*TitlesFormatter)(nil)

// NullFormatter writes every mod directory followed by a null byte, for
// xargs -0.
type NullFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *NullFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, m := range r.Mods {
		w.WriteString(m.Directory)
		w.WriteByte(0)
	}
	return nil
}

func init() {
	Register("null", func() Formatter {
		return &NullFormatter{}
	})
}

// Ensure NullFormatter implements Formatter.
var _ Formatter = (*NullFormatter)(nil)
