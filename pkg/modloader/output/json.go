package output

import (
	"bytes"
	"encoding/json"
)

// jsonOutput is the full JSON document.
type jsonOutput struct {
	Mods []ModInfo `json:"mods"`
	Meta jsonMeta  `json:"meta"`
}

type jsonMeta struct {
	ModsRoot   string   `json:"mods_root"`
	Game       string   `json:"game,omitempty"`
	Patch      string   `json:"patch,omitempty"`
	TotalMods  int      `json:"total_mods"`
	ActiveMods int      `json:"active_mods"`
	TotalSize  int64    `json:"total_size,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object with mods
// and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	mods := r.Mods
	if mods == nil {
		mods = []ModInfo{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonOutput{
		Mods: mods,
		Meta: jsonMeta{
			ModsRoot:   r.ModsRoot,
			Game:       r.Game,
			Patch:      r.Patch,
			TotalMods:  len(r.Mods),
			ActiveMods: r.ActiveCount(),
			TotalSize:  r.TotalSize(),
			Warnings:   r.Warnings,
		},
	})
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter writes one compact JSON object per mod, suitable for jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, m := range r.Mods {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
