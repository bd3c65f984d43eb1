// Package editor exposes the selection of a rich text editor so generated content can
// be spliced into it.
package editor

// Selection is a range of the editor's plain text. Index and Length count characters,
// not bytes.
type Selection struct {
	Text   string `json:"text"`
	Index  int    `json:"index"`
	Length int    `json:"length"`
}

// Bridge is the selection surface of an editor.
type Bridge interface {
	// Selection returns the active selection, or false when nothing is selected.
	Selection() (Selection, bool)
	// ReplaceSelection replaces the selected range with html and leaves the cursor after
	// the inserted content. It does nothing when nothing is selected.
	ReplaceSelection(html string)
}
