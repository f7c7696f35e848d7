package wizard

import "github.com/germanamz/colorking/pkg/drawing"

// Session is the wizard's aggregate state. Values returned by Store.Snapshot
// are copies; mutating them does not affect the store.
type Session struct {
	ID                 string
	Description        string
	IsGenerating       bool
	DrawingOptions     []drawing.ImageOption
	SelectedDrawing    *drawing.ImageOption
	OutlineOptions     []drawing.ImageOption
	SelectedOutline    *drawing.ImageOption
	PrintSettings      drawing.PrintSettings
	ProviderCredential string
	ProviderEnabled    bool
}

func newSession(id string) Session {
	return Session{ID: id, PrintSettings: drawing.DefaultPrintSettings()}
}

func (s Session) clone() Session {
	cp := s
	cp.DrawingOptions = drawing.Clone(s.DrawingOptions)
	cp.OutlineOptions = drawing.Clone(s.OutlineOptions)
	cp.SelectedDrawing = clonePtr(s.SelectedDrawing)
	cp.SelectedOutline = clonePtr(s.SelectedOutline)

	return cp
}

func (s *Session) clearFromDrawings() {
	s.DrawingOptions = nil
	s.SelectedDrawing = nil
	s.clearFromOutlines()
}

func (s *Session) clearFromOutlines() {
	s.OutlineOptions = nil
	s.SelectedOutline = nil
}

func clonePtr(o *drawing.ImageOption) *drawing.ImageOption {
	if o == nil {
		return nil
	}

	cp := *o

	return &cp
}
