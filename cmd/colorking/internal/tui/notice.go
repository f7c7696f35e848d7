package tui

import (
	"context"
	"errors"

	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/wizard"
)

type noticeKind int

const (
	noticeNone noticeKind = iota
	noticeInfo
	noticeRetry
	noticeAlert
)

// notice is the status line under the current step.
type notice struct {
	kind noticeKind
	text string
}

// presentation says how a failed operation is shown to the user.
type presentation int

const (
	presentAlert presentation = iota
	presentCredential
	presentRetry
	presentQuiet
)

// present maps an error onto a presentation and the text to show.
func present(err error) (presentation, string) {
	if errors.Is(err, context.Canceled) {
		return presentQuiet, "Generation cancelled."
	}
	if errors.Is(err, wizard.ErrSessionReset) {
		return presentQuiet, ""
	}

	msg := userMessage(err)

	switch imagegen.KindOf(err) {
	case imagegen.KindInvalidCredential, imagegen.KindProviderMisconfigured:
		return presentCredential, msg
	case imagegen.KindNetwork:
		return presentRetry, msg + ". Check your connection and press ctrl+r to retry."
	case imagegen.KindTimeout:
		return presentRetry, msg + ". The provider is busy; press ctrl+r to try again."
	case imagegen.KindBrowserRestricted:
		return presentRetry, msg + ". Press ctrl+r to retry, or turn the provider off with ctrl+s."
	default:
		return presentAlert, msg
	}
}

// userMessage drops package prefixes added above the classified error.
func userMessage(err error) string {
	var ierr *imagegen.Error
	if errors.As(err, &ierr) {
		return ierr.Error()
	}

	return err.Error()
}
