package device

import "log/slog"

// Intent is the classification of a raw button transition.
type Intent int

const (
	// IntentNone means the transition needs no identify action: a press edge,
	// an untracked release, or a release that trails a completed factory
	// reset.
	IntentNone Intent = iota
	// IntentIdentifyToggle means a short press completed: toggle identify
	// mode.
	IntentIdentifyToggle
)

// ResetChecker reports whether a factory reset already fired during the
// current button hold. Implemented by the factory-reset collaborator.
type ResetChecker interface {
	WasDone() bool
}

// ButtonClassifier turns one button's raw press/release edges into intents.
// The decision happens at release: a release that trails a long hold which
// already triggered a factory reset must not also toggle identify mode.
type ButtonClassifier struct {
	mask    uint32
	reset   ResetChecker
	pressed bool
	logger  *slog.Logger
}

// NewButtonClassifier creates a classifier for the button selected by mask.
func NewButtonClassifier(mask uint32, reset ResetChecker, logger *slog.Logger) *ButtonClassifier {
	return &ButtonClassifier{
		mask:   mask,
		reset:  reset,
		logger: logger.With("component", "button"),
	}
}

// Classify consumes one raw (state, changed) report and returns the
// resulting intent. Reports that do not involve the monitored button
// yield IntentNone.
func (b *ButtonClassifier) Classify(state, changed uint32) Intent {
	if b.mask&changed == 0 {
		return IntentNone
	}

	if b.mask&state != 0 {
		// Pressed edge: the intent is decided at release.
		b.pressed = true
		return IntentNone
	}

	if !b.pressed {
		return IntentNone
	}
	b.pressed = false

	if b.reset.WasDone() {
		b.logger.Debug("release after factory reset, ignoring")
		return IntentNone
	}
	return IntentIdentifyToggle
}
