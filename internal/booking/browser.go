package booking

import (
	"context"
	"time"
)

// StepResult is the envelope every browser capability call returns. Callers
// never assume success; a failed step is data, not an error.
type StepResult struct {
	Success bool
	Output  string
	Err     string
}

// Browser is the automation capability boundary. Implementations own one
// page/session; Close must always release it.
type Browser interface {
	Open(ctx context.Context, url string) StepResult
	// Snapshot returns the visible page text of the main document.
	Snapshot(ctx context.Context) StepResult
	// Click targets a CSS selector when given, otherwise the first control
	// whose visible text contains one of the candidates (checked in order).
	Click(ctx context.Context, selector string, textCandidates []string) StepResult
	// Fill targets a CSS selector when given, otherwise an input whose
	// label text contains one of the candidates.
	Fill(ctx context.Context, selector string, labelCandidates []string, value string) StepResult
	Select(ctx context.Context, selector, value string) StepResult
	Press(ctx context.Context, key string) StepResult
	Wait(ctx context.Context, selector string, timeout time.Duration) StepResult
	Screenshot(ctx context.Context, path string) StepResult
	// Text returns all visible page text including embedded frames.
	Text(ctx context.Context) StepResult
	Eval(ctx context.Context, expression string) StepResult
	Close(ctx context.Context) StepResult
}

// BrowserFactory opens a fresh session per booking attempt. Sessions are
// never shared across items.
type BrowserFactory func() Browser

// Profile holds the user fields the executor may fill into checkout forms.
type Profile struct {
	FullName string
	Email    string
	Phone    string
	Dietary  string
}
