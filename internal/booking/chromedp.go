package booking

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeBrowser implements Browser on a headless Chrome session via
// chromedp. One instance owns one tab; Close releases the whole allocator.
type ChromeBrowser struct {
	logger      *slog.Logger
	stepTimeout time.Duration

	browserCtx context.Context
	cancels    []context.CancelFunc
}

// NewChromeBrowser starts a fresh headless session.
func NewChromeBrowser(logger *slog.Logger, headless bool, stepTimeout time.Duration) *ChromeBrowser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &ChromeBrowser{
		logger:      logger,
		stepTimeout: stepTimeout,
		browserCtx:  browserCtx,
		cancels:     []context.CancelFunc{cancelBrowser, cancelAlloc},
	}
}

func (b *ChromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.browserCtx, b.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func ok(output string) StepResult {
	return StepResult{Success: true, Output: output}
}

func fail(err error) StepResult {
	return StepResult{Err: err.Error()}
}

func (b *ChromeBrowser) Open(ctx context.Context, url string) StepResult {
	if err := b.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fail(err)
	}
	return ok("")
}

func (b *ChromeBrowser) Snapshot(ctx context.Context) StepResult {
	var text string
	if err := b.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text)); err != nil {
		return fail(err)
	}
	return ok(text)
}

const clickByTextJS = `(function(candidates) {
	const controls = document.querySelectorAll('button, a, input[type=submit], [role=button]');
	for (const candidate of candidates) {
		for (const el of controls) {
			const label = (el.innerText || el.value || '').trim().toLowerCase();
			if (label.includes(candidate)) { el.click(); return true; }
		}
	}
	return false;
})(%s)`

func (b *ChromeBrowser) Click(ctx context.Context, selector string, textCandidates []string) StepResult {
	if selector != "" {
		if err := b.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
			return fail(err)
		}
		return ok("")
	}

	var clicked bool
	expr := fmt.Sprintf(clickByTextJS, jsStringArray(textCandidates))
	if err := b.run(ctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return fail(err)
	}
	if !clicked {
		return StepResult{Err: "no matching control"}
	}
	return ok("")
}

const fillByLabelJS = `(function(candidates, value) {
	const labels = document.querySelectorAll('label');
	for (const candidate of candidates) {
		for (const label of labels) {
			if (!label.innerText.toLowerCase().includes(candidate)) continue;
			let input = null;
			if (label.htmlFor) input = document.getElementById(label.htmlFor);
			if (!input) input = label.querySelector('input, textarea');
			if (input) {
				input.value = value;
				input.dispatchEvent(new Event('input', {bubbles: true}));
				input.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
	}
	return false;
})(%s, %q)`

func (b *ChromeBrowser) Fill(ctx context.Context, selector string, labelCandidates []string, value string) StepResult {
	if selector != "" {
		err := b.run(ctx,
			chromedp.Clear(selector, chromedp.ByQuery),
			chromedp.SendKeys(selector, value, chromedp.ByQuery),
		)
		if err == nil {
			return ok("")
		}
		// Selector miss is common; fall through to the label heuristic.
	}

	var filled bool
	expr := fmt.Sprintf(fillByLabelJS, jsStringArray(labelCandidates), value)
	if err := b.run(ctx, chromedp.Evaluate(expr, &filled)); err != nil {
		return fail(err)
	}
	if !filled {
		return StepResult{Err: "no matching input"}
	}
	return ok("")
}

func (b *ChromeBrowser) Select(ctx context.Context, selector, value string) StepResult {
	if err := b.run(ctx, chromedp.SetValue(selector, value, chromedp.ByQuery)); err != nil {
		return fail(err)
	}
	return ok("")
}

func (b *ChromeBrowser) Press(ctx context.Context, key string) StepResult {
	if err := b.run(ctx, chromedp.KeyEvent(key)); err != nil {
		return fail(err)
	}
	return ok("")
}

func (b *ChromeBrowser) Wait(ctx context.Context, selector string, timeout time.Duration) StepResult {
	waitCtx, cancel := context.WithTimeout(b.browserCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)) }()

	select {
	case <-ctx.Done():
		return fail(ctx.Err())
	case err := <-done:
		if err != nil {
			return fail(err)
		}
		return ok("")
	}
}

func (b *ChromeBrowser) Screenshot(ctx context.Context, path string) StepResult {
	var buf []byte
	if err := b.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return fail(err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fail(err)
	}
	return ok(path)
}

const allTextJS = `(function() {
	let text = document.body ? document.body.innerText : '';
	for (const frame of document.querySelectorAll('iframe')) {
		try {
			if (frame.contentDocument && frame.contentDocument.body) {
				text += '\n' + frame.contentDocument.body.innerText;
			}
		} catch (e) { /* cross-origin frame */ }
	}
	return text;
})()`

func (b *ChromeBrowser) Text(ctx context.Context) StepResult {
	var text string
	if err := b.run(ctx, chromedp.Evaluate(allTextJS, &text)); err != nil {
		return fail(err)
	}
	return ok(text)
}

func (b *ChromeBrowser) Eval(ctx context.Context, expression string) StepResult {
	var out string
	if err := b.run(ctx, chromedp.Evaluate(fmt.Sprintf(`String(%s)`, expression), &out)); err != nil {
		return fail(err)
	}
	return ok(out)
}

func (b *ChromeBrowser) Close(ctx context.Context) StepResult {
	for _, cancel := range b.cancels {
		cancel()
	}
	return ok("")
}

func jsStringArray(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", strings.ToLower(s))
	}
	return "[" + strings.Join(quoted, ",") + "]"
}
