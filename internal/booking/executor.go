package booking

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AgentForge-Hackathon/Agentic-Event-Orchestrator/internal/models/domain"
)

// Booking control labels, most specific first so "reserve a spot" wins over
// a generic "book" somewhere else on the page.
var bookingLabels = []string{
	"reserve a spot",
	"reserve now",
	"get tickets",
	"buy tickets",
	"register now",
	"register",
	"book now",
	"reserve",
	"book",
}

var proceedLabels = []string{
	"complete booking",
	"place order",
	"confirm booking",
	"confirm",
	"checkout",
	"continue",
	"proceed",
	"next",
	"submit",
}

var successPhrases = []string{
	"booking confirmed",
	"your order is confirmed",
	"registration complete",
	"reservation confirmed",
	"you're going",
	"thank you for your order",
}

// Keywords match case-insensitively but the code itself must be uppercase,
// otherwise prose like "booking confirmed" would capture "confirmed".
var confirmationRe = regexp.MustCompile(`(?i:confirmation|order|booking|reference)\s*(?i:number|code|id|#)?\s*[:#]?\s*([A-Z0-9][A-Z0-9-]{5,})`)

type profileField struct {
	selector string
	labels   []string
	value    func(Profile) string
}

var profileFields = []profileField{
	{"input[name='name']", []string{"full name", "name"}, func(p Profile) string { return p.FullName }},
	{"input[name='email']", []string{"email"}, func(p Profile) string { return p.Email }},
	{"input[name='phone']", []string{"phone", "mobile"}, func(p Profile) string { return p.Phone }},
	{"input[name='dietary']", []string{"dietary", "allergies"}, func(p Profile) string { return p.Dietary }},
}

// Executor runs the per-item booking state machine. Execution across items
// is strictly sequential: booking sites misbehave under concurrent automated
// sessions, and one session at a time keeps per-item diagnostics unambiguous.
type Executor struct {
	logger        *slog.Logger
	newBrowser    BrowserFactory
	profile       Profile
	maxSteps      int
	screenshotDir string
}

func NewExecutor(logger *slog.Logger, newBrowser BrowserFactory, profile Profile, maxSteps int, screenshotDir string) *Executor {
	op := "booking.NewExecutor()"
	logger.With(slog.String("op", op)).Info("creating booking executor")

	if maxSteps <= 0 {
		maxSteps = 6
	}
	return &Executor{
		logger:        logger,
		newBrowser:    newBrowser,
		profile:       profile,
		maxSteps:      maxSteps,
		screenshotDir: screenshotDir,
	}
}

// ExecuteAll books every itinerary item in order, one browser session at a
// time. A failure on one item never aborts its siblings.
func (e *Executor) ExecuteAll(ctx context.Context, items []domain.ItineraryItem, partySize int) []domain.BookingResult {
	results := make([]domain.BookingResult, 0, len(items))
	for _, item := range items {
		results = append(results, e.ExecuteItem(ctx, item, partySize))
	}
	return results
}

// ExecuteItem runs one booking attempt to a terminal status. Items with no
// source URL or with booking not required short-circuit without touching the
// browser. Everything else opens a session that is always closed, even on
// panic, and any error converts to a failed result rather than propagating.
func (e *Executor) ExecuteItem(ctx context.Context, item domain.ItineraryItem, partySize int) (result domain.BookingResult) {
	op := "booking.Executor.ExecuteItem()"
	log := e.logger.With(slog.String("op", op), slog.String("item", item.Event.Name))

	result = domain.BookingResult{
		ItemName:  item.Event.Name,
		Action:    "book",
		Timestamp: time.Now(),
	}

	if !item.BookingRequired {
		result.Status = domain.BookingStatusSkipped
		return result
	}
	if item.Event.SourceURL == "" {
		result.Status = domain.BookingStatusNoSourceURL
		return result
	}

	browser := e.newBrowser()
	defer func() {
		browser.Close(context.Background())
		if r := recover(); r != nil {
			log.Error("booking attempt panicked", slog.Any("panic", r))
			result.Status = domain.BookingStatusFailed
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	log.Info("opening booking page", slog.String("url", item.Event.SourceURL))
	if open := browser.Open(ctx, item.Event.SourceURL); !open.Success {
		result.Status = domain.BookingStatusFailed
		result.Error = fmt.Sprintf("open failed: %s", open.Err)
		return result
	}

	snapshot := browser.Snapshot(ctx)
	if !snapshot.Success {
		result.Status = domain.BookingStatusFailed
		result.Error = fmt.Sprintf("snapshot failed: %s", snapshot.Err)
		return result
	}

	// Early exits: each signal is its own terminal status and nothing else
	// is attempted.
	if status, found := earlyExitStatus(snapshot.Output); found {
		log.Info("early exit signal found", slog.String("status", string(status)))
		result.Status = status
		return result
	}

	if clicked := browser.Click(ctx, "", bookingLabels); !clicked.Success {
		log.Warn("no booking control found", slog.String("error", clicked.Err))
	}

	e.adjustQuantity(ctx, browser, partySize, log)

	prevText := ""
	for step := 0; step < e.maxSteps; step++ {
		text := browser.Text(ctx)
		if text.Success {
			if code, ok := findConfirmation(text.Output); ok {
				result.ConfirmationCode = code
				break
			}
			// Byte-for-byte identical text across two steps means the
			// page is stuck and more clicking will not help.
			if text.Output == prevText {
				log.Warn("page unchanged between steps, aborting checkout loop", slog.Int("step", step))
				break
			}
			prevText = text.Output
		}

		filled := e.fillProfileFields(ctx, browser)
		clicked := browser.Click(ctx, "", proceedLabels).Success

		if !filled && !clicked {
			log.Info("nothing left to fill or click", slog.Int("step", step))
			break
		}
	}

	if e.screenshotDir != "" {
		path := filepath.Join(e.screenshotDir, fmt.Sprintf("booking-%d.png", time.Now().UnixNano()))
		if shot := browser.Screenshot(ctx, path); shot.Success {
			result.ScreenshotPath = path
		}
	}

	// Success needs an explicit confirmation signal. Having clicked buttons
	// is not evidence of a completed booking.
	finalText := browser.Text(ctx)
	if result.ConfirmationCode == "" && finalText.Success {
		if code, ok := findConfirmation(finalText.Output); ok {
			result.ConfirmationCode = code
		}
	}

	if result.ConfirmationCode != "" || (finalText.Success && hasSuccessPhrase(finalText.Output)) {
		result.Status = domain.BookingStatusSuccess
		log.Info("booking confirmed", slog.String("confirmation", result.ConfirmationCode))
	} else {
		result.Status = domain.BookingStatusFailed
		result.Error = "no confirmation signal found"
	}

	return result
}

func earlyExitStatus(pageText string) (domain.BookingStatus, bool) {
	lower := strings.ToLower(pageText)
	switch {
	case strings.Contains(lower, "sold out"):
		return domain.BookingStatusSoldOut, true
	case strings.Contains(lower, "waitlist") || strings.Contains(lower, "waiting list"):
		return domain.BookingStatusWaitlist, true
	case strings.Contains(lower, "captcha"):
		return domain.BookingStatusCaptchaBlocked, true
	case strings.Contains(lower, "log in to continue") || strings.Contains(lower, "sign in to continue") || strings.Contains(lower, "login required"):
		return domain.BookingStatusLoginRequired, true
	}
	return "", false
}

// adjustQuantity increments a quantity stepper party-size−1 times. A missing
// stepper is tolerated: the default quantity still books one spot.
func (e *Executor) adjustQuantity(ctx context.Context, browser Browser, partySize int, log *slog.Logger) {
	if partySize <= 1 {
		return
	}
	for i := 0; i < partySize-1; i++ {
		clicked := browser.Click(ctx, "", []string{"increase quantity", "+"})
		if !clicked.Success {
			log.Debug("quantity stepper not found, proceeding with default quantity")
			return
		}
	}
}

func (e *Executor) fillProfileFields(ctx context.Context, browser Browser) bool {
	filled := false
	for _, field := range profileFields {
		value := field.value(e.profile)
		if value == "" {
			continue
		}
		if res := browser.Fill(ctx, field.selector, field.labels, value); res.Success {
			filled = true
		}
	}
	return filled
}

func findConfirmation(pageText string) (string, bool) {
	if m := confirmationRe.FindStringSubmatch(pageText); m != nil {
		return m[1], true
	}
	if hasSuccessPhrase(pageText) {
		return "", true
	}
	return "", false
}

func hasSuccessPhrase(pageText string) bool {
	lower := strings.ToLower(pageText)
	for _, phrase := range successPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
