// Package advisor asks an OpenAI-compatible chat-completions endpoint to
// explain a buyer's options in plain language, and falls back to a
// deterministic summary when the endpoint is disabled or fails.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/pkg/affordability"
	"github.com/iwvelando/vehicle-finance/pkg/format"
	"go.uber.org/zap"
)

const (
	// DefaultURL is the public OpenAI chat-completions endpoint.
	DefaultURL = "https://api.openai.com/v1/chat/completions"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 30 * time.Second

	maxTokens    = 300
	maxErrorBody = 512

	systemPrompt = "You are a careful auto finance advisor. Explain financing and leasing options " +
		"clearly, use the exact dollar amounts you are given, and never invent rates or prices."
)

// Source values for Advice.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Options configures an Advisor.
type Options struct {
	Enabled bool
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Request is everything the advice is about.
type Request struct {
	Input   plan.UserInput      `json:"input"`
	Range   affordability.Range `json:"range"`
	Options []plan.Option       `json:"options"`
}

// Advice is the text shown to the buyer and where it came from.
type Advice struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Advisor produces Advice.
type Advisor struct {
	opts       Options
	httpClient *http.Client
	logger     *zap.Logger
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// New creates an Advisor. Missing URL, model and timeout take their defaults.
func New(opts Options, logger *zap.Logger) *Advisor {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// Advise returns model-written advice for req, or the fallback summary when
// the advisor is disabled or the call fails. It never returns an error.
func (a *Advisor) Advise(ctx context.Context, req Request) Advice {
	if !a.opts.Enabled {
		return Advice{Text: Fallback(req), Source: SourceFallback}
	}

	text, err := a.complete(ctx, BuildPrompt(req))
	if err != nil {
		a.logger.Warn("advice request failed, using fallback",
			zap.String("op", "advisor.Advise"),
			zap.String("url", a.opts.URL),
			zap.Error(err),
		)
		return Advice{Text: Fallback(req), Source: SourceFallback}
	}
	return Advice{Text: text, Source: SourceModel}
}

func (a *Advisor) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.opts.APIKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion has no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("completion is empty")
	}
	return text, nil
}

// BuildPrompt renders req as the user message of a completion request.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Help this buyer choose how to pay for a vehicle.\n\nBUYER:\n")
	fmt.Fprintf(&b, "- Annual income: %s\n", format.Currency(req.Input.Income))
	fmt.Fprintf(&b, "- Credit score: %d\n", req.Input.CreditScore)
	fmt.Fprintf(&b, "- Down payment: %s\n", format.Currency(req.Input.DownPayment))
	fmt.Fprintf(&b, "- Preferred loan term: %d years\n", req.Input.LoanTermYears)
	if req.Input.MinSeats > 0 {
		fmt.Fprintf(&b, "- Needs at least %d seats\n", req.Input.MinSeats)
	}
	if prefs := strings.TrimSpace(req.Input.Preferences); prefs != "" {
		fmt.Fprintf(&b, "- In their words: %q\n", prefs)
	}
	fmt.Fprintf(&b, "- Comfortable price range: %s to %s\n", format.Currency(req.Range.Min), format.Currency(req.Range.Max))

	b.WriteString("\nOPTIONS:\n")
	for _, option := range req.Options {
		fmt.Fprintf(&b, "- %s at %s\n", vehicleName(option.Vehicle), format.Currency(option.Vehicle.Price))
		if f, ok := option.Financing.Financing(); ok {
			fmt.Fprintf(&b, "  - Finance: %s/month for %d years at %s, %s total\n",
				format.Currency(f.MonthlyPayment), f.TermYears, format.Percent(f.AnnualRate), format.Currency(f.TotalCost))
		}
		if l, ok := option.Leasing.Leasing(); ok {
			fmt.Fprintf(&b, "  - Lease: %s/month for %d months, %s due at signing\n",
				format.Currency(l.MonthlyPayment), l.TermMonths, format.Currency(l.DueAtSigning))
		}
	}

	b.WriteString("\nIn 3-4 sentences, recommend one option and say whether to finance or lease it. " +
		"Mention the monthly payment and whether the price fits the comfortable range.")
	return b.String()
}

// Fallback summarises req without a model: the in-range vehicle with the
// lowest monthly payment, or the lowest overall when none is in range.
func Fallback(req Request) string {
	type candidate struct {
		vehicle plan.Vehicle
		kind    plan.Type
		monthly float64
	}

	var candidates []candidate
	for _, option := range req.Options {
		for _, p := range []plan.VehiclePlan{option.Financing, option.Leasing} {
			if p.IsZero() {
				continue
			}
			candidates = append(candidates, candidate{vehicle: option.Vehicle, kind: p.Type(), monthly: p.MonthlyPayment()})
		}
	}
	if len(candidates) == 0 {
		return fmt.Sprintf("No vehicles match your requirements yet. Based on your income and credit, a price between %s and %s should be comfortable.",
			format.Currency(req.Range.Min), format.Currency(req.Range.Max))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ii, ji := req.Range.Contains(candidates[i].vehicle.Price), req.Range.Contains(candidates[j].vehicle.Price)
		if ii != ji {
			return ii
		}
		if candidates[i].monthly != candidates[j].monthly {
			return candidates[i].monthly < candidates[j].monthly
		}
		return candidates[i].vehicle.ID < candidates[j].vehicle.ID
	})
	best := candidates[0]

	verb := "Financing"
	if best.kind == plan.Leasing {
		verb = "Leasing"
	}
	fit := "is within"
	if !req.Range.Contains(best.vehicle.Price) {
		fit = "is outside"
	}
	return fmt.Sprintf("%s the %s keeps your payment lowest at %s per month. Its price of %s %s your comfortable range of %s to %s.",
		verb, vehicleName(best.vehicle), format.Currency(best.monthly),
		format.Currency(best.vehicle.Price), fit, format.Currency(req.Range.Min), format.Currency(req.Range.Max))
}

func vehicleName(v plan.Vehicle) string {
	if v.Model != "" {
		return v.Model
	}
	return v.ID
}
