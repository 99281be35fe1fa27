package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/vehicle-finance/internal/advisor"
	"github.com/iwvelando/vehicle-finance/internal/garage"
	"github.com/iwvelando/vehicle-finance/internal/plan"
	"github.com/iwvelando/vehicle-finance/internal/store"
	"github.com/iwvelando/vehicle-finance/internal/tracking"
	"github.com/iwvelando/vehicle-finance/pkg/validation"
	"go.uber.org/zap"
)

var testCatalog = []plan.Vehicle{
	{ID: "accord", Model: "Honda Accord", Price: 32000, Seats: 5},
	{ID: "corolla", Model: "Toyota Corolla", Price: 28000, Seats: 5},
}

const testInput = `{"income": 90000, "creditScore": 720, "downPayment": 5000, "loanTermYears": 5}`

func newTestHandler(t *testing.T, opts Options) http.Handler {
	t.Helper()
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	svc := garage.New(store.NewMemory(), testCatalog, zap.NewNop(), garage.WithClock(func() time.Time { return now }))
	return NewHandler(svc, zap.NewNop(), opts)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func selection(t *testing.T, vehicle plan.Vehicle, planType plan.Type) string {
	t.Helper()
	p, err := plan.Build(vehicle.Price, plan.UserInput{DownPayment: 5000, LoanTermYears: 5}, 0.065, planType)
	if err != nil {
		t.Fatalf("plan.Build() error = %v", err)
	}
	body, err := json.Marshal(selectionRequest{Vehicle: vehicle, Plan: p})
	if err != nil {
		t.Fatalf("failed to encode selection: %v", err)
	}
	return string(body)
}

func TestHandleVersion(t *testing.T) {
	rr := do(t, newTestHandler(t, Options{Version: " 1.2.3 "}), http.MethodGet, "/api/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["version"] != "1.2.3" {
		t.Fatalf("expected version 1.2.3, got %q", resp["version"])
	}

	rr = do(t, newTestHandler(t, Options{}), http.MethodGet, "/api/version", "")
	decodeBody(t, rr, &resp)
	if resp["version"] != "dev" {
		t.Fatalf("expected version dev, got %q", resp["version"])
	}
}

func TestHandlePlans(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := do(t, h, http.MethodPost, "/api/plans", `{"input": `+testInput+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Options []plan.Option `json:"options"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(resp.Options))
	}
	if f, ok := resp.Options[0].Financing.Financing(); !ok || f.MonthlyPayment != 528.29 {
		t.Fatalf("unexpected financing plan %+v", resp.Options[0].Financing)
	}

	rr = do(t, h, http.MethodPost, "/api/plans", `{"input": `+testInput+`, "vehicles": [{"id": "civic", "price": 24000}]}`)
	decodeBody(t, rr, &resp)
	if len(resp.Options) != 1 || resp.Options[0].Vehicle.ID != "civic" {
		t.Fatalf("expected the supplied vehicle, got %+v", resp.Options)
	}
}

func TestHandlePlansRejects(t *testing.T) {
	h := newTestHandler(t, Options{MaxUploadSize: 256})

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"Malformed JSON", http.MethodPost, `{"input":`, http.StatusBadRequest},
		{"Unknown field", http.MethodPost, `{"input": {}, "surprise": 1}`, http.StatusBadRequest},
		{"Negative term", http.MethodPost, `{"input": {"loanTermYears": -1}}`, http.StatusBadRequest},
		{"Too large", http.MethodPost, `{"input": {"preferences": "` + strings.Repeat("x", 512) + `"}}`, http.StatusRequestEntityTooLarge},
		{"Wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, "/api/plans", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleAffordability(t *testing.T) {
	rr := do(t, newTestHandler(t, Options{}), http.MethodPost, "/api/affordability", `{"input": `+testInput+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	decodeBody(t, rr, &resp)
	if resp.Max < 62497 || resp.Max > 62498 || resp.Min >= resp.Max {
		t.Fatalf("unexpected range %+v", resp)
	}
}

func evaluateRequest(t *testing.T, contents string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "config.yaml")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(contents)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHandleEvaluate(t *testing.T) {
	config := `
profile:
  income: 90000
  creditScore: 720
  downPayment: 5000
  loanTermYears: 5
vehicles:
  - id: civic
    model: Honda Civic
    price: 24000
  - id: exotic
    price: 250000
`
	rr := httptest.NewRecorder()
	newTestHandler(t, Options{}).ServeHTTP(rr, evaluateRequest(t, config))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp evaluateResponse
	decodeBody(t, rr, &resp)
	if len(resp.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(resp.Options))
	}
	if !strings.HasPrefix(resp.CSV, "vehicle,model,plan") || strings.Count(resp.CSV, "\n") != 5 {
		t.Fatalf("unexpected CSV %q", resp.CSV)
	}
	if len(resp.Warnings) != 1 || !strings.Contains(resp.Warnings[0], "'exotic'") {
		t.Fatalf("expected a warning about the exotic, got %v", resp.Warnings)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
}

func TestHandleEvaluateRejects(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, evaluateRequest(t, "output:\n  format: xml\n"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for invalid config, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a multipart body, got %d", rr.Code)
	}

	small := newTestHandler(t, Options{MaxUploadSize: 64})
	rr = httptest.NewRecorder()
	small.ServeHTTP(rr, evaluateRequest(t, strings.Repeat("# padding\n", 50)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestLoanLifecycle(t *testing.T) {
	h := newTestHandler(t, Options{})
	body := selection(t, testCatalog[0], plan.Financing)

	rr := do(t, h, http.MethodPost, "/api/users/alice/loans", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var committed tracking.CommitResult
	decodeBody(t, rr, &committed)
	loanID := committed.Loan.ID
	if loanID != tracking.LoanID("accord", plan.Financing) || committed.AlreadyCommitted {
		t.Fatalf("unexpected commit result %+v", committed)
	}

	rr = do(t, h, http.MethodPost, "/api/users/alice/loans", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for a repeat commit, got %d", rr.Code)
	}
	decodeBody(t, rr, &committed)
	if !committed.AlreadyCommitted {
		t.Fatal("expected alreadyCommitted on the repeat commit")
	}

	paymentPath := fmt.Sprintf("/api/users/alice/loans/%s/payments", loanID)
	rr = do(t, h, http.MethodPost, paymentPath, `{"amount": 1000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for a payment, got %d: %s", rr.Code, rr.Body.String())
	}
	var loan tracking.ActiveLoan
	decodeBody(t, rr, &loan)
	if loan.AmountLeft != 26000 {
		t.Fatalf("expected 26000 left, got %.2f", loan.AmountLeft)
	}

	rejects := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"Overpayment", paymentPath, `{"amount": 99999}`, http.StatusBadRequest},
		{"Zero payment", paymentPath, `{"amount": 0}`, http.StatusBadRequest},
		{"Missing amount", paymentPath, `{}`, http.StatusBadRequest},
		{"Unknown loan", "/api/users/alice/loans/nope/payments", `{"amount": 10}`, http.StatusNotFound},
		{"Other user", "/api/users/bob/loans/" + loanID + "/payments", `{"amount": 10}`, http.StatusNotFound},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			var resp map[string]string
			decodeBody(t, rr, &resp)
			if resp["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}

	rr = do(t, h, http.MethodGet, "/api/users/alice/loans", "")
	var loans struct {
		Loans []tracking.ActiveLoan `json:"loans"`
	}
	decodeBody(t, rr, &loans)
	if len(loans.Loans) != 1 || loans.Loans[0].AmountLeft != 26000 {
		t.Fatalf("unexpected loans %+v", loans.Loans)
	}

	rr = do(t, h, http.MethodGet, "/api/users/alice/status", "")
	var statuses struct {
		Loans []tracking.LoanStatus `json:"loans"`
	}
	decodeBody(t, rr, &statuses)
	if len(statuses.Loans) != 1 || !statuses.Loans[0].OnTrack {
		t.Fatalf("unexpected statuses %+v", statuses.Loans)
	}
}

func TestCommitRejectsIncompleteSelection(t *testing.T) {
	h := newTestHandler(t, Options{})
	rr := do(t, h, http.MethodPost, "/api/users/alice/loans", `{"vehicle": {"id": "accord", "price": 32000}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a plan, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/api/users/alice/loans", `{"vehicle": {"id": "accord"}, "plan": {"type": "barter"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for an unknown plan type, got %d", rr.Code)
	}
}

func TestCommitRejectsImpossiblePlan(t *testing.T) {
	h := newTestHandler(t, Options{})
	bodies := []string{
		`{"vehicle": {"id": "accord"}, "plan": {"type": "financing", "financing": {"loanAmount": -5000, "monthlyPayment": 0, "termYears": -2}}}`,
		`{"vehicle": {"id": "accord"}, "plan": {"type": "financing", "financing": {"loanAmount": 27000, "monthlyPayment": 0, "totalCost": 27000, "termYears": 5}}}`,
	}
	for _, body := range bodies {
		rr := do(t, h, http.MethodPost, "/api/users/alice/loans", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for %s, got %d: %s", body, rr.Code, rr.Body.String())
		}
	}

	rr := do(t, h, http.MethodGet, "/api/users/alice/loans", "")
	var resp struct {
		Loans []tracking.ActiveLoan `json:"loans"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Loans) != 0 {
		t.Fatalf("expected nothing stored, got %d loans", len(resp.Loans))
	}
}

func TestHandleSchedule(t *testing.T) {
	h := newTestHandler(t, Options{})
	do(t, h, http.MethodPost, "/api/users/alice/loans", selection(t, testCatalog[1], plan.Leasing))

	tests := []struct {
		name     string
		query    string
		status   int
		payments int
	}{
		{"Default window", "", http.StatusOK, 12},
		{"Explicit window", "?from=2026-01-01&months=4", http.StatusOK, 2},
		{"Bad date", "?from=03/14/2026", http.StatusBadRequest, 0},
		{"Bad months", "?months=zero", http.StatusBadRequest, 0},
		{"Non-positive months", "?months=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, "/api/users/alice/schedule"+tt.query, "")
			if rr.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp struct {
				Payments []tracking.PaymentEvent `json:"payments"`
			}
			decodeBody(t, rr, &resp)
			if len(resp.Payments) != tt.payments {
				t.Fatalf("expected %d payments, got %d", tt.payments, len(resp.Payments))
			}
		})
	}
}

func TestHandleSavedPlans(t *testing.T) {
	h := newTestHandler(t, Options{})

	rr := do(t, h, http.MethodPost, "/api/users/alice/plans", selection(t, testCatalog[0], plan.Leasing))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/api/users/alice/plans", "")
	var resp struct {
		Plans []store.SavedPlan `json:"plans"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Plans) != 1 || resp.Plans[0].Plan.Type() != plan.Leasing {
		t.Fatalf("unexpected saved plans %+v", resp.Plans)
	}
}

func TestHandleAdvice(t *testing.T) {
	h := newTestHandler(t, Options{AdviceLimiter: NewRateLimiter(1, time.Hour)})

	rr := do(t, h, http.MethodPost, "/api/advice", `{"input": `+testInput+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var advice advisor.Advice
	decodeBody(t, rr, &advice)
	if advice.Source != advisor.SourceFallback || advice.Text == "" {
		t.Fatalf("unexpected advice %+v", advice)
	}

	rr = do(t, h, http.MethodPost, "/api/advice", `{"input": `+testInput+`}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&validation.ValidationError{Field: "x", Reason: "bad"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", validation.ErrPeriodAlreadyPaid), http.StatusBadRequest},
		{fmt.Errorf("loan x: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{errors.New("redis is down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, expected %d", tt.err, got, tt.status)
		}
	}
}
