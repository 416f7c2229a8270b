package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashwinsom/curryleaf/models"
	"github.com/ashwinsom/curryleaf/utils"
)

// Suggestion is one ranked recommendation shown to a customer.
type Suggestion struct {
	FoodID uint            `json:"food_id"`
	Name   string          `json:"name"`
	Reason string          `json:"reason"`
	Image  string          `json:"image,omitempty"`
	Price  decimal.Decimal `json:"price"`
}

// Provider is the suggestion gateway. Implementations must fail open: on
// any upstream problem (including rate limiting) they return a
// deterministic fallback, never an error that could block the order or
// cart flow. A nil/empty result is a valid answer.
type Provider interface {
	SuggestPairing(ctx context.Context, foodID uint) (*Suggestion, error)
	SuggestUpsells(ctx context.Context, cartFoodIDs []uint) ([]Suggestion, error)
	SuggestMenu(ctx context.Context) ([]Suggestion, error)
	SuggestNextOrder(ctx context.Context, orderID uint) ([]Suggestion, error)
	// PostOrderScreen is fire-and-forget; it records nothing the caller
	// waits on.
	PostOrderScreen(ctx context.Context, orderID uint)
}

const fallbackCount = 3

// FallbackProvider serves deterministic suggestions straight from the
// menu catalog: the first N available items, name order. It is both the
// standalone provider when no AI is configured and the fail-open path of
// the AI provider.
type FallbackProvider struct {
	food *FoodService
}

func NewFallbackProvider(food *FoodService) *FallbackProvider {
	return &FallbackProvider{food: food}
}

func (p *FallbackProvider) SuggestPairing(ctx context.Context, foodID uint) (*Suggestion, error) {
	items, err := p.food.GetFoodItems(ctx)
	if err != nil {
		return nil, nil
	}
	for _, item := range items {
		if item.ID != foodID {
			s := toSuggestion(item, "This pairs perfectly with your selection!")
			return &s, nil
		}
	}
	return nil, nil
}

func (p *FallbackProvider) SuggestUpsells(ctx context.Context, cartFoodIDs []uint) ([]Suggestion, error) {
	inCart := make(map[uint]struct{}, len(cartFoodIDs))
	for _, id := range cartFoodIDs {
		inCart[id] = struct{}{}
	}
	return p.firstAvailable(ctx, func(item models.FoodItem) bool {
		_, ok := inCart[item.ID]
		return !ok
	}, "Customers often add this to their order."), nil
}

func (p *FallbackProvider) SuggestMenu(ctx context.Context) ([]Suggestion, error) {
	return p.firstAvailable(ctx, func(models.FoodItem) bool { return true },
		"A house favourite."), nil
}

func (p *FallbackProvider) SuggestNextOrder(ctx context.Context, orderID uint) ([]Suggestion, error) {
	return p.firstAvailable(ctx, func(models.FoodItem) bool { return true },
		"Based on your last order, you might enjoy this."), nil
}

func (p *FallbackProvider) PostOrderScreen(ctx context.Context, orderID uint) {
	utils.InfoLogger.Printf("post-order screening skipped (no AI provider) order=%d", orderID)
}

func (p *FallbackProvider) firstAvailable(ctx context.Context, keep func(models.FoodItem) bool, reason string) []Suggestion {
	items, err := p.food.GetFoodItems(ctx)
	if err != nil {
		return nil
	}
	var out []Suggestion
	for _, item := range items {
		if !keep(item) {
			continue
		}
		out = append(out, toSuggestion(item, reason))
		if len(out) == fallbackCount {
			break
		}
	}
	return out
}

func toSuggestion(item models.FoodItem, reason string) Suggestion {
	return Suggestion{
		FoodID: item.ID,
		Name:   item.Name,
		Reason: reason,
		Image:  item.Image,
		Price:  item.Price,
	}
}

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// GeminiProvider asks a hosted LLM for recommendations and falls back to
// the deterministic provider on any failure. All free-text parsing lives
// behind this boundary; nothing outside ever sees raw model output.
type GeminiProvider struct {
	food     *FoodService
	apiKey   string
	client   *http.Client
	fallback *FallbackProvider
}

func NewGeminiProvider(food *FoodService, apiKey string) *GeminiProvider {
	return &GeminiProvider{
		food:     food,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
		fallback: NewFallbackProvider(food),
	}
}

func (p *GeminiProvider) SuggestPairing(ctx context.Context, foodID uint) (*Suggestion, error) {
	item, err := p.food.GetFoodItemByID(ctx, foodID)
	if err != nil {
		return p.fallback.SuggestPairing(ctx, foodID)
	}
	menu, err := p.food.GetFoodItems(ctx)
	if err != nil {
		return p.fallback.SuggestPairing(ctx, foodID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "A customer selected %q (%s). Pick ONE item from this menu that pairs well:\n",
		item.Name, item.Description)
	for _, f := range menu {
		if f.ID != foodID {
			fmt.Fprintf(&sb, "- %s: %s\n", f.Name, f.Description)
		}
	}
	sb.WriteString(`Respond as JSON: {"foodName": "exact menu name", "reason": "max 50 words"}`)

	var parsed struct {
		FoodName string `json:"foodName"`
		Reason   string `json:"reason"`
	}
	if err := p.generate(ctx, sb.String(), &parsed); err != nil {
		return p.fallback.SuggestPairing(ctx, foodID)
	}

	for _, f := range menu {
		if f.ID != foodID && strings.EqualFold(f.Name, parsed.FoodName) {
			s := toSuggestion(f, parsed.Reason)
			return &s, nil
		}
	}
	return p.fallback.SuggestPairing(ctx, foodID)
}

func (p *GeminiProvider) SuggestUpsells(ctx context.Context, cartFoodIDs []uint) ([]Suggestion, error) {
	return p.suggestSet(ctx, cartFoodIDs, "Suggest up to 3 menu items that complement the items already in the customer's cart.")
}

func (p *GeminiProvider) SuggestMenu(ctx context.Context) ([]Suggestion, error) {
	return p.suggestSet(ctx, nil, "Suggest up to 3 menu items to feature to a new customer.")
}

func (p *GeminiProvider) SuggestNextOrder(ctx context.Context, orderID uint) ([]Suggestion, error) {
	return p.suggestSet(ctx, nil, "Suggest up to 3 menu items for a returning customer's next order.")
}

func (p *GeminiProvider) PostOrderScreen(ctx context.Context, orderID uint) {
	// Screening only warms analysis state; failures are swallowed.
	if _, err := p.SuggestNextOrder(ctx, orderID); err != nil {
		utils.ErrorLogger.Printf("post-order screening failed order=%d: %v", orderID, err)
	}
	utils.InfoLogger.Printf("post-order screening completed order=%d", orderID)
}

func (p *GeminiProvider) suggestSet(ctx context.Context, excludeIDs []uint, task string) ([]Suggestion, error) {
	menu, err := p.food.GetFoodItems(ctx)
	if err != nil {
		return p.fallback.SuggestUpsells(ctx, excludeIDs)
	}

	exclude := make(map[uint]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	var sb strings.Builder
	sb.WriteString(task)
	sb.WriteString("\nMenu:\n")
	for _, f := range menu {
		if _, skip := exclude[f.ID]; skip {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", f.Name, f.Description)
	}
	sb.WriteString(`Respond as a JSON array: [{"foodName": "exact menu name", "reason": "max 30 words"}]`)

	var parsed []struct {
		FoodName string `json:"foodName"`
		Reason   string `json:"reason"`
	}
	if err := p.generate(ctx, sb.String(), &parsed); err != nil {
		return p.fallback.SuggestUpsells(ctx, excludeIDs)
	}

	var out []Suggestion
	for _, entry := range parsed {
		for _, f := range menu {
			if _, skip := exclude[f.ID]; skip {
				continue
			}
			if strings.EqualFold(f.Name, entry.FoodName) {
				out = append(out, toSuggestion(f, entry.Reason))
				break
			}
		}
	}
	if len(out) == 0 {
		return p.fallback.SuggestUpsells(ctx, excludeIDs)
	}
	return out, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) generate(ctx context.Context, prompt string, dest interface{}) error {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, geminiEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		utils.ErrorLogger.Printf("suggestion upstream unreachable: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Known rate-limit signature; expected under load, so not an error.
		utils.InfoLogger.Printf("suggestion upstream rate-limited, using fallback")
		return fmt.Errorf("rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		utils.ErrorLogger.Printf("suggestion upstream status %d", resp.StatusCode)
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return err
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("empty response")
	}

	return json.Unmarshal([]byte(extractJSON(gr.Candidates[0].Content.Parts[0].Text)), dest)
}

// extractJSON strips markdown code fences the model tends to wrap its
// JSON in.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
