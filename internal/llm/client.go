// Package llm реализует клиент OpenAI-совместимого chat completions API
// для генерации рецептов. Ответ модели обязан быть строгим JSON-объектом;
// искажённый ответ переспрашивается один раз, после чего генерация
// считается неудавшейся.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Ошибки клиента, по которым вызывающая сторона выбирает деградацию.
var (
	// ErrUnavailable — модель недоступна на транспортном уровне.
	ErrUnavailable = errors.New("llm service unavailable")
	// ErrMalformedResponse — модель дважды вернула некорректный JSON.
	ErrMalformedResponse = errors.New("llm returned malformed recipe payload")
)

const systemPrompt = `You are a recipe generator. Respond with a single JSON object and nothing else.
The object must have exactly these fields: "title" (string), "ingredients" (array of strings,
each a grocery line like "2 lbs chicken breast, diced"), "instructions" (array of strings),
"nutrition" (object with integer fields "calories", "protein", "carbs", "fat" per serving),
"estimated_cost" (number, USD). Do not wrap the JSON in markdown fences.`

// Client — клиент генерации рецептов.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New создаёт новый клиент генерации рецептов.
func New(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateRecipe запрашивает у модели рецепт по заданным параметрам.
// Некорректный JSON в ответе переспрашивается один раз; транспортная
// недоступность возвращается как ErrUnavailable без повторов.
func (c *Client) GenerateRecipe(ctx context.Context, genReq GenerationRequest) (*GeneratedRecipe, error) {
	const op = "llm.GenerateRecipe"

	prompt := buildPrompt(genReq)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		recipe, err := c.complete(ctx, prompt)
		if err == nil {
			return recipe, nil
		}
		if !errors.Is(err, ErrMalformedResponse) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s: %w", op, lastErr)
}

func (c *Client) complete(ctx context.Context, prompt string) (*GeneratedRecipe, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.7,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}

	content := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	var recipe GeneratedRecipe
	if err := json.Unmarshal([]byte(content), &recipe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if recipe.Title == "" || len(recipe.Ingredients) == 0 || len(recipe.Instructions) == 0 {
		return nil, fmt.Errorf("%w: required fields missing", ErrMalformedResponse)
	}
	return &recipe, nil
}

func buildPrompt(genReq GenerationRequest) string {
	var b strings.Builder

	switch genReq.Kind {
	case "weekly_plan":
		b.WriteString("Generate one dinner recipe for a weekly meal plan.\n")
	case "specialty_drink":
		b.WriteString("Generate a specialty drink recipe (coffee-shop or cocktail style).\n")
	default:
		b.WriteString("Generate a dinner recipe.\n")
	}

	fmt.Fprintf(&b, "Cuisine: %s.\n", genReq.Cuisine)
	fmt.Fprintf(&b, "Difficulty: %s.\n", genReq.Difficulty)
	fmt.Fprintf(&b, "Servings: %d.\n", genReq.Servings)
	if len(genReq.Dietary) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions: %s.\n", strings.Join(genReq.Dietary, ", "))
	}
	if len(genReq.OnHand) > 0 {
		fmt.Fprintf(&b, "Prefer using these on-hand ingredients: %s.\n", strings.Join(genReq.OnHand, ", "))
	}
	if genReq.Description != "" {
		fmt.Fprintf(&b, "Extra wishes: %s.\n", genReq.Description)
	}
	return b.String()
}
