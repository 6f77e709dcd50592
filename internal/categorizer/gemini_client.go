package categorizer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"fjacquet/statement-csv/internal/logging"
	"fjacquet/statement-csv/internal/models"
	"fjacquet/statement-csv/internal/parsererror"

	"github.com/google/generative-ai-go/genai"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// ErrMissingAPIKey is returned by NewGeminiClassifier without an API key.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set")

// GeminiConfig configures the Gemini remote classifier.
type GeminiConfig struct {
	APIKey            string
	Model             string
	RequestsPerMinute int
	TimeoutSeconds    int
	// Fallback replaces answers that match no allowed category.
	Fallback string
}

// GeminiClassifier implements RemoteClassifier with the Google Gemini API.
// Calls are throttled by a token-bucket limiter shared by all goroutines.
type GeminiClassifier struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	limiter  *rate.Limiter
	timeout  time.Duration
	fallback string
	logger   logging.Logger
}

// NewGeminiClassifier creates a Gemini client. It fails with ErrMissingAPIKey
// when cfg.APIKey is empty.
func NewGeminiClassifier(ctx context.Context, cfg GeminiConfig, logger logging.Logger) (*GeminiClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0.3)

	return &GeminiClassifier{
		client:   client,
		model:    model,
		limiter:  newLimiter(cfg.RequestsPerMinute),
		timeout:  timeoutOrDefault(cfg.TimeoutSeconds),
		fallback: cfg.Fallback,
		logger:   logging.OrDefault(logger),
	}, nil
}

func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

func timeoutOrDefault(seconds int) time.Duration {
	if seconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

// Close releases the underlying client.
func (g *GeminiClassifier) Close() error {
	return g.client.Close()
}

// ClassifyRemote asks Gemini for one of allowed and resolves the answer.
func (g *GeminiClassifier) ClassifyRemote(ctx context.Context, tx models.Transaction, allowed []string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", &parsererror.RemoteClassificationError{Kind: parsererror.RemoteUnavailable, Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(callCtx, genai.Text(BuildPrompt(tx, allowed)))
	if err != nil {
		return "", remoteFailure(err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &parsererror.RemoteClassificationError{
			Kind: parsererror.RemoteRejected,
			Err:  errors.New("empty response from Gemini"),
		}
	}

	answer := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	category := ResolveCategory(answer, allowed)
	if category == models.CategoryOther && g.fallback != "" {
		category = g.fallback
	}
	g.logger.WithFields(
		logging.F(logging.FieldDescription, tx.Description),
		logging.F("answer", strings.TrimSpace(answer)),
		logging.F(logging.FieldCategory, category),
	).Debug("Gemini classified transaction")
	return category, nil
}

// remoteFailure tags network and deadline failures as unavailable and any
// other API error as a rejection.
func remoteFailure(err error) error {
	kind := parsererror.RemoteRejected
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr) {
		kind = parsererror.RemoteUnavailable
	}
	return &parsererror.RemoteClassificationError{Kind: kind, Err: err}
}

// BuildPrompt renders the classification request for one transaction.
func BuildPrompt(tx models.Transaction, allowed []string) string {
	return fmt.Sprintf(`Classify the following bank transaction into ONE of these categories: %s.

Transaction:
- Concept: %s
- Detail: %s
- Amount: %s €
- Kind: %s

Answer with the category name only, without explanations or extra text.`,
		strings.Join(allowed, ", "),
		tx.Concept,
		tx.Description,
		tx.Amount.StringFixed(2),
		tx.Kind)
}

// ResolveCategory maps a free-form answer onto allowed: exact match, then
// case-insensitive match, then the containing or contained category with the
// smallest fuzzy distance. Anything else is CategoryOther.
func ResolveCategory(answer string, allowed []string) string {
	answer = strings.Trim(strings.TrimSpace(answer), "\"'`*.")
	if answer == "" {
		return models.CategoryOther
	}
	for _, c := range allowed {
		if c == answer {
			return c
		}
	}
	for _, c := range allowed {
		if strings.EqualFold(c, answer) {
			return c
		}
	}

	lower := strings.ToLower(answer)
	best, bestRank := "", -1
	for _, c := range allowed {
		cl := strings.ToLower(c)
		rank := -1
		switch {
		case strings.Contains(lower, cl):
			rank = fuzzy.RankMatchFold(c, answer)
		case strings.Contains(cl, lower):
			rank = fuzzy.RankMatchFold(answer, c)
		}
		if rank >= 0 && (bestRank < 0 || rank < bestRank) {
			best, bestRank = c, rank
		}
	}
	if best == "" {
		return models.CategoryOther
	}
	return best
}
