// README: Intent extraction: completion-service JSON parsing, plain-text splitting and fallback chaining.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"friendus/internal/metrics"
)

// ErrIntentUnavailable means no intent source produced a usable answer. It is
// distinct from a successful extraction that found zero intents.
var ErrIntentUnavailable = errors.New("intent extraction unavailable")

// ParseError reports a completion response that is not the expected JSON.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "malformed intent response: " + e.Reason
}

// IntentSource turns a user message into ordered intents.
type IntentSource interface {
	Extract(ctx context.Context, message string, uc UserContext) ([]Intent, error)
}

// Completer is a chat-completion backend. Implementations live in internal/ai.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// LLMIntentSource asks a completion service for a JSON itinerary outline.
type LLMIntentSource struct {
	completer Completer
	timeout   time.Duration
}

func NewLLMIntentSource(completer Completer, timeout time.Duration) *LLMIntentSource {
	return &LLMIntentSource{completer: completer, timeout: timeout}
}

func (s *LLMIntentSource) Extract(ctx context.Context, message string, uc UserContext) ([]Intent, error) {
	if strings.TrimSpace(message) == "" {
		return nil, nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.completer.Complete(ctx, buildIntentPrompt(uc.Preferences), message)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return ParseIntentResponse(raw)
}

func buildIntentPrompt(p Preferences) string {
	location := orDefault(p.Location, "TP.HCM")
	timeRange := orDefault(p.TimeRange, "09:00 - 21:00")
	budget := orDefault(p.Budget, "không giới hạn")
	companions := orDefault(p.Companions, "không rõ")
	interests := "không rõ"
	if len(p.Interests) > 0 {
		interests = strings.Join(p.Interests, ", ")
	}

	return fmt.Sprintf(`Bạn là trợ lý du lịch (Trip Planner).
Nhiệm vụ: chia yêu cầu của người dùng thành các điểm đến cụ thể tại %s, theo đúng thứ tự.

NGỮ CẢNH:
- Thời gian: %s
- Ngân sách: %s | Nhóm: %s
- Sở thích: %s

QUY TẮC:
- Mỗi phần tử là MỘT địa điểm có thể tìm trên bản đồ.
- "search_query" ngắn gọn, là tên địa điểm hoặc loại địa điểm kèm khu vực (VD: "Cơm tấm Ba Ghiền", "Bảo tàng Chứng tích Chiến tranh").
- Không thêm địa điểm người dùng không yêu cầu.

CHỈ TRẢ VỀ JSON (mảng), không giải thích:
[
  {
    "search_query": "Tên địa điểm ngắn gọn",
    "description": "Lý do chọn nơi này",
    "estimated_duration": "Thời gian ở lại (VD: 60 phút, 1 tiếng 30 phút)"
  }
]`, location, timeRange, budget, companions, interests)
}

type rawIntent struct {
	SearchQuery       string          `json:"search_query"`
	Description       string          `json:"description"`
	EstimatedDuration json.RawMessage `json:"estimated_duration"`
}

// ParseIntentResponse strictly decodes a completion response. Markdown fences
// and prose around the JSON array are tolerated; anything else is a *ParseError.
func ParseIntentResponse(raw string) ([]Intent, error) {
	body := CleanJSON(raw)
	if body == "" {
		return nil, &ParseError{Reason: "empty response", Raw: raw}
	}

	items, err := decodeIntentArray(body)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: raw}
	}

	intents := make([]Intent, 0, len(items))
	for _, it := range items {
		query := strings.TrimSpace(it.SearchQuery)
		desc := strings.TrimSpace(it.Description)
		if query == "" {
			query = desc
		}
		if query == "" {
			continue
		}
		intents = append(intents, Intent{
			SearchQuery:     query,
			Description:     desc,
			DurationMinutes: ParseDurationMinutes(durationText(it.EstimatedDuration)),
		})
	}
	return intents, nil
}

// decodeIntentArray decodes the first intent array in body, trying each '['
// in turn so bracketed prose before the payload is skipped. Text after the
// array is ignored.
func decodeIntentArray(body string) ([]rawIntent, error) {
	var firstErr error
	for offset := 0; offset < len(body); {
		i := strings.IndexByte(body[offset:], '[')
		if i < 0 {
			break
		}
		start := offset + i
		var items []rawIntent
		err := json.NewDecoder(strings.NewReader(body[start:])).Decode(&items)
		if err == nil {
			return items, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		offset = start + 1
	}
	if firstErr != nil {
		return nil, firstErr
	}
	var items []rawIntent
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// durationText accepts the duration either as a JSON string or a bare number of minutes.
func durationText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return strconv.Itoa(int(math.Round(n)))
	}
	return ""
}

// CleanJSON removes markdown code fences around a JSON payload.
func CleanJSON(input string) string {
	input = strings.TrimSpace(input)
	if i := strings.Index(input, "```"); i >= 0 {
		rest := input[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		input = rest
	}
	return strings.TrimSpace(input)
}

// TextSplitIntentSource splits the message on separators and connective words.
// It never fails and needs no external service.
type TextSplitIntentSource struct{}

var (
	splitPattern      = regexp.MustCompile(`(?i)\s*(?:[,;\n]|->|→)\s*|\s+(?:then|and|to|rồi|sau đó|và|xong)\s+`)
	leadingConnective = regexp.MustCompile(`(?i)^(?:then|and|to|rồi|sau đó|và|xong)\s+`)
)

func (TextSplitIntentSource) Extract(_ context.Context, message string, _ UserContext) ([]Intent, error) {
	return SplitIntents(message), nil
}

// SplitIntents is the deterministic splitter used by TextSplitIntentSource.
func SplitIntents(message string) []Intent {
	var intents []Intent
	for _, part := range splitPattern.Split(message, -1) {
		part = strings.Trim(strings.TrimSpace(part), ".!?")
		part = strings.TrimSpace(leadingConnective.ReplaceAllString(part, ""))
		if part == "" {
			continue
		}
		intents = append(intents, Intent{SearchQuery: part, Description: part})
	}
	return intents
}

// FallbackIntentSource uses Secondary whenever Primary fails.
type FallbackIntentSource struct {
	Primary   IntentSource
	Secondary IntentSource
	Logger    *zap.Logger
}

func (f FallbackIntentSource) Extract(ctx context.Context, message string, uc UserContext) ([]Intent, error) {
	var primaryErr error
	if f.Primary != nil {
		intents, err := f.Primary.Extract(ctx, message, uc)
		if err == nil {
			return intents, nil
		}
		primaryErr = err
		if f.Logger != nil {
			f.Logger.Warn("primary intent source failed", zap.Error(err))
		}
	}
	if f.Secondary == nil {
		if primaryErr == nil {
			primaryErr = errors.New("no intent source configured")
		}
		return nil, fmt.Errorf("%w: %w", ErrIntentUnavailable, primaryErr)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if primaryErr != nil {
		metrics.IntentFallbacks.Inc()
	}
	intents, err := f.Secondary.Extract(ctx, message, uc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntentUnavailable, errors.Join(primaryErr, err))
	}
	return intents, nil
}

var (
	hourPattern   = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:giờ|gio|tiếng|tieng|hours|hour|hrs|hr|h)(?:[^\p{L}]|$)`)
	minutePattern = regexp.MustCompile(`(\d+)\s*(?:phút|phut|minutes|minute|mins|min|p|m)(?:[^\p{L}]|$)`)
)

// DefaultDurationMinutes is used when a duration string carries no number.
const DefaultDurationMinutes = 60

// ParseDurationMinutes reads durations like "1 tiếng 30 phút", "90p", "2h" or "90".
// Hours and minutes are matched independently and summed; a bare integer is
// minutes; anything else yields DefaultDurationMinutes.
func ParseDurationMinutes(s string) int {
	d := strings.ToLower(strings.TrimSpace(s))
	if d == "" {
		return DefaultDurationMinutes
	}

	total := 0
	if m := hourPattern.FindStringSubmatch(d); m != nil {
		if h, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64); err == nil {
			total += int(math.Round(h * 60))
		}
	}
	if m := minutePattern.FindStringSubmatch(d); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			total += n
		}
	}
	if total == 0 {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			return n
		}
	}
	if total <= 0 {
		return DefaultDurationMinutes
	}
	return total
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
