package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zwrong/Calendar-Agent/plugin/ai"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/timeout"
)

// ExtractionPrompt is the fixed instruction template. The placeholders are the reference
// time (RFC3339) and its weekday.
const ExtractionPrompt = `你是一个专业的日历助理，专门解析用户对日历事件的指令。

请将用户的自然语言指令解析为结构化的JSON格式，包含以下字段：
- operation: 操作类型 (create, read, update, delete, search)
- title: 事件标题（创建时使用）
- start_time: 开始时间 (ISO格式: YYYY-MM-DDTHH:MM:SS)；更新时为新的开始时间
- end_time: 结束时间 (ISO格式: YYYY-MM-DDTHH:MM:SS)；没有明确结束时间时留空
- description: 事件描述
- location: 事件地点
- target_event: 要更新或删除的事件标题中的关键词
- target_time: 要更新或删除的事件原来的时间（原文表达）
- target_all: 用户要求删除所有匹配事件时为 true
- search_query: 搜索关键词（search 时使用）
- calendar: 用户指定的日历名称

时间解析规则：
- 当前时间：%s（%s）
- 查询指令（如"明天有什么事"）必须给出 start_time 和 end_time：
  "今天"：start_time = 今天00:00:00，end_time = 明天00:00:00
- "下周" = 当前日期 + 7天
- 创建指令只给出用户明确说出的时间，不要编造时间

意图识别：
- create: 创建、添加、安排、预定、新建
- read: 查看、显示、列出、检查、看看、有什么事、日程安排
- update: 更新、修改、改变、调整、重新安排、推迟、提前
- delete: 删除、取消、移除
- search: 查找、搜索、寻找

用户没有提到的字段请留空，不要猜测。
返回格式必须是纯JSON，不要有其他文本。`

var weekdayNames = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// BuildPrompt renders the instruction template for a reference instant.
func BuildPrompt(ref time.Time) string {
	return fmt.Sprintf(ExtractionPrompt, ref.Format(time.RFC3339), weekdayNames[ref.Weekday()])
}

// LLMExtractor extracts intents through the language service.
type LLMExtractor struct {
	llm     ai.LLMService
	metrics metrics.MetricsService
	timeout time.Duration
}

// NewLLMExtractor creates an extractor. A nil service makes every call SERVICE_UNAVAILABLE.
func NewLLMExtractor(llm ai.LLMService, m metrics.MetricsService) *LLMExtractor {
	if m == nil {
		m = metrics.Nop{}
	}
	return &LLMExtractor{
		llm:     llm,
		metrics: m,
		timeout: timeout.LLMTimeout,
	}
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, utterance string, ref time.Time) (Intent, error) {
	if strings.TrimSpace(utterance) == "" {
		return Intent{}, ErrEmptyUtterance
	}
	if e.llm == nil {
		return Intent{}, &ExtractionError{Code: CodeServiceUnavailable, Reason: "language service not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	opts := []ai.ChatOption{ai.WithJSONResponse()}
	if NeedsReasoning(utterance, ref) {
		opts = append(opts, ai.WithReasoningEffort("medium"))
	}

	start := time.Now()
	reply, err := e.llm.Chat(ctx, ai.FormatMessages(BuildPrompt(ref), utterance, nil), opts...)
	e.metrics.RecordCall(ctx, metrics.DependencyLLM, "chat", time.Since(start), err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Intent{}, &ExtractionError{Code: CodeTimeout, Reason: "language service timed out", Err: err}
		}
		return Intent{}, &ExtractionError{Code: CodeServiceUnavailable, Reason: "language service call failed", Err: err}
	}

	slog.Debug("language service reply", "reply", timeout.Truncate(reply))
	return ParseReply(reply)
}

// llmReply is the expected JSON structure from the language service. Aliases cover the
// field names older prompts used.
type llmReply struct {
	Operation   string `json:"operation"`
	Intent      string `json:"intent"`
	Title       string `json:"title"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
	Location    string `json:"location"`
	TargetEvent string `json:"target_event"`
	Target      string `json:"target"`
	TargetTime  string `json:"target_time"`
	TargetAll   bool   `json:"target_all"`
	SearchQuery string `json:"search_query"`
	Query       string `json:"query"`
	Calendar    string `json:"calendar"`
}

// ParseReply decodes a language service reply into an Intent.
func ParseReply(reply string) (Intent, error) {
	body := stripCodeFence(strings.TrimSpace(reply))
	open, close := strings.Index(body, "{"), strings.LastIndex(body, "}")
	if open < 0 || close <= open {
		return Intent{}, malformed("no JSON object in reply", nil)
	}

	var r llmReply
	if err := json.Unmarshal([]byte(body[open:close+1]), &r); err != nil {
		return Intent{}, malformed("reply is not valid JSON", err)
	}

	opValue := firstNonEmpty(r.Operation, r.Intent)
	op, ok := ParseOperation(opValue)
	if !ok {
		return Intent{}, malformed(fmt.Sprintf("unknown operation %q", opValue), nil)
	}

	return Intent{
		Operation:   op,
		Title:       strings.TrimSpace(r.Title),
		Location:    strings.TrimSpace(r.Location),
		Description: strings.TrimSpace(r.Description),
		SearchQuery: strings.TrimSpace(firstNonEmpty(r.SearchQuery, r.Query)),
		Target:      strings.TrimSpace(firstNonEmpty(r.TargetEvent, r.Target)),
		TargetTime:  strings.TrimSpace(r.TargetTime),
		TargetAll:   r.TargetAll,
		Start:       strings.TrimSpace(firstNonEmpty(r.StartTime, r.Start)),
		End:         strings.TrimSpace(firstNonEmpty(r.EndTime, r.End)),
		Calendar:    strings.TrimSpace(r.Calendar),
		Source:      SourceLLM,
	}, nil
}

// stripCodeFence extracts the body of a ```json fenced block, if the reply is fenced.
func stripCodeFence(response string) string {
	if !strings.HasPrefix(response, "```") {
		return response
	}
	lines := strings.Split(response, "\n")
	var jsonLines []string
	inJSON := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inJSON = !inJSON
			continue
		}
		if inJSON {
			jsonLines = append(jsonLines, line)
		}
	}
	return strings.Join(jsonLines, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var (
	// earlyDayWords trigger reasoning when the reference time is between 00:00 and 06:59,
	// where "今天" and "明天" are easy to misread.
	earlyDayWords = []string{"今天", "明天", "后天", "上午", "下午", "晚上", "凌晨", "早晨", "早上", "today", "tomorrow", "tonight", "morning"}

	relativePhrases = []string{
		"下周", "下个月", "下个星期", "这周", "这个月", "这个星期",
		"月底", "月初", "年中", "年底", "年初", "工作日", "周末", "节假日", "假期",
		"next week", "this week", "next month", "this month", "end of the month", "weekend", "weekday",
	}

	// specificPhrases name an exact day and need no reasoning even though they contain a relative phrase.
	specificPhrases = []string{
		"下周一", "下周二", "下周三", "下周四", "下周五", "下周六", "下周日",
		"这周一", "这周二", "这周三", "这周四", "这周五", "这周六", "这周日",
	}

	vaguePhrases = []string{
		"最近", "过几天", "几天后", "下周左右", "大概", "大约", "左右", "前后", "差不多",
		"sometime", "around", "about", "in a few days", "soon", "roughly",
	}
)

// NeedsReasoning reports whether an utterance is worth a higher reasoning effort: relative or
// vague time phrases, or day words used in the small hours of the reference instant.
func NeedsReasoning(utterance string, ref time.Time) bool {
	text := strings.ToLower(utterance)

	if ref.Hour() <= 6 && containsAny(text, earlyDayWords) {
		return true
	}
	if containsAny(text, relativePhrases) && !containsAny(text, specificPhrases) {
		return true
	}
	return containsAny(text, vaguePhrases)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

var _ Extractor = (*LLMExtractor)(nil)
