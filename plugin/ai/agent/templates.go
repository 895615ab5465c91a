package agent

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
)

// Message keys. Each key has a template per supported language.
const (
	msgCreated         = "created"
	msgTimeLine        = "time_line"
	msgLocationLine    = "location_line"
	msgDescriptionLine = "description_line"
	msgUnspecified     = "unspecified"
	msgNone            = "none"
	msgAllDay          = "all_day"

	msgScheduleHeader  = "schedule_header"
	msgItemTime        = "item_time"
	msgItemLocation    = "item_location"
	msgItemDescription = "item_description"
	msgEmptyToday      = "empty_today"
	msgEmptyTomorrow   = "empty_tomorrow"
	msgEmptyDate       = "empty_date"
	msgEmptyRange      = "empty_range"
	msgDateLayout      = "date_layout"

	msgSearchHeader = "search_header"
	msgSearchEmpty  = "search_empty"

	msgUpdated     = "updated"
	msgDeleted     = "deleted"
	msgDeletedMany = "deleted_many"
	msgNotFound    = "not_found"

	msgAmbiguous       = "ambiguous"
	msgAmbiguousFooter = "ambiguous_footer"
	msgCancelled       = "cancelled"

	msgCalendarsHeader = "calendars_header"
	msgCalendarsEmpty  = "calendars_empty"
	msgDefaultMark     = "default_mark"

	msgErrAmbiguousTime   = "err_ambiguous_time"
	msgErrUnparseable     = "err_unparseable"
	msgErrInvalidRange    = "err_invalid_range"
	msgErrTransport       = "err_transport"
	msgErrMissingTitle    = "err_missing_title"
	msgErrMissingTarget   = "err_missing_target"
	msgErrNothingToUpdate = "err_nothing_to_update"
	msgErrEmpty           = "err_empty"
	msgErrInternal        = "err_internal"
	msgErrCalendar        = "err_calendar"
)

// templates holds the reply texts keyed by language.
var templates = map[language.Tag]map[string]string{
	lang.Chinese: {
		msgCreated:         "✅ 已成功创建事件: %s",
		msgTimeLine:        "📅 时间: %s",
		msgLocationLine:    "📍 地点: %s",
		msgDescriptionLine: "📝 描述: %s",
		msgUnspecified:     "未指定",
		msgNone:            "无",
		msgAllDay:          "全天",

		msgScheduleHeader:  "📅 您的日程安排:",
		msgItemTime:        "   时间: %s",
		msgItemLocation:    "   地点: %s",
		msgItemDescription: "   描述: %s",
		msgEmptyToday:      "📅 今天没有安排任何事件",
		msgEmptyTomorrow:   "📅 明天没有安排任何事件",
		msgEmptyDate:       "📅 %s 没有安排任何事件",
		msgEmptyRange:      "📅 %s 至 %s 没有安排任何事件",
		msgDateLayout:      "2006年01月02日",

		msgSearchHeader: "🔍 找到 %d 个匹配「%s」的事件:",
		msgSearchEmpty:  "找不到匹配「%s」的事件",

		msgUpdated:     "✅ 事件已成功更新: %s",
		msgDeleted:     "✅ 事件已成功删除: %s",
		msgDeletedMany: "✅ 已成功删除 %d 个事件",
		msgNotFound:    "找不到指定的事件，请提供更具体的信息",

		msgAmbiguous:       "找到 %d 个匹配的事件，请回复序号选择要%s的事件:",
		msgAmbiguousFooter: "回复其他内容将取消本次操作",
		msgCancelled:       "未能识别您的选择，已取消本次操作",

		msgCalendarsHeader: "📋 可用日历:",
		msgCalendarsEmpty:  "📋 没有可用的日历",
		msgDefaultMark:     "（默认）",

		msgErrAmbiguousTime:   "请提供具体的时间，例如「明天下午3点」",
		msgErrUnparseable:     "无法识别时间「%s」",
		msgErrInvalidRange:    "结束时间必须晚于开始时间",
		msgErrTransport:       "无法连接日历服务，请稍后重试",
		msgErrMissingTitle:    "请提供事件标题",
		msgErrMissingTarget:   "请说明要操作的事件",
		msgErrNothingToUpdate: "请说明要修改的内容",
		msgErrEmpty:           "请输入指令",
		msgErrInternal:        "处理指令时出现错误",
		msgErrCalendar:        "找不到日历「%s」",
	},
	lang.English: {
		msgCreated:         "✅ Event created: %s",
		msgTimeLine:        "📅 Time: %s",
		msgLocationLine:    "📍 Location: %s",
		msgDescriptionLine: "📝 Description: %s",
		msgUnspecified:     "not specified",
		msgNone:            "none",
		msgAllDay:          "all day",

		msgScheduleHeader:  "📅 Your schedule:",
		msgItemTime:        "   Time: %s",
		msgItemLocation:    "   Location: %s",
		msgItemDescription: "   Description: %s",
		msgEmptyToday:      "📅 Nothing scheduled for today",
		msgEmptyTomorrow:   "📅 Nothing scheduled for tomorrow",
		msgEmptyDate:       "📅 Nothing scheduled on %s",
		msgEmptyRange:      "📅 Nothing scheduled from %s to %s",
		msgDateLayout:      "Mon, Jan 2 2006",

		msgSearchHeader: "🔍 Found %d events matching \"%s\":",
		msgSearchEmpty:  "No events match \"%s\"",

		msgUpdated:     "✅ Event updated: %s",
		msgDeleted:     "✅ Event deleted: %s",
		msgDeletedMany: "✅ Deleted %d events",
		msgNotFound:    "Could not find that event, please be more specific",

		msgAmbiguous:       "Found %d matching events. Reply with a number to choose the one to %s:",
		msgAmbiguousFooter: "Any other reply cancels this request",
		msgCancelled:       "Could not match your choice, the request was cancelled",

		msgCalendarsHeader: "📋 Available calendars:",
		msgCalendarsEmpty:  "📋 No calendars available",
		msgDefaultMark:     " (default)",

		msgErrAmbiguousTime:   "Please give a specific time, e.g. \"tomorrow at 3pm\"",
		msgErrUnparseable:     "Could not understand the time \"%s\"",
		msgErrInvalidRange:    "The end time must be after the start time",
		msgErrTransport:       "Could not reach the calendar service, please try again later",
		msgErrMissingTitle:    "Please give the event a title",
		msgErrMissingTarget:   "Please say which event you mean",
		msgErrNothingToUpdate: "Please say what to change",
		msgErrEmpty:           "Please enter a command",
		msgErrInternal:        "Something went wrong while handling the command",
		msgErrCalendar:        "Calendar \"%s\" not found",
	},
}

// verbs name the pending operation inside the ambiguity question.
var verbs = map[language.Tag]map[string]string{
	lang.Chinese: {"update": "修改", "delete": "删除"},
	lang.English: {"update": "update", "delete": "delete"},
}

// plurals replace templates whose wording depends on the count in their first argument.
var plurals = map[language.Tag]map[string]catalog.Message{
	lang.English: {
		msgSearchHeader: plural.Selectf(1, "%d",
			"one", "🔍 Found %d event matching \"%s\":",
			"other", "🔍 Found %d events matching \"%s\":",
		),
		msgDeletedMany: plural.Selectf(1, "%d",
			"one", "✅ Deleted %d event",
			"other", "✅ Deleted %d events",
		),
	},
}

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(lang.Default))
	for tag, msgs := range templates {
		for key, msg := range msgs {
			var err error
			if pm, ok := plurals[tag][key]; ok {
				err = b.Set(tag, key, pm)
			} else {
				err = b.SetString(tag, key, msg)
			}
			if err != nil {
				panic(err)
			}
		}
	}
	return b
}

// printer renders templates for one reply language.
type printer struct {
	tag language.Tag
	p   *message.Printer
}

func newPrinter(tag language.Tag) *printer {
	tag = lang.Base(tag)
	return &printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(messages))}
}

func (p *printer) text(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// raw returns a template without formatting, for layouts.
func (p *printer) raw(key string) string {
	if msg, ok := templates[p.tag][key]; ok {
		return msg
	}
	return templates[lang.Default][key]
}

func (p *printer) verb(op string) string {
	if v, ok := verbs[p.tag][op]; ok {
		return v
	}
	return op
}
