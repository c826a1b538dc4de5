package variables

import "strings"

// Per-service extractors map a known service's raw payload shape onto a
// fixed set of namespaced keys (gmail.sender, calendar.start_time, ...).
// Every extractor is tolerant of missing optional fields: it returns only the
// keys it could extract and never fails. Nil or empty input yields an empty
// mapping.

// ExtractByService dispatches trigger data to the matching service extractor.
// Keys that already carry a dotted namespace pass through unchanged, so
// running extraction twice over already-extracted data is a no-op copy.
func ExtractByService(triggerData map[string]any, serviceType string) map[string]any {
	if len(triggerData) == 0 {
		return map[string]any{}
	}

	extracted := make(map[string]any, len(triggerData))
	raw := make(map[string]any, len(triggerData))

	for key, value := range triggerData {
		if strings.Contains(key, ".") || genericKeys[key] {
			extracted[key] = value
		} else {
			raw[key] = value
		}
	}

	if len(raw) == 0 {
		return extracted
	}

	var serviceVars map[string]any

	switch serviceType {
	case "gmail":
		serviceVars = ExtractGmail(raw)
	case "calendar", "google_calendar":
		serviceVars = ExtractCalendar(raw)
	case "github":
		serviceVars = ExtractGitHub(raw)
	case "discord":
		serviceVars = ExtractDiscord(raw)
	case "drive", "google_drive":
		serviceVars = ExtractDrive(raw)
	case "outlook":
		serviceVars = ExtractOutlook(raw)
	case "weather":
		serviceVars = ExtractWeather(raw)
	case "rss":
		serviceVars = ExtractRSS(raw)
	case "openai":
		serviceVars = ExtractOpenAI(raw)
	case "time", "schedule", "timer":
		serviceVars = ExtractTime(raw)
	default:
		serviceVars = prefixed(serviceType, Flatten(raw))
	}

	for key, value := range serviceVars {
		extracted[key] = value
	}

	return extracted
}

// genericKeys are run-level fields that stay un-namespaced so templates like
// "Hello {{now}}" keep working regardless of the trigger service.
var genericKeys = map[string]bool{
	"now":       true,
	"timestamp": true,
	"area_id":   true,
	"user_id":   true,
}

func prefixed(service string, flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for key, value := range flat {
		out[service+"."+key] = value
	}

	return out
}

// ExtractTime passes scalar fields of a time/schedule tick through as-is
// (now, timestamp, minute, hour, weekday, ...), flattening any nested values.
func ExtractTime(data map[string]any) map[string]any {
	if len(data) == 0 {
		return map[string]any{}
	}

	return Flatten(data)
}

func ExtractGmail(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "sender", "from"); ok {
		out["gmail.sender"] = v
	}

	if v, ok := firstString(data, "to", "recipient"); ok {
		out["gmail.recipient"] = v
	}

	if v, ok := firstString(data, "subject"); ok {
		out["gmail.subject"] = v
	}

	if v, ok := firstString(data, "body", "snippet"); ok {
		out["gmail.body"] = v
	}

	if v, ok := firstValue(data, "message_id", "id"); ok {
		out["gmail.message_id"] = asString(v)
	}

	if v, ok := firstString(data, "date", "received_at"); ok {
		out["gmail.date"] = v
	}

	return out
}

func ExtractCalendar(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "title", "summary"); ok {
		out["calendar.title"] = v
	}

	if v, ok := firstValue(data, "event_id", "id"); ok {
		out["calendar.event_id"] = asString(v)
	}

	if v, ok := firstString(data, "start_time"); ok {
		out["calendar.start_time"] = v
	} else if v, ok := lookupPath(data, "start", "dateTime"); ok {
		out["calendar.start_time"] = asString(v)
	}

	if v, ok := firstString(data, "end_time"); ok {
		out["calendar.end_time"] = v
	} else if v, ok := lookupPath(data, "end", "dateTime"); ok {
		out["calendar.end_time"] = asString(v)
	}

	if v, ok := firstString(data, "location"); ok {
		out["calendar.location"] = v
	}

	if v, ok := firstString(data, "description"); ok {
		out["calendar.description"] = v
	}

	return out
}

func ExtractGitHub(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "repo"); ok {
		out["github.repo"] = v
	} else if v, ok := lookupPath(data, "repository", "full_name"); ok {
		out["github.repo"] = asString(v)
	}

	if v, ok := firstString(data, "title"); ok {
		out["github.title"] = v
	}

	if v, ok := firstString(data, "author"); ok {
		out["github.author"] = v
	} else if v, ok := lookupPath(data, "sender", "login"); ok {
		out["github.author"] = asString(v)
	}

	if v, ok := firstString(data, "url", "html_url"); ok {
		out["github.url"] = v
	}

	if v, ok := firstString(data, "action"); ok {
		out["github.action"] = v
	}

	if v, ok := firstValue(data, "number"); ok {
		out["github.number"] = v
	}

	return out
}

func ExtractDiscord(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "content", "message"); ok {
		out["discord.content"] = v
	}

	if v, ok := firstString(data, "author"); ok {
		out["discord.author"] = v
	} else if v, ok := lookupPath(data, "author", "username"); ok {
		out["discord.author"] = asString(v)
	}

	if v, ok := firstValue(data, "channel_id"); ok {
		out["discord.channel_id"] = asString(v)
	}

	if v, ok := firstValue(data, "guild_id"); ok {
		out["discord.guild_id"] = asString(v)
	}

	if v, ok := firstValue(data, "message_id", "id"); ok {
		out["discord.message_id"] = asString(v)
	}

	return out
}

func ExtractDrive(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "file_name", "name"); ok {
		out["drive.file_name"] = v
	}

	if v, ok := firstValue(data, "file_id", "id"); ok {
		out["drive.file_id"] = asString(v)
	}

	if v, ok := firstString(data, "mime_type", "mimeType"); ok {
		out["drive.mime_type"] = v
	}

	if v, ok := firstString(data, "modified_time", "modifiedTime"); ok {
		out["drive.modified_time"] = v
	}

	if v, ok := firstString(data, "link", "webViewLink"); ok {
		out["drive.link"] = v
	}

	return out
}

func ExtractOutlook(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "sender", "from"); ok {
		out["outlook.sender"] = v
	} else if v, ok := lookupPath(data, "from", "emailAddress", "address"); ok {
		out["outlook.sender"] = asString(v)
	}

	if v, ok := firstString(data, "subject"); ok {
		out["outlook.subject"] = v
	}

	if v, ok := firstString(data, "body_preview", "bodyPreview"); ok {
		out["outlook.body_preview"] = v
	}

	if v, ok := firstString(data, "received_at", "receivedDateTime"); ok {
		out["outlook.received_at"] = v
	}

	if v, ok := firstValue(data, "message_id", "id"); ok {
		out["outlook.message_id"] = asString(v)
	}

	return out
}

func ExtractWeather(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstValue(data, "temperature", "temp"); ok {
		out["weather.temperature"] = v
	}

	if v, ok := firstString(data, "condition", "description"); ok {
		out["weather.condition"] = v
	}

	if v, ok := firstValue(data, "humidity"); ok {
		out["weather.humidity"] = v
	}

	if v, ok := firstValue(data, "wind_speed"); ok {
		out["weather.wind_speed"] = v
	}

	if v, ok := firstString(data, "city", "location"); ok {
		out["weather.city"] = v
	}

	return out
}

func ExtractRSS(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "title"); ok {
		out["rss.title"] = v
	}

	if v, ok := firstString(data, "link", "url"); ok {
		out["rss.link"] = v
	}

	if v, ok := firstString(data, "published", "pubDate"); ok {
		out["rss.published"] = v
	}

	if v, ok := firstString(data, "summary", "description"); ok {
		out["rss.summary"] = v
	}

	if v, ok := firstString(data, "feed_title", "feed"); ok {
		out["rss.feed_title"] = v
	}

	return out
}

func ExtractOpenAI(data map[string]any) map[string]any {
	out := map[string]any{}
	if len(data) == 0 {
		return out
	}

	if v, ok := firstString(data, "response", "answer", "text"); ok {
		out["openai.response"] = v
	}

	if v, ok := firstString(data, "model"); ok {
		out["openai.model"] = v
	}

	if v, ok := firstValue(data, "tokens", "total_tokens"); ok {
		out["openai.tokens"] = v
	}

	return out
}
