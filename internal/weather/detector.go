package weather

import (
	"regexp"
	"strings"
)

// Classification is the outcome of inspecting one chat message.
type Classification struct {
	IsWeather     bool   `json:"is_weather"`
	KeywordHit    bool   `json:"keyword_hit"`
	Location      string `json:"location,omitempty"`
	NeedsIPLookup bool   `json:"needs_ip_lookup"`
}

var keywords = []string{"weather", "temperature", "forecast", "rain", "snow", "sunny", "cloudy"}

const place = `([\p{L}\d][\p{L}\d .,'-]*)`

// Tried in order; the first capture wins.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bweather\s+(?:like\s+)?(?:in|for|at)\s+` + place),
	regexp.MustCompile(`(?i)\bwhat(?:['’]s|\s+is)\s+the\s+weather\s+(?:like\s+)?(?:in|for|at)\s+` + place),
	regexp.MustCompile(`(?i)\bforecast\s+(?:for|in)\s+` + place),
	regexp.MustCompile(`(?i)\btemperature\s+(?:for|in|at)\s+` + place),
}

// Whole-message phrasings that carry no location.
var generalTemplates = compileTemplates(
	`weather`,
	`the weather`,
	`weather (?:today|now|tonight|tomorrow)`,
	`(?:today|tomorrow)['’]?s weather`,
	`current weather`,
	`what(?:['’]?s| is) the weather(?: like)?(?: (?:today|now|right now|tonight|tomorrow|outside))?`,
	`how(?:['’]?s| is) the weather(?: (?:today|now|right now|outside))?`,
	`what(?:['’]?s| is) the weather going to be(?: like)?(?: (?:today|tonight|tomorrow))?`,
	`(?:tell me|give me) the weather`,
	`(?:check|get) (?:the )?weather`,
	`what(?:['’]?s| is) the temperature(?: (?:today|now|right now|outside))?`,
	`(?:current )?temperature`,
	`how(?:['’]?s| is) the temperature(?: outside)?`,
	`is it (?:raining|snowing|sunny|cloudy)(?: (?:today|now|right now|outside))?`,
	`is it going to (?:rain|snow)(?: (?:today|tonight|tomorrow))?`,
	`will it (?:rain|snow)(?: (?:today|tonight|tomorrow))?`,
	`(?:any|is there) (?:rain|snow) (?:today|tonight|tomorrow|coming)`,
	`is it (?:a )?(?:sunny|cloudy) day`,
	`what(?:['’]?s| is) the forecast(?: (?:today|for today|for tomorrow|for the week))?`,
	`(?:weather )?forecast`,
	`(?:weather )?forecast (?:for )?(?:today|tomorrow|this week|the week)`,
	`what should i wear (?:for|in) (?:the|this|today['’]?s) weather`,
	`do i need an umbrella (?:for the rain|in this rain)`,
	`how(?:['’]?s| is) the weather looking`,
	`what(?:['’]?s| is) the weather doing`,
	`weather update`,
	`weather report`,
)

func compileTemplates(templates ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(templates))
	for i, t := range templates {
		compiled[i] = regexp.MustCompile(`(?i)^(?:` + t + `)[?.!\s]*$`)
	}
	return compiled
}

// Words that trail a place name without being part of it.
var trailingWords = []string{
	"right now", "this morning", "this afternoon", "this evening", "this week",
	"this weekend", "today", "tomorrow", "tonight", "now", "currently", "please",
	"like", "going to be",
}

// A time word heading the capture, as in "weather for today in Boston".
var leadingTime = regexp.MustCompile(`(?i)^(?:right now|today|tomorrow|tonight|now)\s+(?:in|for|at)\s+`)

// Classify decides whether message asks about the weather and, when it does,
// where. A message that mentions a weather word but matches neither a
// location phrase nor a general template is not a weather query.
func Classify(message string) Classification {
	lower := strings.ToLower(message)

	var c Classification
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			c.KeywordHit = true
			break
		}
	}
	if !c.KeywordHit {
		return c
	}

	if loc := ExtractLocation(message); loc != "" {
		c.Location = loc
		c.IsWeather = true
		return c
	}

	trimmed := strings.TrimSpace(message)
	for _, re := range generalTemplates {
		if re.MatchString(trimmed) {
			c.NeedsIPLookup = true
			c.IsWeather = true
			return c
		}
	}

	return c
}

// ExtractLocation returns the place named in message, or "".
func ExtractLocation(message string) string {
	for _, re := range locationPatterns {
		m := re.FindStringSubmatch(message)
		if len(m) < 2 {
			continue
		}
		if loc := cleanLocation(m[1]); loc != "" {
			return loc
		}
	}
	return ""
}

func cleanLocation(s string) string {
	s = strings.Trim(s, " .,'-")
	s = leadingTime.ReplaceAllString(s, "")
	for {
		trimmed := false
		for _, w := range trailingWords {
			if strings.EqualFold(s, w) {
				return ""
			}
			n := len(s) - len(w)
			if n > 0 && s[n-1] == ' ' && strings.EqualFold(s[n:], w) {
				s = strings.Trim(s[:n-1], " .,'-")
				trimmed = true
				break
			}
		}
		if !trimmed {
			return s
		}
	}
}
