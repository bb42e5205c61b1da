package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts は表示用にパースするタイムスタンプ形式の候補。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatScheduleTime は"HH:MM"形式の配信時刻を12時間表記へ整形する。
// 空入力には"Not set"を返し、数値として解釈できない入力は
// そのまま変更せずに返す（元の値を失わないため）。
// includeZoneが真でタイムゾーンが与えられた場合は" (zone)"を付加する。
//
// スケジュール時刻は壁時計上の繰り返し概念であり瞬間ではないため、
// タイムゾーン変換は行わずラベル付けのみを行う。
func FormatScheduleTime(t, timezone string, includeZone bool) string {
	if t == "" {
		return "Not set"
	}

	parts := strings.Split(t, ":")
	if len(parts) < 2 {
		return t
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return t
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return t
	}

	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	hour12 := hours % 12
	if hour12 == 0 {
		hour12 = 12
	}

	formatted := fmt.Sprintf("%d:%02d %s", hour12, minutes, period)

	if includeZone && timezone != "" {
		return fmt.Sprintf("%s (%s)", formatted, timezone)
	}
	return formatted
}

// FormatDateTimeForTimezone はISOタイムスタンプをタイムゾーン指定付きの
// 表示文字列へ整形する。パース不能な値には"--"を返す。
// 有効タイムゾーンは指定されたIANA文字列、無ければ実行環境のローカルゾーン。
// 出力形式は"Jan 2, 2006 · 3:04 PM"で、includeZoneが真かつタイムゾーンが
// "UTC"以外の場合のみ" (zone)"を付加する。
// タイムゾーンのロードに失敗した場合はプラットフォーム既定の文字列表現へ
// フォールバックする。
func FormatDateTimeForTimezone(value, timezone string, includeZone bool) string {
	date, ok := parseTimestamp(value)
	if !ok {
		return "--"
	}

	loc, err := loadLocation(timezone)
	if err != nil {
		return date.String()
	}

	formatted := date.In(loc).Format("Jan 2, 2006 · 3:04 PM")

	if includeZone && timezone != "" && timezone != "UTC" {
		return fmt.Sprintf("%s (%s)", formatted, timezone)
	}
	return formatted
}

// DisplayTimezone は表示すべきタイムゾーンラベルを返す。
// "UTC"や空文字は冗長なラベルとなるため空文字列を返して表示を抑制する。
func DisplayTimezone(timezone string) string {
	if timezone != "" && timezone != "UTC" {
		return timezone
	}
	return ""
}

// parseTimestamp はタイムスタンプ文字列を候補形式でパースする。
func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// loadLocation は有効タイムゾーンを解決する。
// 空文字列の場合は実行環境のローカルゾーンを使用する。
func loadLocation(timezone string) (*time.Location, error) {
	tz := strings.TrimSpace(timezone)
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}
