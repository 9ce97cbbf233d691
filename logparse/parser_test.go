package logparse_test

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/justapithecus/palisade/logparse"
	"github.com/justapithecus/palisade/types"
)

// fixedNow returns a deterministic clock for fallback assertions.
func fixedNow() time.Time {
	return time.Date(2023, 7, 9, 12, 0, 0, 0, time.UTC)
}

func mustParse(t *testing.T, line string) *types.Event {
	t.Helper()
	ev, ok := logparse.Parse(line, fixedNow)
	if !ok {
		t.Fatalf("Parse(%q) rejected, want accept", line)
	}
	return ev
}

func TestParse_CombinedLine(t *testing.T) {
	line := `192.168.1.1 - - [01/Jul/1995:00:00:01 -0400] "GET /index.html HTTP/1.0" 200 1234 "-" "Mozilla/5.0"`

	ev := mustParse(t, line)

	if ev.IP != "192.168.1.1" {
		t.Errorf("IP = %q, want 192.168.1.1", ev.IP)
	}
	if ev.Method != "GET" {
		t.Errorf("Method = %q, want GET", ev.Method)
	}
	if ev.URL != "/index.html" {
		t.Errorf("URL = %q, want /index.html", ev.URL)
	}
	if ev.Status != 200 {
		t.Errorf("Status = %d, want 200", ev.Status)
	}
	if ev.Bytes != 1234 {
		t.Errorf("Bytes = %d, want 1234", ev.Bytes)
	}
	if ev.UserAgent != "Mozilla/5.0" {
		t.Errorf("UserAgent = %q, want Mozilla/5.0", ev.UserAgent)
	}
}

func TestParse_CombinedTimestamp(t *testing.T) {
	line := `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 100 "-" "-"`

	ev := mustParse(t, line)

	if got := ev.Timestamp.Year(); got != 1995 {
		t.Errorf("Timestamp.Year = %d, want 1995", got)
	}
	if got := ev.Timestamp.Month(); got != time.July {
		t.Errorf("Timestamp.Month = %v, want July", got)
	}
	if got := ev.Timestamp.Day(); got != 1 {
		t.Errorf("Timestamp.Day = %d, want 1", got)
	}
}

func TestParse_InvalidLine(t *testing.T) {
	if _, ok := logparse.Parse("invalid log line", fixedNow); ok {
		t.Error("Parse accepted garbage, want reject")
	}
}

func TestParse_EmptyLine(t *testing.T) {
	if _, ok := logparse.Parse("   ", fixedNow); ok {
		t.Error("Parse accepted blank line, want reject")
	}
}

func TestParse_MissingBytes(t *testing.T) {
	line := `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "POST /api HTTP/1.1" 404 - "-" "curl/7.0"`

	ev := mustParse(t, line)

	if ev.Bytes != 0 {
		t.Errorf("Bytes = %d, want 0 for %q field", ev.Bytes, "-")
	}
	if ev.Status != 404 {
		t.Errorf("Status = %d, want 404", ev.Status)
	}
}

func TestParse_NonNumericBytes(t *testing.T) {
	line := `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 xyz "-" "-"`

	ev := mustParse(t, line)

	if ev.Bytes != 0 {
		t.Errorf("Bytes = %d, want 0 for non-numeric field", ev.Bytes)
	}
}

func TestParse_CommonLogWithoutRefererUA(t *testing.T) {
	line := `10.0.0.1 - - [01/Jul/1995:00:00:01 -0400] "GET / HTTP/1.0" 200 100`

	ev := mustParse(t, line)

	if ev.Referer != "" || ev.UserAgent != "" {
		t.Errorf("Referer/UserAgent = %q/%q, want empty for common log form", ev.Referer, ev.UserAgent)
	}
}

func TestParse_ErrorLineWithClientIP(t *testing.T) {
	line := `[Sun Jul 09 12:34:56 2023] [error] [client 1.2.3.4] File does not exist: /var/www/favicon.ico`

	ev := mustParse(t, line)

	if ev.IP != "1.2.3.4" {
		t.Errorf("IP = %q, want 1.2.3.4", ev.IP)
	}
	if ev.Method != "LOG" {
		t.Errorf("Method = %q, want LOG", ev.Method)
	}
	if ev.Status != 400 {
		t.Errorf("Status = %d, want 400 for error level", ev.Status)
	}
	if ev.UserAgent != "error" {
		t.Errorf("UserAgent = %q, want level string", ev.UserAgent)
	}
	if ev.Referer != "client 1.2.3.4" {
		t.Errorf("Referer = %q, want context", ev.Referer)
	}
}

func TestParse_NoticeLineWithoutContext(t *testing.T) {
	line := `[Sun Jul 09 12:34:56 2023] [notice] Server restarted`

	ev := mustParse(t, line)

	if ev.IP != "" {
		t.Errorf("IP = %q, want empty without client context", ev.IP)
	}
	if ev.Status != 200 {
		t.Errorf("Status = %d, want 200 for notice level", ev.Status)
	}
	if ev.URL != "Server restarted" {
		t.Errorf("URL = %q, want message text", ev.URL)
	}
}

func TestParse_ErrorLineTruncatesLongMessage(t *testing.T) {
	msg := strings.Repeat("x", 300)
	line := `[Sun Jul 09 12:34:56 2023] [error] ` + msg

	ev := mustParse(t, line)

	if len(ev.URL) != 100 {
		t.Errorf("len(URL) = %d, want 100", len(ev.URL))
	}
}

func TestParse_ErrorLineTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte message text must not be split mid-rune by the URL cap.
	msg := strings.Repeat("é", 150)
	line := `[Sun Jul 09 12:34:56 2023] [error] ` + msg

	ev := mustParse(t, line)

	if got := utf8.RuneCountInString(ev.URL); got != 100 {
		t.Errorf("rune count = %d, want 100", got)
	}
	if !utf8.ValidString(ev.URL) {
		t.Errorf("URL is not valid UTF-8: %q", ev.URL)
	}
}

func TestParse_ErrorLineTimestamp(t *testing.T) {
	line := `[Sun Jul 09 12:34:56 2023] [error] [client 1.2.3.4] boom`

	ev := mustParse(t, line)

	want := time.Date(2023, 7, 9, 12, 34, 56, 0, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
}

func TestParse_BadTimestampFallsBackToNow(t *testing.T) {
	// Month "Xxx" defeats every layout; the line still parses.
	line := `[Sun Xxx 09 12:34:56 2023] [error] [client 1.2.3.4] boom`

	ev := mustParse(t, line)

	if !ev.Timestamp.Equal(fixedNow()) {
		t.Errorf("Timestamp = %v, want fallback %v", ev.Timestamp, fixedNow())
	}
}
