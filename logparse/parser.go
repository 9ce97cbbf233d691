// Package logparse converts web-server access-log lines into events.
//
// Two grammars are tried in order; the first match wins:
//
//  1. Error/notice form: [timestamp] [level] ([context])? message
//  2. Combined/common log form: ip - - [timestamp] "METHOD url PROTO" status bytes ("referer" "ua")?
//
// Lines matching neither grammar are rejected; callers drop them silently.
package logparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/justapithecus/palisade/types"
)

// maxErrorURL caps the message text adopted as the URL of an error-form
// event, counted in runes so truncation never splits a multi-byte character.
const maxErrorURL = 100

var (
	// errorLine matches the Apache error/notice form:
	// [Sun Jul 09 12:00:00 2023] [error] [client 1.2.3.4] message
	errorLine = regexp.MustCompile(`^\[([\w\s:/\+\-]+)\] \[(\w+)\](?:\s\[([^\]]+)\])?\s(.+)$`)

	// combinedLine matches the combined/common log form. The trailing
	// referer/user-agent pair is optional (common log format omits it).
	combinedLine = regexp.MustCompile(`^(\S+) \S+ \S+ \[([\w:/]+\s[+\-]\d{4})\] "(\S+) (\S+) \S+" (\d{3}) (\S+)(?: "([^"]*)" "([^"]*)")?`)

	// clientIP extracts the client address from an error-line context.
	clientIP = regexp.MustCompile(`client\s([\d\.]+)`)
)

// Error-form timestamps are written by strftime %a %b %d %H:%M:%S %Y; the day
// may be space- or zero-padded depending on the server build.
var errorTimeLayouts = []string{
	"Mon Jan _2 15:04:05 2006",
	"Mon Jan 02 15:04:05 2006",
}

// combinedTimeLayout parses the bracketed combined-log timestamp with zone.
const combinedTimeLayout = "02/Jan/2006:15:04:05 -0700"

// Parse converts a raw log line into an event.
//
// The returned event has no enrichment applied (Browser, OS, IPClass and
// Suspicious are zero values). ok is false when the line matches neither
// grammar. Timestamp parse failures do NOT reject the line; the event falls
// back to now.
func Parse(line string, now func() time.Time) (*types.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	if m := errorLine.FindStringSubmatch(line); m != nil {
		return parseErrorLine(m, now), true
	}
	if m := combinedLine.FindStringSubmatch(line); m != nil {
		return parseCombinedLine(m, now), true
	}
	return nil, false
}

// parseErrorLine synthesizes an event from an error/notice line.
//
// method is fixed to "LOG"; the message doubles as the URL (truncated);
// status is 400 for error level and 200 otherwise. The log level is carried
// in UserAgent for compatibility with the existing schema (legacy).
func parseErrorLine(m []string, now func() time.Time) *types.Event {
	tsStr, level, context, message := m[1], m[2], m[3], m[4]

	ts, ok := parseErrorTime(tsStr)
	if !ok {
		ts = now()
	}

	ip := ""
	if cm := clientIP.FindStringSubmatch(context); cm != nil {
		ip = cm[1]
	}

	status := 200
	if level == "error" {
		status = 400
	}

	url := message
	if runes := []rune(url); len(runes) > maxErrorURL {
		url = string(runes[:maxErrorURL])
	}

	return &types.Event{
		IP:        ip,
		Timestamp: ts,
		Method:    "LOG",
		URL:       url,
		Status:    status,
		Bytes:     0,
		Referer:   context,
		UserAgent: level,
	}
}

// parseCombinedLine extracts fields from a combined/common log line.
func parseCombinedLine(m []string, now func() time.Time) *types.Event {
	ip, tsStr, method, url, statusStr, bytesStr, referer, userAgent :=
		m[1], m[2], m[3], m[4], m[5], m[6], m[7], m[8]

	ts, err := time.Parse(combinedTimeLayout, tsStr)
	if err != nil {
		ts = now()
	}

	// Regex guarantees three digits.
	status, _ := strconv.Atoi(statusStr)

	// "-" and non-numeric byte counts map to zero.
	bytes, err := strconv.ParseInt(bytesStr, 10, 64)
	if err != nil || bytes < 0 {
		bytes = 0
	}

	return &types.Event{
		IP:        ip,
		Timestamp: ts,
		Method:    method,
		URL:       url,
		Status:    status,
		Bytes:     bytes,
		Referer:   referer,
		UserAgent: userAgent,
	}
}

func parseErrorTime(s string) (time.Time, bool) {
	for _, layout := range errorTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
