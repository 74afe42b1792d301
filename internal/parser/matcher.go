package parser

import (
	"regexp"
	"strings"
)

// Fragments of the ROFR line convention:
//
//	username---$price-$totalcost-points-resort-useyear-pointsdetails- sent M/YY[, passed|taken M/YY]
//
// Total cost, use year and points details are optional. The username starts the line, after any
// quote markers, and may contain inner spaces. Date tokens are captured whole so that a
// day-qualified date such as 8/15/2024 reaches the date resolver and is rejected there.
// The stage prefixes below are reused by Diagnose so that a near miss can report how far it got.
const (
	usernameFragment = `^[\s>"'*]*(?P<username>[\w.()\-]+(?:[ \t]+[\w.()\-]+)*)\s*-{3}`
	priceFragment    = `\s*\$?\s*(?P<price>\d+(?:\.\d+)?)`
	pointsFragment   = `\s*(?:-\s*\$\s*(?P<total>\d[\d,]*(?:\.\d+)?)\s*)?-\s*(?P<points>\d[\d,]*)`
	resortFragment   = `\s*-\s*(?P<resort>[A-Z][A-Z@()]*)`
	sentFragment     = `\s*(?:-\s*(?P<useyear>[A-Z]{3,9})\s*)?(?:-\s*(?P<details>.*?)\s*)?-\s*sent\s+(?P<sent>` + dateToken + `)`
	outcomeFragment  = `(?:\s*,?\s*(?P<outcome>passed|taken)\s+(?P<resultdate>` + dateToken + `))?`
	dateToken        = `\d+\s*/\s*\d+(?:\s*/\s*\d+)?`
)

// Stage names reported by Diagnose, in the order the convention lists them.
const (
	StageUsername = "username"
	StagePrice    = "price"
	StagePoints   = "points"
	StageResort   = "resort"
	StageSentDate = "sent_date"
)

// linePattern is the single pattern every candidate line is tested against.
var linePattern = regexp.MustCompile(`(?i)` + usernameFragment + priceFragment + pointsFragment +
	resortFragment + sentFragment + outcomeFragment)

type stage struct {
	pattern *regexp.Regexp
	name    string
}

var stages = []stage{
	{name: StageUsername, pattern: regexp.MustCompile(`(?i)` + usernameFragment)},
	{name: StagePrice, pattern: regexp.MustCompile(`(?i)` + usernameFragment + priceFragment)},
	{name: StagePoints, pattern: regexp.MustCompile(`(?i)` + usernameFragment + priceFragment + pointsFragment)},
	{name: StageResort, pattern: regexp.MustCompile(`(?i)` + usernameFragment + priceFragment + pointsFragment + resortFragment)},
}

// RawCapture holds the raw token groups of a matched line. Empty strings mean the optional
// group did not participate in the match.
type RawCapture struct {
	Username      string
	Price         string
	TotalCost     string
	Points        string
	Resort        string
	UseYear       string
	PointsDetails string
	SentDate      string
	Outcome       string
	ResultDate    string
}

// Partial describes a line that looked like an attempt at an entry but did not match fully.
type Partial struct {
	Reached string // last stage that matched, empty if none did
	Failed  string // first stage that did not match
}

// Pattern returns the source of the compiled line pattern.
func Pattern() string {
	return linePattern.String()
}

// Match applies the line pattern and returns the captured groups.
// A false return is the normal outcome for forum chatter and is not an error.
func Match(line string) (RawCapture, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return RawCapture{}, false
	}

	group := func(name string) string {
		return strings.TrimSpace(m[linePattern.SubexpIndex(name)])
	}

	return RawCapture{
		Username:      group("username"),
		Price:         group("price"),
		TotalCost:     group("total"),
		Points:        group("points"),
		Resort:        group("resort"),
		UseYear:       group("useyear"),
		PointsDetails: group("details"),
		SentDate:      group("sent"),
		Outcome:       group("outcome"),
		ResultDate:    group("resultdate"),
	}, true
}

// LooksLikeEntry reports whether a line carries the "---" separator that starts every entry.
func LooksLikeEntry(line string) bool {
	return strings.Contains(line, "---")
}

// Diagnose reports how far a non-matching line got through the convention.
// It returns false when the line does not resemble an entry at all.
func Diagnose(line string) (Partial, bool) {
	if !LooksLikeEntry(line) {
		return Partial{}, false
	}

	var p Partial
	for _, s := range stages {
		if !s.pattern.MatchString(line) {
			p.Failed = s.name
			return p, true
		}
		p.Reached = s.name
	}
	p.Failed = StageSentDate

	return p, true
}
